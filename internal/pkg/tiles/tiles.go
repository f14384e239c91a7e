// Package tiles implements Web-Mercator slippy-map tile arithmetic:
// conversions between geographic coordinates, tile addresses, and pixel
// positions inside tile images.
package tiles

import (
	"fmt"
	"math"
)

// MaxMercatorLat is the latitude limit of the Web-Mercator projection.
const MaxMercatorLat = 85.05112878

// Tile identifies one square raster tile in the slippy-map pyramid.
type Tile struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// Bounds is the geographic extent of a tile.
type Bounds struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// ViewportBBox is a geographic bounding box as reported by a map viewport.
// MinLng > MaxLng means the box crosses the antimeridian.
type ViewportBBox struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// RadiusGrid is the square grid of tiles around a center tile. Cols and Rows
// report the nominal grid size (2*radius+1) even when edge tiles were
// dropped at the world boundary.
type RadiusGrid struct {
	Zoom  int    `json:"zoom"`
	Tiles []Tile `json:"tiles"`
	Cols  int    `json:"cols"`
	Rows  int    `json:"rows"`
}

// ClampLat clamps a latitude to the Web-Mercator limits.
func ClampLat(lat float64) float64 {
	return math.Max(math.Min(lat, MaxMercatorLat), -MaxMercatorLat)
}

// MaxIndex returns the largest valid x/y index at zoom z.
func MaxIndex(z int) int {
	return 1<<uint(z) - 1
}

// String formats the address as "z/x/y".
func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Valid reports whether the tile address is inside the pyramid.
func (t Tile) Valid() bool {
	return t.Z >= 0 && t.X >= 0 && t.Y >= 0 && t.X <= MaxIndex(t.Z) && t.Y <= MaxIndex(t.Z)
}

func lonToX(lon float64, z int) int {
	n := float64(int(1) << uint(z))
	return clampIndex(int(math.Floor(((lon+180)/360)*n)), z)
}

func latToY(lat float64, z int) int {
	rad := lat * math.Pi / 180
	n := float64(int(1) << uint(z))
	y := math.Floor(((1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2) * n)
	return clampIndex(int(y), z)
}

func clampIndex(i, z int) int {
	if i < 0 {
		return 0
	}
	if max := MaxIndex(z); i > max {
		return max
	}
	return i
}

// PointToTile converts a geographic point to the tile containing it.
// Latitude is clamped to the Web-Mercator limits first. A point exactly on a
// tile boundary floors into the higher-index tile.
func PointToTile(lat, lon float64, zoom int) Tile {
	clamped := ClampLat(lat)
	return Tile{
		Z: zoom,
		X: lonToX(lon, zoom),
		Y: latToY(clamped, zoom),
	}
}

// TileBounds computes the geographic extent of tile z/x/y via the inverse
// Mercator formulas.
func TileBounds(z, x, y int) Bounds {
	n := float64(int(1) << uint(z))
	west := (float64(x)/n)*360 - 180
	east := (float64(x+1)/n)*360 - 180
	north := math.Atan(math.Sinh(math.Pi*(1-2*float64(y)/n))) * 180 / math.Pi
	south := math.Atan(math.Sinh(math.Pi*(1-2*float64(y+1)/n))) * 180 / math.Pi
	return Bounds{West: west, South: south, East: east, North: north}
}

// PixelToGeo converts a pixel position inside a downloaded tile image to
// longitude/latitude. The image may be larger than the base tile size (a
// 512px tile fetched @2x arrives as 1024px), so the pixel is rescaled to
// base tile units before applying the fractional-tile formula.
func PixelToGeo(z, x, y int, px, py, imageW, imageH float64, baseTileSize int) (lat, lon float64) {
	n := float64(int(1) << uint(z))
	base := float64(baseTileSize)
	pxBase := px * base / imageW
	pyBase := py * base / imageH
	fracX := (float64(x) + pxBase/base) / n
	fracY := (float64(y) + pyBase/base) / n
	lon = fracX*360 - 180
	lat = math.Atan(math.Sinh(math.Pi*(1-2*fracY))) * 180 / math.Pi
	return lat, lon
}

func splitAntimeridian(bbox ViewportBBox) []ViewportBBox {
	if bbox.MinLng <= bbox.MaxLng {
		return []ViewportBBox{bbox}
	}
	return []ViewportBBox{
		{MinLat: bbox.MinLat, MinLng: -180, MaxLat: bbox.MaxLat, MaxLng: bbox.MaxLng},
		{MinLat: bbox.MinLat, MinLng: bbox.MinLng, MaxLat: bbox.MaxLat, MaxLng: 180},
	}
}

// CountTilesIntersectingBBox returns how many tiles TilesIntersectingBBox
// would emit, without materializing them. Callers use it to refuse
// oversized viewports before enumeration.
func CountTilesIntersectingBBox(bbox ViewportBBox, zoom int) int {
	var n int
	for _, part := range splitAntimeridian(bbox) {
		minY := latToY(ClampLat(part.MaxLat), zoom)
		maxY := latToY(ClampLat(part.MinLat), zoom)
		minX := lonToX(part.MinLng, zoom)
		maxX := lonToX(part.MaxLng, zoom)
		n += (maxX - minX + 1) * (maxY - minY + 1)
	}
	return n
}

// TilesIntersectingBBox enumerates every tile that intersects the bbox at the
// given zoom. A bbox crossing the antimeridian (MinLng > MaxLng) is split
// into [-180, MaxLng] and [MinLng, 180] and each part enumerated on its own.
func TilesIntersectingBBox(bbox ViewportBBox, zoom int) []Tile {
	parts := splitAntimeridian(bbox)

	var out []Tile
	for _, part := range parts {
		minY := latToY(ClampLat(part.MaxLat), zoom) // north edge
		maxY := latToY(ClampLat(part.MinLat), zoom) // south edge, y grows southward
		minX := lonToX(part.MinLng, zoom)
		maxX := lonToX(part.MaxLng, zoom)
		for x := minX; x <= maxX; x++ {
			for y := minY; y <= maxY; y++ {
				out = append(out, Tile{Z: zoom, X: x, Y: y})
			}
		}
	}
	return out
}

// TilesInRadius emits the square grid of tiles centered on a tile, dropping
// addresses that fall outside the pyramid at that zoom.
func TilesInRadius(center Tile, radius int) RadiusGrid {
	max := MaxIndex(center.Z)
	grid := RadiusGrid{
		Zoom: center.Z,
		Cols: 2*radius + 1,
		Rows: 2*radius + 1,
	}
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			x := center.X + dx
			y := center.Y + dy
			if x < 0 || x > max || y < 0 || y > max {
				continue
			}
			grid.Tiles = append(grid.Tiles, Tile{Z: center.Z, X: x, Y: y})
		}
	}
	return grid
}
