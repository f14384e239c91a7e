// Package compositor stitches neighboring satellite tiles into one canvas
// and crops a padded close-up around an object's bounding box. Objects near
// a tile edge would otherwise be clipped by their own tile.
package compositor

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/adierro/courtscan/internal/core/ports"
	"github.com/adierro/courtscan/internal/pkg/bbox"
	"github.com/adierro/courtscan/internal/pkg/tiles"
)

const (
	// TileSize is the pixel size of one fetched tile image.
	TileSize = 1024
	// EdgeThreshold is how close to a tile edge a bbox may sit before the
	// neighboring tile is pulled into the canvas.
	EdgeThreshold = 100
	// CropPadding scales each bbox side into the crop size.
	CropPadding = 2.5
	// MinCropSize floors the crop so tiny objects still get context.
	MinCropSize = 400
)

// PlacedTile is one tile slot on the stitched canvas.
type PlacedTile struct {
	Addr    tiles.Tile
	OffsetX int
	OffsetY int
}

// Layout is the canvas plan for one bbox: which tiles to fetch and where
// the anchor tile sits.
type Layout struct {
	Cols, Rows int
	// AnchorX/AnchorY are the canvas offsets of the bbox's own tile.
	AnchorX, AnchorY int
	Placed           []PlacedTile
}

// CanvasWidth returns the stitched canvas width in pixels.
func (l Layout) CanvasWidth() int { return l.Cols * TileSize }

// CanvasHeight returns the stitched canvas height in pixels.
func (l Layout) CanvasHeight() int { return l.Rows * TileSize }

// PlanLayout decides which neighbors of the anchor tile the canvas needs.
// A neighbor is pulled in only when it exists: at a pyramid edge the grid
// shrinks rather than planning an empty slot.
func PlanLayout(anchor tiles.Tile, b bbox.PixelBBox) Layout {
	maxIndex := 1<<anchor.Z - 1
	needWest := b.X-b.Width/2 < EdgeThreshold && anchor.X > 0
	needEast := b.X+b.Width/2 > TileSize-EdgeThreshold && anchor.X < maxIndex
	needNorth := b.Y-b.Height/2 < EdgeThreshold && anchor.Y > 0
	needSouth := b.Y+b.Height/2 > TileSize-EdgeThreshold && anchor.Y < maxIndex

	colStart, colEnd := 0, 0
	if needWest {
		colStart = -1
	}
	if needEast {
		colEnd = 1
	}
	rowStart, rowEnd := 0, 0
	if needNorth {
		rowStart = -1
	}
	if needSouth {
		rowEnd = 1
	}

	layout := Layout{
		Cols:    colEnd - colStart + 1,
		Rows:    rowEnd - rowStart + 1,
		AnchorX: -colStart * TileSize,
		AnchorY: -rowStart * TileSize,
	}
	for row := rowStart; row <= rowEnd; row++ {
		for col := colStart; col <= colEnd; col++ {
			layout.Placed = append(layout.Placed, PlacedTile{
				Addr:    tiles.Tile{Z: anchor.Z, X: anchor.X + col, Y: anchor.Y + row},
				OffsetX: (col - colStart) * TileSize,
				OffsetY: (row - rowStart) * TileSize,
			})
		}
	}
	return layout
}

// Crop is the final cut-out rectangle on the canvas plus where the bbox
// lands inside it, as fractions of the crop size.
type Crop struct {
	X, Y          int
	Width, Height int
	// Overlay locates the bbox within the crop: center and size as
	// fractions in [0, 1].
	Overlay OverlayBox
}

// OverlayBox positions a bounding box inside a crop in fractional
// coordinates, ready for client-side rendering at any display size.
type OverlayBox struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// ComputeCrop sizes the crop around the bbox per axis: each side scaled by
// the padding factor, floored at the minimum. The crop shifts to stay on
// the canvas and only shrinks when the canvas itself is smaller.
func ComputeCrop(layout Layout, b bbox.PixelBBox) Crop {
	desiredW := int(b.Width * CropPadding)
	if desiredW < MinCropSize {
		desiredW = MinCropSize
	}
	desiredH := int(b.Height * CropPadding)
	if desiredH < MinCropSize {
		desiredH = MinCropSize
	}

	centerX := int(b.X) + layout.AnchorX
	centerY := int(b.Y) + layout.AnchorY

	x, w := clampSpan(centerX-desiredW/2, desiredW, layout.CanvasWidth())
	y, h := clampSpan(centerY-desiredH/2, desiredH, layout.CanvasHeight())

	return Crop{
		X: x, Y: y, Width: w, Height: h,
		Overlay: OverlayBox{
			CenterX: (float64(centerX) - float64(x)) / float64(w),
			CenterY: (float64(centerY) - float64(y)) / float64(h),
			Width:   b.Width / float64(w),
			Height:  b.Height / float64(h),
		},
	}
}

// clampSpan shifts a [start, start+size) span into [0, limit), shrinking
// only when size exceeds the limit.
func clampSpan(start, size, limit int) (int, int) {
	if size > limit {
		return 0, limit
	}
	if start < 0 {
		start = 0
	}
	if start+size > limit {
		start = limit - size
	}
	return start, size
}

// Result is a finished composite.
type Result struct {
	ImageBase64 string     `json:"image_base64"`
	ContentType string     `json:"content_type"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	Overlay     OverlayBox `json:"overlay"`
	TileCount   int        `json:"tile_count"`
}

// Compositor fetches and stitches tiles into cropped composites.
type Compositor struct {
	images      ports.TileImageProvider
	logger      *slog.Logger
	concurrency int
}

func New(images ports.TileImageProvider, logger *slog.Logger) *Compositor {
	return &Compositor{images: images, logger: logger, concurrency: 4}
}

// Composite builds the padded close-up for a bbox on its anchor tile.
// All planned tiles must arrive: a single failed fetch fails the whole
// composite rather than returning a canvas with a black slot.
func (c *Compositor) Composite(ctx context.Context, anchor tiles.Tile, b bbox.PixelBBox) (*Result, error) {
	if !b.Defined() {
		return nil, fmt.Errorf("bounding box is empty")
	}
	layout := PlanLayout(anchor, b)

	canvas := image.NewRGBA(image.Rect(0, 0, layout.CanvasWidth(), layout.CanvasHeight()))

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		fetchErr error
	)
	sem := make(chan struct{}, c.concurrency)

	for _, placed := range layout.Placed {
		wg.Add(1)
		go func(p PlacedTile) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			img, err := c.fetchTile(ctx, p.Addr)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.Warn("composite tile fetch failed",
					slog.String("tile", p.Addr.String()), slog.Any("error", err))
				if fetchErr == nil {
					fetchErr = fmt.Errorf("fetch tile %s: %w", p.Addr, err)
				}
				return
			}
			rect := image.Rect(p.OffsetX, p.OffsetY, p.OffsetX+TileSize, p.OffsetY+TileSize)
			draw.Draw(canvas, rect, img, image.Point{}, draw.Src)
		}(placed)
	}
	wg.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}

	crop := ComputeCrop(layout, b)
	out := imaging.Crop(canvas, image.Rect(crop.X, crop.Y, crop.X+crop.Width, crop.Y+crop.Height))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode composite: %w", err)
	}

	return &Result{
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		ContentType: "image/jpeg",
		Width:       crop.Width,
		Height:      crop.Height,
		Overlay:     crop.Overlay,
		TileCount:   len(layout.Placed),
	}, nil
}

func (c *Compositor) fetchTile(ctx context.Context, addr tiles.Tile) (image.Image, error) {
	data, err := c.images.FetchTile(ctx, addr)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode tile: %w", err)
	}
	// Providers occasionally serve non-retina tiles; normalize so the
	// canvas geometry holds.
	if img.Bounds().Dx() != TileSize || img.Bounds().Dy() != TileSize {
		img = imaging.Resize(img, TileSize, TileSize, imaging.Lanczos)
	}
	return img, nil
}
