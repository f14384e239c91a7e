package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Feature is a GeoJSON Point feature for map rendering.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   PointGeometry  `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// PointGeometry holds [lon, lat] GeoJSON point coordinates.
type PointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// FeatureCollection is the GeoJSON wrapper returned by viewport queries.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewPointFeature builds a GeoJSON Point feature at the given location.
func NewPointFeature(p GeoPoint, props map[string]any) Feature {
	return Feature{
		Type: "Feature",
		Geometry: PointGeometry{
			Type:        "Point",
			Coordinates: [2]float64{p.Lon, p.Lat},
		},
		Properties: props,
	}
}
