package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Geocoder implements ports.Geocoder against the Mapbox geocoding API.
// Lookups degrade to a "lat, lon" string instead of failing: a tile with a
// coordinate label beats a tile with no label.
type Geocoder struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewGeocoder creates a Geocoder with the given access token.
func NewGeocoder(token string) *Geocoder {
	return &Geocoder{
		baseURL: defaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the geocoder at a different host, for tests.
func (g *Geocoder) WithBaseURL(url string) *Geocoder {
	g.baseURL = url
	return g
}

type geocodeResponse struct {
	Features []struct {
		PlaceName string `json:"place_name"`
	} `json:"features"`
}

// Reverse resolves coordinates to a place name.
func (g *Geocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	fallback := fmt.Sprintf("%.4f, %.4f", lat, lon)

	url := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%f,%f.json?types=address,place&limit=1&access_token=%s",
		g.baseURL, lon, lat, g.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fallback, nil
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return fallback, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fallback, nil
	}

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fallback, nil
	}
	if len(decoded.Features) == 0 || decoded.Features[0].PlaceName == "" {
		return fallback, nil
	}
	return decoded.Features[0].PlaceName, nil
}
