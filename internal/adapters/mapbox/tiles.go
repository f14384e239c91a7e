// Package mapbox adapts the Mapbox raster tile and geocoding APIs.
package mapbox

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adierro/courtscan/internal/pkg/tiles"
)

const defaultBaseURL = "https://api.mapbox.com"

// TileClient implements ports.TileImageProvider against the Mapbox static
// tiles API. Tiles are requested at 512@2x, so images arrive as 1024px.
type TileClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewTileClient creates a TileClient with the given access token.
func NewTileClient(token string) *TileClient {
	return &TileClient{
		baseURL: defaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the client at a different host, for tests.
func (c *TileClient) WithBaseURL(url string) *TileClient {
	c.baseURL = url
	return c
}

// TileURL returns the satellite tile URL, token included. The inference
// provider fetches the image itself, so the URL must be self-contained.
func (c *TileClient) TileURL(addr tiles.Tile) string {
	return fmt.Sprintf("%s/styles/v1/mapbox/satellite-v9/tiles/512/%d/%d/%d@2x?access_token=%s",
		c.baseURL, addr.Z, addr.X, addr.Y, c.token)
}

// FetchTile downloads the raw tile image.
func (c *TileClient) FetchTile(ctx context.Context, addr tiles.Tile) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.TileURL(addr), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tile %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch tile %s: HTTP %d", addr, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
