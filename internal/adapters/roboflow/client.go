// Package roboflow adapts the Roboflow hosted inference API.
package roboflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/adierro/courtscan/internal/core/domain"
)

const defaultBaseURL = "https://detect.roboflow.com"

// Client implements ports.InferenceProvider against a hosted Roboflow
// object-detection model.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	version string
	http    *http.Client
}

// New creates a Client for one model version.
func New(apiKey, model, version string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		model:   model,
		version: version,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// WithBaseURL points the client at a different host, for tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// Model returns the configured model name and version.
func (c *Client) Model() (string, string) {
	return c.model, c.version
}

type detectResponse struct {
	InferenceID string `json:"inference_id"`
	Image       struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"image"`
	Predictions []struct {
		X           float64 `json:"x"`
		Y           float64 `json:"y"`
		Width       float64 `json:"width"`
		Height      float64 `json:"height"`
		Confidence  float64 `json:"confidence"`
		Class       string  `json:"class"`
		ClassID     int     `json:"class_id"`
		DetectionID string  `json:"detection_id"`
	} `json:"predictions"`
}

// Detect runs the model against an image the API fetches by URL.
func (c *Client) Detect(ctx context.Context, imageURL string) (*domain.InferenceResult, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("image", imageURL)
	endpoint := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, c.model, c.version, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: inference request: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: inference HTTP %d", domain.ErrExternalService, resp.StatusCode)
	}

	var decoded detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode inference response: %v", domain.ErrExternalService, err)
	}

	result := &domain.InferenceResult{
		InferenceID: decoded.InferenceID,
		ImageWidth:  decoded.Image.Width,
		ImageHeight: decoded.Image.Height,
	}
	for _, p := range decoded.Predictions {
		result.Predictions = append(result.Predictions, domain.Prediction{
			X: p.X, Y: p.Y, Width: p.Width, Height: p.Height,
			Confidence:  p.Confidence,
			Class:       p.Class,
			ClassID:     p.ClassID,
			DetectionID: p.DetectionID,
		})
	}
	return result, nil
}
