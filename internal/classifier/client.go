// Package classifier is a client for an HTTP object-detection service that
// serves a YOLO-style model.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"hazardwatch/internal/orchestrator"
)

// ErrNotReady is returned by Ready when the service is up but has no model loaded.
var ErrNotReady = errors.New("classifier model not loaded")

// DefaultConfidence is the minimum confidence kept when none is configured.
const DefaultConfidence = 0.4

// Client calls the detection service. It implements orchestrator.Classifier.
type Client struct {
	baseURL    string
	httpClient *http.Client
	threshold  float64
	quality    int
}

var _ orchestrator.Classifier = (*Client)(nil)

// NewClient returns a client for baseURL. Detections below threshold are
// dropped; a threshold <= 0 uses DefaultConfidence.
func NewClient(baseURL string, threshold float64, timeout time.Duration) *Client {
	if threshold <= 0 {
		threshold = DefaultConfidence
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		threshold:  threshold,
		quality:    85,
	}
}

// Threshold is the confidence cut-off applied to results.
func (c *Client) Threshold() float64 {
	return c.threshold
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string   `json:"status"`
	ModelLoaded bool     `json:"model_loaded"`
	Model       string   `json:"model,omitempty"`
	Labels      []string `json:"labels,omitempty"`
}

// Health fetches the service health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("health check failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &result, nil
}

// Ready reports whether the service can run inference.
func (c *Client) Ready(ctx context.Context) error {
	h, err := c.Health(ctx)
	if err != nil {
		return err
	}
	if !h.ModelLoaded {
		return ErrNotReady
	}
	return nil
}

// box is one detection as returned by the service, in the column layout of
// YOLOv5's pandas output.
type box struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	XMin       float64 `json:"xmin"`
	YMin       float64 `json:"ymin"`
	XMax       float64 `json:"xmax"`
	YMax       float64 `json:"ymax"`
}

// DetectResponse is the body of POST /v1/detect.
type DetectResponse struct {
	Detections []box   `json:"detections"`
	InferMS    float64 `json:"inference_ms,omitempty"`
}

// Infer sends frame as JPEG and returns the detections at or above the
// threshold, in the order the service reported them.
func (c *Client) Infer(ctx context.Context, frame image.Image) ([]orchestrator.Detection, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/detect", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("detect failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result DetectResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode detect response: %w", err)
	}

	bounds := frame.Bounds()
	out := make([]orchestrator.Detection, 0, len(result.Detections))
	for _, b := range result.Detections {
		if b.Confidence < c.threshold {
			continue
		}
		out = append(out, orchestrator.Detection{
			Label:      b.Name,
			Confidence: b.Confidence,
			Box:        clampBox(b, bounds),
		})
	}
	return out, nil
}

func clampBox(b box, r image.Rectangle) orchestrator.BoundingBox {
	clamp := func(v float64, lo, hi int) int {
		n := int(math.Round(v))
		if n < lo {
			return lo
		}
		if n > hi {
			return hi
		}
		return n
	}
	return orchestrator.BoundingBox{
		X1: clamp(b.XMin, r.Min.X, r.Max.X),
		Y1: clamp(b.YMin, r.Min.Y, r.Max.Y),
		X2: clamp(b.XMax, r.Min.X, r.Max.X),
		Y2: clamp(b.YMax, r.Min.Y, r.Max.Y),
	}
}
