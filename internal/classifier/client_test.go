package classifier

import (
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, health HealthResponse, dets []box) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(health)
	})
	mux.HandleFunc("POST /v1/detect", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "image/jpeg" {
			http.Error(w, "want jpeg", http.StatusUnsupportedMediaType)
			return
		}
		if _, err := jpeg.Decode(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(DetectResponse{Detections: dets})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func frame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 64, 48))
}

func TestClient_Ready(t *testing.T) {
	srv := newService(t, HealthResponse{Status: "ok", ModelLoaded: true}, nil)
	c := NewClient(srv.URL+"/", 0, time.Second)
	assert.NoError(t, c.Ready(context.Background()))
	assert.Equal(t, DefaultConfidence, c.Threshold())
}

func TestClient_Ready_no_model(t *testing.T) {
	srv := newService(t, HealthResponse{Status: "loading"}, nil)
	c := NewClient(srv.URL, 0.4, time.Second)
	assert.ErrorIs(t, c.Ready(context.Background()), ErrNotReady)
}

func TestClient_Ready_unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, 0.4, time.Second)
	assert.Error(t, c.Ready(context.Background()))
}

func TestClient_Ready_bad_status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "weights missing", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, 0.4, time.Second).Ready(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "weights missing")
}

func TestClient_Infer_filters_and_clamps(t *testing.T) {
	srv := newService(t, HealthResponse{}, []box{
		{Name: "car", Confidence: 0.8, XMin: 10.4, YMin: 5.6, XMax: 30, YMax: 20},
		{Name: "person", Confidence: 0.39, XMin: 1, YMin: 1, XMax: 2, YMax: 2},
		{Name: "truck", Confidence: 0.4, XMin: -5, YMin: 40, XMax: 100, YMax: 90},
	})
	c := NewClient(srv.URL, 0.4, time.Second)

	dets, err := c.Infer(context.Background(), frame())
	require.NoError(t, err)
	require.Len(t, dets, 2)

	assert.Equal(t, "car", dets[0].Label)
	assert.Equal(t, 0.8, dets[0].Confidence)
	assert.Equal(t, 10, dets[0].Box.X1)
	assert.Equal(t, 6, dets[0].Box.Y1)

	assert.Equal(t, "truck", dets[1].Label)
	assert.Equal(t, 0, dets[1].Box.X1)
	assert.Equal(t, 64, dets[1].Box.X2)
	assert.Equal(t, 48, dets[1].Box.Y2)
}

func TestClient_Infer_server_error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0.4, time.Second).Infer(context.Background(), frame())
	assert.ErrorContains(t, err, "status 500")
}

func TestClient_Infer_honours_context(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(srv.URL, 0.4, 5*time.Second).Infer(ctx, frame())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
