package framesource

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

// mjpegReader reads frames from an HTTP camera. A multipart/x-mixed-replace
// response yields one frame per part; a single image response yields one
// frame.
type mjpegReader struct {
	body   io.ReadCloser
	parts  *multipart.Reader
	single bool
	served bool
}

func openMJPEG(ctx context.Context, client *http.Client, url string) (*mjpegReader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mjpeg request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("mjpeg request failed with status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("mjpeg content type: %w", err)
	}
	r := &mjpegReader{body: resp.Body}
	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		boundary := strings.TrimPrefix(params["boundary"], "--")
		if boundary == "" {
			resp.Body.Close()
			return nil, errors.New("mjpeg stream has no boundary")
		}
		r.parts = multipart.NewReader(resp.Body, boundary)
	case strings.HasPrefix(mediaType, "image/"):
		r.single = true
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("unsupported content type %q", mediaType)
	}
	return r, nil
}

func (r *mjpegReader) ReadFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.single {
		if r.served {
			return nil, io.EOF
		}
		r.served = true
		img, _, err := image.Decode(r.body)
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		return img, nil
	}

	part, err := r.parts.NextPart()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer part.Close()
	img, _, err := image.Decode(part)
	if err != nil {
		return nil, fmt.Errorf("decode mjpeg part: %w", err)
	}
	return img, nil
}

func (r *mjpegReader) Close() error {
	return r.body.Close()
}
