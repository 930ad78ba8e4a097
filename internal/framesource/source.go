// Package framesource opens the frame sources a session can read from:
// capture devices and video files (through ffmpeg), directories of still
// images, and HTTP MJPEG cameras.
package framesource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"hazardwatch/internal/orchestrator"
	"hazardwatch/internal/platform/logger"
)

// ErrNotFound is returned when a path or device does not exist.
var ErrNotFound = errors.New("frame source not found")

// Source implements orchestrator.FrameSource.
type Source struct {
	FFmpegPath string
	DeviceDir  string
	HTTPClient *http.Client
	Log        *slog.Logger
}

var _ orchestrator.FrameSource = (*Source)(nil)

// New returns a Source that runs the ffmpeg binary at ffmpegPath.
func New(ffmpegPath string, log *slog.Logger) *Source {
	if log == nil {
		log = logger.Discard()
	}
	return &Source{
		FFmpegPath: ffmpegPath,
		DeviceDir:  "/dev",
		HTTPClient: &http.Client{},
		Log:        log,
	}
}

// DevicePath returns the video4linux node for device n.
func (s *Source) DevicePath(n int) string {
	return fmt.Sprintf("%s/video%d", strings.TrimRight(s.DeviceDir, "/"), n)
}

// Open starts reading from src.
func (s *Source) Open(ctx context.Context, src orchestrator.SourceDescriptor) (orchestrator.FrameReader, error) {
	if src.IsDevice {
		dev := s.DevicePath(src.Device)
		if _, err := os.Stat(dev); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dev)
		}
		return s.ffmpeg(ctx, dev, true)
	}

	path := src.Path
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return openMJPEG(ctx, s.HTTPClient, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if info.IsDir() {
		files, err := listImages(path)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("%w: no images in %s", ErrNotFound, path)
		}
		return &sequenceReader{files: files}, nil
	}
	if isImage(path) {
		return &sequenceReader{files: []string{path}}, nil
	}
	return s.ffmpeg(ctx, path, false)
}

func (s *Source) ffmpeg(ctx context.Context, input string, device bool) (orchestrator.FrameReader, error) {
	bin, err := exec.LookPath(s.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not available: %w", err)
	}
	return startFFmpeg(ctx, bin, input, device, s.Log)
}
