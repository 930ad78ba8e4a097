package framesource

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// stopGrace is how long Close waits for ffmpeg to exit before killing it.
const stopGrace = 2 * time.Second

// ffmpegArgs builds the command line that decodes input to a JPEG stream on
// stdout. Devices are read through video4linux2.
func ffmpegArgs(input string, device bool) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if device {
		args = append(args, "-f", "v4l2")
	}
	return append(args,
		"-i", input,
		"-an",
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "3",
		"pipe:1",
	)
}

// ffmpegReader is a FrameReader over an ffmpeg subprocess.
type ffmpegReader struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	frames *JPEGSplitter
	log    *slog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
	waitErr   error
	exited    chan struct{}
}

func startFFmpeg(ctx context.Context, path, input string, device bool, log *slog.Logger) (*ffmpegReader, error) {
	pctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(pctx, path, ffmpegArgs(input, device)...)
	cmd.WaitDelay = stopGrace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	log = log.With("input", input, "pid", cmd.Process.Pid)
	log.Debug("ffmpeg started")

	r := &ffmpegReader{
		cmd:    cmd,
		cancel: cancel,
		frames: NewJPEGSplitter(stdout),
		log:    log,
		exited: make(chan struct{}),
	}
	r.wg.Add(1)
	go r.logStderr(stderr)
	return r, nil
}

// logStderr forwards ffmpeg diagnostics to the logger.
func (r *ffmpegReader) logStderr(stderr io.Reader) {
	defer r.wg.Done()
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			r.log.Warn("ffmpeg", "log", line)
		}
	}
}

func (r *ffmpegReader) ReadFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := r.frames.NextImage()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if werr := r.wait(); werr != nil && ctx.Err() == nil {
				return nil, fmt.Errorf("ffmpeg exited: %w", werr)
			}
			return nil, io.EOF
		}
		return nil, err
	}
	return img, nil
}

func (r *ffmpegReader) wait() error {
	r.closeOnce.Do(func() {
		r.wg.Wait()
		r.waitErr = r.cmd.Wait()
		close(r.exited)
	})
	<-r.exited
	return r.waitErr
}

// Close stops ffmpeg and reaps it.
func (r *ffmpegReader) Close() error {
	r.cancel()
	err := r.wait()
	r.log.Debug("ffmpeg stopped", "error", err)
	return nil
}
