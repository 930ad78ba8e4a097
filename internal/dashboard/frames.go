package dashboard

import (
	"bytes"
	"image"
	"image/jpeg"
	"sync"

	"hazardwatch/internal/orchestrator"
)

// FrameStore keeps the most recent composited frame for GET /frame.jpg. It
// implements orchestrator.Display.
type FrameStore struct {
	Quality int

	mu      sync.Mutex
	frame   image.Image
	seq     uint64
	encoded []byte
	encSeq  uint64
}

var _ orchestrator.Display = (*FrameStore)(nil)

// NewFrameStore returns an empty store encoding at JPEG quality 80.
func NewFrameStore() *FrameStore {
	return &FrameStore{Quality: 80}
}

// ShowFrame replaces the latest frame. Encoding is deferred to the first reader.
func (f *FrameStore) ShowFrame(img image.Image) {
	f.mu.Lock()
	f.frame = img
	f.seq++
	f.mu.Unlock()
}

// Seq is the number of frames shown so far.
func (f *FrameStore) Seq() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq
}

// JPEG returns the latest frame encoded as JPEG, or false if none was shown.
// Encoding happens outside the lock so ShowFrame never waits on a reader.
func (f *FrameStore) JPEG() ([]byte, bool, error) {
	f.mu.Lock()
	frame, seq := f.frame, f.seq
	if frame == nil {
		f.mu.Unlock()
		return nil, false, nil
	}
	if f.encoded != nil && f.encSeq == seq {
		data := f.encoded
		f.mu.Unlock()
		return data, true, nil
	}
	quality := f.Quality
	f.mu.Unlock()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: quality}); err != nil {
		return nil, false, err
	}
	data := buf.Bytes()

	f.mu.Lock()
	if seq > f.encSeq || f.encoded == nil {
		f.encoded = data
		f.encSeq = seq
	}
	f.mu.Unlock()
	return data, true, nil
}
