package framesource

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
)

// maxJPEGSize bounds a single frame so a corrupt stream cannot grow the
// buffer without limit.
const maxJPEGSize = 32 << 20

var errFrameTooLarge = errors.New("jpeg frame exceeds size limit")

// JPEGSplitter cuts a byte stream of back-to-back JPEG images (as written by
// ffmpeg's image2pipe muxer) into individual images.
type JPEGSplitter struct {
	r   *bufio.Reader
	buf bytes.Buffer
}

// NewJPEGSplitter reads JPEG images from r.
func NewJPEGSplitter(r io.Reader) *JPEGSplitter {
	return &JPEGSplitter{r: bufio.NewReaderSize(r, 64<<10)}
}

// Next returns the bytes of the next complete image, from SOI to EOI.
// It returns io.EOF when the stream ends between images and
// io.ErrUnexpectedEOF when it ends inside one.
func (s *JPEGSplitter) Next() ([]byte, error) {
	if err := s.seekSOI(); err != nil {
		return nil, err
	}
	s.buf.Reset()
	s.buf.Write([]byte{0xFF, 0xD8})

	var prev byte
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		s.buf.WriteByte(b)
		if prev == 0xFF && b == 0xD9 {
			out := make([]byte, s.buf.Len())
			copy(out, s.buf.Bytes())
			return out, nil
		}
		if s.buf.Len() > maxJPEGSize {
			return nil, errFrameTooLarge
		}
		prev = b
	}
}

func (s *JPEGSplitter) seekSOI() error {
	var prev byte
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return err
		}
		if prev == 0xFF && b == 0xD8 {
			return nil
		}
		prev = b
	}
}

// NextImage decodes the next image.
func (s *JPEGSplitter) NextImage() (image.Image, error) {
	data, err := s.Next()
	if err != nil {
		return nil, err
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg frame: %w", err)
	}
	return img, nil
}
