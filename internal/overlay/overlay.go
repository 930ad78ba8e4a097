// Package overlay draws detection boxes, labels and hazard counters onto
// frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"hazardwatch/internal/orchestrator"
)

// Banner texts.
const (
	BannerHazard = "HAZARD DETECTED"
	BannerClear  = "No hazards"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
)

// Compositor renders orchestrator.Overlay onto frames. It implements
// orchestrator.Compositor.
type Compositor struct {
	Thickness int
	Face      font.Face
}

var _ orchestrator.Compositor = (*Compositor)(nil)

// New returns a compositor with 2px boxes and the 7x13 bitmap font.
func New() *Compositor {
	return &Compositor{Thickness: 2, Face: basicfont.Face7x13}
}

// Composite returns a copy of frame with ov drawn on it. frame is not modified.
func (c *Compositor) Composite(frame image.Image, ov orchestrator.Overlay) image.Image {
	b := frame.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, frame, b.Min, draw.Src)

	lineHeight := c.Face.Metrics().Height.Ceil()

	for _, a := range ov.Annotations {
		r := image.Rect(a.Box.X1, a.Box.Y1, a.Box.X2, a.Box.Y2).Add(b.Min)
		c.rect(dst, r, a.Color)

		label := fmt.Sprintf("%s %.2f", a.Label, a.Confidence)
		y := r.Min.Y - 8
		if y < b.Min.Y+lineHeight {
			y = b.Min.Y + lineHeight
		}
		c.text(dst, label, r.Min.X, y, a.Color)
	}

	c.text(dst, fmt.Sprintf("Frame: %d", ov.FrameIndex), b.Min.X+10, b.Min.Y+20, white)
	y := b.Min.Y + 45
	for _, lc := range ov.Counts {
		c.text(dst, fmt.Sprintf("%s: %d", lc.Label, lc.Count), b.Min.X+10, y, white)
		y += 22
	}

	banner, col := BannerClear, green
	if ov.AnyHazard {
		banner, col = BannerHazard, red
	}
	w := font.MeasureString(c.Face, banner).Ceil()
	c.text(dst, banner, b.Max.X-w-20, b.Min.Y+30, col)

	return dst
}

// rect draws the outline of r, Thickness pixels wide, inside r.
func (c *Compositor) rect(dst draw.Image, r image.Rectangle, col color.Color) {
	t := c.Thickness
	if t <= 0 {
		t = 1
	}
	src := image.NewUniform(col)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Over)
	}
}

// text draws s with its baseline at y, emboldened by a 1px horizontal offset.
func (c *Compositor) text(dst draw.Image, s string, x, y int, col color.Color) {
	d := font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: c.Face}
	for _, dx := range []int{0, 1} {
		d.Dot = fixed.P(x+dx, y)
		d.DrawString(s)
	}
}
