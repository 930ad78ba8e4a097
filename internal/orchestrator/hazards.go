package orchestrator

import (
	"fmt"
	"image/color"
)

// Vocabulary is the fixed set of labels treated as hazards, each with an
// overlay color. The zero value contains no labels.
type Vocabulary struct {
	labels []string
	colors map[string]color.RGBA
}

var defaultColors = map[string]color.RGBA{
	"person":    {R: 0, G: 255, B: 0, A: 255},
	"car":       {R: 0, G: 0, B: 255, A: 255},
	"truck":     {R: 255, G: 0, B: 0, A: 255},
	"bicycle":   {R: 0, G: 255, B: 255, A: 255},
	"motorbike": {R: 255, G: 255, B: 0, A: 255},
	"pothole":   {R: 128, G: 0, B: 128, A: 255},
}

// Labels without a predefined color are assigned from this palette in order.
var fallbackPalette = []color.RGBA{
	{R: 255, G: 128, B: 0, A: 255},
	{R: 255, G: 0, B: 255, A: 255},
	{R: 0, G: 128, B: 255, A: 255},
	{R: 128, G: 255, B: 0, A: 255},
	{R: 255, G: 64, B: 64, A: 255},
	{R: 64, G: 192, B: 192, A: 255},
}

// DefaultVocabulary returns person, car, truck, bicycle, motorbike, pothole.
func DefaultVocabulary() Vocabulary {
	return NewVocabulary([]string{"person", "car", "truck", "bicycle", "motorbike", "pothole"})
}

// NewVocabulary builds a vocabulary from labels, ignoring duplicates.
func NewVocabulary(labels []string) Vocabulary {
	v := Vocabulary{colors: make(map[string]color.RGBA, len(labels))}
	next := 0
	for _, l := range labels {
		if _, dup := v.colors[l]; dup || l == "" {
			continue
		}
		c, ok := defaultColors[l]
		if !ok {
			c = fallbackPalette[next%len(fallbackPalette)]
			next++
		}
		v.labels = append(v.labels, l)
		v.colors[l] = c
	}
	return v
}

// Contains reports whether label is a hazard.
func (v Vocabulary) Contains(label string) bool {
	_, ok := v.colors[label]
	return ok
}

// Color returns the overlay color for label; non-hazards are drawn red.
func (v Vocabulary) Color(label string) color.RGBA {
	if c, ok := v.colors[label]; ok {
		return c
	}
	return color.RGBA{R: 255, A: 255}
}

// Labels returns the hazard labels in configuration order.
func (v Vocabulary) Labels() []string {
	out := make([]string, len(v.labels))
	copy(out, v.labels)
	return out
}

// Annotation is one box to draw on a frame.
type Annotation struct {
	Box        BoundingBox
	Label      string
	Confidence float64
	Color      color.RGBA
}

// LabelCount is one line of the per-label counter overlay.
type LabelCount struct {
	Label string
	Count int
}

// Overlay is everything the compositor draws for one frame.
type Overlay struct {
	FrameIndex  uint64
	Annotations []Annotation
	Counts      []LabelCount
	AnyHazard   bool
}

// Summarize aggregates the detections of frame index. It returns the
// summary, the hazard detections in production order, and the overlay for
// the frame. Detections outside the vocabulary are ignored.
func (v Vocabulary) Summarize(index uint64, dets []Detection) (FrameHazardSummary, []Detection, Overlay) {
	sum := FrameHazardSummary{
		FrameIndex: index,
		Counts:     make(map[string]int, len(v.labels)),
	}
	for _, l := range v.labels {
		sum.Counts[l] = 0
	}
	ov := Overlay{FrameIndex: index}

	var hazards []Detection
	for _, d := range dets {
		if !v.Contains(d.Label) {
			continue
		}
		d.FrameIndex = index
		sum.Counts[d.Label]++
		sum.AnyHazard = true
		sum.MostRecent = d.Label
		hazards = append(hazards, d)
		ov.Annotations = append(ov.Annotations, Annotation{
			Box:        d.Box,
			Label:      d.Label,
			Confidence: d.Confidence,
			Color:      v.colors[d.Label],
		})
	}

	ov.AnyHazard = sum.AnyHazard
	ov.Counts = make([]LabelCount, 0, len(v.labels))
	for _, l := range v.labels {
		ov.Counts = append(ov.Counts, LabelCount{Label: l, Count: sum.Counts[l]})
	}
	return sum, hazards, ov
}

// Utterance is the spoken warning for a hazard label.
func Utterance(label string) string {
	return fmt.Sprintf("Warning! %s ahead!", label)
}
