package orchestrator

import (
	"strconv"
	"strings"
	"time"
)

// State is the lifecycle state of a detection session.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
	StateError
)

var stateNames = [...]string{"idle", "starting", "running", "stopping", "stopped", "error"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no frame loop can be running in this state.
// Idle counts as terminal: nothing has been started.
func (s State) Terminal() bool {
	return s == StateIdle || s == StateStopped || s == StateError
}

// SourceDescriptor names a frame source: a capture device index or a
// filesystem path (a URL is carried as a path).
type SourceDescriptor struct {
	Device   int
	Path     string
	IsDevice bool
}

// DeviceSource describes capture device n.
func DeviceSource(n int) SourceDescriptor {
	return SourceDescriptor{Device: n, IsDevice: true}
}

// PathSource describes a video file, image directory or stream URL.
func PathSource(p string) SourceDescriptor {
	return SourceDescriptor{Path: p}
}

// ParseSource maps a bare non-negative integer to a device index and
// anything else to a path.
func ParseSource(s string) SourceDescriptor {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return DeviceSource(n)
	}
	return PathSource(s)
}

func (d SourceDescriptor) String() string {
	if d.IsDevice {
		return strconv.Itoa(d.Device)
	}
	return d.Path
}

// BoundingBox is a detection rectangle in pixel coordinates.
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Detection is one classifier result for one frame.
type Detection struct {
	Label      string      `json:"label"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
	FrameIndex uint64      `json:"frame_index"`
}

// FrameHazardSummary aggregates the hazard detections of one frame.
type FrameHazardSummary struct {
	FrameIndex uint64
	Counts     map[string]int
	AnyHazard  bool
	MostRecent string
}

// LogRecord is one persisted hazard detection. ID is assigned by the store.
type LogRecord struct {
	ID         int64     `json:"id"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
}

// StatusEvent is a human readable progress message for the presentation layer.
// Terminal is set on the last event a session publishes.
type StatusEvent struct {
	Message  string    `json:"message"`
	Terminal bool      `json:"terminal"`
	At       time.Time `json:"at"`
}

// AnnouncementRequest asks the announcement worker to speak Utterance.
type AnnouncementRequest struct {
	Utterance string

	shutdown bool
}

// SessionInfo is a point-in-time copy of a session for readers outside the
// frame loop.
type SessionInfo struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	State      string         `json:"state"`
	FrameCount uint64         `json:"frame_count"`
	CreatedAt  time.Time      `json:"created_at"`
	Totals     map[string]int `json:"totals"`
}
