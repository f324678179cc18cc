package timeline

import (
	"errors"
	"log/slog"
	"merot-portal/internal/annotation"
	"merot-portal/pkg/api"
	"slices"
	"sort"
)

const (
	VideoSkipSeconds = 1.0

	// FrameStep assumes 30 fps regardless of the media's real frame rate.
	FrameStep = 1.0 / 30

	// FrameTolerance is how close the playhead must be to a box's frame_time for
	// the box to be shown.
	FrameTolerance = 0.1
)

var ErrEmptyEventType = errors.New("event type is required")

type Event struct {
	Timestamp   float64 `json:"timestamp"`
	Type        string  `json:"type"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
}

type FrameBox struct {
	annotation.BoundingBox
	FrameTime float64 `json:"frame_time"`
}

type videoData struct {
	Events     []Event    `json:"events"`
	FrameBoxes []FrameBox `json:"frame_boxes"`
}

// VideoEditor records timestamped events and frame-scoped bounding boxes over a
// video track.
type VideoEditor struct {
	player   *Player
	viewport annotation.Viewport

	eventTypes []string
	eventType  string
	labels     []string
	label      string

	events []Event
	boxes  []FrameBox

	drawing bool
	anchor  annotation.Point
	cursor  annotation.Point

	notes    string
	revision int
}

func NewVideoEditor(media MediaElement, viewport annotation.Viewport, eventTypes, labels []string, seed *api.AnnotationDraft) (*VideoEditor, error) {
	e := &VideoEditor{
		player:     NewPlayer(media),
		viewport:   viewport,
		eventTypes: eventTypes,
		labels:     labels,
	}

	var data videoData
	if err := annotation.DecodeSeed(api.TaskTypeVideo, seed, &data); err != nil {
		return nil, err
	}
	e.events = data.Events
	sortEvents(e.events)
	e.boxes = data.FrameBoxes
	if seed != nil {
		e.notes = seed.Notes
	}
	return e, nil
}

func (e *VideoEditor) Type() string { return api.TaskTypeVideo }

func (e *VideoEditor) Revision() int { return e.revision }

func (e *VideoEditor) Player() *Player { return e.player }

func (e *VideoEditor) TogglePlay() error { return e.player.TogglePlay() }

func (e *VideoEditor) SkipBack() { e.player.Skip(-VideoSkipSeconds) }

func (e *VideoEditor) SkipForward() { e.player.Skip(VideoSkipSeconds) }

// StepFrame moves the playhead by n frames, backwards when n is negative.
func (e *VideoEditor) StepFrame(n int) { e.player.Skip(float64(n) * FrameStep) }

func (e *VideoEditor) SetNotes(notes string) {
	e.notes = notes
	e.revision++
}

func (e *VideoEditor) SelectLabel(label string) error {
	if label == "" {
		return annotation.NewValidationError(annotation.ErrNoLabel, "")
	}
	if len(e.labels) > 0 && !slices.Contains(e.labels, label) {
		return annotation.NewValidationError(annotation.ErrUnknownLabel, "%q", label)
	}
	e.label = label
	return nil
}

func (e *VideoEditor) SelectEventType(eventType string) error {
	if len(e.eventTypes) > 0 && !slices.Contains(e.eventTypes, eventType) {
		return annotation.NewValidationError(annotation.ErrUnknownLabel, "event type %q", eventType)
	}
	e.eventType = eventType
	return nil
}

// MarkEvent adds an event of the selected type at the current playback position.
func (e *VideoEditor) MarkEvent() error {
	return e.AddEvent(e.eventType, e.label, "")
}

// AddEvent records an event at the current playback position.
func (e *VideoEditor) AddEvent(eventType, label, description string) error {
	if eventType == "" {
		return annotation.NewValidationError(ErrEmptyEventType, "")
	}
	if len(e.eventTypes) > 0 && !slices.Contains(e.eventTypes, eventType) {
		return annotation.NewValidationError(annotation.ErrUnknownLabel, "event type %q", eventType)
	}
	e.events = append(e.events, Event{
		Timestamp:   e.player.CurrentTime(),
		Type:        eventType,
		Label:       label,
		Description: description,
	})
	sortEvents(e.events)
	e.revision++
	return nil
}

func (e *VideoEditor) RemoveEvent(i int) error {
	if i < 0 || i >= len(e.events) {
		return annotation.NewValidationError(annotation.ErrOutOfRange, "no event at index %d", i)
	}
	e.events = slices.Delete(e.events, i, i+1)
	e.revision++
	return nil
}

func (e *VideoEditor) Events() []Event {
	return append([]Event(nil), e.events...)
}

func (e *VideoEditor) Markers() []Marker {
	out := make([]Marker, 0, len(e.events))
	for i, ev := range e.events {
		out = append(out, Marker{
			Index:    i,
			Time:     ev.Timestamp,
			Position: MarkerPosition(ev.Timestamp, e.player.Duration()),
			Label:    ev.Type,
		})
	}
	return out
}

func (e *VideoEditor) ClickMarker(i int) error {
	if i < 0 || i >= len(e.events) {
		return annotation.NewValidationError(annotation.ErrOutOfRange, "no event at index %d", i)
	}
	e.player.Seek(e.events[i].Timestamp)
	return nil
}

// MouseDown starts a frame box. Input is ignored while the video is playing.
func (e *VideoEditor) MouseDown(p annotation.Point) error {
	if e.player.Playing() {
		return nil
	}
	if e.label == "" {
		return annotation.NewValidationError(annotation.ErrNoLabel, "")
	}
	e.drawing = true
	e.anchor = p
	e.cursor = p
	return nil
}

func (e *VideoEditor) MouseMove(p annotation.Point) {
	if e.drawing && !e.player.Playing() {
		e.cursor = p
	}
}

// MouseUp commits the candidate box, tagged with the current frame time.
func (e *VideoEditor) MouseUp(p annotation.Point) (bool, error) {
	if !e.drawing || e.player.Playing() {
		e.drawing = false
		return false, nil
	}
	e.cursor = p
	e.drawing = false

	box, ok := annotation.BoxFromDrag(e.anchor, e.cursor, e.viewport, e.label, 1)
	if !ok {
		return false, annotation.NewValidationError(annotation.ErrShapeTooSmall, "boxes must be larger than %dx%d pixels", annotation.MinBoxSize, annotation.MinBoxSize)
	}
	e.boxes = append(e.boxes, FrameBox{BoundingBox: box, FrameTime: e.player.CurrentTime()})
	e.revision++
	slog.Debug("committed frame box", "label", box.Label, "frame_time", e.player.CurrentTime())
	return true, nil
}

func (e *VideoEditor) FrameBoxes() []FrameBox {
	return append([]FrameBox(nil), e.boxes...)
}

func (e *VideoEditor) RemoveFrameBox(i int) error {
	if i < 0 || i >= len(e.boxes) {
		return annotation.NewValidationError(annotation.ErrOutOfRange, "no frame box at index %d", i)
	}
	e.boxes = slices.Delete(e.boxes, i, i+1)
	e.revision++
	return nil
}

// VisibleBoxes returns the boxes drawn on the frame currently displayed.
func (e *VideoEditor) VisibleBoxes() []FrameBox {
	now := e.player.CurrentTime()
	var out []FrameBox
	for _, box := range e.boxes {
		d := now - box.FrameTime
		if d < 0 {
			d = -d
		}
		if d < FrameTolerance {
			out = append(out, box)
		}
	}
	return out
}

func (e *VideoEditor) Scene() annotation.Scene {
	scene := annotation.Scene{Width: e.viewport.Display.Width, Height: e.viewport.Display.Height}
	for _, box := range e.VisibleBoxes() {
		scene.DrawBox(box.BoundingBox, e.viewport, annotation.LabelColor(e.labels, box.Label))
	}
	if e.drawing {
		scene.Rect(e.anchor, e.cursor.X-e.anchor.X, e.cursor.Y-e.anchor.Y, annotation.LabelColor(e.labels, e.label), true)
	}
	return scene
}

func (e *VideoEditor) Draft() (api.AnnotationDraft, error) {
	if len(e.events) == 0 && len(e.boxes) == 0 {
		return api.AnnotationDraft{}, annotation.NewValidationError(annotation.ErrEmptyAnnotation, "")
	}
	return annotation.EncodeDraft(api.TaskTypeVideo, videoData{Events: e.events, FrameBoxes: e.boxes}, nil, e.notes)
}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
}
