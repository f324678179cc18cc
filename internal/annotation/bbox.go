package annotation

import (
	"log/slog"
	"merot-portal/pkg/api"
)

// MinBoxSize is the screen-space extent a drag must exceed on both axes to
// produce a box. Smaller drags are treated as accidental clicks.
const MinBoxSize = 10

type boxData struct {
	Boxes []BoundingBox `json:"boxes"`
}

// BoxTool is the bounding box widget. It is Idle until MouseDown, Drawing until
// MouseUp or MouseLeave.
type BoxTool struct {
	labels     []string
	label      string
	confidence float64
	viewport   Viewport

	drawing bool
	anchor  Point
	cursor  Point

	boxes    []BoundingBox
	notes    string
	revision int
}

func NewBoxTool(labels []string, viewport Viewport, seed *api.AnnotationDraft) (*BoxTool, error) {
	t := &BoxTool{labels: labels, confidence: 1, viewport: viewport}

	var data boxData
	if err := DecodeSeed(api.TaskTypeBoundingBox, seed, &data); err != nil {
		return nil, err
	}
	t.boxes = data.Boxes
	if seed != nil {
		t.notes = seed.Notes
	}
	return t, nil
}

func (t *BoxTool) Type() string { return api.TaskTypeBoundingBox }

func (t *BoxTool) Revision() int { return t.revision }

func (t *BoxTool) SelectLabel(label string) error {
	if err := checkLabel(t.labels, label); err != nil {
		return err
	}
	t.label = label
	return nil
}

func (t *BoxTool) Label() string { return t.label }

func (t *BoxTool) SetConfidence(c float64) error {
	if err := checkConfidence(c); err != nil {
		return err
	}
	t.confidence = c
	return nil
}

func (t *BoxTool) SetNotes(notes string) {
	t.notes = notes
	t.revision++
}

func (t *BoxTool) Drawing() bool { return t.drawing }

func (t *BoxTool) MouseDown(p Point) error {
	if t.label == "" {
		return invalid(ErrNoLabel)
	}
	t.drawing = true
	t.anchor = p
	t.cursor = p
	return nil
}

func (t *BoxTool) MouseMove(p Point) {
	if t.drawing {
		t.cursor = p
	}
}

// MouseUp commits the candidate rectangle if it is large enough. It reports
// whether a box was added.
func (t *BoxTool) MouseUp(p Point) (bool, error) {
	if !t.drawing {
		return false, nil
	}
	t.cursor = p
	t.drawing = false

	box, ok := BoxFromDrag(t.anchor, t.cursor, t.viewport, t.label, t.confidence)
	if !ok {
		return false, invalidf(ErrShapeTooSmall, "boxes must be larger than %dx%d pixels", MinBoxSize, MinBoxSize)
	}

	t.boxes = append(t.boxes, box)
	t.revision++
	slog.Debug("committed bounding box", "label", box.Label, "count", len(t.boxes))
	return true, nil
}

func (t *BoxTool) MouseLeave(p Point) (bool, error) {
	return t.MouseUp(p)
}

// Candidate returns the in-progress rectangle in screen coordinates. Width and
// height may be negative while dragging up or left.
func (t *BoxTool) Candidate() (Point, float64, float64, bool) {
	if !t.drawing {
		return Point{}, 0, 0, false
	}
	return t.anchor, t.cursor.X - t.anchor.X, t.cursor.Y - t.anchor.Y, true
}

func (t *BoxTool) Boxes() []BoundingBox {
	return append([]BoundingBox(nil), t.boxes...)
}

func (t *BoxTool) Remove(i int) error {
	if i < 0 || i >= len(t.boxes) {
		return invalidf(ErrOutOfRange, "no box at index %d", i)
	}
	t.boxes = append(t.boxes[:i], t.boxes[i+1:]...)
	t.revision++
	return nil
}

func (t *BoxTool) Clear() {
	t.boxes = nil
	t.revision++
}

func (t *BoxTool) Scene() Scene {
	scene := Scene{Width: t.viewport.Display.Width, Height: t.viewport.Display.Height}
	for _, box := range t.boxes {
		scene.DrawBox(box, t.viewport, LabelColor(t.labels, box.Label))
	}
	if t.drawing {
		scene.Rect(t.anchor, t.cursor.X-t.anchor.X, t.cursor.Y-t.anchor.Y, LabelColor(t.labels, t.label), true)
	}
	return scene
}

func (t *BoxTool) Draft() (api.AnnotationDraft, error) {
	if len(t.boxes) == 0 {
		return api.AnnotationDraft{}, invalid(ErrEmptyAnnotation)
	}
	return EncodeDraft(api.TaskTypeBoundingBox, boxData{Boxes: t.boxes}, nil, t.notes)
}

// BoxFromDrag normalizes a drag into a box at the image's natural resolution. The
// size threshold is applied in screen space, before scaling.
func BoxFromDrag(anchor, cursor Point, viewport Viewport, label string, confidence float64) (BoundingBox, bool) {
	w := cursor.X - anchor.X
	h := cursor.Y - anchor.Y
	if abs(w) <= MinBoxSize || abs(h) <= MinBoxSize {
		return BoundingBox{}, false
	}

	topLeft := Point{X: min(anchor.X, cursor.X), Y: min(anchor.Y, cursor.Y)}
	origin := viewport.ToImage(topLeft)
	extent := viewport.ToImage(Point{X: abs(w), Y: abs(h)})

	return BoundingBox{
		X:          origin.X,
		Y:          origin.Y,
		Width:      extent.X,
		Height:     extent.Y,
		Label:      label,
		Confidence: confidence,
	}, true
}
