package annotation

import (
	"merot-portal/pkg/api"
)

const minPolygonPoints = 3

type polygonData struct {
	Polygons []Polygon `json:"polygons"`
}

// PolygonTool collects vertices one click at a time. Several completed polygons
// may coexist, each with its own label.
type PolygonTool struct {
	labels   []string
	label    string
	viewport Viewport

	current  []Point
	polygons []Polygon
	notes    string
	revision int
}

func NewPolygonTool(labels []string, viewport Viewport, seed *api.AnnotationDraft) (*PolygonTool, error) {
	t := &PolygonTool{labels: labels, viewport: viewport}

	var data polygonData
	if err := DecodeSeed(api.TaskTypePolygon, seed, &data); err != nil {
		return nil, err
	}
	t.polygons = data.Polygons
	if seed != nil {
		t.notes = seed.Notes
	}
	return t, nil
}

func (t *PolygonTool) Type() string { return api.TaskTypePolygon }

func (t *PolygonTool) Revision() int { return t.revision }

func (t *PolygonTool) SelectLabel(label string) error {
	if err := checkLabel(t.labels, label); err != nil {
		return err
	}
	t.label = label
	return nil
}

func (t *PolygonTool) SetNotes(notes string) {
	t.notes = notes
	t.revision++
}

func (t *PolygonTool) Drawing() bool { return len(t.current) > 0 }

// Click appends a vertex to the in-progress polygon.
func (t *PolygonTool) Click(p Point) {
	t.current = append(t.current, t.viewport.ToImage(p))
}

// Finish commits the in-progress polygon. It is rejected, and kept for further
// editing, when it has fewer than three points or no label is selected.
func (t *PolygonTool) Finish() error {
	if len(t.current) == 0 {
		return invalid(ErrNotDrawing)
	}
	if len(t.current) < minPolygonPoints {
		return invalidf(ErrTooFewPoints, "have %d", len(t.current))
	}
	if err := checkLabel(t.labels, t.label); err != nil {
		return err
	}

	t.polygons = append(t.polygons, Polygon{Points: t.current, Label: t.label, Closed: true})
	t.current = nil
	t.revision++
	return nil
}

func (t *PolygonTool) Cancel() {
	t.current = nil
}

func (t *PolygonTool) Current() []Point {
	return append([]Point(nil), t.current...)
}

func (t *PolygonTool) Polygons() []Polygon {
	return append([]Polygon(nil), t.polygons...)
}

func (t *PolygonTool) Remove(i int) error {
	if i < 0 || i >= len(t.polygons) {
		return invalidf(ErrOutOfRange, "no polygon at index %d", i)
	}
	t.polygons = append(t.polygons[:i], t.polygons[i+1:]...)
	t.revision++
	return nil
}

func (t *PolygonTool) Scene() Scene {
	scene := Scene{Width: t.viewport.Display.Width, Height: t.viewport.Display.Height}
	for _, poly := range t.polygons {
		color := LabelColor(t.labels, poly.Label)
		pts := t.toScreen(poly.Points)
		if len(pts) == 0 {
			continue
		}
		scene.polyline(pts, color, poly.Closed, false)
		scene.text(pts[0], poly.Label, color)
	}
	if len(t.current) > 0 {
		color := LabelColor(t.labels, t.label)
		pts := t.toScreen(t.current)
		scene.polyline(pts, color, false, true)
		for _, p := range pts {
			scene.circle(p, 4, color)
		}
	}
	return scene
}

func (t *PolygonTool) toScreen(points []Point) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = t.viewport.ToScreen(p)
	}
	return out
}

func (t *PolygonTool) Draft() (api.AnnotationDraft, error) {
	if len(t.polygons) == 0 {
		return api.AnnotationDraft{}, invalid(ErrEmptyAnnotation)
	}
	return EncodeDraft(api.TaskTypePolygon, polygonData{Polygons: t.polygons}, nil, t.notes)
}
