package annotation

import "fmt"

type ShapeKind string

const (
	ShapeRect     ShapeKind = "rect"
	ShapePolyline ShapeKind = "polyline"
	ShapeCircle   ShapeKind = "circle"
	ShapeLine     ShapeKind = "line"
	ShapeText     ShapeKind = "text"
)

// Primitive is one draw call in screen coordinates.
type Primitive struct {
	Kind   ShapeKind
	Points []Point
	Radius float64
	Text   string
	Color  string
	Dashed bool
	Closed bool
}

// Scene is the full display list for a canvas. Widgets rebuild it from committed
// state on every call; there is no incremental redraw.
type Scene struct {
	Width      float64
	Height     float64
	Primitives []Primitive
}

func (s *Scene) Rect(topLeft Point, w, h float64, color string, dashed bool) {
	s.Primitives = append(s.Primitives, Primitive{
		Kind:   ShapeRect,
		Points: []Point{topLeft, {X: topLeft.X + w, Y: topLeft.Y + h}},
		Color:  color,
		Dashed: dashed,
	})
}

func (s *Scene) text(at Point, text, color string) {
	s.Primitives = append(s.Primitives, Primitive{Kind: ShapeText, Points: []Point{at}, Text: text, Color: color})
}

func (s *Scene) circle(at Point, r float64, color string) {
	s.Primitives = append(s.Primitives, Primitive{Kind: ShapeCircle, Points: []Point{at}, Radius: r, Color: color})
}

func (s *Scene) line(a, b Point, color string) {
	s.Primitives = append(s.Primitives, Primitive{Kind: ShapeLine, Points: []Point{a, b}, Color: color})
}

func (s *Scene) polyline(points []Point, color string, closed bool, dashed bool) {
	s.Primitives = append(s.Primitives, Primitive{
		Kind:   ShapePolyline,
		Points: append([]Point(nil), points...),
		Color:  color,
		Closed: closed,
		Dashed: dashed,
	})
}

func (s *Scene) DrawBox(box BoundingBox, viewport Viewport, color string) {
	topLeft := viewport.ToScreen(Point{X: box.X, Y: box.Y})
	extent := viewport.ToScreen(Point{X: box.Width, Y: box.Height})
	s.Rect(topLeft, extent.X, extent.Y, color, false)
	s.text(Point{X: topLeft.X, Y: topLeft.Y - 5}, fmt.Sprintf("%s (%.0f%%)", box.Label, box.Confidence*100), color)
}

// Count returns the number of primitives of the given kind.
func (s Scene) Count(kind ShapeKind) int {
	n := 0
	for _, p := range s.Primitives {
		if p.Kind == kind {
			n++
		}
	}
	return n
}

var palette = []string{"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEAA7", "#DDA0DD", "#98D8C8", "#F7DC6F"}

func LabelColor(labels []string, label string) string {
	for i, l := range labels {
		if l == label {
			return palette[i%len(palette)]
		}
	}
	return palette[0]
}
