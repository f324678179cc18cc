package annotation

import (
	"encoding/json"
	"fmt"
	"merot-portal/pkg/api"
	"slices"
)

// Widget owns the local draft for a single task.
type Widget interface {
	Type() string

	// Draft serializes the current state. It fails with a *ValidationError when the
	// state is not submittable.
	Draft() (api.AnnotationDraft, error)

	// Revision increases on every committed mutation, so callers can tell whether
	// the draft changed since it was last saved.
	Revision() int
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64
	Height float64
}

// Viewport maps between on-screen coordinates and the natural resolution of the
// underlying image.
type Viewport struct {
	Display Size
	Natural Size
}

func NewViewport(display, natural Size) Viewport {
	if display.Width <= 0 || display.Height <= 0 {
		display = natural
	}
	if natural.Width <= 0 || natural.Height <= 0 {
		natural = display
	}
	return Viewport{Display: display, Natural: natural}
}

func (v Viewport) scaleX() float64 {
	if v.Display.Width == 0 {
		return 1
	}
	return v.Natural.Width / v.Display.Width
}

func (v Viewport) scaleY() float64 {
	if v.Display.Height == 0 {
		return 1
	}
	return v.Natural.Height / v.Display.Height
}

func (v Viewport) ToImage(p Point) Point {
	return Point{X: p.X * v.scaleX(), Y: p.Y * v.scaleY()}
}

func (v Viewport) ToScreen(p Point) Point {
	return Point{X: p.X / v.scaleX(), Y: p.Y / v.scaleY()}
}

type BoundingBox struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type Polygon struct {
	Points []Point `json:"points"`
	Label  string  `json:"label"`
	Closed bool    `json:"closed"`
}

// Keypoint coordinates are nil until the point is placed.
type Keypoint struct {
	X       *float64 `json:"x"`
	Y       *float64 `json:"y"`
	Label   string   `json:"label"`
	Visible bool     `json:"visible"`
	Color   string   `json:"color"`
}

func (k Keypoint) Placed() bool {
	return k.X != nil && k.Y != nil
}

type Entity struct {
	Text       string  `json:"text"`
	Label      string  `json:"label"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

func checkLabel(labels []string, label string) error {
	if label == "" {
		return invalid(ErrNoLabel)
	}
	if len(labels) > 0 && !slices.Contains(labels, label) {
		return invalidf(ErrUnknownLabel, "%q", label)
	}
	return nil
}

func checkConfidence(c float64) error {
	if c < 0 || c > 1 {
		return invalidf(ErrOutOfRange, "confidence must be between 0 and 1, got %v", c)
	}
	return nil
}

func EncodeDraft(annotationType string, data any, confidence *float64, notes string) (api.AnnotationDraft, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return api.AnnotationDraft{}, fmt.Errorf("error encoding %s annotation: %w", annotationType, err)
	}
	return api.AnnotationDraft{
		AnnotationType:  annotationType,
		AnnotationData:  raw,
		ConfidenceScore: confidence,
		Notes:           notes,
	}, nil
}

// DecodeSeed unpacks a previously saved draft or ML suggestion. A nil seed or an
// empty payload leaves out untouched.
func DecodeSeed(annotationType string, seed *api.AnnotationDraft, out any) error {
	if seed == nil || len(seed.AnnotationData) == 0 {
		return nil
	}
	if seed.AnnotationType != "" && seed.AnnotationType != annotationType {
		return fmt.Errorf("%w: expected %s, got %s", ErrWrongAnnotationType, annotationType, seed.AnnotationType)
	}
	if err := json.Unmarshal(seed.AnnotationData, out); err != nil {
		return fmt.Errorf("error decoding %s annotation: %w", annotationType, err)
	}
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
