package annotation

import (
	_ "embed"
	"fmt"
	"merot-portal/pkg/api"
	"sync"

	"gopkg.in/yaml.v2"
)

const DefaultTemplate = "human_pose"

type TemplatePoint struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

type Template struct {
	Name        string          `yaml:"name"`
	Points      []TemplatePoint `yaml:"points"`
	Connections [][]string      `yaml:"connections"`
}

//go:embed templates.yaml
var templatesYAML []byte

var loadTemplates = sync.OnceValues(func() (map[string]Template, error) {
	raw := struct {
		Templates []Template `yaml:"templates"`
	}{}

	if err := yaml.Unmarshal(templatesYAML, &raw); err != nil {
		return nil, fmt.Errorf("error parsing keypoint templates: %w", err)
	}

	out := make(map[string]Template, len(raw.Templates))
	for _, t := range raw.Templates {
		for _, conn := range t.Connections {
			if len(conn) != 2 {
				return nil, fmt.Errorf("template %s: connection %v must name exactly 2 points", t.Name, conn)
			}
		}
		out[t.Name] = t
	}
	return out, nil
})

func LookupTemplate(name string) (Template, error) {
	if name == "" {
		name = DefaultTemplate
	}
	templates, err := loadTemplates()
	if err != nil {
		return Template{}, err
	}
	t, ok := templates[name]
	if !ok {
		return Template{}, fmt.Errorf("unknown keypoint template '%s'", name)
	}
	return t, nil
}

type keypointData struct {
	Template  string     `json:"template"`
	Keypoints []Keypoint `json:"keypoints"`
}

// KeypointTool places the named points of a template one at a time. A selected
// (armed) point is assigned on the next click, after which the selection skips
// ahead to the next point that is not yet visible.
type KeypointTool struct {
	template Template
	viewport Viewport

	points   []Keypoint
	armed    int
	notes    string
	revision int
}

func NewKeypointTool(templateName string, viewport Viewport, seed *api.AnnotationDraft) (*KeypointTool, error) {
	template, err := LookupTemplate(templateName)
	if err != nil {
		return nil, err
	}

	t := &KeypointTool{template: template, viewport: viewport, armed: -1}
	for _, p := range template.Points {
		t.points = append(t.points, Keypoint{Label: p.Name, Color: p.Color})
	}

	var data keypointData
	if err := DecodeSeed(api.TaskTypeKeypoint, seed, &data); err != nil {
		return nil, err
	}
	if len(data.Keypoints) > 0 {
		t.points = data.Keypoints
	}
	if seed != nil {
		t.notes = seed.Notes
	}

	if len(t.points) > 0 {
		t.armed = 0
	}
	return t, nil
}

func (t *KeypointTool) Type() string { return api.TaskTypeKeypoint }

func (t *KeypointTool) Revision() int { return t.revision }

func (t *KeypointTool) Template() Template { return t.template }

func (t *KeypointTool) SetNotes(notes string) {
	t.notes = notes
	t.revision++
}

func (t *KeypointTool) Keypoints() []Keypoint {
	return append([]Keypoint(nil), t.points...)
}

// Armed returns the index of the keypoint the next click will place.
func (t *KeypointTool) Armed() (int, bool) {
	return t.armed, t.armed >= 0
}

func (t *KeypointTool) Select(i int) error {
	if i < 0 || i >= len(t.points) {
		return invalidf(ErrOutOfRange, "no keypoint at index %d", i)
	}
	t.armed = i
	return nil
}

func (t *KeypointTool) Click(p Point) error {
	if t.armed < 0 {
		return invalid(ErrNoKeypointSelected)
	}

	img := t.viewport.ToImage(p)
	kp := &t.points[t.armed]
	kp.X, kp.Y = &img.X, &img.Y
	kp.Visible = true
	t.revision++

	t.armed = t.nextUnplaced(t.armed)
	return nil
}

func (t *KeypointTool) nextUnplaced(after int) int {
	for j := after + 1; j < len(t.points); j++ {
		if !t.points[j].Visible {
			return j
		}
	}
	return -1
}

// ToggleVisibility marks a keypoint occluded or visible. Hiding a point clears
// its coordinates.
func (t *KeypointTool) ToggleVisibility(i int) error {
	if i < 0 || i >= len(t.points) {
		return invalidf(ErrOutOfRange, "no keypoint at index %d", i)
	}
	kp := &t.points[i]
	kp.Visible = !kp.Visible
	if !kp.Visible {
		kp.X, kp.Y = nil, nil
	}
	t.revision++
	return nil
}

func (t *KeypointTool) Reset() {
	for i := range t.points {
		t.points[i].X, t.points[i].Y = nil, nil
		t.points[i].Visible = false
	}
	t.armed = 0
	if len(t.points) == 0 {
		t.armed = -1
	}
	t.revision++
}

func (t *KeypointTool) drawable(label string) (Point, bool) {
	for _, kp := range t.points {
		if kp.Label == label && kp.Visible && kp.Placed() {
			return t.viewport.ToScreen(Point{X: *kp.X, Y: *kp.Y}), true
		}
	}
	return Point{}, false
}

func (t *KeypointTool) Scene() Scene {
	scene := Scene{Width: t.viewport.Display.Width, Height: t.viewport.Display.Height}

	for _, conn := range t.template.Connections {
		a, okA := t.drawable(conn[0])
		b, okB := t.drawable(conn[1])
		if okA && okB {
			scene.line(a, b, "#FFFFFF")
		}
	}

	for i, kp := range t.points {
		if !kp.Visible || !kp.Placed() {
			continue
		}
		at := t.viewport.ToScreen(Point{X: *kp.X, Y: *kp.Y})
		radius := 5.0
		if i == t.armed {
			radius = 8
		}
		scene.circle(at, radius, kp.Color)
		scene.text(Point{X: at.X + 8, Y: at.Y - 8}, kp.Label, kp.Color)
	}
	return scene
}

func (t *KeypointTool) Draft() (api.AnnotationDraft, error) {
	placed := 0
	for _, kp := range t.points {
		if kp.Placed() {
			placed++
		}
	}
	if placed == 0 {
		return api.AnnotationDraft{}, invalid(ErrEmptyAnnotation)
	}
	return EncodeDraft(api.TaskTypeKeypoint, keypointData{Template: t.template.Name, Keypoints: t.points}, nil, t.notes)
}
