package annotation

import (
	"merot-portal/pkg/api"
	"slices"
	"sort"
)

type nerData struct {
	Entities []Entity `json:"entities"`
}

// Span is one run of the rendered text. Label is empty for plain text.
type Span struct {
	Text   string
	Label  string
	Entity int
}

// EntityTagger is the span-selection widget. Offsets are rune offsets into the
// task text, half-open [Start, End).
type EntityTagger struct {
	text       []rune
	labels     []string
	label      string
	confidence float64

	selStart, selEnd int
	hasSelection     bool

	entities []Entity
	notes    string
	revision int
}

func NewEntityTagger(text string, labels []string, seed *api.AnnotationDraft) (*EntityTagger, error) {
	t := &EntityTagger{text: []rune(text), labels: labels, confidence: 1}

	var data nerData
	if err := DecodeSeed(api.TaskTypeNER, seed, &data); err != nil {
		return nil, err
	}
	// Seeds go through the same checks as user input so the no-overlap invariant
	// holds from the start.
	for _, e := range data.Entities {
		if e.Start < 0 || e.End > len(t.text) || e.Start >= e.End {
			continue
		}
		if overlapsAny(t.entities, e.Start, e.End) {
			continue
		}
		e.Text = string(t.text[e.Start:e.End])
		t.insert(e)
	}
	if seed != nil {
		t.notes = seed.Notes
	}
	return t, nil
}

func (t *EntityTagger) Type() string { return api.TaskTypeNER }

func (t *EntityTagger) Revision() int { return t.revision }

func (t *EntityTagger) Text() string { return string(t.text) }

func (t *EntityTagger) SelectLabel(label string) error {
	if err := checkLabel(t.labels, label); err != nil {
		return err
	}
	t.label = label
	return nil
}

func (t *EntityTagger) SetConfidence(c float64) error {
	if err := checkConfidence(c); err != nil {
		return err
	}
	t.confidence = c
	return nil
}

func (t *EntityTagger) SetNotes(notes string) {
	t.notes = notes
	t.revision++
}

// Select records a text selection. Backwards selections are normalized; an empty
// selection clears it.
func (t *EntityTagger) Select(start, end int) error {
	if start > end {
		start, end = end, start
	}
	if start < 0 || end > len(t.text) {
		return invalidf(ErrOutOfRange, "selection [%d,%d) outside text of length %d", start, end, len(t.text))
	}
	if start == end {
		t.ClearSelection()
		return nil
	}
	t.selStart, t.selEnd, t.hasSelection = start, end, true
	return nil
}

func (t *EntityTagger) ClearSelection() {
	t.selStart, t.selEnd, t.hasSelection = 0, 0, false
}

func (t *EntityTagger) Selection() (int, int, bool) {
	return t.selStart, t.selEnd, t.hasSelection
}

// AddEntity tags the current selection with the current label. On any failure
// the entity list is left unchanged.
func (t *EntityTagger) AddEntity() error {
	if t.label == "" {
		return invalid(ErrNoLabel)
	}
	if !t.hasSelection {
		return invalid(ErrNoSelection)
	}
	if overlapsAny(t.entities, t.selStart, t.selEnd) {
		return invalidf(ErrOverlap, "[%d,%d)", t.selStart, t.selEnd)
	}

	t.insert(Entity{
		Text:       string(t.text[t.selStart:t.selEnd]),
		Label:      t.label,
		Start:      t.selStart,
		End:        t.selEnd,
		Confidence: t.confidence,
	})
	t.ClearSelection()
	t.revision++
	return nil
}

func (t *EntityTagger) insert(e Entity) {
	t.entities = append(t.entities, e)
	sort.SliceStable(t.entities, func(i, j int) bool {
		return t.entities[i].Start < t.entities[j].Start
	})
}

func (t *EntityTagger) RemoveEntity(i int) error {
	if i < 0 || i >= len(t.entities) {
		return invalidf(ErrOutOfRange, "no entity at index %d", i)
	}
	t.entities = slices.Delete(t.entities, i, i+1)
	t.revision++
	return nil
}

func (t *EntityTagger) Entities() []Entity {
	return append([]Entity(nil), t.entities...)
}

// Segments interleaves plain text with highlighted entity spans, walking the
// entities in start order.
func (t *EntityTagger) Segments() []Span {
	var out []Span
	last := 0
	for i, e := range t.entities {
		if e.Start > last {
			out = append(out, Span{Text: string(t.text[last:e.Start]), Entity: -1})
		}
		out = append(out, Span{Text: string(t.text[e.Start:e.End]), Label: e.Label, Entity: i})
		last = e.End
	}
	if last < len(t.text) {
		out = append(out, Span{Text: string(t.text[last:]), Entity: -1})
	}
	return out
}

func (t *EntityTagger) Draft() (api.AnnotationDraft, error) {
	if len(t.entities) == 0 {
		return api.AnnotationDraft{}, invalid(ErrEmptyAnnotation)
	}
	return EncodeDraft(api.TaskTypeNER, nerData{Entities: t.entities}, nil, t.notes)
}

// overlaps reports whether [start,end) shares any position with e: the new start
// falls inside e, the new end falls inside e, or the new span contains e.
func overlaps(e Entity, start, end int) bool {
	startInside := start >= e.Start && start < e.End
	endInside := end > e.Start && end <= e.End
	contains := start <= e.Start && end >= e.End
	return startInside || endInside || contains
}

func overlapsAny(entities []Entity, start, end int) bool {
	for _, e := range entities {
		if overlaps(e, start, end) {
			return true
		}
	}
	return false
}
