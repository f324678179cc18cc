package annotation

import (
	"merot-portal/pkg/api"
	"slices"
)

var DefaultSentiments = []string{"positive", "negative", "neutral"}

const (
	minIntensity     = 1
	maxIntensity     = 5
	defaultIntensity = 3
)

type classificationData struct {
	Label  string   `json:"label,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// Classifier picks one label, or several when the task allows multi-label answers.
type Classifier struct {
	labels     []string
	multi      bool
	selected   []string
	confidence *float64
	notes      string
	revision   int
}

func NewClassifier(labels []string, multi bool, seed *api.AnnotationDraft) (*Classifier, error) {
	c := &Classifier{labels: labels, multi: multi}

	var data classificationData
	if err := DecodeSeed(api.TaskTypeTextClassification, seed, &data); err != nil {
		return nil, err
	}
	if data.Label != "" {
		c.selected = []string{data.Label}
	}
	for _, l := range data.Labels {
		if !slices.Contains(c.selected, l) {
			c.selected = append(c.selected, l)
		}
	}
	if !multi && len(c.selected) > 1 {
		c.selected = c.selected[:1]
	}
	if seed != nil {
		c.confidence = seed.ConfidenceScore
		c.notes = seed.Notes
	}
	return c, nil
}

func (c *Classifier) Type() string { return api.TaskTypeTextClassification }

func (c *Classifier) Revision() int { return c.revision }

// Toggle selects a label, replacing the previous one in single-label mode, or
// deselects it if it was already selected.
func (c *Classifier) Toggle(label string) error {
	if err := checkLabel(c.labels, label); err != nil {
		return err
	}
	if i := slices.Index(c.selected, label); i >= 0 {
		c.selected = slices.Delete(c.selected, i, i+1)
	} else if c.multi {
		c.selected = append(c.selected, label)
	} else {
		c.selected = []string{label}
	}
	c.revision++
	return nil
}

func (c *Classifier) Selected() []string {
	return append([]string(nil), c.selected...)
}

func (c *Classifier) SetConfidence(v float64) error {
	if err := checkConfidence(v); err != nil {
		return err
	}
	c.confidence = &v
	c.revision++
	return nil
}

func (c *Classifier) SetNotes(notes string) {
	c.notes = notes
	c.revision++
}

func (c *Classifier) Draft() (api.AnnotationDraft, error) {
	if len(c.selected) == 0 {
		return api.AnnotationDraft{}, invalid(ErrNoLabel)
	}
	data := classificationData{Labels: c.selected}
	if !c.multi {
		data = classificationData{Label: c.selected[0]}
	}
	return EncodeDraft(api.TaskTypeTextClassification, data, c.confidence, c.notes)
}

type sentimentData struct {
	Sentiment string `json:"sentiment"`
	Intensity int    `json:"intensity"`
}

type SentimentPicker struct {
	sentiments []string
	sentiment  string
	intensity  int
	confidence *float64
	notes      string
	revision   int
}

func NewSentimentPicker(sentiments []string, seed *api.AnnotationDraft) (*SentimentPicker, error) {
	if len(sentiments) == 0 {
		sentiments = DefaultSentiments
	}
	s := &SentimentPicker{sentiments: sentiments, intensity: defaultIntensity}

	var data sentimentData
	if err := DecodeSeed(api.TaskTypeSentiment, seed, &data); err != nil {
		return nil, err
	}
	if data.Sentiment != "" {
		s.sentiment = data.Sentiment
	}
	if data.Intensity >= minIntensity && data.Intensity <= maxIntensity {
		s.intensity = data.Intensity
	}
	if seed != nil {
		s.confidence = seed.ConfidenceScore
		s.notes = seed.Notes
	}
	return s, nil
}

func (s *SentimentPicker) Type() string { return api.TaskTypeSentiment }

func (s *SentimentPicker) Revision() int { return s.revision }

func (s *SentimentPicker) Choose(sentiment string) error {
	if err := checkLabel(s.sentiments, sentiment); err != nil {
		return err
	}
	s.sentiment = sentiment
	s.revision++
	return nil
}

func (s *SentimentPicker) Sentiment() string { return s.sentiment }

func (s *SentimentPicker) SetIntensity(v int) error {
	if v < minIntensity || v > maxIntensity {
		return invalidf(ErrOutOfRange, "intensity must be between %d and %d, got %d", minIntensity, maxIntensity, v)
	}
	s.intensity = v
	s.revision++
	return nil
}

func (s *SentimentPicker) SetConfidence(v float64) error {
	if err := checkConfidence(v); err != nil {
		return err
	}
	s.confidence = &v
	s.revision++
	return nil
}

func (s *SentimentPicker) SetNotes(notes string) {
	s.notes = notes
	s.revision++
}

func (s *SentimentPicker) Draft() (api.AnnotationDraft, error) {
	if s.sentiment == "" {
		return api.AnnotationDraft{}, invalid(ErrNoLabel)
	}
	return EncodeDraft(api.TaskTypeSentiment, sentimentData{Sentiment: s.sentiment, Intensity: s.intensity}, s.confidence, s.notes)
}
