package timeline

import (
	"errors"
	"merot-portal/internal/annotation"
	"merot-portal/pkg/api"
	"slices"
	"sort"
)

const AudioSkipSeconds = 5.0

var (
	ErrNoSegmentStart  = errors.New("mark the segment start first")
	ErrInvalidInterval = errors.New("segment must end after it starts")
)

type Segment struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Label     string  `json:"label"`
	Text      string  `json:"text"`
}

type audioData struct {
	Transcription string    `json:"transcription"`
	Segments      []Segment `json:"segments"`
}

// AudioEditor combines a transcript with time-anchored segments over an audio
// track.
type AudioEditor struct {
	player *Player
	labels []string
	label  string

	transcription []rune
	cursor        int

	pendingStart *float64
	segments     []Segment

	notes    string
	revision int
}

func NewAudioEditor(media MediaElement, labels []string, seed *api.AnnotationDraft) (*AudioEditor, error) {
	e := &AudioEditor{player: NewPlayer(media), labels: labels}

	var data audioData
	if err := annotation.DecodeSeed(api.TaskTypeAudio, seed, &data); err != nil {
		return nil, err
	}
	e.transcription = []rune(data.Transcription)
	e.cursor = len(e.transcription)
	e.segments = data.Segments
	sortSegments(e.segments)
	if seed != nil {
		e.notes = seed.Notes
	}
	return e, nil
}

func (e *AudioEditor) Type() string { return api.TaskTypeAudio }

func (e *AudioEditor) Revision() int { return e.revision }

func (e *AudioEditor) Player() *Player { return e.player }

func (e *AudioEditor) TogglePlay() error { return e.player.TogglePlay() }

func (e *AudioEditor) SkipBack() { e.player.Skip(-AudioSkipSeconds) }

func (e *AudioEditor) SkipForward() { e.player.Skip(AudioSkipSeconds) }

func (e *AudioEditor) SetNotes(notes string) {
	e.notes = notes
	e.revision++
}

func (e *AudioEditor) SelectLabel(label string) error {
	if label == "" {
		return annotation.NewValidationError(annotation.ErrNoLabel, "")
	}
	if len(e.labels) > 0 && !slices.Contains(e.labels, label) {
		return annotation.NewValidationError(annotation.ErrUnknownLabel, "%q", label)
	}
	e.label = label
	return nil
}

func (e *AudioEditor) Transcription() string { return string(e.transcription) }

// SetTranscription replaces the transcript and moves the cursor to its end.
func (e *AudioEditor) SetTranscription(text string) {
	e.transcription = []rune(text)
	e.cursor = len(e.transcription)
	e.revision++
}

func (e *AudioEditor) SetCursor(pos int) error {
	if pos < 0 || pos > len(e.transcription) {
		return annotation.NewValidationError(annotation.ErrOutOfRange, "cursor %d outside transcript of length %d", pos, len(e.transcription))
	}
	e.cursor = pos
	return nil
}

// InsertTimestamp writes the current playback position into the transcript at
// the cursor, as "[mm:ss] ".
func (e *AudioEditor) InsertTimestamp() {
	stamp := []rune("[" + FormatTimestamp(e.player.CurrentTime()) + "] ")
	e.transcription = slices.Insert(e.transcription, e.cursor, stamp...)
	e.cursor += len(stamp)
	e.revision++
}

func (e *AudioEditor) MarkStart() {
	t := e.player.CurrentTime()
	e.pendingStart = &t
}

func (e *AudioEditor) PendingStart() (float64, bool) {
	if e.pendingStart == nil {
		return 0, false
	}
	return *e.pendingStart, true
}

// MarkEnd closes the pending segment at the current playback position.
func (e *AudioEditor) MarkEnd(text string) error {
	if e.pendingStart == nil {
		return annotation.NewValidationError(ErrNoSegmentStart, "")
	}
	if err := e.AddSegment(Segment{
		StartTime: *e.pendingStart,
		EndTime:   e.player.CurrentTime(),
		Label:     e.label,
		Text:      text,
	}); err != nil {
		return err
	}
	e.pendingStart = nil
	return nil
}

func (e *AudioEditor) AddSegment(seg Segment) error {
	if seg.Label == "" {
		return annotation.NewValidationError(annotation.ErrNoLabel, "")
	}
	if seg.EndTime <= seg.StartTime {
		return annotation.NewValidationError(ErrInvalidInterval, "%s to %s", FormatTimestamp(seg.StartTime), FormatTimestamp(seg.EndTime))
	}
	if d := e.player.Duration(); d > 0 && (seg.StartTime < 0 || seg.EndTime > d) {
		return annotation.NewValidationError(annotation.ErrOutOfRange, "segment outside media duration %v", d)
	}
	e.segments = append(e.segments, seg)
	sortSegments(e.segments)
	e.revision++
	return nil
}

func (e *AudioEditor) RemoveSegment(i int) error {
	if i < 0 || i >= len(e.segments) {
		return annotation.NewValidationError(annotation.ErrOutOfRange, "no segment at index %d", i)
	}
	e.segments = slices.Delete(e.segments, i, i+1)
	e.revision++
	return nil
}

func (e *AudioEditor) Segments() []Segment {
	return append([]Segment(nil), e.segments...)
}

func (e *AudioEditor) Markers() []Marker {
	out := make([]Marker, 0, len(e.segments))
	for i, seg := range e.segments {
		out = append(out, Marker{
			Index:    i,
			Time:     seg.StartTime,
			Position: MarkerPosition(seg.StartTime, e.player.Duration()),
			Label:    seg.Label,
		})
	}
	return out
}

// ClickMarker seeks playback to the start of segment i.
func (e *AudioEditor) ClickMarker(i int) error {
	if i < 0 || i >= len(e.segments) {
		return annotation.NewValidationError(annotation.ErrOutOfRange, "no segment at index %d", i)
	}
	e.player.Seek(e.segments[i].StartTime)
	return nil
}

func (e *AudioEditor) Draft() (api.AnnotationDraft, error) {
	if len(e.transcription) == 0 && len(e.segments) == 0 {
		return api.AnnotationDraft{}, annotation.NewValidationError(annotation.ErrEmptyAnnotation, "")
	}
	return annotation.EncodeDraft(api.TaskTypeAudio, audioData{Transcription: string(e.transcription), Segments: e.segments}, nil, e.notes)
}

func sortSegments(segments []Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartTime < segments[j].StartTime
	})
}
