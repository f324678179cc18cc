package timeline_test

import (
	"errors"
	"merot-portal/internal/annotation"
	"merot-portal/internal/timeline"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMedia echoes requests back as media events, like a browser element would.
type fakeMedia struct {
	sink    func(timeline.MediaEvent)
	seeks   []float64
	playErr error
}

func (m *fakeMedia) Play() error {
	if m.playErr != nil {
		return m.playErr
	}
	m.sink(timeline.MediaEvent{Kind: timeline.EventPlay})
	return nil
}

func (m *fakeMedia) Pause() { m.sink(timeline.MediaEvent{Kind: timeline.EventPause}) }

func (m *fakeMedia) Seek(t float64) {
	m.seeks = append(m.seeks, t)
	m.sink(timeline.MediaEvent{Kind: timeline.EventTimeUpdate, Time: t})
}

func (m *fakeMedia) SetRate(r float64) {
	m.sink(timeline.MediaEvent{Kind: timeline.EventRateChange, Rate: r})
}

func (m *fakeMedia) SetVolume(v float64) {
	m.sink(timeline.MediaEvent{Kind: timeline.EventVolumeChange, Volume: v})
}

func loaded(p *timeline.Player, duration float64) {
	p.HandleEvent(timeline.MediaEvent{Kind: timeline.EventLoadedMetadata, Duration: duration})
}

func TestPlayerFollowsMediaEvents(t *testing.T) {
	media := &fakeMedia{}
	p := timeline.NewPlayer(media)
	media.sink = p.HandleEvent
	loaded(p, 120)

	require.NoError(t, p.TogglePlay())
	assert.True(t, p.Playing())
	require.NoError(t, p.TogglePlay())
	assert.False(t, p.Playing())

	p.Seek(-3)
	p.Seek(500)
	assert.Equal(t, []float64{0, 120}, media.seeks)
	assert.Equal(t, 120.0, p.CurrentTime())

	require.NoError(t, p.SetRate(1.5))
	assert.Error(t, p.SetRate(0))
	require.NoError(t, p.SetVolume(0.25))
	assert.Error(t, p.SetVolume(2))
	assert.Equal(t, timeline.PlaybackState{CurrentTime: 120, Duration: 120, Rate: 1.5, Volume: 0.25}, p.State())

	p.HandleEvent(timeline.MediaEvent{Kind: timeline.EventPlay})
	p.HandleEvent(timeline.MediaEvent{Kind: timeline.EventEnded})
	assert.False(t, p.Playing())

	media.playErr = errors.New("autoplay blocked")
	assert.Error(t, p.TogglePlay())
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00:00", timeline.FormatTimestamp(0))
	assert.Equal(t, "01:05", timeline.FormatTimestamp(65.9))
	assert.Equal(t, "61:01", timeline.FormatTimestamp(3661))
	assert.Equal(t, "00:00", timeline.FormatTimestamp(-4))
	assert.Equal(t, 25.0, timeline.MarkerPosition(30, 120))
	assert.Equal(t, 0.0, timeline.MarkerPosition(30, 0))
}

func newAudio(t *testing.T) (*timeline.AudioEditor, *fakeMedia) {
	media := &fakeMedia{}
	e, err := timeline.NewAudioEditor(media, []string{"speaker_a", "speaker_b"}, nil)
	require.NoError(t, err)
	media.sink = e.Player().HandleEvent
	loaded(e.Player(), 60)
	return e, media
}

func TestAudioInsertTimestamp(t *testing.T) {
	e, _ := newAudio(t)
	e.SetTranscription("hello world")

	e.Player().Seek(65)
	e.Player().Seek(12.7)
	require.NoError(t, e.SetCursor(6))
	e.InsertTimestamp()
	assert.Equal(t, "hello [00:12] world", e.Transcription())

	// The cursor moves past the inserted stamp.
	e.Player().Seek(30)
	e.InsertTimestamp()
	assert.Equal(t, "hello [00:12] [00:30] world", e.Transcription())

	assert.ErrorIs(t, e.SetCursor(100), annotation.ErrOutOfRange)
}

func TestAudioSegments(t *testing.T) {
	e, _ := newAudio(t)

	assert.ErrorIs(t, e.MarkEnd("x"), timeline.ErrNoSegmentStart)

	e.Player().Seek(20)
	e.MarkStart()
	e.Player().Seek(25)
	assert.ErrorIs(t, e.MarkEnd("no label"), annotation.ErrNoLabel)

	require.NoError(t, e.SelectLabel("speaker_a"))
	require.NoError(t, e.MarkEnd("good morning"))
	_, pending := e.PendingStart()
	assert.False(t, pending)

	e.Player().Seek(10)
	e.MarkStart()
	e.Player().Seek(5)
	assert.True(t, annotation.IsValidation(e.MarkEnd("backwards")))
	assert.ErrorIs(t, e.MarkEnd("backwards"), timeline.ErrInvalidInterval)

	require.NoError(t, e.AddSegment(timeline.Segment{StartTime: 2, EndTime: 4, Label: "speaker_b", Text: "hi"}))

	segs := e.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, 2.0, segs[0].StartTime)
	assert.Equal(t, timeline.Segment{StartTime: 20, EndTime: 25, Label: "speaker_a", Text: "good morning"}, segs[1])

	markers := e.Markers()
	require.Len(t, markers, 2)
	assert.InDelta(t, 33.33, markers[1].Position, 0.01)

	require.NoError(t, e.ClickMarker(1))
	assert.Equal(t, 20.0, e.Player().CurrentTime())

	require.NoError(t, e.RemoveSegment(0))
	assert.Len(t, e.Segments(), 1)
	assert.ErrorIs(t, e.RemoveSegment(3), annotation.ErrOutOfRange)
}

func TestAudioSkipAndDraft(t *testing.T) {
	e, media := newAudio(t)

	_, err := e.Draft()
	assert.ErrorIs(t, err, annotation.ErrEmptyAnnotation)

	e.SkipForward()
	e.SkipForward()
	e.SkipBack()
	assert.Equal(t, []float64{5, 10, 5}, media.seeks)

	e.SetTranscription("[00:05] hi")
	draft, err := e.Draft()
	require.NoError(t, err)
	assert.JSONEq(t, `{"transcription":"[00:05] hi","segments":null}`, string(draft.AnnotationData))

	seeded, err := timeline.NewAudioEditor(&fakeMedia{}, nil, &draft)
	require.NoError(t, err)
	assert.Equal(t, "[00:05] hi", seeded.Transcription())
}

func newVideo(t *testing.T) (*timeline.VideoEditor, *fakeMedia) {
	media := &fakeMedia{}
	size := annotation.Size{Width: 640, Height: 360}
	e, err := timeline.NewVideoEditor(media, annotation.NewViewport(size, size), []string{"goal", "foul"}, []string{"player", "ball"}, nil)
	require.NoError(t, err)
	media.sink = e.Player().HandleEvent
	loaded(e.Player(), 90)
	return e, media
}

func TestVideoFrameStep(t *testing.T) {
	e, media := newVideo(t)
	e.Player().Seek(1)
	e.StepFrame(1)
	e.StepFrame(-1)
	e.StepFrame(-1)

	require.Len(t, media.seeks, 4)
	assert.InDelta(t, 1+1.0/30, media.seeks[1], 1e-9)
	assert.InDelta(t, 1, media.seeks[2], 1e-9)
	assert.InDelta(t, 1-1.0/30, media.seeks[3], 1e-9)
}

func TestVideoFrameBoxes(t *testing.T) {
	e, _ := newVideo(t)
	require.NoError(t, e.SelectLabel("player"))

	e.Player().Seek(10)
	require.NoError(t, e.MouseDown(annotation.Point{X: 10, Y: 10}))
	e.MouseMove(annotation.Point{X: 40, Y: 50})
	ok, err := e.MouseUp(annotation.Point{X: 60, Y: 60})
	require.NoError(t, err)
	require.True(t, ok)

	boxes := e.FrameBoxes()
	require.Len(t, boxes, 1)
	assert.Equal(t, 10.0, boxes[0].FrameTime)
	assert.Equal(t, 50.0, boxes[0].Width)

	e.Player().Seek(10.05)
	assert.Len(t, e.VisibleBoxes(), 1)
	assert.Equal(t, 1, e.Scene().Count(annotation.ShapeRect))

	e.Player().Seek(10.2)
	assert.Empty(t, e.VisibleBoxes())
	assert.Len(t, e.FrameBoxes(), 1)

	// Too small.
	_, err = func() (bool, error) {
		require.NoError(t, e.MouseDown(annotation.Point{X: 10, Y: 10}))
		return e.MouseUp(annotation.Point{X: 15, Y: 80})
	}()
	assert.ErrorIs(t, err, annotation.ErrShapeTooSmall)
}

func TestVideoIgnoresDrawingWhilePlaying(t *testing.T) {
	e, _ := newVideo(t)
	require.NoError(t, e.SelectLabel("ball"))
	require.NoError(t, e.TogglePlay())

	require.NoError(t, e.MouseDown(annotation.Point{X: 0, Y: 0}))
	ok, err := e.MouseUp(annotation.Point{X: 100, Y: 100})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, e.FrameBoxes())
	assert.Equal(t, 0, e.Revision())
}

func TestVideoEvents(t *testing.T) {
	e, _ := newVideo(t)

	assert.ErrorIs(t, e.AddEvent("", "", ""), timeline.ErrEmptyEventType)
	assert.ErrorIs(t, e.AddEvent("offside", "", ""), annotation.ErrUnknownLabel)

	e.Player().Seek(45)
	require.NoError(t, e.AddEvent("goal", "home", "header"))
	e.Player().Seek(9)
	require.NoError(t, e.AddEvent("foul", "away", ""))

	events := e.Events()
	require.Len(t, events, 2)
	assert.Equal(t, timeline.Event{Timestamp: 9, Type: "foul", Label: "away"}, events[0])
	assert.Equal(t, 50.0, e.Markers()[1].Position)

	require.NoError(t, e.ClickMarker(1))
	assert.Equal(t, 45.0, e.Player().CurrentTime())

	draft, err := e.Draft()
	require.NoError(t, err)
	seeded, err := timeline.NewVideoEditor(&fakeMedia{}, annotation.Viewport{}, nil, nil, &draft)
	require.NoError(t, err)
	assert.Equal(t, events, seeded.Events())
}

func TestKeymapRespectsFocus(t *testing.T) {
	e, media := newVideo(t)
	require.NoError(t, e.SelectEventType("goal"))
	keys := timeline.VideoKeymap(e)

	handled, err := keys.Dispatch(timeline.KeySpace, timeline.FocusTextInput)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.False(t, e.Player().Playing())

	handled, err = keys.Dispatch(timeline.KeySpace, timeline.FocusNone)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.True(t, e.Player().Playing())

	_, err = keys.Dispatch(timeline.KeySpace, timeline.FocusNone)
	require.NoError(t, err)

	_, err = keys.Dispatch(timeline.KeyArrowRight, timeline.FocusNone)
	require.NoError(t, err)
	_, err = keys.Dispatch(".", timeline.FocusNone)
	require.NoError(t, err)
	assert.InDelta(t, 1+1.0/30, media.seeks[len(media.seeks)-1], 1e-9)

	handled, err = keys.Dispatch("e", timeline.FocusTextArea)
	require.NoError(t, err)
	assert.False(t, handled)
	_, err = keys.Dispatch("e", timeline.FocusNone)
	require.NoError(t, err)
	require.Len(t, e.Events(), 1)
	assert.Equal(t, "goal", e.Events()[0].Type)

	handled, err = keys.Dispatch("q", timeline.FocusNone)
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestAudioKeymap(t *testing.T) {
	e, _ := newAudio(t)
	keys := timeline.AudioKeymap(e)
	assert.True(t, keys.Bound("t"))
	assert.False(t, keys.Bound("e"))

	e.Player().Seek(7)
	_, err := keys.Dispatch("t", timeline.FocusNone)
	require.NoError(t, err)
	assert.Equal(t, "[00:07] ", e.Transcription())
}
