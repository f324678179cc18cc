package timeline

import (
	"fmt"
	"log/slog"
)

// MediaElement is the native playback backend. Calls are requests; the resulting
// state arrives later as MediaEvents.
type MediaElement interface {
	Play() error
	Pause()
	Seek(seconds float64)
	SetRate(rate float64)
	SetVolume(volume float64)
}

type EventKind string

const (
	EventTimeUpdate     EventKind = "timeupdate"
	EventLoadedMetadata EventKind = "loadedmetadata"
	EventPlay           EventKind = "play"
	EventPause          EventKind = "pause"
	EventEnded          EventKind = "ended"
	EventRateChange     EventKind = "ratechange"
	EventVolumeChange   EventKind = "volumechange"
)

type MediaEvent struct {
	Kind     EventKind
	Time     float64
	Duration float64
	Rate     float64
	Volume   float64
}

type PlaybackState struct {
	CurrentTime float64
	Duration    float64
	Playing     bool
	Rate        float64
	Volume      float64
}

// Player keeps playback state in sync with a MediaElement. Events from the element
// are the only source of truth for the current time; the player never runs its
// own clock.
type Player struct {
	media MediaElement
	state PlaybackState
}

func NewPlayer(media MediaElement) *Player {
	return &Player{media: media, state: PlaybackState{Rate: 1, Volume: 1}}
}

func (p *Player) State() PlaybackState { return p.state }

func (p *Player) CurrentTime() float64 { return p.state.CurrentTime }

func (p *Player) Duration() float64 { return p.state.Duration }

func (p *Player) Playing() bool { return p.state.Playing }

func (p *Player) HandleEvent(ev MediaEvent) {
	switch ev.Kind {
	case EventTimeUpdate:
		p.state.CurrentTime = ev.Time
	case EventLoadedMetadata:
		p.state.Duration = ev.Duration
	case EventPlay:
		p.state.Playing = true
	case EventPause:
		p.state.Playing = false
	case EventEnded:
		p.state.Playing = false
		p.state.CurrentTime = p.state.Duration
	case EventRateChange:
		p.state.Rate = ev.Rate
	case EventVolumeChange:
		p.state.Volume = ev.Volume
	default:
		slog.Warn("ignoring unknown media event", "kind", ev.Kind)
	}
}

func (p *Player) TogglePlay() error {
	if p.state.Playing {
		p.media.Pause()
		return nil
	}
	if err := p.media.Play(); err != nil {
		return fmt.Errorf("error starting playback: %w", err)
	}
	return nil
}

// Seek requests a jump to t, clamped to the media's extent.
func (p *Player) Seek(t float64) {
	p.media.Seek(p.clamp(t))
}

func (p *Player) Skip(delta float64) {
	p.Seek(p.state.CurrentTime + delta)
}

func (p *Player) SetRate(rate float64) error {
	if rate <= 0 || rate > 4 {
		return fmt.Errorf("invalid playback rate %v", rate)
	}
	p.media.SetRate(rate)
	return nil
}

func (p *Player) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return fmt.Errorf("invalid volume %v", volume)
	}
	p.media.SetVolume(volume)
	return nil
}

func (p *Player) clamp(t float64) float64 {
	if t < 0 {
		return 0
	}
	if p.state.Duration > 0 && t > p.state.Duration {
		return p.state.Duration
	}
	return t
}

// Marker is a time-anchored annotation placed along the scrub bar.
type Marker struct {
	Index    int
	Time     float64
	Position float64
	Label    string
}

// MarkerPosition returns where t falls on the scrub bar, in percent.
func MarkerPosition(t, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return t / duration * 100
}

// FormatTimestamp renders seconds as mm:ss.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
