package timeline

import "log/slog"

// Focus describes which control currently owns keyboard input.
type Focus int

const (
	FocusNone Focus = iota
	FocusTextInput
	FocusTextArea
)

func (f Focus) editsText() bool {
	return f == FocusTextInput || f == FocusTextArea
}

const (
	KeySpace      = "space"
	KeyArrowLeft  = "arrowleft"
	KeyArrowRight = "arrowright"
)

type Command func() error

// Keymap is a registry of keyboard commands. It is only consulted when no text
// editing control has focus, so typing is never hijacked.
type Keymap struct {
	commands map[string]Command
}

func NewKeymap() *Keymap {
	return &Keymap{commands: make(map[string]Command)}
}

func (k *Keymap) Bind(key string, cmd Command) {
	k.commands[key] = cmd
}

func (k *Keymap) Bound(key string) bool {
	_, ok := k.commands[key]
	return ok
}

// Dispatch runs the command bound to key. It reports whether the key was
// consumed, in which case the caller should suppress the default action.
func (k *Keymap) Dispatch(key string, focus Focus) (bool, error) {
	if focus.editsText() {
		return false, nil
	}
	cmd, ok := k.commands[key]
	if !ok {
		return false, nil
	}
	if err := cmd(); err != nil {
		slog.Debug("keyboard command failed", "key", key, "error", err)
		return true, err
	}
	return true, nil
}

func noErr(f func()) Command {
	return func() error {
		f()
		return nil
	}
}

func AudioKeymap(e *AudioEditor) *Keymap {
	k := NewKeymap()
	k.Bind(KeySpace, e.TogglePlay)
	k.Bind(KeyArrowLeft, noErr(e.SkipBack))
	k.Bind(KeyArrowRight, noErr(e.SkipForward))
	k.Bind("t", noErr(e.InsertTimestamp))
	return k
}

func VideoKeymap(e *VideoEditor) *Keymap {
	k := NewKeymap()
	k.Bind(KeySpace, e.TogglePlay)
	k.Bind(KeyArrowLeft, noErr(e.SkipBack))
	k.Bind(KeyArrowRight, noErr(e.SkipForward))
	k.Bind(",", noErr(func() { e.StepFrame(-1) }))
	k.Bind(".", noErr(func() { e.StepFrame(1) }))
	k.Bind("e", e.MarkEvent)
	return k
}
