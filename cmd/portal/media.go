package main

// headlessMedia satisfies the editors' media element in a terminal, where
// nothing is ever played. Timeline drafts are imported from files instead.
type headlessMedia struct{}

func (headlessMedia) Play() error { return nil }

func (headlessMedia) Pause() {}

func (headlessMedia) Seek(seconds float64) {}

func (headlessMedia) SetRate(rate float64) {}

func (headlessMedia) SetVolume(volume float64) {}
