package banner

import (
	"sync"
	"time"
)

// Kind is the styling class of a banner message.
type Kind string

// Message kinds
const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// DefaultHideDelay is how long a message stays visible after the most recent Show.
const DefaultHideDelay = 5 * time.Second

// Timer is the subset of *time.Timer the banner needs.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed callbacks. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock is the wall-clock implementation of Clock.
var RealClock Clock = realClock{}

// State is a point-in-time copy of the banner.
type State struct {
	Text    string `json:"text"`
	Kind    Kind   `json:"kind"`
	Visible bool   `json:"visible"`
}

// Class returns the CSS class list for the message area.
func (s State) Class() string {
	if !s.Visible {
		if s.Kind == "" {
			return "hidden"
		}
		return string(s.Kind) + " hidden"
	}
	return string(s.Kind)
}

// Banner is a single transient status line. The last Show wins.
// INVARIANT: at most one hide is pending, and it belongs to the latest Show.
type Banner struct {
	mu         sync.Mutex
	clock      Clock
	delay      time.Duration
	state      State
	pending    Timer
	generation uint64
}

// New creates a hidden banner.
// PRE: nil clock selects RealClock; delay <= 0 selects DefaultHideDelay
// POST: Returns a banner with no message shown
func New(clock Clock, delay time.Duration) *Banner {
	if clock == nil {
		clock = RealClock
	}
	if delay <= 0 {
		delay = DefaultHideDelay
	}
	return &Banner{clock: clock, delay: delay}
}

// Show replaces the message and restarts the hide timer.
// PRE: kind is KindSuccess or KindError
// POST: Banner is visible with text/kind; any earlier pending hide is cancelled
func (b *Banner) Show(text string, kind Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending != nil {
		b.pending.Stop()
	}
	b.generation++
	gen := b.generation
	b.state = State{Text: text, Kind: kind, Visible: true}
	b.pending = b.clock.AfterFunc(b.delay, func() { b.hide(gen) })
}

// hide runs when a timer fires. A timer that fired after a newer Show
// (Stop lost the race) carries an old generation and is ignored.
func (b *Banner) hide(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generation {
		return
	}
	b.state.Visible = false
	b.pending = nil
}

// Snapshot returns the current banner state.
func (b *Banner) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Close cancels any pending hide.
func (b *Banner) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending != nil {
		b.pending.Stop()
		b.pending = nil
	}
}
