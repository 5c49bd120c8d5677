// Package banner holds the transient error message shown above the canvas.
//
// A message is shown with a time-to-live. Showing a new message cancels the pending clear
// of the previous one, and every clear is keyed by the generation it was scheduled for, so
// a timer that fires late can never erase a newer message.
package banner

import (
	"sync"
	"time"

	"github.com/ritzau/flow-builder/pkg/logging"
)

// Kind identifies why a banner is shown
type Kind string

const (
	KindNone                        Kind = ""
	KindDuplicateOutgoingConnection Kind = "duplicate_outgoing_connection"
	KindInvalidEntryTopology        Kind = "invalid_entry_topology"
)

// Message is the banner state at one point in time.
// Generation increases on every change, including clears.
type Message struct {
	Kind       Kind       `json:"kind,omitempty"`
	Text       string     `json:"text"`
	Generation uint64     `json:"generation"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// Visible reports whether there is a message to show
func (m Message) Visible() bool {
	return m.Text != ""
}

// Timer is the part of *time.Timer the banner needs
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run after d
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Banner is safe for concurrent use
type Banner struct {
	mu        sync.Mutex
	current   Message
	timer     Timer
	afterFunc AfterFunc
	now       func() time.Time
	onChange  func(Message)
}

// Option configures a Banner
type Option func(*Banner)

// WithAfterFunc replaces the timer scheduler (used by tests)
func WithAfterFunc(f AfterFunc) Option {
	return func(b *Banner) { b.afterFunc = f }
}

// WithClock replaces the clock used for ExpiresAt
func WithClock(now func() time.Time) Option {
	return func(b *Banner) { b.now = now }
}

// OnChange registers a callback receiving every state change.
// The callback runs without the banner lock held.
func OnChange(f func(Message)) Option {
	return func(b *Banner) { b.onChange = f }
}

// New creates an empty banner
func New(opts ...Option) *Banner {
	b := &Banner{
		afterFunc: realAfterFunc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Show replaces the current message and schedules it to clear after ttl.
// A ttl of zero or less keeps the message until it is replaced or cleared.
func (b *Banner) Show(kind Kind, text string, ttl time.Duration) Message {
	b.mu.Lock()
	b.stopTimer()

	b.current = Message{
		Kind:       kind,
		Text:       text,
		Generation: b.current.Generation + 1,
	}
	if ttl > 0 {
		expires := b.now().Add(ttl)
		b.current.ExpiresAt = &expires
		gen := b.current.Generation
		b.timer = b.afterFunc(ttl, func() { b.expire(gen) })
	}
	msg := b.current
	b.mu.Unlock()

	logging.Debug("banner shown", "kind", string(kind), "generation", msg.Generation, "ttl", ttl)
	b.notify(msg)
	return msg
}

// Clear removes the current message immediately and cancels its pending clear.
// Clearing an empty banner is a no-op.
func (b *Banner) Clear() {
	b.mu.Lock()
	if !b.current.Visible() {
		b.mu.Unlock()
		return
	}
	b.stopTimer()
	b.current = Message{Generation: b.current.Generation + 1}
	msg := b.current
	b.mu.Unlock()

	b.notify(msg)
}

// Current returns the message being shown
func (b *Banner) Current() Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// expire clears the message if it is still the one the timer was scheduled for
func (b *Banner) expire(gen uint64) {
	b.mu.Lock()
	if b.current.Generation != gen {
		b.mu.Unlock()
		logging.Trace("ignoring stale banner expiry", "generation", gen)
		return
	}
	b.timer = nil
	b.current = Message{Generation: gen + 1}
	msg := b.current
	b.mu.Unlock()

	logging.Debug("banner expired", "generation", gen)
	b.notify(msg)
}

func (b *Banner) stopTimer() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *Banner) notify(msg Message) {
	if b.onChange != nil {
		b.onChange(msg)
	}
}
