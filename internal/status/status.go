// Package status tracks the printer connection state shown to callers
package status

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// State is the connectivity indicator exposed to callers
type State string

const (
	Connecting   State = "connecting"
	Connected    State = "connected"
	Disconnected State = "disconnected"
	Error        State = "error"
)

// Snapshot is a point-in-time copy of the tracker
type Snapshot struct {
	State    State    `json:"status"`
	Messages []string `json:"messages"`
}

// Setter is the write side of the tracker, used by the registry,
// the locator and the dispatcher.
type Setter interface {
	Set(state State, message string)
}

// Tracker holds the single shared status value
type Tracker struct {
	mu       sync.RWMutex
	state    State
	messages []string
	subs     map[chan Snapshot]struct{}
}

// NewTracker creates a tracker in the connecting state
func NewTracker() *Tracker {
	return &Tracker{
		state:    Connecting,
		messages: []string{},
		subs:     make(map[chan Snapshot]struct{}),
	}
}

// Set records a state transition. An empty message means no message.
//
// Setting the current state again appends the message unless it repeats
// the last one. Setting a different state replaces the log.
func (t *Tracker) Set(state State, message string) {
	if message == "" {
		log.Info().Str("state", string(state)).Msg("no message")
	} else {
		log.Info().Str("state", string(state)).Msg(message)
	}

	t.mu.Lock()
	if state == t.state {
		if message != "" && (len(t.messages) == 0 || t.messages[len(t.messages)-1] != message) {
			t.messages = append(t.messages, message)
		}
	} else {
		t.state = state
		if message != "" {
			t.messages = []string{message}
		} else {
			t.messages = []string{}
		}
	}
	snap := t.snapshotLocked()
	for ch := range t.subs {
		select {
		case ch <- snap:
		default:
			// slow subscriber, it will catch up on the next change
		}
	}
	t.mu.Unlock()

	if message == "" {
		return
	}
	switch state {
	case Error:
		log.Error().Msg("ESC/POS error: " + message)
	case Disconnected:
		log.Warn().Msg("ESC/POS device disconnected: " + message)
	}
}

// Snapshot returns a copy of the current status
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every change, and
// a function that cancels the subscription.
func (t *Tracker) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	t.mu.Lock()
	t.subs[ch] = struct{}{}
	t.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, ch)
			close(ch)
			t.mu.Unlock()
		})
	}
	return ch, cancel
}

func (t *Tracker) snapshotLocked() Snapshot {
	messages := make([]string, len(t.messages))
	copy(messages, t.messages)
	return Snapshot{State: t.state, Messages: messages}
}
