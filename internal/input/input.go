// Package input hands window input from the event callbacks to the frame
// loop. Callbacks post into a Mailbox; the frame loop takes a snapshot of the
// accumulated state once per frame, which clears the one-shot parts.
package input

import (
	"sync"

	"github.com/soypat/glgl/math/ms3"
	"github.com/soypat/glvox"
)

// Key is a logical key tracked by the mailbox.
type Key uint8

const (
	KeyForward Key = iota
	KeyBackward
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyFast
	numKeys
)

// Edit is a world space edit request.
type Edit struct {
	World ms3.Vec
	Edit  glvox.EditType
	Value uint32
}

// State is the input accumulated between two frames.
type State struct {
	// Pressed holds the latest state of every key.
	Pressed [numKeys]bool
	// Look is the cursor movement in pixels since the last snapshot.
	LookX, LookY float64
	Edits        []Edit
	Quit         bool
}

// Down reports whether k is held.
func (s *State) Down(k Key) bool { return k < numKeys && s.Pressed[k] }

// Axis returns +1, -1 or 0 for a pair of opposing keys.
func (s *State) Axis(pos, neg Key) float32 {
	var v float32
	if s.Down(pos) {
		v++
	}
	if s.Down(neg) {
		v--
	}
	return v
}

// Mailbox is safe for concurrent use.
type Mailbox struct {
	mu       sync.Mutex
	state    State
	haveLast bool
	lastX    float64
	lastY    float64
	maxEdits int
	dropped  int
}

// NewMailbox returns a mailbox holding up to maxEdits pending edits. Edits
// posted beyond that are dropped until the next snapshot.
func NewMailbox(maxEdits int) *Mailbox {
	return &Mailbox{maxEdits: maxEdits}
}

// SetKey records the latest state of k.
func (m *Mailbox) SetKey(k Key, down bool) {
	if k >= numKeys {
		return
	}
	m.mu.Lock()
	m.state.Pressed[k] = down
	m.mu.Unlock()
}

// CursorMoved accumulates the cursor movement relative to the previous
// position. The first position only sets the reference.
func (m *Mailbox) CursorMoved(x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.haveLast {
		m.state.LookX += x - m.lastX
		m.state.LookY += y - m.lastY
	}
	m.lastX, m.lastY, m.haveLast = x, y, true
}

// ReleaseCursor forgets the reference position so the next movement does
// not jump.
func (m *Mailbox) ReleaseCursor() {
	m.mu.Lock()
	m.haveLast = false
	m.mu.Unlock()
}

// PostEdit queues an edit request. It reports false if the queue is full.
func (m *Mailbox) PostEdit(e Edit) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.state.Edits) >= m.maxEdits {
		m.dropped++
		return false
	}
	m.state.Edits = append(m.state.Edits, e)
	return true
}

// RequestQuit marks the quit flag, which stays set.
func (m *Mailbox) RequestQuit() {
	m.mu.Lock()
	m.state.Quit = true
	m.mu.Unlock()
}

// Snapshot returns the state accumulated since the previous snapshot and
// clears the cursor movement and the edit queue. Key states and the quit
// flag persist.
func (m *Mailbox) Snapshot() (s State, dropped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s = m.state
	dropped = m.dropped
	m.state.LookX, m.state.LookY = 0, 0
	m.state.Edits = nil
	m.dropped = 0
	return s, dropped
}
