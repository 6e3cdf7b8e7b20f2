package ledger

import (
	"fmt"
	"time"
)

// LockOutcome tells a caller what a Lock or Unlock call actually did.
type LockOutcome int

const (
	// LockApplied means the node changed state.
	LockApplied LockOutcome = iota
	// LockAlreadyHeld means Lock found the node already locked.
	LockAlreadyHeld
	// LockNotHeld means Unlock found the node already unlocked.
	LockNotHeld
)

func (o LockOutcome) String() string {
	switch o {
	case LockApplied:
		return "applied"
	case LockAlreadyHeld:
		return "already_locked"
	case LockNotHeld:
		return "not_locked"
	}

	return fmt.Sprintf("LockOutcome(%d)", int(o))
}

// Lockable is implemented by the nodes the lock state machine operates on.
type Lockable interface {
	lockState() *LockState
	cascade() []Lockable
}

func (c *Category) lockState() *LockState { return &c.LockState }
func (c *Category) cascade() []Lockable   { return nil }

func (m *Month) lockState() *LockState { return &m.LockState }

func (m *Month) cascade() []Lockable {
	nodes := make([]Lockable, 0, 3+len(m.Other))
	for _, c := range m.Categories() {
		nodes = append(nodes, c)
	}

	return nodes
}

// Lock moves node from Unlocked to Locked. On a month the lock cascades to
// sales, purchase, bank and every other category present right now, and one
// system note recording the event is appended to the month.
func Lock(node Lockable, actor string, at time.Time) LockOutcome {
	s := node.lockState()
	if s.IsLocked {
		return LockAlreadyHeld
	}

	setLocked(s, actor, at)

	for _, child := range node.cascade() {
		setLocked(child.lockState(), actor, at)
	}

	if m, ok := node.(*Month); ok {
		m.Notes = append(m.Notes, lockNote(m, actor, at))
	}

	return LockApplied
}

// Unlock is the administrative Locked to Unlocked transition. It cascades
// like Lock, never clears WasLockedOnce, and on a month appends a system note
// naming who unlocked it.
func Unlock(node Lockable, actor string, at time.Time) LockOutcome {
	s := node.lockState()
	if !s.IsLocked {
		return LockNotHeld
	}

	clearLocked(s)

	for _, child := range node.cascade() {
		clearLocked(child.lockState())
	}

	if m, ok := node.(*Month); ok {
		m.Notes = append(m.Notes, systemNote(fmt.Sprintf("Month unlocked by %s.", actor), at))
	}

	return LockApplied
}

func setLocked(s *LockState, actor string, at time.Time) {
	s.IsLocked = true
	s.WasLockedOnce = true
	s.LockedAt = &at
	s.LockedBy = actor
}

func clearLocked(s *LockState) {
	s.IsLocked = false
	s.LockedAt = nil
	s.LockedBy = ""
}

func lockNote(m *Month, actor string, at time.Time) Note {
	return systemNote(fmt.Sprintf("Month locked by %s (client status: %s).", actor, m.ActiveStatus), at)
}

func systemNote(text string, at time.Time) Note {
	n, _ := NewNote(NewNoteParams{
		Text:       text,
		AddedBy:    SystemActor,
		AuthorRole: RoleSystem,
	}, at)

	return n
}
