// Package tenantlock serializes mutations of a single tenant's document tree.
package tenantlock

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNotAcquired is returned when the lock could not be taken before the
// context ended.
var ErrNotAcquired = errors.New("tenant lock not acquired")

// Locker grants exclusive access to one tenant at a time. The returned
// function releases the lock and is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, tenantID uuid.UUID) (release func(), err error)
}

// Local is an in-process Locker keyed by tenant.
type Local struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{slots: make(map[uuid.UUID]*slot)}
}

func (l *Local) Acquire(ctx context.Context, tenantID uuid.UUID) (func(), error) {
	l.mu.Lock()

	s, ok := l.slots[tenantID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[tenantID] = s
	}

	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(tenantID, s)
		return nil, errors.Join(ErrNotAcquired, ctx.Err())
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			<-s.ch
			l.drop(tenantID, s)
		})
	}, nil
}

func (l *Local) drop(tenantID uuid.UUID, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, tenantID)
	}
}
