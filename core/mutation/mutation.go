// Package mutation tracks a change to a record that the backend has not confirmed yet.
package mutation

import (
	"context"
	"fmt"
	"sync"
)

type State int

const (
	Idle State = iota
	Pending
	Confirmed
	RolledBack
)

var stateNames = map[State]string{
	Idle:       "IDLE",
	Pending:    "PENDING",
	Confirmed:  "CONFIRMED",
	RolledBack: "ROLLED_BACK",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Mutation holds a record before and after a change. Current is Before until the change is confirmed.
type Mutation[T any] struct {
	mu     sync.Mutex
	before T
	after  T
	state  State
	err    error
}

// Begin starts the change of before into after.
func Begin[T any](before, after T) *Mutation[T] {
	return &Mutation[T]{before: before, after: after, state: Pending}
}

// Confirm applies the change. Only a pending mutation can be confirmed.
func (m *Mutation[T]) Confirm() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Pending {
		return false
	}
	m.state = Confirmed
	return true
}

// Rollback abandons the change because of err. Only a pending mutation can be rolled back.
func (m *Mutation[T]) Rollback(err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Pending {
		return false
	}
	m.state = RolledBack
	m.err = err
	return true
}

// Current is the record as it should be displayed.
func (m *Mutation[T]) Current() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Confirmed {
		return m.after
	}
	return m.before
}

func (m *Mutation[T]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err is the error the mutation was rolled back with.
func (m *Mutation[T]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Run begins the change, commits it with commit and confirms or rolls back depending on its outcome.
// It returns the record to display and commit's error.
func Run[T any](ctx context.Context, before, after T, commit func(ctx context.Context) error) (T, error) {
	m := Begin(before, after)
	if err := commit(ctx); err != nil {
		m.Rollback(err)
		return m.Current(), err
	}
	m.Confirm()
	return m.Current(), nil
}
