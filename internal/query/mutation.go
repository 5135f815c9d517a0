package query

import (
	"context"
	"sync"
	"time"

	"github.com/bassista/go_microassur/internal/logger"
	"github.com/google/uuid"
)

// MutationStatus is the state of one mutation invocation.
type MutationStatus string

const (
	MutationIdle    MutationStatus = "idle"
	MutationPending MutationStatus = "pending"
	MutationSuccess MutationStatus = "success"
	MutationError   MutationStatus = "error"
)

// Mutation is a one-shot side-effecting operation. It is never retried and never
// cached; on success it invalidates the keys returned by Invalidates.
type Mutation[In, Out any] struct {
	Client *Client
	Name   string
	Do     func(ctx context.Context, in In) (Out, error)
	// Authorize runs before any network call. A non-nil error fails the invocation.
	Authorize func(in In) error
	// Invalidates lists the key prefixes to invalidate after a success.
	Invalidates func(in In, out Out) []Key
}

// Invocation is one run of a Mutation: idle, pending, then success or error.
type Invocation[Out any] struct {
	ID   string
	Name string

	mu       sync.Mutex
	status   MutationStatus
	history  []MutationStatus
	result   Out
	err      error
	started  time.Time
	finished time.Time
}

func newInvocation[Out any](name string) *Invocation[Out] {
	return &Invocation[Out]{
		ID:      uuid.NewString(),
		Name:    name,
		status:  MutationIdle,
		history: []MutationStatus{MutationIdle},
	}
}

func (i *Invocation[Out]) transition(s MutationStatus) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status = s
	i.history = append(i.history, s)
	switch s {
	case MutationPending:
		i.started = time.Now()
	case MutationSuccess, MutationError:
		i.finished = time.Now()
	}
}

func (i *Invocation[Out]) Status() MutationStatus {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// History is the ordered list of states the invocation went through.
func (i *Invocation[Out]) History() []MutationStatus {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]MutationStatus(nil), i.history...)
}

func (i *Invocation[Out]) Result() Out {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.result
}

func (i *Invocation[Out]) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.err
}

func (i *Invocation[Out]) Duration() time.Duration {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.finished.IsZero() {
		return 0
	}
	return i.finished.Sub(i.started)
}

// Execute runs a fresh invocation to completion. Invalidation happens only after
// Do succeeded, and has completed (including dependent refetches) when Execute returns.
func (m *Mutation[In, Out]) Execute(ctx context.Context, in In) *Invocation[Out] {
	inv := newInvocation[Out](m.Name)
	log := logger.WithComponent("mutation").WithField("mutation", m.Name).WithField("invocation", inv.ID)
	inv.transition(MutationPending)

	fail := func(err error) *Invocation[Out] {
		inv.mu.Lock()
		inv.err = err
		inv.mu.Unlock()
		inv.transition(MutationError)
		if m.Client != nil {
			m.Client.reportError("mutation "+m.Name, err)
		} else {
			log.Warnf("mutation failed: %v", err)
		}
		return inv
	}

	if m.Authorize != nil {
		if err := m.Authorize(in); err != nil {
			return fail(err)
		}
	}

	out, err := m.Do(ctx, in)
	if err != nil {
		return fail(err)
	}

	if m.Invalidates != nil && m.Client != nil {
		if keys := m.Invalidates(in, out); len(keys) > 0 {
			if err := m.Client.Invalidate(ctx, keys...); err != nil {
				log.Warnf("invalidation interrupted: %v", err)
			}
		}
	}

	inv.mu.Lock()
	inv.result = out
	inv.mu.Unlock()
	inv.transition(MutationSuccess)
	log.Debugf("mutation succeeded in %v", inv.Duration())
	return inv
}

// Mutate runs Execute and returns its outcome.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In) (Out, error) {
	inv := m.Execute(ctx, in)
	return inv.Result(), inv.Err()
}
