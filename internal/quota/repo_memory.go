package quota

import (
	"context"
	"sync"
	"time"

	"social-prospector/internal/plans"
)

// MemoryUsageRepo is an in-memory usage store for tests and local runs.
type MemoryUsageRepo struct {
	mu     sync.Mutex
	events []UsageEvent

	// CountErr, when set, is returned by CountActions.
	CountErr error
}

func NewMemoryUsageRepo() *MemoryUsageRepo { return &MemoryUsageRepo{} }

func (r *MemoryUsageRepo) RecordAction(ctx context.Context, e UsageEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *MemoryUsageRepo) CountActions(ctx context.Context, actorID string, action plans.ActionKind, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CountErr != nil {
		return 0, r.CountErr
	}
	n := 0
	for _, e := range r.events {
		if e.ActorID == actorID && e.Action == action && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// MemoryActorRepo is an in-memory actor lookup.
type MemoryActorRepo struct {
	mu     sync.Mutex
	actors map[string]Actor
}

func NewMemoryActorRepo(actors ...Actor) *MemoryActorRepo {
	r := &MemoryActorRepo{actors: map[string]Actor{}}
	for _, a := range actors {
		r.actors[a.ID] = a
	}
	return r
}

func (r *MemoryActorRepo) Put(a Actor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors[a.ID] = a
}

func (r *MemoryActorRepo) GetActor(ctx context.Context, actorID string) (Actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actors[actorID]
	if !ok {
		return Actor{}, ErrActorNotFound
	}
	return a, nil
}
