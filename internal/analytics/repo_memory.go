package analytics

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryRepo is a simple in-memory counter store for tests and local runs.
type MemoryRepo struct {
	mu    sync.Mutex
	cells map[Counter]int

	// IncrementErr, when set, is returned by Increment.
	IncrementErr error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{cells: map[Counter]int{}} }

func (r *MemoryRepo) Increment(ctx context.Context, actorID, goalID string, month Month, metric Metric, stage int) error {
	if actorID == "" {
		return errors.New("actor_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.IncrementErr != nil {
		return r.IncrementErr
	}
	r.cells[Counter{ActorID: actorID, GoalID: goalID, Month: month, Metric: metric, Stage: stage}]++
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, actorID string, from, to Month) ([]Counter, error) {
	if actorID == "" {
		return nil, errors.New("actor_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Counter, 0)
	for k, v := range r.cells {
		if k.ActorID != actorID || k.Month < from || k.Month > to {
			continue
		}
		k.Value = v
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.GoalID != b.GoalID {
			return a.GoalID < b.GoalID
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		if a.Metric != b.Metric {
			return a.Metric < b.Metric
		}
		return a.Stage < b.Stage
	})
	return out, nil
}

// Value returns a single cell, for tests.
func (r *MemoryRepo) Value(actorID, goalID string, month Month, metric Metric, stage int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cells[Counter{ActorID: actorID, GoalID: goalID, Month: month, Metric: metric, Stage: stage}]
}
