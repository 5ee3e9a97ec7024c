package history

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory append-only repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu      sync.Mutex
	seq     int64
	entries []Entry
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Entry) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e.Seq = r.seq
	r.entries = append(r.entries, e)
	return e, nil
}

func (r *MemoryRepo) ListByContact(ctx context.Context, contactID string) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0)
	for _, e := range r.entries {
		if e.ContactID == contactID {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (r *MemoryRepo) ListRecent(ctx context.Context, contactID string, n int) ([]Entry, error) {
	all, _ := r.ListByContact(ctx, contactID)
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

func (r *MemoryRepo) FindByExternalID(ctx context.Context, contactID, externalID string) (Entry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ContactID == contactID && e.ExternalID == externalID {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

// Entries returns a copy of every stored entry in insertion order.
func (r *MemoryRepo) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func sortEntries(es []Entry) {
	sort.SliceStable(es, func(i, j int) bool {
		if !es[i].CreatedAt.Equal(es[j].CreatedAt) {
			return es[i].CreatedAt.Before(es[j].CreatedAt)
		}
		return es[i].Seq < es[j].Seq
	})
}
