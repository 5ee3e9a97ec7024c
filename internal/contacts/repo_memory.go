package contacts

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepo struct {
	mu       sync.Mutex
	contacts map[string]Contact
}

func NewMemoryRepo(cs ...Contact) *MemoryRepo {
	r := &MemoryRepo{contacts: map[string]Contact{}}
	for _, c := range cs {
		r.contacts[c.ID] = c
	}
	return r
}

func (r *MemoryRepo) GetContact(ctx context.Context, contactID string) (Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[contactID]
	if !ok {
		return Contact{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) InsertContact(ctx context.Context, c Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[c.ID] = c
	return nil
}

func (r *MemoryRepo) ListContacts(ctx context.Context, actorID string) ([]Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Contact, 0)
	for _, c := range r.contacts {
		if c.ActorID == actorID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
