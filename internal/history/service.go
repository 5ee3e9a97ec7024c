package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for history entries.
//
// It MUST be append-only. Append assigns Seq.
type Repository interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	ListByContact(ctx context.Context, contactID string) ([]Entry, error)
	// ListRecent returns the last n entries for the contact, oldest first.
	ListRecent(ctx context.Context, contactID string, n int) ([]Entry, error)
	FindByExternalID(ctx context.Context, contactID, externalID string) (Entry, bool, error)
}

var ErrInvalidEntry = errors.New("history: invalid entry")

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) Append(ctx context.Context, e Entry) (Entry, error) {
	if s.repo == nil {
		return Entry{}, errors.New("history: repository not configured")
	}
	if e.ContactID == "" || e.ActorID == "" || !e.Direction.Valid() || e.Stage < 0 {
		return Entry{}, ErrInvalidEntry
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) List(ctx context.Context, contactID string) ([]Entry, error) {
	if contactID == "" {
		return nil, ErrInvalidEntry
	}
	return s.repo.ListByContact(ctx, contactID)
}

func (s *Service) Recent(ctx context.Context, contactID string, n int) ([]Entry, error) {
	if contactID == "" {
		return nil, ErrInvalidEntry
	}
	if n <= 0 {
		return nil, nil
	}
	return s.repo.ListRecent(ctx, contactID, n)
}

func (s *Service) FindByExternalID(ctx context.Context, contactID, externalID string) (Entry, bool, error) {
	if externalID == "" {
		return Entry{}, false, nil
	}
	return s.repo.FindByExternalID(ctx, contactID, externalID)
}
