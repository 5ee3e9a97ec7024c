package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-prospector/internal/plans"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("contacts: not found")
	ErrInvalidArgument = errors.New("contacts: invalid argument")
)

type Repository interface {
	GetContact(ctx context.Context, contactID string) (Contact, error)
	InsertContact(ctx context.Context, c Contact) error
	ListContacts(ctx context.Context, actorID string) ([]Contact, error)
}

// UsageRecorder records a performed quota-gated action.
type UsageRecorder interface {
	Record(ctx context.Context, actorID string, action plans.ActionKind) error
}

type Service struct {
	repo  Repository
	usage UsageRecorder
	clock func() time.Time
}

func NewService(repo Repository, usage UsageRecorder) *Service {
	return &Service{repo: repo, usage: usage, clock: time.Now}
}

// Import stores a contact for the actor and records one contact_import action.
func (s *Service) Import(ctx context.Context, actorID string, c Contact) (Contact, error) {
	c.Name = strings.TrimSpace(c.Name)
	if actorID == "" || c.Name == "" {
		return Contact{}, fmt.Errorf("%w: actor and name required", ErrInvalidArgument)
	}
	c.ActorID = actorID
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = s.clock().UTC()
	if err := s.repo.InsertContact(ctx, c); err != nil {
		return Contact{}, err
	}
	if s.usage != nil {
		if err := s.usage.Record(ctx, actorID, plans.ActionContactImport); err != nil {
			return c, fmt.Errorf("contacts: record usage: %w", err)
		}
	}
	return c, nil
}

// Get returns the contact only if it belongs to actorID.
func (s *Service) Get(ctx context.Context, actorID, contactID string) (Contact, error) {
	c, err := s.repo.GetContact(ctx, contactID)
	if err != nil {
		return Contact{}, err
	}
	if c.ActorID != actorID {
		return Contact{}, ErrNotFound
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, actorID string) ([]Contact, error) {
	if actorID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListContacts(ctx, actorID)
}
