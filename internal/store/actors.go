package store

import (
	"context"
	"database/sql"
	"errors"

	"social-prospector/internal/plans"
	"social-prospector/internal/quota"
)

func (s *Store) GetActor(ctx context.Context, actorID string) (quota.Actor, error) {
	const q = `
SELECT id, tier, unlimited_override, created_at
FROM actors
WHERE id = ?
`
	var (
		a    quota.Actor
		tier string
	)
	if err := s.db.QueryRowContext(ctx, s.q(q), actorID).Scan(
		&a.ID,
		&tier,
		&a.UnlimitedOverride,
		&a.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quota.Actor{}, quota.ErrActorNotFound
		}
		return quota.Actor{}, wrap("get actor", err)
	}
	a.Tier = plans.Tier(tier)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

// PutActor creates the actor or updates its tier and override. created_at is kept on update.
func (s *Store) PutActor(ctx context.Context, a quota.Actor) error {
	const q = `
INSERT INTO actors (id, tier, unlimited_override, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (id)
DO UPDATE SET tier = excluded.tier, unlimited_override = excluded.unlimited_override
`
	_, err := s.db.ExecContext(ctx, s.q(q), a.ID, string(a.Tier), a.UnlimitedOverride, utc(a.CreatedAt))
	return wrap("put actor", err)
}
