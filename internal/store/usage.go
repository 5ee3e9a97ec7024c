package store

import (
	"context"
	"time"

	"social-prospector/internal/plans"
	"social-prospector/internal/quota"
)

func (s *Store) RecordAction(ctx context.Context, e quota.UsageEvent) error {
	const q = `
INSERT INTO usage_events (id, actor_id, action, created_at)
VALUES (?, ?, ?, ?)
`
	_, err := s.db.ExecContext(ctx, s.q(q), e.ID, e.ActorID, string(e.Action), utc(e.CreatedAt))
	return wrap("record action", err)
}

func (s *Store) CountActions(ctx context.Context, actorID string, action plans.ActionKind, since time.Time) (int, error) {
	const q = `
SELECT COUNT(*)
FROM usage_events
WHERE actor_id = ? AND action = ? AND created_at >= ?
`
	var n int
	if err := s.db.QueryRowContext(ctx, s.q(q), actorID, string(action), utc(since)).Scan(&n); err != nil {
		return 0, wrap("count actions", err)
	}
	return n, nil
}
