package store

import (
	"context"

	"social-prospector/internal/analytics"
)

// Increment bumps one counter cell. The upsert is a single statement so concurrent
// increments never lose updates.
func (s *Store) Increment(ctx context.Context, actorID, goalID string, month analytics.Month, metric analytics.Metric, stage int) error {
	const q = `
INSERT INTO analytics_counters (actor_id, goal_id, month, metric, stage, value)
VALUES (?, ?, ?, ?, ?, 1)
ON CONFLICT (actor_id, goal_id, month, metric, stage)
DO UPDATE SET value = analytics_counters.value + 1
`
	_, err := s.db.ExecContext(ctx, s.q(q), actorID, goalID, string(month), string(metric), stage)
	return wrap("increment counter", err)
}

func (s *Store) List(ctx context.Context, actorID string, from, to analytics.Month) ([]analytics.Counter, error) {
	const q = `
SELECT actor_id, goal_id, month, metric, stage, value
FROM analytics_counters
WHERE actor_id = ? AND month >= ? AND month <= ?
ORDER BY goal_id, month, metric, stage
`
	rows, err := s.db.QueryContext(ctx, s.q(q), actorID, string(from), string(to))
	if err != nil {
		return nil, wrap("list counters", err)
	}
	defer rows.Close()

	out := make([]analytics.Counter, 0)
	for rows.Next() {
		var (
			c             analytics.Counter
			month, metric string
		)
		if err := rows.Scan(&c.ActorID, &c.GoalID, &month, &metric, &c.Stage, &c.Value); err != nil {
			return nil, wrap("scan counter", err)
		}
		c.Month = analytics.Month(month)
		c.Metric = analytics.Metric(metric)
		out = append(out, c)
	}
	return out, wrap("list counters", rows.Err())
}
