package store

import (
	"context"
	"database/sql"
	"errors"

	"social-prospector/internal/sequence"
)

const stateColumns = `id, contact_id, actor_id, goal_id, approach_method, current_stage, status,
  last_outbound_at, last_outbound_stage, last_inbound_at, last_inbound_text, started_at, updated_at, completed_at`

// GetState returns the contact's non-terminal state if one exists, otherwise the most
// recently started one.
func (s *Store) GetState(ctx context.Context, contactID string) (sequence.State, bool, error) {
	q := `
SELECT ` + stateColumns + `
FROM conversation_states
WHERE contact_id = ?
ORDER BY (completed_at IS NULL) DESC, started_at DESC, completed_at DESC
LIMIT 1
`
	var (
		st                         sequence.State
		status                     string
		lastOut, lastIn, completed sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, s.q(q), contactID).Scan(
		&st.ID,
		&st.ContactID,
		&st.ActorID,
		&st.GoalID,
		&st.ApproachMethod,
		&st.CurrentStage,
		&status,
		&lastOut,
		&st.LastOutboundStage,
		&lastIn,
		&st.LastInboundText,
		&st.StartedAt,
		&st.UpdatedAt,
		&completed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sequence.State{}, false, nil
		}
		return sequence.State{}, false, wrap("get state", err)
	}
	st.Status = sequence.Status(status)
	st.LastOutboundAt = timePtr(lastOut)
	st.LastInboundAt = timePtr(lastIn)
	st.CompletedAt = timePtr(completed)
	st.StartedAt = st.StartedAt.UTC()
	st.UpdatedAt = st.UpdatedAt.UTC()
	return st, true, nil
}

func (s *Store) UpsertState(ctx context.Context, st sequence.State) error {
	q := `
INSERT INTO conversation_states (` + stateColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id)
DO UPDATE SET current_stage = excluded.current_stage,
              status = excluded.status,
              last_outbound_at = excluded.last_outbound_at,
              last_outbound_stage = excluded.last_outbound_stage,
              last_inbound_at = excluded.last_inbound_at,
              last_inbound_text = excluded.last_inbound_text,
              updated_at = excluded.updated_at,
              completed_at = excluded.completed_at
`
	_, err := s.db.ExecContext(ctx, s.q(q),
		st.ID,
		st.ContactID,
		st.ActorID,
		st.GoalID,
		st.ApproachMethod,
		st.CurrentStage,
		string(st.Status),
		nullTime(st.LastOutboundAt),
		st.LastOutboundStage,
		nullTime(st.LastInboundAt),
		st.LastInboundText,
		utc(st.StartedAt),
		utc(st.UpdatedAt),
		nullTime(st.CompletedAt),
	)
	return wrap("upsert state", err)
}
