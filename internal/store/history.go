package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"social-prospector/internal/classify"
	"social-prospector/internal/history"
)

const historyColumns = `seq, id, contact_id, actor_id, direction, goal_id, stage, content, classification, external_id, created_at`

func scanEntry(row rowScanner) (history.Entry, error) {
	var (
		e         history.Entry
		direction string
		cls       sql.NullString
		external  sql.NullString
	)
	if err := row.Scan(
		&e.Seq,
		&e.ID,
		&e.ContactID,
		&e.ActorID,
		&direction,
		&e.GoalID,
		&e.Stage,
		&e.Content,
		&cls,
		&external,
		&e.CreatedAt,
	); err != nil {
		return history.Entry{}, err
	}
	e.Direction = history.Direction(direction)
	e.ExternalID = external.String
	e.CreatedAt = e.CreatedAt.UTC()
	if cls.Valid && cls.String != "" {
		var r classify.Result
		if err := json.Unmarshal([]byte(cls.String), &r); err != nil {
			return history.Entry{}, err
		}
		e.Classification = &r
	}
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]history.Entry, error) {
	defer rows.Close()
	out := make([]history.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, wrap("scan history entry", err)
		}
		out = append(out, e)
	}
	return out, wrap("list history", rows.Err())
}

// Append inserts the entry and returns it with its insertion sequence.
func (s *Store) Append(ctx context.Context, e history.Entry) (history.Entry, error) {
	var cls sql.NullString
	if e.Classification != nil {
		raw, err := json.Marshal(e.Classification)
		if err != nil {
			return history.Entry{}, err
		}
		cls = sql.NullString{String: string(raw), Valid: true}
	}
	const q = `
INSERT INTO history_entries (id, contact_id, actor_id, direction, goal_id, stage, content, classification, external_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING seq
`
	e.CreatedAt = utc(e.CreatedAt)
	if err := s.db.QueryRowContext(ctx, s.q(q),
		e.ID,
		e.ContactID,
		e.ActorID,
		string(e.Direction),
		e.GoalID,
		e.Stage,
		e.Content,
		cls,
		nullString(e.ExternalID),
		e.CreatedAt,
	).Scan(&e.Seq); err != nil {
		return history.Entry{}, wrap("append history", err)
	}
	return e, nil
}

func (s *Store) ListByContact(ctx context.Context, contactID string) ([]history.Entry, error) {
	q := `SELECT ` + historyColumns + ` FROM history_entries WHERE contact_id = ? ORDER BY created_at, seq`
	rows, err := s.db.QueryContext(ctx, s.q(q), contactID)
	if err != nil {
		return nil, wrap("list history", err)
	}
	return scanEntries(rows)
}

// ListRecent returns the last n entries for the contact, oldest first.
func (s *Store) ListRecent(ctx context.Context, contactID string, n int) ([]history.Entry, error) {
	q := `
SELECT ` + historyColumns + `
FROM (
  SELECT ` + historyColumns + `
  FROM history_entries
  WHERE contact_id = ?
  ORDER BY created_at DESC, seq DESC
  LIMIT ?
) recent
ORDER BY created_at, seq
`
	rows, err := s.db.QueryContext(ctx, s.q(q), contactID, n)
	if err != nil {
		return nil, wrap("list recent history", err)
	}
	return scanEntries(rows)
}

func (s *Store) FindByExternalID(ctx context.Context, contactID, externalID string) (history.Entry, bool, error) {
	q := `SELECT ` + historyColumns + ` FROM history_entries WHERE contact_id = ? AND external_id = ? LIMIT 1`
	e, err := scanEntry(s.db.QueryRowContext(ctx, s.q(q), contactID, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return history.Entry{}, false, nil
		}
		return history.Entry{}, false, wrap("find history by external id", err)
	}
	return e, true, nil
}
