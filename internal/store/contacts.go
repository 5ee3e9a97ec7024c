package store

import (
	"context"
	"database/sql"
	"errors"

	"social-prospector/internal/contacts"
)

const contactColumns = `id, actor_id, name, headline, company, platform, profile_url, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (contacts.Contact, error) {
	var c contacts.Contact
	err := row.Scan(
		&c.ID,
		&c.ActorID,
		&c.Name,
		&c.Headline,
		&c.Company,
		&c.Platform,
		&c.ProfileURL,
		&c.CreatedAt,
	)
	c.CreatedAt = c.CreatedAt.UTC()
	return c, err
}

func (s *Store) GetContact(ctx context.Context, contactID string) (contacts.Contact, error) {
	q := `SELECT ` + contactColumns + ` FROM contacts WHERE id = ?`
	c, err := scanContact(s.db.QueryRowContext(ctx, s.q(q), contactID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return contacts.Contact{}, contacts.ErrNotFound
		}
		return contacts.Contact{}, wrap("get contact", err)
	}
	return c, nil
}

func (s *Store) InsertContact(ctx context.Context, c contacts.Contact) error {
	q := `INSERT INTO contacts (` + contactColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, s.q(q),
		c.ID,
		c.ActorID,
		c.Name,
		c.Headline,
		c.Company,
		c.Platform,
		c.ProfileURL,
		utc(c.CreatedAt),
	)
	return wrap("insert contact", err)
}

func (s *Store) ListContacts(ctx context.Context, actorID string) ([]contacts.Contact, error) {
	q := `SELECT ` + contactColumns + ` FROM contacts WHERE actor_id = ? ORDER BY created_at, id`
	rows, err := s.db.QueryContext(ctx, s.q(q), actorID)
	if err != nil {
		return nil, wrap("list contacts", err)
	}
	defer rows.Close()

	out := make([]contacts.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, wrap("scan contact", err)
		}
		out = append(out, c)
	}
	return out, wrap("list contacts", rows.Err())
}
