package contacts

import (
	"time"

	"social-prospector/internal/classify"
)

// Contact is a prospect owned by exactly one actor.
type Contact struct {
	ID         string    `json:"id" db:"id"`
	ActorID    string    `json:"actor_id" db:"actor_id"`
	Name       string    `json:"name" db:"name"`
	Headline   string    `json:"headline,omitempty" db:"headline"`
	Company    string    `json:"company,omitempty" db:"company"`
	Platform   string    `json:"platform,omitempty" db:"platform"`
	ProfileURL string    `json:"profile_url,omitempty" db:"profile_url"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Meta is the classifier's view of the contact.
func (c Contact) Meta() classify.ContactMeta {
	return classify.ContactMeta{Name: c.Name, Headline: c.Headline, Company: c.Company, Platform: c.Platform}
}
