package history

import (
	"time"

	"social-prospector/internal/classify"
)

// Entry is one immutable turn of a conversation.
//
// Invariants:
// - Entries are never updated or deleted.
// - Ordering is CreatedAt ascending, ties broken by Seq (insertion order).
type Entry struct {
	ID        string    `json:"id" db:"id"`
	ContactID string    `json:"contact_id" db:"contact_id"`
	ActorID   string    `json:"actor_id" db:"actor_id"`
	Direction Direction `json:"direction" db:"direction"`
	GoalID    string    `json:"goal_id,omitempty" db:"goal_id"`
	Stage     int       `json:"stage" db:"stage"`
	Content   string    `json:"content" db:"content"`

	// Classification is set for inbound turns that were classified.
	Classification *classify.Result `json:"classification,omitempty" db:"classification"`

	// ExternalID is the delivery id supplied by the channel, used to drop retried deliveries.
	ExternalID string `json:"external_id,omitempty" db:"external_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Seq       int64     `json:"seq" db:"seq"`
}

type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

func (d Direction) Valid() bool { return d == DirectionOutbound || d == DirectionInbound }

// Turns converts entries into classifier context.
func Turns(entries []Entry) []classify.Turn {
	out := make([]classify.Turn, 0, len(entries))
	for _, e := range entries {
		out = append(out, classify.Turn{Direction: string(e.Direction), Content: e.Content})
	}
	return out
}
