package sequence

import (
	"errors"
	"time"

	"social-prospector/internal/classify"
	"social-prospector/internal/goals"
	"social-prospector/internal/history"
)

// Status of a sequence. goal_achieved and abandoned are terminal.
type Status string

const (
	StatusNotStarted      Status = "not_started"
	StatusInProgress      Status = "in_progress"
	StatusWaitingResponse Status = "waiting_response"
	StatusGoalAchieved    Status = "goal_achieved"
	StatusAbandoned       Status = "abandoned"
)

func (s Status) Terminal() bool { return s == StatusGoalAchieved || s == StatusAbandoned }

// Outcome is the caller-chosen terminal result.
type Outcome string

const (
	OutcomeAchieved  Outcome = "achieved"
	OutcomeAbandoned Outcome = "abandoned"
)

func (o Outcome) status() (Status, bool) {
	switch o {
	case OutcomeAchieved:
		return StatusGoalAchieved, true
	case OutcomeAbandoned:
		return StatusAbandoned, true
	default:
		return "", false
	}
}

// State is the live progress of one contact through one goal.
//
// Invariants:
// - CurrentStage is within 1..goal.StageCount() and never decreases.
// - Once Status is terminal nothing else changes.
// - Rows are never deleted; starting again after a terminal state creates a new row.
type State struct {
	ID                string     `json:"id" db:"id"`
	ContactID         string     `json:"contact_id" db:"contact_id"`
	ActorID           string     `json:"actor_id" db:"actor_id"`
	GoalID            string     `json:"goal_id" db:"goal_id"`
	ApproachMethod    string     `json:"approach_method,omitempty" db:"approach_method"`
	CurrentStage      int        `json:"current_stage" db:"current_stage"`
	Status            Status     `json:"status" db:"status"`
	LastOutboundAt    *time.Time `json:"last_outbound_at,omitempty" db:"last_outbound_at"`
	// LastOutboundStage is the stage of the most recent outbound; replies are credited to it.
	LastOutboundStage int        `json:"last_outbound_stage,omitempty" db:"last_outbound_stage"`
	LastInboundAt     *time.Time `json:"last_inbound_at,omitempty" db:"last_inbound_at"`
	LastInboundText   string     `json:"last_inbound_text,omitempty" db:"last_inbound_text"`
	StartedAt         time.Time  `json:"started_at" db:"started_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// InboundMessage is a reply delivered by a channel.
type InboundMessage struct {
	Text string `json:"text"`
	// ExternalID identifies the delivery. A repeated id is treated as a retry.
	ExternalID string `json:"external_id,omitempty"`
	// Contact overrides stored contact fields for classifier context.
	Contact classify.ContactMeta `json:"contact,omitempty"`
}

// InboundResult is the outcome of RecordInbound. When classification failed,
// Classification is nil, SuggestedStage is 0 and ClassificationErr is set.
type InboundResult struct {
	Entry             history.Entry          `json:"entry"`
	Classification    *classify.Result       `json:"classification,omitempty"`
	CategoryInfo      *classify.CategoryInfo `json:"category_info,omitempty"`
	SuggestedStage    int                    `json:"suggested_stage,omitempty"`
	StageInfo         *goals.Stage           `json:"stage_info,omitempty"`
	Sequenced         bool                   `json:"sequenced"`
	Duplicate         bool                   `json:"duplicate,omitempty"`
	State             *State                 `json:"state,omitempty"`
	ClassificationErr error                  `json:"-"`
}

var (
	ErrUnknownGoal      = goals.ErrUnknownGoal
	ErrContactNotOwned  = errors.New("sequence: contact not owned by actor")
	ErrNoActiveSequence = errors.New("sequence: no active sequence")
	ErrAlreadyTerminal  = errors.New("sequence: sequence already terminal")
	ErrSequenceActive   = errors.New("sequence: sequence already active")
	ErrInvalidStage     = errors.New("sequence: invalid stage")
	ErrInvalidArgument  = errors.New("sequence: invalid argument")
)
