package quota

import (
	"errors"
	"fmt"
	"time"

	"social-prospector/internal/plans"
)

// Actor is the tenant on whose behalf quota is checked.
// UnlimitedOverride supersedes tier ceilings entirely.
type Actor struct {
	ID                string     `json:"id" db:"id"`
	Tier              plans.Tier `json:"tier" db:"tier"`
	UnlimitedOverride bool       `json:"unlimited_override" db:"unlimited_override"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// UsageEvent is one performed, quota-gated action. Counts are derived from these rows.
type UsageEvent struct {
	ID        string           `json:"id" db:"id"`
	ActorID   string           `json:"actor_id" db:"actor_id"`
	Action    plans.ActionKind `json:"action" db:"action"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// UsageWindow is derived on every check and never cached.
// Ceiling and Remaining are plans.Unlimited (-1) when the window is not enforced.
type UsageWindow struct {
	Kind      plans.Window  `json:"kind"`
	Start     time.Time     `json:"start"`
	Count     int           `json:"count"`
	Ceiling   int           `json:"ceiling"`
	Remaining int           `json:"remaining"`
	ResetIn   time.Duration `json:"reset_in"`
}

// Denial describes the first exceeded window.
type Denial struct {
	Window  plans.Window  `json:"window"`
	Ceiling int           `json:"ceiling"`
	Current int           `json:"current"`
	ResetIn time.Duration `json:"reset_in"`
	// ResetAfter is ResetIn rounded up to the window's display unit.
	ResetAfter int    `json:"reset_after"`
	ResetUnit  string `json:"reset_unit"`
	Message    string `json:"message"`
}

// Authorization is the result of a quota check. A denial is a normal outcome, not an error.
type Authorization struct {
	Authorized bool             `json:"authorized"`
	ActorID    string           `json:"actor_id"`
	Action     plans.ActionKind `json:"action"`
	Unlimited  bool             `json:"unlimited,omitempty"`
	// Degraded is set when at least one window could not be counted and fail-open skipped it.
	Degraded bool           `json:"degraded,omitempty"`
	Windows  [3]UsageWindow `json:"windows"`
	Denial   *Denial        `json:"denial,omitempty"`
}

// Err returns a *DeniedError when the action was denied, nil otherwise.
func (a Authorization) Err() error {
	if a.Authorized || a.Denial == nil {
		return nil
	}
	return &DeniedError{Action: a.Action, Denial: *a.Denial}
}

// CapCheck is the result of a resource cap check.
type CapCheck struct {
	Resource plans.Resource `json:"resource"`
	Cap      int            `json:"cap"`
	Current  int            `json:"current"`
	Allowed  bool           `json:"allowed"`
}

var (
	ErrQuotaDenied      = errors.New("quota: denied")
	ErrUnknownTier      = errors.New("quota: unknown tier")
	ErrUnknownAction    = errors.New("quota: unknown action kind")
	ErrUnknownResource  = errors.New("quota: unknown resource")
	ErrCountUnavailable = errors.New("quota: usage count unavailable")
	ErrActorNotFound    = errors.New("quota: actor not found")
	ErrInvalidArgument  = errors.New("quota: invalid argument")
)

// DeniedError carries denial detail. errors.Is(err, ErrQuotaDenied) matches it.
type DeniedError struct {
	Action plans.ActionKind
	Denial Denial
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("quota: %s denied: %s", e.Action, e.Denial.Message)
}

func (e *DeniedError) Is(target error) bool { return target == ErrQuotaDenied }
