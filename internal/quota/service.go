package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"social-prospector/internal/metrics"
	"social-prospector/internal/plans"
	"social-prospector/pkg/logger"

	"github.com/google/uuid"
)

// Counter counts performed actions with CreatedAt >= since.
type Counter interface {
	CountActions(ctx context.Context, actorID string, action plans.ActionKind, since time.Time) (int, error)
}

// UsageStore persists usage events and counts them.
type UsageStore interface {
	Counter
	RecordAction(ctx context.Context, e UsageEvent) error
}

// ActorRepository resolves actors.
type ActorRepository interface {
	GetActor(ctx context.Context, actorID string) (Actor, error)
}

// CountFailurePolicy decides what a check does when counting fails.
type CountFailurePolicy int

const (
	// FailOpen authorizes the action and logs. Under a persistent outage quotas go unenforced.
	FailOpen CountFailurePolicy = iota
	FailClosed
)

type Options struct {
	Policy CountFailurePolicy
	// Location anchors day and month windows. Defaults to UTC.
	Location *time.Location
	// UnlimitedActorIDs bypass all ceilings, in addition to Actor.UnlimitedOverride.
	UnlimitedActorIDs []string
	Logger            *slog.Logger
	Metrics           *metrics.Metrics
}

// Guard gates actions against plan ceilings.
//
// The check is count-then-compare and is not atomic with the action that follows:
// two concurrent requests can both observe count = ceiling-1 and both be authorized.
// The overshoot is bounded by concurrency and is accepted.
type Guard struct {
	table     plans.Table
	usage     UsageStore
	policy    CountFailurePolicy
	loc       *time.Location
	unlimited map[string]struct{}
	log       *slog.Logger
	metrics   *metrics.Metrics
	clock     func() time.Time
}

func NewGuard(table plans.Table, usage UsageStore, opts Options) *Guard {
	g := &Guard{
		table:     table,
		usage:     usage,
		policy:    opts.Policy,
		loc:       opts.Location,
		unlimited: make(map[string]struct{}, len(opts.UnlimitedActorIDs)),
		log:       opts.Logger,
		metrics:   opts.Metrics,
		clock:     time.Now,
	}
	if g.loc == nil {
		g.loc = time.UTC
	}
	g.log = logger.Component(g.log, "quota")
	for _, id := range opts.UnlimitedActorIDs {
		if id != "" {
			g.unlimited[id] = struct{}{}
		}
	}
	return g
}

// WithClock overrides the time source.
func (g *Guard) WithClock(clock func() time.Time) *Guard {
	g.clock = clock
	return g
}

func (g *Guard) isUnlimited(a Actor) bool {
	if a.UnlimitedOverride {
		return true
	}
	_, ok := g.unlimited[a.ID]
	return ok
}

// CheckAndAuthorize counts the actor's actions in the current hour, day and month and
// compares them with the plan ceilings. The first exceeded window, in that order, is
// reported as the denial. Under FailOpen a window whose count fails is skipped and the
// result is marked Degraded; the other windows are still enforced. An error is returned
// only for configuration problems, or for count failures under FailClosed.
func (g *Guard) CheckAndAuthorize(ctx context.Context, actor Actor, action plans.ActionKind) (Authorization, error) {
	if actor.ID == "" {
		return Authorization{}, fmt.Errorf("%w: actor id required", ErrInvalidArgument)
	}
	if !action.Valid() {
		return Authorization{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	now := g.clock()
	out := Authorization{ActorID: actor.ID, Action: action}

	if g.isUnlimited(actor) {
		out.Authorized = true
		out.Unlimited = true
		for i, w := range plans.Windows {
			out.Windows[i] = UsageWindow{
				Kind:      w,
				Start:     WindowStart(w, now, g.loc),
				Ceiling:   plans.Unlimited,
				Remaining: plans.Unlimited,
				ResetIn:   ResetIn(w, now, g.loc),
			}
		}
		g.metrics.QuotaDecision(string(action), "unlimited")
		return out, nil
	}

	ceiling, ok := g.table.Ceiling(actor.Tier, action)
	if !ok {
		if _, known := g.table[actor.Tier]; !known {
			return Authorization{}, fmt.Errorf("%w: %q", ErrUnknownTier, actor.Tier)
		}
		return Authorization{}, fmt.Errorf("%w: %q not configured for tier %s", ErrUnknownAction, action, actor.Tier)
	}

	for i, w := range plans.Windows {
		start := WindowStart(w, now, g.loc)
		uw := UsageWindow{
			Kind:      w,
			Start:     start,
			Ceiling:   ceiling.For(w),
			Remaining: plans.Unlimited,
			ResetIn:   ResetIn(w, now, g.loc),
		}

		count, err := g.usage.CountActions(ctx, actor.ID, action, start)
		if err != nil {
			if g.policy == FailClosed {
				g.metrics.QuotaCountError(string(action), "fail_closed")
				return Authorization{}, fmt.Errorf("%w: %v", ErrCountUnavailable, err)
			}
			// Fail-open forgives only the window that could not be counted.
			g.metrics.QuotaCountError(string(action), "fail_open")
			g.log.Warn("usage count failed, skipping window (fail-open)",
				"actor_id", actor.ID, "action", action, "window", w, "err", err)
			out.Windows[i] = uw
			out.Degraded = true
			continue
		}

		uw.Count = count
		if uw.Ceiling != plans.Unlimited {
			uw.Remaining = max(uw.Ceiling-count, 0)
			if out.Denial == nil && count >= uw.Ceiling {
				msg, n, unit := denialMessage(w, uw.Ceiling, count, uw.ResetIn)
				out.Denial = &Denial{
					Window:     w,
					Ceiling:    uw.Ceiling,
					Current:    count,
					ResetIn:    uw.ResetIn,
					ResetAfter: n,
					ResetUnit:  unit,
					Message:    msg,
				}
			}
		}
		out.Windows[i] = uw
	}

	out.Authorized = out.Denial == nil
	switch {
	case out.Authorized && out.Degraded:
		g.metrics.QuotaDecision(string(action), "degraded")
	case out.Authorized:
		g.metrics.QuotaDecision(string(action), "authorized")
	default:
		g.metrics.QuotaDecision(string(action), "denied_"+string(out.Denial.Window))
	}
	return out, nil
}

// Record appends a usage event for an action that was performed.
func (g *Guard) Record(ctx context.Context, actorID string, action plans.ActionKind) error {
	if actorID == "" || !action.Valid() {
		return ErrInvalidArgument
	}
	return g.usage.RecordAction(ctx, UsageEvent{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Action:    action,
		CreatedAt: g.clock().UTC(),
	})
}

// CheckResourceCap compares current usage of a non-windowed resource with the tier cap.
func (g *Guard) CheckResourceCap(actor Actor, resource plans.Resource, current int) (CapCheck, error) {
	if current < 0 {
		return CapCheck{}, fmt.Errorf("%w: negative current", ErrInvalidArgument)
	}
	if resource != plans.ResourceSubAccounts && resource != plans.ResourceVoiceProfiles {
		return CapCheck{}, fmt.Errorf("%w: %q", ErrUnknownResource, resource)
	}
	out := CapCheck{Resource: resource, Current: current, Cap: plans.Unlimited, Allowed: true}
	if g.isUnlimited(actor) {
		return out, nil
	}
	limits, ok := g.table[actor.Tier]
	if !ok {
		return CapCheck{}, fmt.Errorf("%w: %q", ErrUnknownTier, actor.Tier)
	}
	out.Cap = limits.Cap(resource)
	if out.Cap != plans.Unlimited {
		out.Allowed = current < out.Cap
	}
	return out, nil
}

// Limits returns the plan limits that apply to the actor's tier.
func (g *Guard) Limits(tier plans.Tier) (plans.Limits, bool) {
	l, ok := g.table[tier]
	return l, ok
}
