package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"social-prospector/internal/goals"
)

var ErrInvalidRequest = errors.New("analytics: invalid request")

// Outcome is the terminal result of a sequence.
type Outcome string

const (
	OutcomeAchieved  Outcome = "achieved"
	OutcomeAbandoned Outcome = "abandoned"
)

// Repository stores monthly counters. Increment must be atomic per cell.
type Repository interface {
	Increment(ctx context.Context, actorID, goalID string, month Month, metric Metric, stage int) error
	List(ctx context.Context, actorID string, from, to Month) ([]Counter, error)
}

type Service struct {
	repo    Repository
	catalog *goals.Catalog
	clock   func() time.Time
}

func NewService(repo Repository, catalog *goals.Catalog) *Service {
	return &Service{repo: repo, catalog: catalog, clock: time.Now}
}

// WithClock overrides the time source used to pick the month bucket.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) RecordSent(ctx context.Context, actorID, goalID string, stage int) error {
	if stage < 1 {
		return fmt.Errorf("%w: stage must be >= 1", ErrInvalidRequest)
	}
	return s.increment(ctx, actorID, goalID, MetricSent, stage)
}

func (s *Service) RecordResponse(ctx context.Context, actorID, goalID string, stage int) error {
	if stage < 1 {
		return fmt.Errorf("%w: stage must be >= 1", ErrInvalidRequest)
	}
	return s.increment(ctx, actorID, goalID, MetricResponse, stage)
}

func (s *Service) RecordOutcome(ctx context.Context, actorID, goalID string, outcome Outcome) error {
	switch outcome {
	case OutcomeAchieved:
		return s.increment(ctx, actorID, goalID, MetricAchieved, 0)
	case OutcomeAbandoned:
		return s.increment(ctx, actorID, goalID, MetricAbandoned, 0)
	default:
		return fmt.Errorf("%w: outcome %q", ErrInvalidRequest, outcome)
	}
}

func (s *Service) increment(ctx context.Context, actorID, goalID string, metric Metric, stage int) error {
	if actorID == "" || goalID == "" {
		return ErrInvalidRequest
	}
	if s.repo == nil {
		return errors.New("analytics: repository not configured")
	}
	return s.repo.Increment(ctx, actorID, goalID, MonthOf(s.clock()), metric, stage)
}

// Summarize aggregates counters across the inclusive month range. Goals with no data are omitted.
// Stage response rate is responses/sent and conversion rate is achieved/stage-1 sent. Both are 0
// when the denominator is 0 and never exceed 1.
func (s *Service) Summarize(ctx context.Context, actorID string, r MonthRange) (Summary, error) {
	if actorID == "" {
		return Summary{}, ErrInvalidRequest
	}
	if _, err := ParseMonth(string(r.From)); err != nil {
		return Summary{}, err
	}
	if _, err := ParseMonth(string(r.To)); err != nil {
		return Summary{}, err
	}
	if r.To < r.From {
		return Summary{}, fmt.Errorf("%w: range end before start", ErrInvalidRequest)
	}
	if s.repo == nil {
		return Summary{}, errors.New("analytics: repository not configured")
	}

	rows, err := s.repo.List(ctx, actorID, r.From, r.To)
	if err != nil {
		return Summary{}, err
	}

	type acc struct {
		sent, responses map[int]int
		achieved        int
		abandoned       int
		maxStage        int
	}
	byGoal := map[string]*acc{}
	for _, c := range rows {
		a := byGoal[c.GoalID]
		if a == nil {
			a = &acc{sent: map[int]int{}, responses: map[int]int{}}
			byGoal[c.GoalID] = a
		}
		switch c.Metric {
		case MetricSent:
			a.sent[c.Stage] += c.Value
		case MetricResponse:
			a.responses[c.Stage] += c.Value
		case MetricAchieved:
			a.achieved += c.Value
		case MetricAbandoned:
			a.abandoned += c.Value
		}
		if c.Stage > a.maxStage {
			a.maxStage = c.Stage
		}
	}

	out := Summary{ActorID: actorID, Range: r, Goals: make([]GoalSummary, 0, len(byGoal))}
	for goalID, a := range byGoal {
		gs := GoalSummary{GoalID: goalID, GoalsAchieved: a.achieved, Abandoned: a.abandoned}
		stageCount := a.maxStage
		var g goals.Goal
		if s.catalog != nil {
			if found, err := s.catalog.Get(goalID); err == nil {
				g = found
				gs.Name = g.Name
				stageCount = max(stageCount, g.StageCount())
			}
		}
		for n := 1; n <= stageCount; n++ {
			st := StageStats{Stage: n, Sent: a.sent[n], Responses: a.responses[n]}
			if stage, ok := g.Stage(n); ok {
				st.Label = stage.Label
			}
			st.ResponseRate = rate(st.Responses, st.Sent)
			gs.Stages = append(gs.Stages, st)
		}
		gs.ConversionRate = rate(a.achieved, a.sent[1])
		out.Goals = append(out.Goals, gs)
	}
	sort.Slice(out.Goals, func(i, j int) bool { return out.Goals[i].GoalID < out.Goals[j].GoalID })
	return out, nil
}

func rate(num, den int) float64 {
	if den <= 0 || num <= 0 {
		return 0
	}
	r := float64(num) / float64(den)
	if r > 1 {
		return 1
	}
	return r
}
