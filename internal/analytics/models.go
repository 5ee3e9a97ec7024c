package analytics

import (
	"fmt"
	"time"
)

// Month is a calendar month formatted YYYY-MM. Lexical order equals time order.
type Month string

const monthLayout = "2006-01"

func MonthOf(t time.Time) Month { return Month(t.UTC().Format(monthLayout)) }

func ParseMonth(s string) (Month, error) {
	if _, err := time.Parse(monthLayout, s); err != nil {
		return "", fmt.Errorf("%w: month %q must be YYYY-MM", ErrInvalidRequest, s)
	}
	return Month(s), nil
}

// MonthRange is inclusive on both ends.
type MonthRange struct {
	From Month `json:"from"`
	To   Month `json:"to"`
}

// Metric is the counter being incremented.
type Metric string

const (
	MetricSent      Metric = "sent"
	MetricResponse  Metric = "response"
	MetricAchieved  Metric = "achieved"
	MetricAbandoned Metric = "abandoned"
)

func (m Metric) Valid() bool {
	switch m {
	case MetricSent, MetricResponse, MetricAchieved, MetricAbandoned:
		return true
	default:
		return false
	}
}

// Counter is one aggregate cell keyed by (actor, goal, month, metric, stage).
// Stage is 0 for outcome metrics.
type Counter struct {
	ActorID string `json:"actor_id" db:"actor_id"`
	GoalID  string `json:"goal_id" db:"goal_id"`
	Month   Month  `json:"month" db:"month"`
	Metric  Metric `json:"metric" db:"metric"`
	Stage   int    `json:"stage" db:"stage"`
	Value   int    `json:"value" db:"value"`
}

type StageStats struct {
	Stage        int     `json:"stage"`
	Label        string  `json:"label,omitempty"`
	Sent         int     `json:"sent"`
	Responses    int     `json:"responses"`
	ResponseRate float64 `json:"response_rate"`
}

type GoalSummary struct {
	GoalID         string       `json:"goal_id"`
	Name           string       `json:"name,omitempty"`
	Stages         []StageStats `json:"stages"`
	GoalsAchieved  int          `json:"goals_achieved"`
	Abandoned      int          `json:"abandoned"`
	ConversionRate float64      `json:"conversion_rate"`
}

type Summary struct {
	ActorID string        `json:"actor_id"`
	Range   MonthRange    `json:"range"`
	Goals   []GoalSummary `json:"goals"`
}
