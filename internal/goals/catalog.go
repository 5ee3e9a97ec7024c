package goals

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownGoal  = errors.New("goals: unknown goal")
	ErrUnknownStage = errors.New("goals: unknown stage")
	ErrInvalidGoal  = errors.New("goals: invalid goal")
)

// Catalog is an immutable registry of goals. It is safe for concurrent use.
type Catalog struct {
	byID  map[string]Goal
	order []string
}

// NewCatalog validates the goals and builds a catalog. Stages are renumbered 1..n
// in the order given.
func NewCatalog(goals ...Goal) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Goal, len(goals))}
	for _, g := range goals {
		g.ID = strings.TrimSpace(g.ID)
		if g.ID == "" {
			return nil, fmt.Errorf("%w: id required", ErrInvalidGoal)
		}
		if _, dup := c.byID[g.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidGoal, g.ID)
		}
		if len(g.Stages) == 0 {
			return nil, fmt.Errorf("%w: goal %q has no stages", ErrInvalidGoal, g.ID)
		}
		stages := make([]Stage, len(g.Stages))
		for i, s := range g.Stages {
			if strings.TrimSpace(s.Label) == "" {
				return nil, fmt.Errorf("%w: goal %q stage %d has no label", ErrInvalidGoal, g.ID, i+1)
			}
			s.Number = i + 1
			stages[i] = s
		}
		g.Stages = stages
		c.byID[g.ID] = g
		c.order = append(c.order, g.ID)
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := NewCatalog(defaultGoals()...)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the goal or ErrUnknownGoal. It never falls back to another goal.
func (c *Catalog) Get(id string) (Goal, error) {
	g, ok := c.byID[id]
	if !ok {
		return Goal{}, fmt.Errorf("%w: %q", ErrUnknownGoal, id)
	}
	return copyGoal(g), nil
}

func (c *Catalog) StageLabel(goalID string, stage int) (string, error) {
	s, err := c.Stage(goalID, stage)
	if err != nil {
		return "", err
	}
	return s.Label, nil
}

func (c *Catalog) Stage(goalID string, stage int) (Stage, error) {
	g, ok := c.byID[goalID]
	if !ok {
		return Stage{}, fmt.Errorf("%w: %q", ErrUnknownGoal, goalID)
	}
	s, ok := g.Stage(stage)
	if !ok {
		return Stage{}, fmt.Errorf("%w: goal %q has no stage %d", ErrUnknownStage, goalID, stage)
	}
	return s, nil
}

// List returns all goals in registration order.
func (c *Catalog) List() []Goal {
	out := make([]Goal, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, copyGoal(c.byID[id]))
	}
	return out
}

func copyGoal(g Goal) Goal {
	stages := make([]Stage, len(g.Stages))
	copy(stages, g.Stages)
	g.Stages = stages
	return g
}

func defaultGoals() []Goal {
	return []Goal{
		{
			ID:          GoalCall,
			Name:        "Book a call",
			Description: "Get the prospect on a discovery call.",
			Stages: []Stage{
				{Label: "Open the conversation", TemplateHint: "personal hook, no pitch"},
				{Label: "Build interest", TemplateHint: "share a relevant result, ask a light question"},
				{Label: "Propose the call", TemplateHint: "suggest two concrete time slots"},
			},
		},
		{
			ID:          GoalLink,
			Name:        "Drive to a link",
			Description: "Get the prospect to visit a page or resource.",
			Stages: []Stage{
				{Label: "Open the conversation", TemplateHint: "personal hook tied to their content"},
				{Label: "Tease the resource", TemplateHint: "describe the value without the link"},
				{Label: "Share the link", TemplateHint: "send the link with one line of context"},
			},
		},
		{
			ID:          GoalQualify,
			Name:        "Qualify",
			Description: "Find out whether the prospect is a fit.",
			Stages: []Stage{
				{Label: "Open the conversation", TemplateHint: "genuine question about their work"},
				{Label: "Discover needs", TemplateHint: "ask about current challenges"},
				{Label: "Confirm fit", TemplateHint: "check budget, timing and decision maker"},
			},
		},
		{
			ID:          GoalNetwork,
			Name:        "Network",
			Description: "Build a relationship without a direct ask.",
			Stages: []Stage{
				{Label: "Connect", TemplateHint: "mention a shared interest"},
				{Label: "Engage", TemplateHint: "react to something they posted"},
				{Label: "Deepen the relationship", TemplateHint: "offer help or an introduction"},
			},
		},
	}
}
