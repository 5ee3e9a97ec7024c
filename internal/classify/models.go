package classify

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// Category is the closed taxonomy of inbound reply categories.
type Category string

const (
	CategoryHotLead        Category = "hot_lead"
	CategoryMeetingRequest Category = "meeting_request"
	CategoryWarmLead       Category = "warm_lead"
	CategoryQuestion       Category = "question"
	CategoryObjection      Category = "objection"
	CategoryNotInterested  Category = "not_interested"
	CategoryNegative       Category = "negative"
	CategoryNeutral        Category = "neutral"
)

// Strategy is the suggested handling of a reply.
type Strategy string

const (
	StrategyAdvance           Strategy = "advance"
	StrategyReassure          Strategy = "reassure"
	StrategyHandleObjection   Strategy = "handle_objection"
	StrategyAnswerThenAdvance Strategy = "answer_then_advance"
	StrategyAbandon           Strategy = "abandon"
	StrategyContinue          Strategy = "continue"
)

var (
	ErrClassifierTimeout     = errors.New("classify: classifier timed out")
	ErrClassifierUnavailable = errors.New("classify: classifier unavailable")
)

// CategoryInfo is static triage metadata for a category.
// Priority 1 is the most urgent.
type CategoryInfo struct {
	Category        Category `json:"category"`
	Priority        int      `json:"priority"`
	SuggestedAction string   `json:"suggested_action"`
	DefaultStrategy Strategy `json:"default_strategy"`
}

var categoryInfo = map[Category]CategoryInfo{
	CategoryMeetingRequest: {CategoryMeetingRequest, 1, "Reply now with available time slots", StrategyAdvance},
	CategoryHotLead:        {CategoryHotLead, 2, "Reply quickly and move to the next step", StrategyAdvance},
	CategoryQuestion:       {CategoryQuestion, 3, "Answer the question, then continue", StrategyAnswerThenAdvance},
	CategoryWarmLead:       {CategoryWarmLead, 4, "Keep the conversation going", StrategyContinue},
	CategoryObjection:      {CategoryObjection, 5, "Address the objection", StrategyHandleObjection},
	CategoryNeutral:        {CategoryNeutral, 6, "Follow up with a light touch", StrategyContinue},
	CategoryNotInterested:  {CategoryNotInterested, 7, "Thank them and consider closing the sequence", StrategyAbandon},
	CategoryNegative:       {CategoryNegative, 8, "Apologise and do not push further", StrategyReassure},
}

// Categories lists the taxonomy in triage order.
func Categories() []Category {
	out := make([]Category, 0, len(categoryInfo))
	for c := range categoryInfo {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return categoryInfo[out[i]].Priority < categoryInfo[out[j]].Priority })
	return out
}

func (c Category) Valid() bool {
	_, ok := categoryInfo[c]
	return ok
}

// Info returns triage metadata. Unknown categories get the neutral entry.
func Info(c Category) CategoryInfo {
	if i, ok := categoryInfo[c]; ok {
		return i
	}
	return categoryInfo[CategoryNeutral]
}

func ParseCategory(s string) (Category, bool) {
	c := Category(normalizeToken(s))
	return c, c.Valid()
}

func (s Strategy) Valid() bool {
	switch s {
	case StrategyAdvance, StrategyReassure, StrategyHandleObjection, StrategyAnswerThenAdvance, StrategyAbandon, StrategyContinue:
		return true
	default:
		return false
	}
}

func ParseStrategy(s string) (Strategy, bool) {
	v := Strategy(normalizeToken(s))
	return v, v.Valid()
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}

// Result is a normalised classification.
type Result struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Signals    []string `json:"signals,omitempty"`
	Strategy   Strategy `json:"strategy"`
	// Fallback is set when the oracle output was unusable and the neutral default was applied.
	Fallback bool `json:"fallback,omitempty"`
}

// Turn is one prior message given to the classifier as context.
type Turn struct {
	Direction string `json:"direction"`
	Content   string `json:"content"`
}

// ContactMeta is descriptive data about the contact.
type ContactMeta struct {
	Name     string `json:"name,omitempty"`
	Headline string `json:"headline,omitempty"`
	Company  string `json:"company,omitempty"`
	Platform string `json:"platform,omitempty"`
}

type Request struct {
	Text    string      `json:"text"`
	Context []Turn      `json:"context,omitempty"`
	Contact ContactMeta `json:"contact"`
}

// Classifier turns reply text into a Result.
// Implementations return ErrClassifierTimeout or ErrClassifierUnavailable (wrapped) on failure.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Result, error)
}

// SortByPriority orders results most urgent first. The sort is stable.
func SortByPriority(rs []Result) {
	sort.SliceStable(rs, func(i, j int) bool {
		return Info(rs[i].Category).Priority < Info(rs[j].Category).Priority
	})
}
