package plans

import (
	"fmt"
	"strings"
)

// Tier is a subscription plan tier. Tiers are ordered: free < solo < agency < agency_plus.
type Tier string

const (
	TierFree       Tier = "free"
	TierSolo       Tier = "solo"
	TierAgency     Tier = "agency"
	TierAgencyPlus Tier = "agency_plus"
)

// Tiers lists every tier in ascending order.
var Tiers = []Tier{TierFree, TierSolo, TierAgency, TierAgencyPlus}

// Rank returns the tier's position in the ordering, or -1 for an unknown tier.
func (t Tier) Rank() int {
	for i, v := range Tiers {
		if v == t {
			return i
		}
	}
	return -1
}

func (t Tier) Valid() bool { return t.Rank() >= 0 }

func ParseTier(s string) (Tier, error) {
	v := Tier(strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_"))))
	if !v.Valid() {
		return "", fmt.Errorf("plans: unknown tier %q", s)
	}
	return v, nil
}

// ActionKind names a quota-gated action.
type ActionKind string

const (
	ActionOutreachSend  ActionKind = "outreach_send"
	ActionContactImport ActionKind = "contact_import"
	ActionMessageDraft  ActionKind = "message_draft"
	ActionReplyAnalysis ActionKind = "reply_analysis"
)

var ActionKinds = []ActionKind{ActionOutreachSend, ActionContactImport, ActionMessageDraft, ActionReplyAnalysis}

func (a ActionKind) Valid() bool {
	for _, v := range ActionKinds {
		if v == a {
			return true
		}
	}
	return false
}

func ParseActionKind(s string) (ActionKind, error) {
	v := ActionKind(strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_"))))
	if !v.Valid() {
		return "", fmt.Errorf("plans: unknown action kind %q", s)
	}
	return v, nil
}

// Window is a calendar-anchored quota window.
type Window string

const (
	WindowHour  Window = "hour"
	WindowDay   Window = "day"
	WindowMonth Window = "month"
)

// Windows is the order in which windows are checked. The tightest window comes first.
var Windows = [3]Window{WindowHour, WindowDay, WindowMonth}

// Unlimited marks a window ceiling that is never enforced.
const Unlimited = -1

// Ceiling holds the per-window limits for one action kind.
// Each window is configured independently; month is not derived from day or hour.
type Ceiling struct {
	Hour  int `json:"hour" yaml:"hour"`
	Day   int `json:"day" yaml:"day"`
	Month int `json:"month" yaml:"month"`
}

// For returns the ceiling of a given window.
func (c Ceiling) For(w Window) int {
	switch w {
	case WindowHour:
		return c.Hour
	case WindowDay:
		return c.Day
	case WindowMonth:
		return c.Month
	default:
		return 0
	}
}

// Resource names a non-windowed resource cap.
type Resource string

const (
	ResourceSubAccounts   Resource = "sub_accounts"
	ResourceVoiceProfiles Resource = "voice_profiles"
)

// Limits are the ceilings for one tier.
type Limits struct {
	Actions          map[ActionKind]Ceiling `json:"actions" yaml:"actions"`
	MaxSubAccounts   int                    `json:"max_sub_accounts" yaml:"max_sub_accounts"`
	MaxVoiceProfiles int                    `json:"max_voice_profiles" yaml:"max_voice_profiles"`
}

// Cap returns the cap of a resource, or 0 for an unknown resource.
func (l Limits) Cap(r Resource) int {
	switch r {
	case ResourceSubAccounts:
		return l.MaxSubAccounts
	case ResourceVoiceProfiles:
		return l.MaxVoiceProfiles
	default:
		return 0
	}
}

// Table maps each tier to its limits. A Table is built once at startup and never mutated.
type Table map[Tier]Limits

// Ceiling looks up the ceiling for a tier and action.
func (t Table) Ceiling(tier Tier, action ActionKind) (Ceiling, bool) {
	l, ok := t[tier]
	if !ok {
		return Ceiling{}, false
	}
	c, ok := l.Actions[action]
	return c, ok
}
