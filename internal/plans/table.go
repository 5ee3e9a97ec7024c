package plans

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidTable = errors.New("plans: invalid table")

// Default returns the built-in plan table.
func Default() Table {
	return Table{
		TierFree: {
			Actions: map[ActionKind]Ceiling{
				ActionOutreachSend:  {Hour: 3, Day: 10, Month: 50},
				ActionContactImport: {Hour: 10, Day: 30, Month: 100},
				ActionMessageDraft:  {Hour: 5, Day: 20, Month: 100},
				ActionReplyAnalysis: {Hour: 5, Day: 20, Month: 100},
			},
			MaxSubAccounts:   1,
			MaxVoiceProfiles: 1,
		},
		TierSolo: {
			Actions: map[ActionKind]Ceiling{
				ActionOutreachSend:  {Hour: 20, Day: 100, Month: 1500},
				ActionContactImport: {Hour: 100, Day: 500, Month: 5000},
				ActionMessageDraft:  {Hour: 30, Day: 150, Month: 2000},
				ActionReplyAnalysis: {Hour: 30, Day: 150, Month: 2000},
			},
			MaxSubAccounts:   1,
			MaxVoiceProfiles: 3,
		},
		TierAgency: {
			Actions: map[ActionKind]Ceiling{
				ActionOutreachSend:  {Hour: 60, Day: 400, Month: 8000},
				ActionContactImport: {Hour: 300, Day: 2000, Month: 25000},
				ActionMessageDraft:  {Hour: 100, Day: 600, Month: 10000},
				ActionReplyAnalysis: {Hour: 100, Day: 600, Month: 10000},
			},
			MaxSubAccounts:   5,
			MaxVoiceProfiles: 10,
		},
		TierAgencyPlus: {
			Actions: map[ActionKind]Ceiling{
				ActionOutreachSend:  {Hour: 150, Day: 1000, Month: 25000},
				ActionContactImport: {Hour: 1000, Day: 6000, Month: Unlimited},
				ActionMessageDraft:  {Hour: 250, Day: 1500, Month: 30000},
				ActionReplyAnalysis: {Hour: 250, Day: 1500, Month: 30000},
			},
			MaxSubAccounts:   20,
			MaxVoiceProfiles: 30,
		},
	}
}

// Validate checks the table is complete and that ceilings never decrease as tier increases.
// Windows are not compared to one another.
func (t Table) Validate() error {
	var errs []string
	for _, tier := range Tiers {
		l, ok := t[tier]
		if !ok {
			errs = append(errs, fmt.Sprintf("tier %s missing", tier))
			continue
		}
		for _, a := range ActionKinds {
			c, ok := l.Actions[a]
			if !ok {
				errs = append(errs, fmt.Sprintf("tier %s: action %s missing", tier, a))
				continue
			}
			for _, w := range Windows {
				if v := c.For(w); v < Unlimited {
					errs = append(errs, fmt.Sprintf("tier %s: action %s %s ceiling %d is negative", tier, a, w, v))
				}
			}
		}
		if l.MaxSubAccounts < Unlimited || l.MaxVoiceProfiles < Unlimited {
			errs = append(errs, fmt.Sprintf("tier %s: negative resource cap", tier))
		}
	}
	for k := range t {
		if !k.Valid() {
			errs = append(errs, fmt.Sprintf("unknown tier %q", k))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTable, strings.Join(errs, "; "))
	}

	for i := 1; i < len(Tiers); i++ {
		lo, hi := t[Tiers[i-1]], t[Tiers[i]]
		for _, a := range ActionKinds {
			for _, w := range Windows {
				if less(hi.Actions[a].For(w), lo.Actions[a].For(w)) {
					errs = append(errs, fmt.Sprintf("%s %s ceiling for %s is below %s", a, w, Tiers[i], Tiers[i-1]))
				}
			}
		}
		if less(hi.MaxSubAccounts, lo.MaxSubAccounts) {
			errs = append(errs, fmt.Sprintf("max_sub_accounts for %s is below %s", Tiers[i], Tiers[i-1]))
		}
		if less(hi.MaxVoiceProfiles, lo.MaxVoiceProfiles) {
			errs = append(errs, fmt.Sprintf("max_voice_profiles for %s is below %s", Tiers[i], Tiers[i-1]))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTable, strings.Join(errs, "; "))
	}
	return nil
}

// less reports a < b where Unlimited sorts above every finite value.
func less(a, b int) bool {
	if a == Unlimited {
		return false
	}
	if b == Unlimited {
		return true
	}
	return a < b
}

type fileTable struct {
	Tiers map[string]fileLimits `yaml:"tiers"`
}

type fileLimits struct {
	Actions          map[string]fileCeiling `yaml:"actions"`
	MaxSubAccounts   *int                   `yaml:"max_sub_accounts"`
	MaxVoiceProfiles *int                   `yaml:"max_voice_profiles"`
}

type fileCeiling struct {
	Hour  *int `yaml:"hour"`
	Day   *int `yaml:"day"`
	Month *int `yaml:"month"`
}

// LoadFile reads a YAML plan file and merges it over Default(). Keys absent from
// the file keep their built-in values. The merged table is validated.
func LoadFile(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plans: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse merges YAML content over Default().
func Parse(raw []byte) (Table, error) {
	var f fileTable
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("plans: parse: %w", err)
	}

	out := Default()
	for name, fl := range f.Tiers {
		tier, err := ParseTier(name)
		if err != nil {
			return nil, err
		}
		l := out[tier]
		actions := make(map[ActionKind]Ceiling, len(l.Actions))
		for k, v := range l.Actions {
			actions[k] = v
		}
		for an, fc := range fl.Actions {
			a, err := ParseActionKind(an)
			if err != nil {
				return nil, err
			}
			c := actions[a]
			if fc.Hour != nil {
				c.Hour = *fc.Hour
			}
			if fc.Day != nil {
				c.Day = *fc.Day
			}
			if fc.Month != nil {
				c.Month = *fc.Month
			}
			actions[a] = c
		}
		l.Actions = actions
		if fl.MaxSubAccounts != nil {
			l.MaxSubAccounts = *fl.MaxSubAccounts
		}
		if fl.MaxVoiceProfiles != nil {
			l.MaxVoiceProfiles = *fl.MaxVoiceProfiles
		}
		out[tier] = l
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
