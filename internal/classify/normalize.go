package classify

import "strings"

const (
	DefaultMinConfidence = 0.4
	fallbackConfidence   = 0.5
)

// Raw is unvalidated oracle output.
type Raw struct {
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Signals    []string `json:"signals"`
	Strategy   string   `json:"strategy"`
}

// Fallback is the result used when oracle output cannot be trusted.
func Fallback() Result {
	return Result{
		Category:   CategoryNeutral,
		Confidence: fallbackConfidence,
		Strategy:   StrategyContinue,
		Fallback:   true,
	}
}

// Normalize maps raw output onto the closed taxonomy. An unknown category, a
// confidence outside [0,1] or a confidence below minConfidence yields Fallback().
// An unknown strategy is replaced by the category's default strategy.
func Normalize(raw Raw, minConfidence float64) Result {
	cat, ok := ParseCategory(raw.Category)
	if !ok {
		return Fallback()
	}
	if raw.Confidence < 0 || raw.Confidence > 1 || raw.Confidence < minConfidence {
		return Fallback()
	}
	strategy, ok := ParseStrategy(raw.Strategy)
	if !ok {
		strategy = Info(cat).DefaultStrategy
	}

	var signals []string
	for _, s := range raw.Signals {
		s = strings.TrimSpace(s)
		if s != "" {
			signals = append(signals, s)
		}
	}
	return Result{
		Category:   cat,
		Confidence: raw.Confidence,
		Signals:    signals,
		Strategy:   strategy,
	}
}

// Validate applies the same rules as Normalize to a Result produced by any Classifier.
// A result already marked Fallback is replaced by a fresh Fallback().
func Validate(r Result, minConfidence float64) Result {
	if r.Fallback {
		return Fallback()
	}
	return Normalize(Raw{
		Category:   string(r.Category),
		Confidence: r.Confidence,
		Signals:    r.Signals,
		Strategy:   string(r.Strategy),
	}, minConfidence)
}
