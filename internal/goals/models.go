package goals

// Goal is a named outreach objective with an ordered list of stages.
// Stage numbers are 1-based.
type Goal struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Stages      []Stage `json:"stages"`
}

type Stage struct {
	Number       int    `json:"number"`
	Label        string `json:"label"`
	TemplateHint string `json:"template_hint,omitempty"`
}

// StageCount is the number of stages in the goal.
func (g Goal) StageCount() int { return len(g.Stages) }

// Stage returns stage n (1-based).
func (g Goal) Stage(n int) (Stage, bool) {
	if n < 1 || n > len(g.Stages) {
		return Stage{}, false
	}
	return g.Stages[n-1], true
}

// ClampStage limits n to 1..StageCount.
func (g Goal) ClampStage(n int) int {
	if n < 1 {
		return 1
	}
	if n > g.StageCount() {
		return g.StageCount()
	}
	return n
}

const (
	GoalCall    = "call"
	GoalLink    = "link"
	GoalQualify = "qualify"
	GoalNetwork = "network"
)
