package reinforcement

import "context"

// AgentStats is the read-only view of one agent.
type AgentStats struct {
	Name    string  `json:"name"`
	Epsilon float64 `json:"epsilon"`
	States  int     `json:"states"`
	Record  Record  `json:"record"`
}

// Outcomes tallies finished two-player games.
type Outcomes struct {
	XWins int `json:"xWins"`
	OWins int `json:"oWins"`
	Draws int `json:"draws"`
}

func (o Outcomes) Total() int {
	return o.XWins + o.OWins + o.Draws
}

// DrawRate is the fraction of drawn games, or zero before any game.
func (o Outcomes) DrawRate() float64 {
	if o.Total() == 0 {
		return 0
	}
	return float64(o.Draws) / float64(o.Total())
}

func (o Outcomes) Add(other Outcomes) Outcomes {
	return Outcomes{
		XWins: o.XWins + other.XWins,
		OWins: o.OWins + other.OWins,
		Draws: o.Draws + other.Draws,
	}
}

// Stats is the snapshot handed to progress listeners. It is a plain value and
// safe to pass across goroutines. Two-player runs fill Outcomes/Window; solo
// runs fill Successes and the means.
type Stats struct {
	RunID          string       `json:"runId"`
	Episodes       int          `json:"episodes"`
	TotalEpisodes  int          `json:"totalEpisodes"`
	Outcomes       Outcomes     `json:"outcomes"`
	Window         Outcomes     `json:"window"`
	Successes      int          `json:"successes,omitempty"`
	MeanReturn     float64      `json:"meanReturn,omitempty"`
	MeanSteps      float64      `json:"meanSteps,omitempty"`
	Agents         []AgentStats `json:"agents"`
	LastCheckpoint int          `json:"lastCheckpoint"`
	Done           bool         `json:"done"`
}

// ProgressFunc is a callback by which training lends progress details to
// whatever displays them. It is synchronous and should return quickly; the
// context lets it give up rather than block training.
type ProgressFunc func(context.Context, Stats)
