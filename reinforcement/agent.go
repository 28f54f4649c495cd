package reinforcement

import (
	"errors"
	"math"
	"time"

	"golang.org/x/exp/rand"
)

// ErrNoValidActions is returned when an agent is asked to act with no legal moves.
// Callers must stop at terminal states rather than asking.
var ErrNoValidActions = errors.New("no valid actions to choose from")

// Strategy selects how an agent assigns credit during a run. A run uses exactly one.
type Strategy string

const (
	// StrategyMonteCarlo defers learning to the end of the episode and walks
	// the trajectory backwards, discounting the final reward.
	StrategyMonteCarlo Strategy = "montecarlo"
	// StrategyTemporalDifference applies the one-step Q-learning update after every step.
	StrategyTemporalDifference Strategy = "q-learning"
)

// Hyperparameters are the standard Q-learning knobs.
type Hyperparameters struct {
	// Alpha is the learning rate: how far each update moves toward its target.
	Alpha float64
	// Gamma discounts future value.
	Gamma float64
	// Epsilon is the initial exploration rate.
	Epsilon float64
	// EpsilonMin is the floor exploration decays toward.
	EpsilonMin float64
	// EpsilonDecay multiplies epsilon once per finished episode.
	EpsilonDecay float64
}

// DefaultHyperparameters suit short episodic tasks like the maze.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		Alpha:        0.1,
		Gamma:        0.9,
		Epsilon:      1.0,
		EpsilonMin:   0.01,
		EpsilonDecay: 0.995,
	}
}

// BoardHyperparameters suit long self-play runs on the board game: fast learning,
// no discounting of a win, and exploration that decays over hundreds of thousands of games.
func BoardHyperparameters() Hyperparameters {
	return Hyperparameters{
		Alpha:        0.5,
		Gamma:        1.0,
		Epsilon:      1.0,
		EpsilonMin:   0.001,
		EpsilonDecay: 0.99999,
	}
}

// Move is a single (state, action) decision in an agent's trajectory.
type Move[S, A comparable] struct {
	State  S
	Action A
}

// Record counts finished episodes from one agent's point of view.
type Record struct {
	Episodes int `json:"episodes"`
	Wins     int `json:"wins"`
	Losses   int `json:"losses"`
	Draws    int `json:"draws"`
}

// Add returns the sum of two records.
func (r Record) Add(other Record) Record {
	return Record{
		Episodes: r.Episodes + other.Episodes,
		Wins:     r.Wins + other.Wins,
		Losses:   r.Losses + other.Losses,
		Draws:    r.Draws + other.Draws,
	}
}

// ActionSet enumerates the full action set of a state; it is what the
// one-step update maximizes over when bootstrapping from a successor.
type ActionSet[S, A comparable] func(S) []A

// Agent is an epsilon-greedy tabular Q-learner. The environment-specific
// parts (state shape, action enumeration) come in through the type
// parameters and the ActionSet closure.
type Agent[S, A comparable] struct {
	Name       string
	params     Hyperparameters
	epsilon    float64
	table      *QTable[S, A]
	actions    ActionSet[S, A]
	rng        *rand.Rand
	trajectory []Move[S, A]
	record     Record
}

// NewAgent returns an agent with an empty table. A zero seed seeds from the clock.
func NewAgent[S, A comparable](
	name string,
	params Hyperparameters,
	actions ActionSet[S, A],
	seed uint64,
) *Agent[S, A] {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Agent[S, A]{
		Name:    name,
		params:  params,
		epsilon: params.Epsilon,
		table:   NewQTable[S, A](),
		actions: actions,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (ag *Agent[S, A]) Params() Hyperparameters { return ag.params }
func (ag *Agent[S, A]) Epsilon() float64         { return ag.epsilon }
func (ag *Agent[S, A]) Table() *QTable[S, A]     { return ag.table }
func (ag *Agent[S, A]) Record() Record           { return ag.record }

// SetTable replaces the agent's memory, e.g. with a loaded model.
func (ag *Agent[S, A]) SetTable(table *QTable[S, A]) {
	ag.table = table
}

// SetEpsilon overrides the current exploration rate.
func (ag *Agent[S, A]) SetEpsilon(epsilon float64) {
	ag.epsilon = epsilon
}

// ChooseAction picks from @valid. Outside of training it is purely greedy.
// In training a single uniform draw below epsilon explores uniformly at random,
// otherwise it exploits.
func (ag *Agent[S, A]) ChooseAction(state S, valid []A, training bool) (action A, err error) {
	if len(valid) == 0 {
		err = ErrNoValidActions
		return
	}
	if training && ag.rng.Float64() < ag.epsilon {
		return valid[ag.rng.Intn(len(valid))], nil
	}
	return ag.bestAction(state, valid), nil
}

// bestAction breaks ties uniformly at random. Without that an agent facing
// all-zero (unseen) values would always open with the same move.
func (ag *Agent[S, A]) bestAction(state S, valid []A) A {
	maxVal := math.Inf(-1)
	best := make([]A, 0, len(valid))
	for _, a := range valid {
		val := ag.table.Get(state, a)
		switch {
		case val > maxVal:
			maxVal = val
			best = append(best[:0], a)
		case val == maxVal:
			best = append(best, a)
		}
	}
	return best[ag.rng.Intn(len(best))]
}

// Update applies the one-step Q-learning rule:
//
//	Q(s,a) += alpha * (r + gamma * max_a' Q(s',a') - Q(s,a))
//
// A terminal transition has no future, so @next is never read in that case.
func (ag *Agent[S, A]) Update(state S, action A, reward float64, next S, terminal bool) {
	future := 0.0
	if !terminal {
		future = ag.table.BestValue(next, ag.actions(next))
	}
	old := ag.table.Get(state, action)
	target := reward + ag.params.Gamma*future
	ag.table.Set(state, action, old+ag.params.Alpha*(target-old))
}

// Remember appends a decision to the current episode's trajectory.
func (ag *Agent[S, A]) Remember(state S, action A) {
	ag.trajectory = append(ag.trajectory, Move[S, A]{State: state, Action: action})
}

// Trajectory returns a copy of the current episode's decisions, oldest first.
func (ag *Agent[S, A]) Trajectory() []Move[S, A] {
	out := make([]Move[S, A], len(ag.trajectory))
	copy(out, ag.trajectory)
	return out
}

// ResetEpisode clears the trajectory for a new episode.
func (ag *Agent[S, A]) ResetEpisode() {
	ag.trajectory = ag.trajectory[:0]
}

// LearnFromEpisode assigns @finalReward to the agent's own trajectory.
func (ag *Agent[S, A]) LearnFromEpisode(finalReward float64) {
	ag.LearnFromTrajectory(ag.trajectory, finalReward)
}

// LearnFromTrajectory walks @trajectory newest-first, updating each move as a
// terminal transition worth the running reward, which is discounted by gamma
// after every move. The last move gets the full outcome and earlier moves get
// geometrically less. Epsilon decays once afterwards.
func (ag *Agent[S, A]) LearnFromTrajectory(trajectory []Move[S, A], finalReward float64) {
	running := finalReward
	for i := len(trajectory) - 1; i >= 0; i-- {
		move := trajectory[i]
		ag.Update(move.State, move.Action, running, move.State, true)
		running *= ag.params.Gamma
	}
	ag.DecayEpsilon()
}

// DecayEpsilon applies epsilon = max(min, epsilon*decay). Call once per episode.
func (ag *Agent[S, A]) DecayEpsilon() {
	ag.epsilon = math.Max(ag.params.EpsilonMin, ag.epsilon*ag.params.EpsilonDecay)
}

// RecordResult counts a finished episode by the sign of the agent's final reward.
func (ag *Agent[S, A]) RecordResult(finalReward float64) {
	ag.record.Episodes++
	switch {
	case finalReward > 0:
		ag.record.Wins++
	case finalReward < 0:
		ag.record.Losses++
	default:
		ag.record.Draws++
	}
}

// Stats returns the agent's presentation snapshot.
func (ag *Agent[S, A]) Stats() AgentStats {
	return AgentStats{
		Name:    ag.Name,
		Epsilon: ag.epsilon,
		States:  ag.table.Len(),
		Record:  ag.record,
	}
}
