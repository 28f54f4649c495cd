package reinforcement

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gamelearn/models"
)

// TrainerState is the position of a trainer in its episode loop.
type TrainerState int

const (
	Idle TrainerState = iota
	EpisodeRunning
	EpisodeDone
	TrainingComplete
)

func (ts TrainerState) String() string {
	switch ts {
	case EpisodeRunning:
		return "episode running"
	case EpisodeDone:
		return "episode done"
	case TrainingComplete:
		return "training complete"
	default:
		return "idle"
	}
}

// TrainerConfig holds the loop parameters of a self-play run. A zero interval disables that activity.
type TrainerConfig struct {
	Episodes           int
	CheckpointInterval int
	LogInterval        int
	ReportInterval     int
	// ModelTag distinguishes final models of different setups, e.g. "3x3".
	ModelTag string
}

// EvaluationResult summarizes greedy games played without learning.
type EvaluationResult struct {
	Episodes int      `json:"episodes"`
	Outcomes Outcomes `json:"outcomes"`
}

// Rewards maps a finished game to the final reward of X and of O.
func Rewards(outcome models.Outcome) (x, o float64) {
	switch outcome {
	case models.XWins:
		return models.WinReward, -models.WinReward
	case models.OWins:
		return -models.WinReward, models.WinReward
	}
	return 0, 0
}

// SelfPlayTrainer pits two agents against each other on a two-player
// environment. Each agent learns only from its own moves, by the Monte Carlo
// backward pass over its trajectory once the game is decided.
type SelfPlayTrainer[S, A comparable] struct {
	cfg          TrainerConfig
	env          TwoPlayerEnvironment[S, A]
	agentX       *Agent[S, A]
	agentO       *Agent[S, A]
	checkpointer *Checkpointer
	progress     ProgressFunc
	runID        string

	state          TrainerState
	episodes       int
	outcomes       Outcomes
	window         Outcomes
	lastCheckpoint int
}

func NewSelfPlayTrainer[S, A comparable](
	cfg TrainerConfig,
	env TwoPlayerEnvironment[S, A],
	agentX, agentO *Agent[S, A],
	options ...TrainerOption,
) *SelfPlayTrainer[S, A] {
	opts := buildOptions(options)
	return &SelfPlayTrainer[S, A]{
		cfg:          cfg,
		env:          env,
		agentX:       agentX,
		agentO:       agentO,
		checkpointer: opts.checkpointer(),
		progress:     opts.progress,
		runID:        opts.runID,
	}
}

func (t *SelfPlayTrainer[S, A]) State() TrainerState  { return t.state }
func (t *SelfPlayTrainer[S, A]) Episodes() int        { return t.episodes }
func (t *SelfPlayTrainer[S, A]) RunID() string        { return t.runID }
func (t *SelfPlayTrainer[S, A]) AgentX() *Agent[S, A] { return t.agentX }
func (t *SelfPlayTrainer[S, A]) AgentO() *Agent[S, A] { return t.agentO }

func (t *SelfPlayTrainer[S, A]) agentFor(player models.Player) *Agent[S, A] {
	if player == models.PlayerO {
		return t.agentO
	}
	return t.agentX
}

// PlayEpisode plays one training game to the end and lets both agents learn from it.
func (t *SelfPlayTrainer[S, A]) PlayEpisode() (models.Outcome, error) {
	t.state = Idle
	state := t.env.Reset()
	t.agentX.ResetEpisode()
	t.agentO.ResetEpisode()

	t.state = EpisodeRunning
	for {
		mover := t.agentFor(t.env.Turn())
		action, err := mover.ChooseAction(state, t.env.ValidActions(state), true)
		if err != nil {
			return models.Undecided, fmt.Errorf("%s: %w", mover.Name, err)
		}
		mover.Remember(state, action)

		next, _, terminal, err := t.env.Step(action)
		if err != nil {
			return models.Undecided, fmt.Errorf("%s: %w", mover.Name, err)
		}
		state = next
		if terminal {
			break
		}
	}

	t.state = EpisodeDone
	outcome := t.env.Outcome()
	rewardX, rewardO := Rewards(outcome)
	t.agentX.RecordResult(rewardX)
	t.agentX.LearnFromEpisode(rewardX)
	t.agentO.RecordResult(rewardO)
	t.agentO.LearnFromEpisode(rewardO)

	t.episodes++
	t.outcomes = t.outcomes.Add(outcomeCount(outcome))
	t.window = t.window.Add(outcomeCount(outcome))
	return outcome, nil
}

func outcomeCount(outcome models.Outcome) Outcomes {
	switch outcome {
	case models.XWins:
		return Outcomes{XWins: 1}
	case models.OWins:
		return Outcomes{OWins: 1}
	case models.Draw:
		return Outcomes{Draws: 1}
	}
	return Outcomes{}
}

// Run plays games until the configured episode count is reached, then saves the
// final tables. A context deadline ends training early but still saves; any
// other cancellation is returned as an error.
func (t *SelfPlayTrainer[S, A]) Run(ctx context.Context) (Stats, error) {
	for t.episodes < t.cfg.Episodes {
		if err := ctx.Err(); err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				return t.Stats(), err
			}
			log.Printf("training deadline reached after %d episodes", t.episodes)
			break
		}

		if _, err := t.PlayEpisode(); err != nil {
			return t.Stats(), fmt.Errorf("episode %d: %w", t.episodes+1, err)
		}

		if every(t.episodes, t.cfg.LogInterval) {
			t.logWindow()
		}
		if every(t.episodes, t.cfg.CheckpointInterval) {
			t.checkpoint(ctx)
		}
		if every(t.episodes, t.cfg.ReportInterval) && t.progress != nil {
			t.progress(ctx, t.Stats())
		}
	}

	t.state = TrainingComplete
	err := t.saveFinal(context.WithoutCancel(ctx))
	if t.progress != nil {
		t.progress(ctx, t.Stats())
	}
	return t.Stats(), err
}

func every(n, interval int) bool {
	return interval > 0 && n%interval == 0
}

func (t *SelfPlayTrainer[S, A]) logWindow() {
	log.Printf("episode %d/%d: last %d games X %d, O %d, draws %d (%.1f%%); eps %.4f/%.4f",
		t.episodes, t.cfg.Episodes, t.window.Total(),
		t.window.XWins, t.window.OWins, t.window.Draws, 100*t.window.DrawRate(),
		t.agentX.Epsilon(), t.agentO.Epsilon())
	t.window = Outcomes{}
}

func (t *SelfPlayTrainer[S, A]) checkpoint(ctx context.Context) {
	if t.checkpointer == nil {
		return
	}
	rec := t.checkpointer.Save(ctx, t.episodes,
		Snapshot{Key: CheckpointKey(t.agentX.Name, t.episodes), Model: t.agentX.Table()},
		Snapshot{Key: CheckpointKey(t.agentO.Name, t.episodes), Model: t.agentO.Table()},
	)
	if rec.OK() {
		t.lastCheckpoint = t.episodes
	}
}

func (t *SelfPlayTrainer[S, A]) saveFinal(ctx context.Context) error {
	if t.checkpointer == nil {
		return nil
	}
	for _, ag := range []*Agent[S, A]{t.agentX, t.agentO} {
		if err := SaveTable(ctx, t.checkpointer.store, FinalKey(ag.Name, t.cfg.ModelTag), ag.Table()); err != nil {
			return fmt.Errorf("final model: %w", err)
		}
	}
	ok, failed := t.checkpointer.Summary()
	log.Printf("run %s finished after %d episodes: %d checkpoints saved, %d failed",
		t.runID, t.episodes, ok, failed)
	return nil
}

// Checkpoints returns the run's checkpoint history.
func (t *SelfPlayTrainer[S, A]) Checkpoints() []CheckpointRecord {
	if t.checkpointer == nil {
		return nil
	}
	return t.checkpointer.History()
}

// Stats returns a snapshot of the run.
func (t *SelfPlayTrainer[S, A]) Stats() Stats {
	return Stats{
		RunID:          t.runID,
		Episodes:       t.episodes,
		TotalEpisodes:  t.cfg.Episodes,
		Outcomes:       t.outcomes,
		Window:         t.window,
		Agents:         []AgentStats{t.agentX.Stats(), t.agentO.Stats()},
		LastCheckpoint: t.lastCheckpoint,
		Done:           t.state == TrainingComplete,
	}
}

// Evaluate plays @episodes greedy games. Nothing is learned or recorded.
func (t *SelfPlayTrainer[S, A]) Evaluate(ctx context.Context, episodes int) (EvaluationResult, error) {
	var result EvaluationResult
	for result.Episodes < episodes {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		state := t.env.Reset()
		for {
			mover := t.agentFor(t.env.Turn())
			action, err := mover.ChooseAction(state, t.env.ValidActions(state), false)
			if err != nil {
				return result, fmt.Errorf("%s: %w", mover.Name, err)
			}
			next, _, terminal, err := t.env.Step(action)
			if err != nil {
				return result, fmt.Errorf("%s: %w", mover.Name, err)
			}
			state = next
			if terminal {
				break
			}
		}
		result.Episodes++
		result.Outcomes = result.Outcomes.Add(outcomeCount(t.env.Outcome()))
	}
	return result, nil
}
