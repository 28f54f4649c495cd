package reinforcement

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gonum.org/v1/gonum/stat"
)

// SoloConfig holds the loop parameters of a single-agent run.
type SoloConfig struct {
	Episodes int
	// MaxSteps bounds an episode; an episode cut off here did not reach its goal.
	MaxSteps           int
	ReportInterval     int
	CheckpointInterval int
	Strategy           Strategy
	ModelTag           string
}

// EpisodeResult describes one solo episode.
type EpisodeResult struct {
	Steps   int     `json:"steps"`
	Return  float64 `json:"return"`
	Reached bool    `json:"reached"`
}

// SoloTrainer trains one agent on a single-agent environment such as the maze.
// With StrategyTemporalDifference the agent updates after every step; with
// StrategyMonteCarlo it learns from its trajectory once the episode ends.
type SoloTrainer[S, A comparable] struct {
	cfg          SoloConfig
	env          Environment[S, A]
	agent        *Agent[S, A]
	checkpointer *Checkpointer
	progress     ProgressFunc
	runID        string

	state          TrainerState
	episodes       int
	successes      int
	returns        []float64
	steps          []float64
	lastCheckpoint int
}

func NewSoloTrainer[S, A comparable](
	cfg SoloConfig,
	env Environment[S, A],
	agent *Agent[S, A],
	options ...TrainerOption,
) *SoloTrainer[S, A] {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyTemporalDifference
	}
	opts := buildOptions(options)
	return &SoloTrainer[S, A]{
		cfg:          cfg,
		env:          env,
		agent:        agent,
		checkpointer: opts.checkpointer(),
		progress:     opts.progress,
		runID:        opts.runID,
	}
}

func (t *SoloTrainer[S, A]) State() TrainerState { return t.state }
func (t *SoloTrainer[S, A]) Agent() *Agent[S, A] { return t.agent }

// RunEpisode plays and learns from one episode.
func (t *SoloTrainer[S, A]) RunEpisode() (EpisodeResult, error) {
	var result EpisodeResult
	t.state = Idle
	state := t.env.Reset()
	t.agent.ResetEpisode()

	t.state = EpisodeRunning
	lastReward := 0.0
	for result.Steps < t.cfg.MaxSteps {
		action, err := t.agent.ChooseAction(state, t.env.ValidActions(state), true)
		if err != nil {
			return result, err
		}
		next, reward, terminal, err := t.env.Step(action)
		if err != nil {
			return result, err
		}

		if t.cfg.Strategy == StrategyTemporalDifference {
			t.agent.Update(state, action, reward, next, terminal)
		} else {
			t.agent.Remember(state, action)
		}
		result.Steps++
		result.Return += reward
		lastReward = reward
		state = next
		if terminal {
			result.Reached = true
			break
		}
	}

	t.state = EpisodeDone
	if t.cfg.Strategy == StrategyTemporalDifference {
		t.agent.DecayEpsilon()
	} else {
		t.agent.LearnFromEpisode(lastReward)
	}

	if result.Reached {
		t.agent.RecordResult(1)
		t.successes++
	} else {
		t.agent.RecordResult(-1)
	}
	t.episodes++
	t.returns = append(t.returns, result.Return)
	t.steps = append(t.steps, float64(result.Steps))
	return result, nil
}

// Run trains for the configured number of episodes and saves the final table.
// Deadlines and cancellation behave as for SelfPlayTrainer.Run.
func (t *SoloTrainer[S, A]) Run(ctx context.Context) (Stats, error) {
	for t.episodes < t.cfg.Episodes {
		if err := ctx.Err(); err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				return t.Stats(), err
			}
			log.Printf("training deadline reached after %d episodes", t.episodes)
			break
		}

		if _, err := t.RunEpisode(); err != nil {
			return t.Stats(), fmt.Errorf("episode %d: %w", t.episodes+1, err)
		}

		if every(t.episodes, t.cfg.CheckpointInterval) && t.checkpointer != nil {
			rec := t.checkpointer.Save(ctx, t.episodes,
				Snapshot{Key: CheckpointKey(t.agent.Name, t.episodes), Model: t.agent.Table()})
			if rec.OK() {
				t.lastCheckpoint = t.episodes
			}
		}
		if every(t.episodes, t.cfg.ReportInterval) {
			stats := t.Stats()
			log.Printf("episode %d/%d: %d/%d reached the goal, mean return %.2f, mean steps %.1f, eps %.4f",
				t.episodes, t.cfg.Episodes, stats.Successes, len(t.returns),
				stats.MeanReturn, stats.MeanSteps, t.agent.Epsilon())
			if t.progress != nil {
				t.progress(ctx, stats)
			}
			t.resetWindow()
		}
	}

	t.state = TrainingComplete
	var err error
	if t.checkpointer != nil {
		err = SaveTable(context.WithoutCancel(ctx), t.checkpointer.store, FinalKey(t.agent.Name, t.cfg.ModelTag), t.agent.Table())
	}
	stats := t.Stats()
	if t.progress != nil {
		t.progress(ctx, stats)
	}
	return stats, err
}

func (t *SoloTrainer[S, A]) resetWindow() {
	t.successes = 0
	t.returns = t.returns[:0]
	t.steps = t.steps[:0]
}

// Stats reports the episodes since the last report.
func (t *SoloTrainer[S, A]) Stats() Stats {
	stats := Stats{
		RunID:          t.runID,
		Episodes:       t.episodes,
		TotalEpisodes:  t.cfg.Episodes,
		Successes:      t.successes,
		Agents:         []AgentStats{t.agent.Stats()},
		LastCheckpoint: t.lastCheckpoint,
		Done:           t.state == TrainingComplete,
	}
	if len(t.returns) > 0 {
		stats.MeanReturn = stat.Mean(t.returns, nil)
		stats.MeanSteps = stat.Mean(t.steps, nil)
	}
	return stats
}

// Evaluate follows the greedy policy for at most MaxSteps without learning.
func (t *SoloTrainer[S, A]) Evaluate() (EpisodeResult, []S, error) {
	var result EpisodeResult
	state := t.env.Reset()
	path := []S{state}
	for result.Steps < t.cfg.MaxSteps {
		action, err := t.agent.ChooseAction(state, t.env.ValidActions(state), false)
		if err != nil {
			return result, path, err
		}
		next, reward, terminal, err := t.env.Step(action)
		if err != nil {
			return result, path, err
		}
		result.Steps++
		result.Return += reward
		state = next
		path = append(path, state)
		if terminal {
			result.Reached = true
			break
		}
	}
	return result, path, nil
}
