package main

import (
	"context"
	"fmt"
	"strings"

	"gamelearn/models"
	"gamelearn/reinforcement"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"
)

const mazeAgentName = "maze_agent"

func MazeCommand() *cobra.Command {
	var layout string
	var episodes int
	var algorithm string

	cmd := &cobra.Command{
		Use:   "maze",
		Short: "Train a single agent to walk a maze, then follow its greedy path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(reinforcement.KindMaze)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("layout") {
				cfg.Maze = layout
			}
			if cmd.Flags().Changed("episodes") {
				cfg.Episodes = episodes
			}
			if cmd.Flags().Changed("algorithm") {
				cfg.Algorithm = map[string]string{"name": algorithm}
			}
			if err = cfg.Validate(); err != nil {
				return err
			}

			result, path, err := TrainMaze(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printPath(result, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&layout, "layout", "debug", "maze layout: debug or full")
	cmd.Flags().IntVar(&episodes, "episodes", 0, "number of training episodes")
	cmd.Flags().StringVar(&algorithm, "algorithm", "", "q-learning or montecarlo")
	return cmd
}

func mazeLayout(name string) ([]string, error) {
	switch name {
	case "", "debug":
		return models.DebugMaze, nil
	case "full":
		return models.FullMaze, nil
	}
	return nil, fmt.Errorf("unknown maze %q", name)
}

// TrainMaze trains a maze agent per @cfg and returns its greedy walk.
// The configured algorithm defaults to one-step Q-learning.
func TrainMaze(
	ctx context.Context,
	cfg *reinforcement.TrainingConfig,
) (reinforcement.EpisodeResult, []models.Position, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	appCtx, appCancel := signalContext(ctx)
	defer appCancel()
	trainingCtx, trainingCancel, err := cfg.WithTrainingDeadline(appCtx)
	if err != nil {
		return reinforcement.EpisodeResult{}, nil, err
	}
	defer trainingCancel()

	layout, err := mazeLayout(cfg.Maze)
	if err != nil {
		return reinforcement.EpisodeResult{}, nil, err
	}
	maze, err := models.NewDefaultMaze(layout)
	if err != nil {
		return reinforcement.EpisodeResult{}, nil, err
	}
	strategy, err := cfg.Strategy(reinforcement.StrategyTemporalDifference)
	if err != nil {
		return reinforcement.EpisodeResult{}, nil, err
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return reinforcement.EpisodeResult{}, nil, err
	}
	defer closeStore()

	agent := reinforcement.NewMazeAgent(mazeAgentName, cfg.Hyperparameters(reinforcement.DefaultHyperparameters()), cfg.Seed)
	trainer := reinforcement.NewSoloTrainer(reinforcement.SoloConfig{
		Episodes:           cfg.Episodes,
		MaxSteps:           cfg.MaxSteps,
		ReportInterval:     cfg.ReportInterval,
		CheckpointInterval: cfg.CheckpointInterval,
		Strategy:           strategy,
		ModelTag:           fmt.Sprintf("%s_%dx%d", strings.ToLower(cfg.Maze), maze.Rows(), maze.Cols()),
	}, maze, agent, reinforcement.WithStore(store))

	if _, err = trainer.Run(trainingCtx); err != nil {
		return reinforcement.EpisodeResult{}, nil, err
	}
	return trainer.Evaluate()
}

func printPath(result reinforcement.EpisodeResult, path []models.Position) {
	if !result.Reached {
		fmt.Println(aurora.Red(fmt.Sprintf("Goal not reached within %d steps", result.Steps)))
		return
	}
	fmt.Println(aurora.Green(fmt.Sprintf("Goal reached in %d steps, return %.1f", result.Steps, result.Return)))
	steps := make([]string, len(path))
	for i, pos := range path {
		steps[i] = pos.String()
	}
	fmt.Println(strings.Join(steps, " -> "))
}
