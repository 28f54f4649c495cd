package main

import (
	"context"
	"fmt"

	"gamelearn/models"
	"gamelearn/reinforcement"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"
)

func EvaluateCommand() *cobra.Command {
	var episodes int

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Play greedy games between the trained X and O agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(reinforcement.KindSelfPlay)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("episodes") {
				cfg.EvalEpisodes = episodes
			}
			result, err := Evaluate(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printEvaluation(result)
			return nil
		},
	}
	cmd.Flags().IntVar(&episodes, "episodes", 0, "number of evaluation games")
	return cmd
}

// Evaluate loads the final X and O models and plays them against each other.
func Evaluate(ctx context.Context, cfg *reinforcement.TrainingConfig) (reinforcement.EvaluationResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return reinforcement.EvaluationResult{}, err
	}
	defer closeStore()

	agentX, agentO, err := loadBoardAgents(ctx, cfg, store)
	if err != nil {
		return reinforcement.EvaluationResult{}, err
	}
	board, err := models.NewBoard(cfg.BoardSize, cfg.Seed)
	if err != nil {
		return reinforcement.EvaluationResult{}, err
	}

	trainer := reinforcement.NewSelfPlayTrainer(cfg.TrainerConfig(), board, agentX, agentO)
	return trainer.Evaluate(ctx, cfg.EvalEpisodes)
}

func printEvaluation(result reinforcement.EvaluationResult) {
	fmt.Println(aurora.Bold(fmt.Sprintf("%d greedy games", result.Episodes)))
	fmt.Println(aurora.Green(fmt.Sprintf("  X wins: %d", result.Outcomes.XWins)))
	fmt.Println(aurora.Blue(fmt.Sprintf("  O wins: %d", result.Outcomes.OWins)))
	fmt.Println(aurora.Yellow(fmt.Sprintf("  draws:  %d (%.1f%%)", result.Outcomes.Draws, 100*result.Outcomes.DrawRate())))
}
