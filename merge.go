package main

import (
	"context"
	"fmt"

	"gamelearn/models"
	"gamelearn/reinforcement"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"
)

const mergedName = "superagent"

func MergeCommand() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the final X and O models into one",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(reinforcement.KindSelfPlay)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("size") {
				cfg.BoardSize = size
			}
			stats, err := Merge(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printMerge(stats, reinforcement.FinalKey(mergedName, modelTag(cfg.BoardSize)))
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 0, "board size of the models to merge")
	return cmd
}

// Merge combines the final X and O models, keeping the higher value of every
// pair, and stores the result as the superagent model. Both inputs must exist.
func Merge(ctx context.Context, cfg *reinforcement.TrainingConfig) (reinforcement.MergeStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return reinforcement.MergeStats{}, err
	}
	defer closeStore()

	tag := modelTag(cfg.BoardSize)
	tableX, err := reinforcement.LoadTable[models.BoardState, int](ctx, store, reinforcement.FinalKey(agentXName, tag))
	if err != nil {
		return reinforcement.MergeStats{}, err
	}
	tableO, err := reinforcement.LoadTable[models.BoardState, int](ctx, store, reinforcement.FinalKey(agentOName, tag))
	if err != nil {
		return reinforcement.MergeStats{}, err
	}

	merged, stats := reinforcement.Merge(tableX, tableO)
	if err = reinforcement.SaveTable(ctx, store, reinforcement.FinalKey(mergedName, tag), merged); err != nil {
		return stats, err
	}
	return stats, nil
}

func printMerge(stats reinforcement.MergeStats, key string) {
	fmt.Println(aurora.Bold("Merge statistics"))
	fmt.Printf("  states in X: %d\n", stats.StatesA)
	fmt.Printf("  states in O: %d\n", stats.StatesB)
	fmt.Println(aurora.Green(fmt.Sprintf("  states only O knew: %d", stats.NewStates)))
	fmt.Println(aurora.Green(fmt.Sprintf("  new actions in shared states: %d", stats.NewActions)))
	fmt.Println(aurora.Yellow(fmt.Sprintf("  conflicts resolved to the higher value: %d", stats.ConflictsResolved)))
	fmt.Println(aurora.Bold(fmt.Sprintf("  total states: %d, saved as %s", stats.Total, key)))
}
