package main

import (
	"context"
	"fmt"
	"log"

	"gamelearn/models"
	"gamelearn/reinforcement"
	"gamelearn/server"
	"gamelearn/storage"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"
)

const (
	agentXName = "agent_x"
	agentOName = "agent_o"
)

type trainFlags struct {
	episodes int
	size     int
	workers  int
	seed     uint64
	serve    string
}

func TrainCommand() *cobra.Command {
	flags := &trainFlags{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train X and O agents by self-play",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(reinforcement.KindSelfPlay)
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if err = cfg.Validate(); err != nil {
				return err
			}
			return Train(cmd.Context(), cfg, flags.serve)
		},
	}
	cmd.Flags().IntVar(&flags.episodes, "episodes", 0, "number of self-play games")
	cmd.Flags().IntVar(&flags.size, "size", 0, "board size")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "parallel self-play workers")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 0, "random seed, 0 seeds from the clock")
	cmd.Flags().StringVar(&flags.serve, "serve", "", "serve training stats on this address, e.g. :8080")
	return cmd
}

// apply overrides config values with the flags that were set.
func (flags *trainFlags) apply(cmd *cobra.Command, cfg *reinforcement.TrainingConfig) {
	if cmd.Flags().Changed("episodes") {
		cfg.Episodes = flags.episodes
	}
	if cmd.Flags().Changed("size") {
		cfg.BoardSize = flags.size
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = flags.workers
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = flags.seed
	}
}

// Train runs self-play per @cfg, resuming from any final models already in the store.
func Train(ctx context.Context, cfg *reinforcement.TrainingConfig, serveAddr string) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	appCtx, appCancel := signalContext(ctx)
	defer appCancel()

	trainingCtx, trainingCancel, err := cfg.WithTrainingDeadline(appCtx)
	if err != nil {
		return err
	}
	defer trainingCancel()

	if effective, yamlErr := cfg.Yaml(); yamlErr == nil {
		log.Printf("effective config:\n%s", effective)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var progress reinforcement.ProgressFunc
	if serveAddr != "" {
		updates := make(chan reinforcement.Stats)
		srv := server.NewServer(appCtx, serveAddr, updates)
		go func() {
			if serveErr := srv.Serve(appCtx); serveErr != nil {
				log.Println(serveErr)
			}
		}()
		progress = exportStats(updates)
	}

	if cfg.Workers > 1 {
		stats, parallelErr := trainParallel(trainingCtx, cfg, store, progress)
		if parallelErr != nil {
			return parallelErr
		}
		printSummary(stats)
		return nil
	}

	agentX, agentO, err := loadBoardAgents(trainingCtx, cfg, store)
	if err != nil {
		return err
	}
	board, err := models.NewBoard(cfg.BoardSize, cfg.Seed)
	if err != nil {
		return err
	}

	options := []reinforcement.TrainerOption{reinforcement.WithStore(store)}
	if progress != nil {
		options = append(options, reinforcement.WithProgress(progress))
	}
	trainer := reinforcement.NewSelfPlayTrainer(cfg.TrainerConfig(), board, agentX, agentO, options...)
	log.Printf("run %s: %d episodes on a %s board", trainer.RunID(), cfg.Episodes, modelTag(cfg.BoardSize))

	stats, err := trainer.Run(trainingCtx)
	printSummary(stats)
	return err
}

// exportStats hands snapshots to the server without ever blocking training on it.
func exportStats(updates chan<- reinforcement.Stats) reinforcement.ProgressFunc {
	return func(ctx context.Context, stats reinforcement.Stats) {
		select {
		case updates <- stats:
		case <-ctx.Done():
		default:
		}
	}
}

func loadBoardAgents(
	ctx context.Context,
	cfg *reinforcement.TrainingConfig,
	store storage.Store,
) (agentX, agentO *reinforcement.Agent[models.BoardState, int], err error) {
	params := cfg.Hyperparameters(reinforcement.BoardHyperparameters())
	tag := modelTag(cfg.BoardSize)

	agentX = reinforcement.NewBoardAgent(agentXName, params, seedFor(cfg.Seed, 1))
	agentO = reinforcement.NewBoardAgent(agentOName, params, seedFor(cfg.Seed, 2))
	for _, agent := range []*reinforcement.Agent[models.BoardState, int]{agentX, agentO} {
		table, loadErr := reinforcement.LoadTableOrEmpty[models.BoardState, int](ctx, store, reinforcement.FinalKey(agent.Name, tag))
		if loadErr != nil {
			return nil, nil, loadErr
		}
		agent.SetTable(table)
	}
	return agentX, agentO, nil
}

// seedFor derives distinct seeds from a base seed, keeping zero (clock seeded) as zero.
func seedFor(base uint64, offset uint64) uint64 {
	if base == 0 {
		return 0
	}
	return base + offset
}

// trainParallel splits the episodes over independent workers, the first
// workers taking one extra game each when they do not divide evenly. The
// workers' tables are merged into any final models already in the store.
func trainParallel(
	ctx context.Context,
	cfg *reinforcement.TrainingConfig,
	store storage.Store,
	progress reinforcement.ProgressFunc,
) (reinforcement.Stats, error) {
	perWorker := cfg.TrainerConfig()
	perWorker.CheckpointInterval = 0
	share, extra := cfg.Episodes/cfg.Workers, cfg.Episodes%cfg.Workers
	params := cfg.Hyperparameters(reinforcement.BoardHyperparameters())

	factory := func(worker int) (*reinforcement.SelfPlayTrainer[models.BoardState, int], error) {
		workerCfg := perWorker
		workerCfg.Episodes = share
		if worker < extra {
			workerCfg.Episodes++
		}
		seed := seedFor(cfg.Seed, uint64(10*worker))
		board, err := models.NewBoard(cfg.BoardSize, seedFor(seed, 3))
		if err != nil {
			return nil, err
		}
		var options []reinforcement.TrainerOption
		if worker == 0 && progress != nil {
			options = append(options, reinforcement.WithProgress(progress))
		}
		return reinforcement.NewSelfPlayTrainer(workerCfg, board,
			reinforcement.NewBoardAgent(agentXName, params, seedFor(seed, 1)),
			reinforcement.NewBoardAgent(agentOName, params, seedFor(seed, 2)),
			options...), nil
	}

	// previous models are read up front; the deadline may be gone by the end
	previousX, previousO, err := loadBoardAgents(ctx, cfg, store)
	if err != nil {
		return reinforcement.Stats{}, err
	}

	log.Printf("%d workers, %d episodes in total, on a %s board", cfg.Workers, cfg.Episodes, perWorker.ModelTag)
	result, err := reinforcement.TrainParallel(ctx, cfg.Workers, factory)
	if err != nil {
		return reinforcement.Stats{}, err
	}

	tableX, statsX := reinforcement.Merge(previousX.Table(), result.TableX)
	tableO, statsO := reinforcement.Merge(previousO.Table(), result.TableO)
	if statsX.StatesA > 0 || statsO.StatesA > 0 {
		log.Printf("merged into existing models: %d new X states, %d new O states", statsX.NewStates, statsO.NewStates)
	}

	// the training deadline may have expired; the final save must still happen
	saveCtx := context.WithoutCancel(ctx)
	if err = reinforcement.SaveTable(saveCtx, store, reinforcement.FinalKey(agentXName, perWorker.ModelTag), tableX); err != nil {
		return reinforcement.Stats{}, err
	}
	if err = reinforcement.SaveTable(saveCtx, store, reinforcement.FinalKey(agentOName, perWorker.ModelTag), tableO); err != nil {
		return reinforcement.Stats{}, err
	}

	// every worker decays epsilon on the same schedule, so worker 0's is representative
	lead := result.Stats[0].Agents
	return reinforcement.Stats{
		Episodes:      result.Episodes,
		TotalEpisodes: cfg.Episodes,
		Outcomes:      result.Outcomes,
		Agents: []reinforcement.AgentStats{
			{Name: agentXName, Epsilon: lead[0].Epsilon, States: tableX.Len(), Record: result.RecordX},
			{Name: agentOName, Epsilon: lead[1].Epsilon, States: tableO.Len(), Record: result.RecordO},
		},
		Done: true,
	}, nil
}

func printSummary(stats reinforcement.Stats) {
	fmt.Println(aurora.Bold(fmt.Sprintf("Training finished after %d episodes", stats.Episodes)))
	fmt.Println(aurora.Green(fmt.Sprintf("  X wins: %d", stats.Outcomes.XWins)))
	fmt.Println(aurora.Blue(fmt.Sprintf("  O wins: %d", stats.Outcomes.OWins)))
	fmt.Println(aurora.Yellow(fmt.Sprintf("  draws:  %d (%.1f%%)", stats.Outcomes.Draws, 100*stats.Outcomes.DrawRate())))
	for _, agent := range stats.Agents {
		fmt.Printf("  %s: %d states, epsilon %.4f\n", agent.Name, agent.States, agent.Epsilon)
	}
}
