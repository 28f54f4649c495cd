/*
Gamelearn trains tabular Q-learning agents. Two agents learn tic-tac-toe on an
N×N board by playing each other, and a single agent learns to walk a maze.
Trained tables are kept in a model store (a directory or redis) and can be
evaluated greedily or merged into one table holding the best of both.
*/

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"gamelearn/reinforcement"
	"gamelearn/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// configEnv names the config file when --config is not given.
const configEnv = "GAMELEARN_CONFIG"

var configPath string

func main() {
	for _, envFile := range []string{".env", "../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	if err := rootCommand().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gamelearn",
		Short:         "Tabular Q-learning by self-play",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "yaml config file (default $"+configEnv+")")

	cmd.AddCommand(TrainCommand())
	cmd.AddCommand(EvaluateCommand())
	cmd.AddCommand(MergeCommand())
	cmd.AddCommand(MazeCommand())
	return cmd
}

// loadConfig reads the config named by --config or the environment, falling
// back to the defaults when neither is set. The command's @kind wins over the
// file's.
func loadConfig(kind string) (*reinforcement.TrainingConfig, error) {
	path := configPath
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		cfg := reinforcement.DefaultTrainingConfig()
		cfg.Kind = kind
		return cfg, nil
	}
	return reinforcement.FromYamlKind(path, kind)
}

func openStore(cfg *reinforcement.TrainingConfig) (storage.Store, func(), error) {
	store, err := storage.Open(cfg.Store, cfg.ModelDir)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {}
	if closer, ok := store.(io.Closer); ok {
		closeFn = func() { _ = closer.Close() }
	}
	return store, closeFn, nil
}

// signalContext is cancelled on interrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}

func modelTag(size int) string {
	return fmt.Sprintf("%dx%d", size, size)
}
