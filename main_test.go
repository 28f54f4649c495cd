package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gamelearn/models"
	"gamelearn/reinforcement"
	"gamelearn/storage"

	. "github.com/smartystreets/goconvey/convey"
)

func testConfig(dir string) *reinforcement.TrainingConfig {
	cfg := reinforcement.DefaultTrainingConfig()
	cfg.Episodes = 200
	cfg.EvalEpisodes = 10
	cfg.CheckpointInterval = 100
	cfg.LogInterval = 0
	cfg.ReportInterval = 0
	cfg.Seed = 7
	cfg.ModelDir = dir
	return cfg
}

// ctxStore refuses writes once the caller's context is done.
type ctxStore struct {
	*storage.FileStore
}

func (cs ctxStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return cs.FileStore.Put(ctx, key, data)
}

func TestCommands(t *testing.T) {
	Convey("The root command carries every subcommand", t, func() {
		names := []string{}
		for _, cmd := range rootCommand().Commands() {
			names = append(names, cmd.Name())
		}
		So(names, ShouldContain, "train")
		So(names, ShouldContain, "evaluate")
		So(names, ShouldContain, "merge")
		So(names, ShouldContain, "maze")
	})

	Convey("The config path falls back to the environment", t, func() {
		path := filepath.Join(t.TempDir(), "cfg.yaml")
		So(os.WriteFile(path, []byte("kind: selfplay\ndef:\n  episodes: 77\n"), 0o644), ShouldBeNil)
		t.Setenv(configEnv, path)
		configPath = ""

		cfg, err := loadConfig(reinforcement.KindSelfPlay)
		So(err, ShouldBeNil)
		So(cfg.Episodes, ShouldEqual, 77)
	})

	Convey("A q-learning file loads for the maze command", t, func() {
		path := filepath.Join(t.TempDir(), "cfg.yaml")
		So(os.WriteFile(path, []byte("kind: selfplay\ndef:\n  algorithm:\n    name: q-learning\n"), 0o644), ShouldBeNil)
		t.Setenv(configEnv, path)
		configPath = ""

		cfg, err := loadConfig(reinforcement.KindMaze)
		So(err, ShouldBeNil)
		So(cfg.Kind, ShouldEqual, reinforcement.KindMaze)

		_, err = loadConfig(reinforcement.KindSelfPlay)
		So(err, ShouldNotBeNil)
	})
}

func TestTrainEvaluateMerge(t *testing.T) {
	ctx := context.Background()

	Convey("Given a model directory", t, func() {
		dir := t.TempDir()
		cfg := testConfig(dir)
		store := storage.NewFileStore(dir)

		Convey("Merging before training fails", func() {
			_, err := Merge(ctx, cfg)
			So(err, ShouldNotBeNil)
		})

		Convey("Training stores checkpoints and final models", func() {
			So(Train(ctx, cfg, ""), ShouldBeNil)
			for _, key := range []string{"agent_x_checkpoint_100", "agent_o_checkpoint_200", "agent_x_final_3x3", "agent_o_final_3x3"} {
				ok, err := store.Exists(ctx, key)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			}

			Convey("Evaluation plays the trained agents", func() {
				result, err := Evaluate(ctx, cfg)
				So(err, ShouldBeNil)
				So(result.Episodes, ShouldEqual, 10)
				So(result.Outcomes.Total(), ShouldEqual, 10)
			})

			Convey("Merging combines both models", func() {
				stats, err := Merge(ctx, cfg)
				So(err, ShouldBeNil)
				So(stats.Total, ShouldBeGreaterThanOrEqualTo, stats.StatesA)
				So(stats.Total, ShouldEqual, stats.StatesA+stats.NewStates)

				merged, err := reinforcement.LoadTable[models.BoardState, int](ctx, store, "superagent_final_3x3")
				So(err, ShouldBeNil)
				So(merged.Len(), ShouldEqual, stats.Total)
			})

			Convey("Training again resumes from the final models", func() {
				before, err := reinforcement.LoadTable[models.BoardState, int](ctx, store, "agent_x_final_3x3")
				So(err, ShouldBeNil)
				So(Train(ctx, cfg, ""), ShouldBeNil)
				after, err := reinforcement.LoadTable[models.BoardState, int](ctx, store, "agent_x_final_3x3")
				So(err, ShouldBeNil)
				So(after.Len(), ShouldBeGreaterThanOrEqualTo, before.Len())
			})
		})

		Convey("Parallel training saves the merged models", func() {
			cfg.Workers = 2
			So(Train(ctx, cfg, ""), ShouldBeNil)
			table, err := reinforcement.LoadTable[models.BoardState, int](ctx, store, "agent_o_final_3x3")
			So(err, ShouldBeNil)
			So(table.Len(), ShouldBeGreaterThan, 0)
		})

		Convey("Parallel training plays every episode when workers do not divide them", func() {
			cfg.Workers = 3
			cfg.Episodes = 10
			stats, err := trainParallel(ctx, cfg, store, nil)
			So(err, ShouldBeNil)
			So(stats.Episodes, ShouldEqual, 10)
			So(stats.Outcomes.Total(), ShouldEqual, 10)

			Convey("and reports each agent's exploration rate", func() {
				So(stats.Agents, ShouldHaveLength, 2)
				for _, agent := range stats.Agents {
					So(agent.Epsilon, ShouldBeGreaterThan, 0)
					So(agent.Epsilon, ShouldBeLessThanOrEqualTo, 1)
				}
			})
		})

		Convey("Parallel training keeps what earlier runs learned", func() {
			seen := models.BoardState("seen-only-before")
			earlier := reinforcement.NewQTable[models.BoardState, int]()
			earlier.Set(seen, 4, 0.75)
			So(reinforcement.SaveTable(ctx, store, "agent_x_final_3x3", earlier), ShouldBeNil)

			cfg.Workers = 2
			_, err := trainParallel(ctx, cfg, store, nil)
			So(err, ShouldBeNil)

			table, err := reinforcement.LoadTable[models.BoardState, int](ctx, store, "agent_x_final_3x3")
			So(err, ShouldBeNil)
			So(table.Has(seen), ShouldBeTrue)
			So(table.Get(seen, 4), ShouldEqual, 0.75)
			So(table.Len(), ShouldBeGreaterThan, 1)
		})

		Convey("Parallel training saves its models after the deadline has passed", func() {
			cfg.Workers = 2
			expired, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
			defer cancel()

			_, err := trainParallel(expired, cfg, ctxStore{store}, nil)
			So(err, ShouldBeNil)
			for _, key := range []string{"agent_x_final_3x3", "agent_o_final_3x3"} {
				ok, err := store.Exists(ctx, key)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			}
		})
	})
}

func TestTrainMaze(t *testing.T) {
	Convey("Given the debug maze", t, func() {
		cfg := testConfig(t.TempDir())
		cfg.Kind = reinforcement.KindMaze
		cfg.Episodes = 500
		cfg.MaxSteps = 200
		cfg.CheckpointInterval = 0
		cfg.HyperParams = []reinforcement.HyperParameter{
			{Key: reinforcement.KeyAlpha, Val: 0.5},
			{Key: reinforcement.KeyEpsilonDecay, Val: 0.99},
		}

		Convey("Q-learning finds a path to the goal", func() {
			result, path, err := TrainMaze(context.Background(), cfg)
			So(err, ShouldBeNil)
			So(result.Reached, ShouldBeTrue)
			So(path[len(path)-1], ShouldResemble, models.Position{Row: 5, Col: 5})
		})

		Convey("An unknown layout is rejected", func() {
			cfg.Maze = "spiral"
			_, _, err := TrainMaze(context.Background(), cfg)
			So(err, ShouldNotBeNil)
		})
	})
}
