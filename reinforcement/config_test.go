package reinforcement

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gamelearn/storage"

	. "github.com/smartystreets/goconvey/convey"
)

const testConfig = `kind: selfplay
def:
  hyperParams:
    - key: alpha
      val: 0.25
    - key: epsilonDecay
      val: 0.9
  episodes: 1200
  boardSize: 4
  checkpointInterval: 300
  workers: 2
  seed: 42
  modelDir: models_out
  store:
    kind: redis
    addr: localhost:6379
    prefix: gamelearn
  trainingDeadline:
    duration: 90s
`

func writeConfig(contents string) string {
	path := filepath.Join(os.TempDir(), "gamelearn_test_config.yaml")
	So(os.WriteFile(path, []byte(contents), 0o644), ShouldBeNil)
	return path
}

func TestTrainingConfig(t *testing.T) {
	Convey("When loading a yaml config", t, func() {
		path := writeConfig(testConfig)
		defer os.Remove(path)

		cfg, err := FromYaml(path)
		So(err, ShouldBeNil)

		Convey("Set values override the defaults", func() {
			So(cfg.Kind, ShouldEqual, KindSelfPlay)
			So(cfg.Episodes, ShouldEqual, 1200)
			So(cfg.BoardSize, ShouldEqual, 4)
			So(cfg.CheckpointInterval, ShouldEqual, 300)
			So(cfg.Workers, ShouldEqual, 2)
			So(cfg.Seed, ShouldEqual, uint64(42))
			So(cfg.ModelDir, ShouldEqual, "models_out")
			So(cfg.Store, ShouldResemble, storage.Config{Kind: storage.KindRedis, Addr: "localhost:6379", Prefix: "gamelearn"})
		})

		Convey("Unset values keep their defaults", func() {
			defaults := DefaultTrainingConfig()
			So(cfg.LogInterval, ShouldEqual, defaults.LogInterval)
			So(cfg.ReportInterval, ShouldEqual, defaults.ReportInterval)
			So(cfg.MaxSteps, ShouldEqual, defaults.MaxSteps)
		})

		Convey("Hyperparameters overlay the given defaults", func() {
			params := cfg.Hyperparameters(BoardHyperparameters())
			So(params.Alpha, ShouldEqual, 0.25)
			So(params.EpsilonDecay, ShouldEqual, 0.9)
			So(params.Gamma, ShouldEqual, BoardHyperparameters().Gamma)
		})

		Convey("The trainer config is tagged with the board size", func() {
			So(cfg.TrainerConfig().ModelTag, ShouldEqual, "4x4")
			So(cfg.TrainerConfig().Episodes, ShouldEqual, 1200)
		})

		Convey("The effective config renders back to yaml", func() {
			out, err := cfg.Yaml()
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "boardSize: 4")
			So(out, ShouldContainSubstring, "kind: redis")
		})

		Convey("The training deadline bounds the context", func() {
			ctx, cancel, err := cfg.WithTrainingDeadline(context.Background())
			So(err, ShouldBeNil)
			defer cancel()
			deadline, ok := ctx.Deadline()
			So(ok, ShouldBeTrue)
			So(deadline, ShouldHappenWithin, 91*time.Second, time.Now())
		})
	})

	Convey("Without a deadline the context is only cancellable", t, func() {
		ctx, cancel, err := DefaultTrainingConfig().WithTrainingDeadline(context.Background())
		So(err, ShouldBeNil)
		defer cancel()
		_, ok := ctx.Deadline()
		So(ok, ShouldBeFalse)
	})

	Convey("Invalid configs are rejected", t, func() {
		Convey("An unknown algorithm", func() {
			path := writeConfig("kind: selfplay\ndef:\n  algorithm:\n    name: sarsa\n")
			defer os.Remove(path)
			_, err := FromYaml(path)
			So(err, ShouldNotBeNil)
		})

		Convey("A bad deadline", func() {
			cfg := DefaultTrainingConfig()
			cfg.TrainingDeadline["duration"] = "soon"
			_, _, err := cfg.WithTrainingDeadline(context.Background())
			So(err, ShouldNotBeNil)
		})

		Convey("A missing file", func() {
			_, err := FromYaml(filepath.Join(os.TempDir(), "does_not_exist.yaml"))
			So(err, ShouldNotBeNil)
		})
	})

	Convey("A caller's kind replaces the file's before validation", t, func() {
		path := writeConfig("kind: selfplay\ndef:\n  algorithm:\n    name: q-learning\n")

		_, err := FromYaml(path)
		So(err, ShouldNotBeNil)

		cfg, err := FromYamlKind(path, KindMaze)
		So(err, ShouldBeNil)
		So(cfg.Kind, ShouldEqual, KindMaze)
		strategy, err := cfg.Strategy(StrategyMonteCarlo)
		So(err, ShouldBeNil)
		So(strategy, ShouldEqual, StrategyTemporalDifference)
	})

	Convey("The configured strategy falls back to the given default", t, func() {
		cfg := DefaultTrainingConfig()
		cfg.Algorithm = nil
		strategy, err := cfg.Strategy(StrategyTemporalDifference)
		So(err, ShouldBeNil)
		So(strategy, ShouldEqual, StrategyTemporalDifference)
	})
}
