package reinforcement

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"gamelearn/storage"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// OuterConfig is the file envelope: a kind tag and the definition it describes.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// Config kinds.
const (
	KindSelfPlay = "selfplay"
	KindMaze     = "maze"
)

// TrainingConfig encodes algorithmic and training parameters outside of code.
// HyperParams is a list of key-val pairs rather than fixed fields so that a
// config only names what it overrides.
type TrainingConfig struct {
	Kind string `mapstructure:"-" yaml:"kind"`
	// HyperParams is a key-val pair of param names and their value.
	HyperParams []HyperParameter `mapstructure:"hyperParams" yaml:"hyperParams"`
	// Algorithm is an alg selector, e.g. {name: montecarlo}.
	Algorithm map[string]string `mapstructure:"algorithm" yaml:"algorithm"`
	// TrainingDeadline is a fixed duration describing when to terminate training.
	TrainingDeadline map[string]string `mapstructure:"trainingDeadline" yaml:"trainingDeadline"`

	Episodes           int            `mapstructure:"episodes" yaml:"episodes"`
	EvalEpisodes       int            `mapstructure:"evalEpisodes" yaml:"evalEpisodes"`
	BoardSize          int            `mapstructure:"boardSize" yaml:"boardSize"`
	Maze               string         `mapstructure:"maze" yaml:"maze"`
	MaxSteps           int            `mapstructure:"maxSteps" yaml:"maxSteps"`
	CheckpointInterval int            `mapstructure:"checkpointInterval" yaml:"checkpointInterval"`
	LogInterval        int            `mapstructure:"logInterval" yaml:"logInterval"`
	ReportInterval     int            `mapstructure:"reportInterval" yaml:"reportInterval"`
	Workers            int            `mapstructure:"workers" yaml:"workers"`
	Seed               uint64         `mapstructure:"seed" yaml:"seed"`
	ModelDir           string         `mapstructure:"modelDir" yaml:"modelDir"`
	Store              storage.Config `mapstructure:"store" yaml:"store"`
}

type HyperParameter struct {
	Key string  `mapstructure:"key" yaml:"key"`
	Val float64 `mapstructure:"val" yaml:"val"`
}

// Hyperparameter keys.
const (
	KeyAlpha        = "alpha"
	KeyGamma        = "gamma"
	KeyEpsilon      = "epsilon"
	KeyEpsilonMin   = "epsilonMin"
	KeyEpsilonDecay = "epsilonDecay"
)

// DefaultTrainingConfig mirrors the classic self-play run: 3x3 board,
// checkpoints every 10k games.
func DefaultTrainingConfig() *TrainingConfig {
	return &TrainingConfig{
		Kind:               KindSelfPlay,
		Algorithm:          map[string]string{},
		TrainingDeadline:   map[string]string{},
		Episodes:           50000,
		EvalEpisodes:       10000,
		BoardSize:          3,
		Maze:               "debug",
		MaxSteps:           500,
		CheckpointInterval: 10000,
		LogInterval:        1000,
		ReportInterval:     250,
		Workers:            1,
		ModelDir:           "trained_models",
		Store:              storage.Config{Kind: storage.KindFile},
	}
}

func (cfg *TrainingConfig) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range cfg.HyperParams {
		if kvp.Key == param {
			return kvp.Val
		}
	}
	return defaultVal
}

// Hyperparameters overlays the configured values on @defaults.
func (cfg *TrainingConfig) Hyperparameters(defaults Hyperparameters) Hyperparameters {
	return Hyperparameters{
		Alpha:        cfg.GetHyperParamOrDefault(KeyAlpha, defaults.Alpha),
		Gamma:        cfg.GetHyperParamOrDefault(KeyGamma, defaults.Gamma),
		Epsilon:      cfg.GetHyperParamOrDefault(KeyEpsilon, defaults.Epsilon),
		EpsilonMin:   cfg.GetHyperParamOrDefault(KeyEpsilonMin, defaults.EpsilonMin),
		EpsilonDecay: cfg.GetHyperParamOrDefault(KeyEpsilonDecay, defaults.EpsilonDecay),
	}
}

// Strategy returns the configured credit-assignment strategy, or @def if none is named.
func (cfg *TrainingConfig) Strategy(def Strategy) (Strategy, error) {
	name, ok := cfg.Algorithm["name"]
	if !ok || name == "" {
		return def, nil
	}
	switch Strategy(name) {
	case StrategyMonteCarlo, StrategyTemporalDifference:
		return Strategy(name), nil
	}
	return "", fmt.Errorf("unknown algorithm %q", name)
}

// TrainerConfig extracts the loop parameters of a self-play run.
func (cfg *TrainingConfig) TrainerConfig() TrainerConfig {
	return TrainerConfig{
		Episodes:           cfg.Episodes,
		CheckpointInterval: cfg.CheckpointInterval,
		LogInterval:        cfg.LogInterval,
		ReportInterval:     cfg.ReportInterval,
		ModelTag:           fmt.Sprintf("%dx%d", cfg.BoardSize, cfg.BoardSize),
	}
}

// WithTrainingDeadline returns a context extended by the training deadline, if one is specified.
func (cfg *TrainingConfig) WithTrainingDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.TrainingDeadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, fmt.Errorf("training deadline: %w", err)
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// Validate rejects configs the trainers cannot run.
func (cfg *TrainingConfig) Validate() error {
	if cfg.Episodes < 0 {
		return fmt.Errorf("episodes must be non-negative, got %d", cfg.Episodes)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	if cfg.Kind == KindMaze && cfg.MaxSteps < 1 {
		return fmt.Errorf("maxSteps must be at least 1, got %d", cfg.MaxSteps)
	}
	strategy, err := cfg.Strategy(StrategyMonteCarlo)
	if err != nil {
		return err
	}
	if cfg.Kind == KindSelfPlay && strategy != StrategyMonteCarlo {
		return fmt.Errorf("self-play learns by %s only, got %s", StrategyMonteCarlo, strategy)
	}
	return nil
}

// FromYaml reads a kind/def envelope with viper and decodes the definition over
// the defaults, so a config file only needs the values it changes. Viper
// lowercases keys; mapstructure matches them to the tags case-insensitively.
func FromYaml(path string) (*TrainingConfig, error) {
	return FromYamlKind(path, "")
}

// FromYamlKind is FromYaml with the file's kind replaced by @kind, if set,
// before validation.
func FromYamlKind(path, kind string) (*TrainingConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, err
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, err
	}

	innerConfig := DefaultTrainingConfig()
	if outerConfig.Def != nil {
		if err = vp.UnmarshalKey("def", innerConfig); err != nil {
			return nil, err
		}
	}
	if outerConfig.Kind != "" {
		innerConfig.Kind = outerConfig.Kind
	}
	if kind != "" {
		innerConfig.Kind = kind
	}

	if err = innerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return innerConfig, nil
}

// Yaml renders the effective config.
func (cfg *TrainingConfig) Yaml() (string, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
