package reinforcement

import (
	"gamelearn/storage"

	"github.com/google/uuid"
)

type trainerOptions struct {
	store    storage.Store
	progress ProgressFunc
	runID    string
}

// TrainerOption configures a SelfPlayTrainer or SoloTrainer.
type TrainerOption func(*trainerOptions)

// WithStore enables checkpoints and the final save.
func WithStore(store storage.Store) TrainerOption {
	return func(opts *trainerOptions) {
		opts.store = store
	}
}

// WithProgress registers a listener for periodic Stats.
func WithProgress(fn ProgressFunc) TrainerOption {
	return func(opts *trainerOptions) {
		opts.progress = fn
	}
}

// WithRunID overrides the generated run id.
func WithRunID(id string) TrainerOption {
	return func(opts *trainerOptions) {
		opts.runID = id
	}
}

func buildOptions(options []TrainerOption) *trainerOptions {
	opts := &trainerOptions{}
	for _, opt := range options {
		opt(opts)
	}
	if opts.runID == "" {
		opts.runID = uuid.NewString()
	}
	return opts
}

func (opts *trainerOptions) checkpointer() *Checkpointer {
	if opts.store == nil {
		return nil
	}
	return NewCheckpointer(opts.store, opts.runID)
}
