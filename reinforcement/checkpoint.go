package reinforcement

import (
	"context"
	"encoding/gob"
	"fmt"
	"log"
	"time"

	"gamelearn/storage"
)

// CheckpointRecord is one entry of a run's checkpoint history.
type CheckpointRecord struct {
	RunID   string    `json:"runId"`
	Episode int       `json:"episode"`
	Time    time.Time `json:"time"`
	Keys    []string  `json:"keys"`
	Err     string    `json:"error,omitempty"`
}

func (rec CheckpointRecord) OK() bool {
	return rec.Err == ""
}

// Snapshot names a model to persist.
type Snapshot struct {
	Key   string
	Model gob.GobEncoder
}

// Checkpointer writes periodic snapshots to a store and remembers how each went.
// A failed write is logged and recorded but never returned: losing a
// checkpoint must not lose the training run.
type Checkpointer struct {
	store   storage.Store
	runID   string
	history []CheckpointRecord
}

func NewCheckpointer(store storage.Store, runID string) *Checkpointer {
	return &Checkpointer{
		store: store,
		runID: runID,
	}
}

// Save persists every snapshot, stopping at the first failure.
func (cp *Checkpointer) Save(ctx context.Context, episode int, snapshots ...Snapshot) CheckpointRecord {
	rec := CheckpointRecord{
		RunID:   cp.runID,
		Episode: episode,
		Time:    time.Now(),
	}
	for _, snap := range snapshots {
		if err := cp.put(ctx, snap); err != nil {
			rec.Err = err.Error()
			log.Printf("checkpoint at episode %d failed: %v", episode, err)
			break
		}
		rec.Keys = append(rec.Keys, snap.Key)
	}
	cp.history = append(cp.history, rec)
	return rec
}

func (cp *Checkpointer) put(ctx context.Context, snap Snapshot) error {
	data, err := snap.Model.GobEncode()
	if err != nil {
		return fmt.Errorf("%s: %w", snap.Key, err)
	}
	if err = cp.store.Put(ctx, snap.Key, data); err != nil {
		return fmt.Errorf("%s: %w", snap.Key, err)
	}
	return nil
}

// History returns a copy of all checkpoint attempts, oldest first.
func (cp *Checkpointer) History() []CheckpointRecord {
	out := make([]CheckpointRecord, len(cp.history))
	copy(out, cp.history)
	return out
}

// Summary counts successful and failed checkpoints.
func (cp *Checkpointer) Summary() (ok, failed int) {
	for _, rec := range cp.history {
		if rec.OK() {
			ok++
		} else {
			failed++
		}
	}
	return
}

// CheckpointKey is the key of an agent's periodic snapshot, e.g. agent_x_checkpoint_10000.
func CheckpointKey(agent string, episode int) string {
	return fmt.Sprintf("%s_checkpoint_%d", agent, episode)
}

// FinalKey is the key of an agent's end-of-run model, e.g. agent_x_final_3x3.
func FinalKey(agent, tag string) string {
	return fmt.Sprintf("%s_final_%s", agent, tag)
}
