package reinforcement

import (
	"context"
	"fmt"

	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

// TrainerFactory builds the independent trainer of worker @worker. Workers
// must not share agents, tables or environments.
type TrainerFactory[S, A comparable] func(worker int) (*SelfPlayTrainer[S, A], error)

// ParallelResult combines the agents of all workers.
type ParallelResult[S, A comparable] struct {
	TableX   *QTable[S, A]
	TableO   *QTable[S, A]
	RecordX  Record
	RecordO  Record
	Episodes int
	Outcomes Outcomes
	// Stats holds each worker's final snapshot, by worker index.
	Stats []Stats
}

type workerResult[S, A comparable] struct {
	worker  int
	trainer *SelfPlayTrainer[S, A]
	stats   Stats
}

// TrainParallel runs @workers self-play trainers concurrently, then merges
// the X tables together and the O tables together. Each trainer is owned by
// its goroutine until it finishes, so the tables need no locking.
func TrainParallel[S, A comparable](
	ctx context.Context,
	workers int,
	factory TrainerFactory[S, A],
) (*ParallelResult[S, A], error) {
	if workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", workers)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	outputs := make([]<-chan workerResult[S, A], workers)
	for i := 0; i < workers; i++ {
		worker := i
		out := make(chan workerResult[S, A], 1)
		outputs[i] = out
		group.Go(func() error {
			defer close(out)
			trainer, err := factory(worker)
			if err != nil {
				return fmt.Errorf("worker %d: %w", worker, err)
			}
			stats, err := trainer.Run(groupCtx)
			if err != nil {
				return fmt.Errorf("worker %d: %w", worker, err)
			}
			out <- workerResult[S, A]{worker: worker, trainer: trainer, stats: stats}
			return nil
		})
	}

	// Not ctx.Done(): finished results must still be collected after a deadline.
	done := make(chan struct{})
	defer close(done)
	results := make([]*workerResult[S, A], workers)
	for res := range channerics.Merge(done, outputs...) {
		res := res
		results[res.worker] = &res
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	combined := &ParallelResult[S, A]{
		Stats: make([]Stats, workers),
	}
	for _, res := range results {
		agentX, agentO := res.trainer.AgentX(), res.trainer.AgentO()
		if combined.TableX == nil {
			combined.TableX = agentX.Table().Clone()
			combined.TableO = agentO.Table().Clone()
		} else {
			combined.TableX, _ = Merge(combined.TableX, agentX.Table())
			combined.TableO, _ = Merge(combined.TableO, agentO.Table())
		}
		combined.RecordX = combined.RecordX.Add(agentX.Record())
		combined.RecordO = combined.RecordO.Add(agentO.Record())
		combined.Episodes += res.stats.Episodes
		combined.Outcomes = combined.Outcomes.Add(res.stats.Outcomes)
		combined.Stats[res.worker] = res.stats
	}
	return combined, nil
}
