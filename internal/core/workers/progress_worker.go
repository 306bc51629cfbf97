package workers

import (
	"context"
	"log"
)

// ChallengeRecomputer is implemented by the challenge service: refresh
// every participant whose linked habits include the written habit.
type ChallengeRecomputer interface {
	RecomputeForHabit(ctx context.Context, habitID string) error
}

type ProgressJob struct {
	HabitID string
}

// ProgressWorker drains ledger-write notifications in the background and
// triggers incremental recomputes. Dropping a job under pressure is safe:
// the next write to the same habit, or any batch recompute, reaches the
// identical result because the computation is a pure function of the
// ledger.
type ProgressWorker struct {
	recomputer ChallengeRecomputer
	jobs       chan ProgressJob
}

func NewProgressWorker(recomputer ChallengeRecomputer) *ProgressWorker {
	return &ProgressWorker{
		recomputer: recomputer,
		jobs:       make(chan ProgressJob, 100),
	}
}

func (w *ProgressWorker) Start(ctx context.Context) {
	go func() {
		log.Println("Progress worker started in background...")
		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ctx.Done():
				log.Println("Progress worker shutting down...")
				return
			}
		}
	}()
}

func (w *ProgressWorker) Enqueue(habitID string) {
	select {
	case w.jobs <- ProgressJob{HabitID: habitID}:
	default:
		log.Printf("Progress worker queue full! Dropping job for habit %s", habitID)
	}
}

func (w *ProgressWorker) processJob(ctx context.Context, job ProgressJob) {
	if err := w.recomputer.RecomputeForHabit(ctx, job.HabitID); err != nil {
		log.Printf("Progress worker: recompute failed for habit %s: %v", job.HabitID, err)
	}
}
