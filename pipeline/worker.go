package pipeline

import (
	"context"
	"time"

	"github.com/seeclickbuy/backend/logger"
	"github.com/seeclickbuy/backend/queue"
)

const dequeueTimeout = 5 * time.Second

// Worker drains the job queue sequentially, one job at a time, dispatching to
// the orchestrator. It is single-threaded by design; concurrency comes from
// running more worker processes.
type Worker struct {
	consumer queue.Consumer
	orch     *Orchestrator
	log      *logger.Logger
}

func NewWorker(consumer queue.Consumer, orch *Orchestrator, log *logger.Logger) *Worker {
	return &Worker{
		consumer: consumer,
		orch:     orch,
		log:      log.With("service", "Worker"),
	}
}

// Run blocks until ctx is cancelled. Stranded in-flight jobs from a previous
// incarnation are reclaimed first, then the pending list is drained.
func (w *Worker) Run(ctx context.Context) error {
	reclaimed, err := w.consumer.Reclaim(ctx)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		w.log.Info("reclaimed stranded jobs", "count", reclaimed)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		job, err := w.consumer.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Error("dequeue failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}
		w.handle(ctx, job)
	}
}

func (w *Worker) handle(ctx context.Context, job *queue.Job) {
	log := w.log.With("job_id", job.ID, "kind", job.Kind, "click_id", job.ClickID)
	var err error
	switch job.Kind {
	case queue.KindClick:
		err = w.orch.ProcessClick(ctx, job.ClickID, job.Base64Image)
	case queue.KindChat:
		err = w.orch.ProcessChat(ctx, job.ClickID)
	default:
		log.Error("unknown job kind")
	}
	if err != nil {
		// The job is acked anyway: failed runs are surfaced through the
		// click's is_processed flag, and redelivery only happens for jobs
		// stranded by a crash.
		log.Error("job failed", "error", err)
	}
	if ackErr := w.consumer.Ack(ctx, job); ackErr != nil {
		log.Error("ack failed", "error", ackErr)
	}
}
