// Package pipeline contains the two background sagas: the click job
// (segment, encode, upload, search, describe, persist) and the chat job
// (re-search from an edited description). Stages report tagged results and
// the orchestrator decides from the tag whether to continue, degrade or
// abort; it never inspects error types.
package pipeline

import (
	"context"

	"github.com/seeclickbuy/backend/logger"
	"github.com/seeclickbuy/backend/models"
	"github.com/seeclickbuy/backend/segment"
	"github.com/seeclickbuy/backend/storage"
	"github.com/seeclickbuy/backend/store"
)

// searchLimit is how many items one pipeline run collects.
const searchLimit = 25

// Searcher is the slice of the search adapter the sagas use.
type Searcher interface {
	SearchByImage(ctx context.Context, clickID, imageURL string, version, limit int) ([]models.Item, error)
	SearchByText(ctx context.Context, clickID, query string, version, limit int) ([]models.Item, error)
}

// Describer summarizes item titles into a short description.
type Describer interface {
	Summarize(ctx context.Context, titles []string) (string, error)
}

// Orchestrator owns one worker process's long-lived resources. It is built
// once at worker start and reused across jobs; there is no ambient global
// state.
type Orchestrator struct {
	store     store.Store
	uploader  storage.Uploader
	segmenter segment.Segmenter
	searcher  Searcher
	describer Describer
	log       *logger.Logger
}

func NewOrchestrator(
	st store.Store,
	uploader storage.Uploader,
	segmenter segment.Segmenter,
	searcher Searcher,
	describer Describer,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:     st,
		uploader:  uploader,
		segmenter: segmenter,
		searcher:  searcher,
		describer: describer,
		log:       log.With("service", "Pipeline"),
	}
}

type outcome int

const (
	stepOK outcome = iota
	stepFatal
	stepDegraded
)

type stepResult struct {
	outcome outcome
	err     error
}

func ok() stepResult                { return stepResult{outcome: stepOK} }
func fatal(err error) stepResult    { return stepResult{outcome: stepFatal, err: err} }
func degraded(err error) stepResult { return stepResult{outcome: stepDegraded, err: err} }

type step struct {
	name string
	fn   func(ctx context.Context) stepResult
}

// runSteps executes the saga in order. A fatal step aborts; a degraded step
// is logged and the saga continues.
func runSteps(ctx context.Context, log *logger.Logger, steps []step) error {
	for _, s := range steps {
		res := s.fn(ctx)
		switch res.outcome {
		case stepFatal:
			log.Error("pipeline step failed", "step", s.name, "error", res.err)
			return res.err
		case stepDegraded:
			log.Warn("pipeline step degraded", "step", s.name, "error", res.err)
		}
	}
	return nil
}
