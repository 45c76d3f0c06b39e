package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/seeclickbuy/backend/logger"
	"github.com/seeclickbuy/backend/models"
)

type chatRun struct {
	o       *Orchestrator
	log     *logger.Logger
	clickID string

	click *models.Click
	items []models.Item
}

// ProcessChat re-runs the text search after a description edit. The edit
// itself already happened in the request path; this saga only searches with
// the current description and flips is_processed back to true. A provider
// failure fails the job and deliberately leaves is_processed as-is, so the
// click stays "processing" until a later run succeeds.
func (o *Orchestrator) ProcessChat(ctx context.Context, clickID string) error {
	run := &chatRun{
		o:       o,
		log:     o.log.With("job", "chat", "click_id", clickID),
		clickID: clickID,
	}
	run.log.Info("chat job received")
	start := time.Now()
	err := runSteps(ctx, run.log, []step{
		{"fetch", run.fetch},
		{"search", run.search},
		{"finalize", run.finalize},
	})
	if err != nil {
		return err
	}
	run.log.Info("chat job complete", "items", len(run.items), "elapsed", time.Since(start))
	return nil
}

func (r *chatRun) fetch(ctx context.Context) stepResult {
	click, err := r.o.store.GetClick(ctx, r.clickID)
	if err != nil {
		return fatal(err)
	}
	if click.Description == nil || strings.TrimSpace(*click.Description) == "" {
		return fatal(fmt.Errorf("click %s has no description to search from", r.clickID))
	}
	r.click = click
	return ok()
}

func (r *chatRun) search(ctx context.Context) stepResult {
	query := strings.TrimSpace(*r.click.Description)
	items, err := r.o.searcher.SearchByText(ctx, r.clickID, query, r.click.Version, searchLimit)
	if err != nil {
		return fatal(err)
	}
	r.log.Info("items found", "count", len(items))
	r.items = items
	return ok()
}

func (r *chatRun) finalize(ctx context.Context) stepResult {
	if _, err := r.o.store.SetClickProcessed(ctx, r.clickID, true); err != nil {
		return fatal(err)
	}
	return ok()
}
