// Package clicks is the request-path surface of the system: it creates Click
// records, applies synchronous chat edits, toggles favorites and serves
// fetches. Background processing is handed off to the job queue.
package clicks

import (
	"context"
	"errors"
	"fmt"

	"github.com/seeclickbuy/backend/logger"
	"github.com/seeclickbuy/backend/models"
	"github.com/seeclickbuy/backend/queue"
	"github.com/seeclickbuy/backend/store"
)

// ErrInvalidInput marks a client mistake: bad spatial input, or a chat
// against a click that has no description yet.
var ErrInvalidInput = errors.New("invalid input")

// Editor merges a user instruction into an existing description.
type Editor interface {
	Edit(ctx context.Context, original, instruction string) (string, error)
}

// ImageSearcher re-runs the visual search for an already-processed click.
type ImageSearcher interface {
	SearchByImage(ctx context.Context, clickID, imageURL string, version, limit int) ([]models.Item, error)
}

type Service struct {
	store    store.Store
	queue    queue.Enqueuer
	editor   Editor
	searcher ImageSearcher
	log      *logger.Logger
}

func NewService(st store.Store, q queue.Enqueuer, editor Editor, searcher ImageSearcher, log *logger.Logger) *Service {
	return &Service{
		store:    st,
		queue:    q,
		editor:   editor,
		searcher: searcher,
		log:      log.With("service", "Clicks"),
	}
}

type SubmitClickRequest struct {
	Base64Image string  `json:"base64_image"`
	Click       []int   `json:"click,omitempty"`
	Selection   []int   `json:"selection,omitempty"`
	UserID      *string `json:"user_id,omitempty"`
	Channel     *string `json:"channel,omitempty"`
}

// SubmitClick creates an unprocessed version-1 Click and enqueues the click
// job. An enqueue failure is logged but does not fail the request; the click
// exists and clients poll is_processed.
func (s *Service) SubmitClick(ctx context.Context, req SubmitClickRequest) (*models.Click, error) {
	hasClick := len(req.Click) == 2
	hasSelection := len(req.Selection) == 4
	if hasClick == hasSelection {
		return nil, fmt.Errorf("%w: exactly one of click or selection is required", ErrInvalidInput)
	}
	if req.Base64Image == "" {
		return nil, fmt.Errorf("%w: base64_image is required", ErrInvalidInput)
	}

	click := &models.Click{
		Click:     req.Click,
		Selection: req.Selection,
		UserID:    req.UserID,
		Channel:   req.Channel,
	}
	if err := s.store.CreateClick(ctx, click); err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, queue.Job{
		Kind:        queue.KindClick,
		ClickID:     click.ID.Hex(),
		Base64Image: req.Base64Image,
	}); err != nil {
		s.log.Error("failed to enqueue click job", "click_id", click.ID.Hex(), "error", err)
	}
	return click, nil
}

// SubmitChat applies a synchronous description edit and enqueues the
// re-search. The edit call may fail; the original description is then carried
// forward and the version still bumps, so the Chat record has pre == post.
func (s *Service) SubmitChat(ctx context.Context, clickID, text string) (*models.Click, *models.Chat, error) {
	click, err := s.store.GetClick(ctx, clickID)
	if err != nil {
		return nil, nil, err
	}
	if click.Description == nil || *click.Description == "" {
		return nil, nil, fmt.Errorf("%w: click %s has no description yet", ErrInvalidInput, clickID)
	}

	if _, err := s.store.SetClickProcessed(ctx, clickID, false); err != nil {
		return nil, nil, err
	}

	preDescription := *click.Description
	newDescription, err := s.editor.Edit(ctx, preDescription, text)
	if err != nil {
		s.log.Warn("description edit failed, carrying original forward",
			"click_id", clickID, "error", err)
		newDescription = preDescription
	}

	chat := &models.Chat{
		ClickID:         clickID,
		Text:            text,
		PreDescription:  preDescription,
		PostDescription: newDescription,
		Version:         click.Version,
	}
	if err := s.store.CreateChat(ctx, chat); err != nil {
		return nil, nil, err
	}

	updated, err := s.store.BumpClickDescription(ctx, clickID, newDescription)
	if err != nil {
		return nil, nil, err
	}

	if err := s.queue.Enqueue(ctx, queue.Job{
		Kind:    queue.KindChat,
		ClickID: clickID,
	}); err != nil {
		s.log.Error("failed to enqueue chat job", "click_id", clickID, "error", err)
	}
	return updated, chat, nil
}

// ReSearch re-runs the visual search for a click that already has a masked
// cutout, appending items under the current version.
func (s *Service) ReSearch(ctx context.Context, clickID string) ([]models.Item, error) {
	click, err := s.store.GetClick(ctx, clickID)
	if err != nil {
		return nil, err
	}
	if click.MaskedURL == nil {
		return nil, fmt.Errorf("%w: click %s has no masked image yet", ErrInvalidInput, clickID)
	}
	return s.searcher.SearchByImage(ctx, clickID, *click.MaskedURL, click.Version, searchLimit)
}

const searchLimit = 25

func (s *Service) GetClick(ctx context.Context, clickID string) (*models.Click, error) {
	return s.store.GetClick(ctx, clickID)
}

func (s *Service) GetItem(ctx context.Context, itemID string) (*models.Item, error) {
	return s.store.GetItem(ctx, itemID)
}

// ItemsForClick returns the current version's items.
func (s *Service) ItemsForClick(ctx context.Context, clickID string, limit int) ([]models.Item, error) {
	click, err := s.store.GetClick(ctx, clickID)
	if err != nil {
		return nil, err
	}
	return s.store.ItemsForClick(ctx, clickID, click.Version, limit)
}

// FavoriteItemsForClick returns favorites from any version; favorites survive
// version bumps.
func (s *Service) FavoriteItemsForClick(ctx context.Context, clickID string, limit int) ([]models.Item, error) {
	return s.store.FavoriteItemsForClick(ctx, clickID, limit)
}

func (s *Service) ChatsForClick(ctx context.Context, clickID string, limit int) ([]models.Chat, error) {
	return s.store.ChatsForClick(ctx, clickID, limit)
}

func (s *Service) RecentClicksByUser(ctx context.Context, userID string, limit int) ([]models.Click, error) {
	return s.store.RecentClicksByUser(ctx, userID, limit)
}

func (s *Service) Favorite(ctx context.Context, itemID string) (*models.Item, error) {
	return s.store.SetItemFavorite(ctx, itemID, true)
}

func (s *Service) Unfavorite(ctx context.Context, itemID string) (*models.Item, error) {
	return s.store.SetItemFavorite(ctx, itemID, false)
}
