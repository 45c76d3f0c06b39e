// Package store is the entity-store boundary: Click, Chat and Item documents
// keyed by generated id, with field-level updates and equality-filtered
// queries ordered by descending creation time.
package store

import (
	"context"
	"errors"

	"github.com/seeclickbuy/backend/models"
)

// ErrNotFound is returned when a referenced document id does not exist.
var ErrNotFound = errors.New("document not found")

// ErrVersionConflict is returned when a conditional update loses the race
// against a concurrent version bump.
var ErrVersionConflict = errors.New("click version changed since read")

// ClickResults carries everything the click pipeline derives for one version.
type ClickResults struct {
	ImageURL    string
	ImageSize   []int
	BBox        []int
	Segm        [][]int
	MaskedURL   string
	MaskedSize  []int
	Description *string
}

type Store interface {
	CreateClick(ctx context.Context, click *models.Click) error
	GetClick(ctx context.Context, clickID string) (*models.Click, error)
	// UpdateClickResults persists pipeline output and flips is_processed to
	// true, but only if the stored version still matches expectedVersion.
	UpdateClickResults(ctx context.Context, clickID string, expectedVersion int, results ClickResults) (*models.Click, error)
	// BumpClickDescription stores a new description and increments version.
	BumpClickDescription(ctx context.Context, clickID string, description string) (*models.Click, error)
	SetClickProcessed(ctx context.Context, clickID string, processed bool) (*models.Click, error)
	RecentClicksByUser(ctx context.Context, userID string, limit int) ([]models.Click, error)

	CreateChat(ctx context.Context, chat *models.Chat) error
	ChatsForClick(ctx context.Context, clickID string, limit int) ([]models.Chat, error)

	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, itemID string) (*models.Item, error)
	SetItemFavorite(ctx context.Context, itemID string, favorite bool) (*models.Item, error)
	ItemsForClick(ctx context.Context, clickID string, version int, limit int) ([]models.Item, error)
	FavoriteItemsForClick(ctx context.Context, clickID string, limit int) ([]models.Item, error)
	CountItems(ctx context.Context, clickID string, version int) (int64, error)
}
