// Package storetest provides an in-memory Store for exercising the request
// path and the pipeline without a database.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/seeclickbuy/backend/models"
	"github.com/seeclickbuy/backend/store"
)

// Memory implements store.Store with maps. Insertion order stands in for
// created_at ordering, newest first.
type Memory struct {
	mu        sync.Mutex
	clicks    map[string]*models.Click
	items     map[string]*models.Item
	itemOrder []string
	chats     []models.Chat
}

func NewMemory() *Memory {
	return &Memory{
		clicks: make(map[string]*models.Click),
		items:  make(map[string]*models.Item),
	}
}

func (m *Memory) CreateClick(ctx context.Context, click *models.Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().Unix()
	click.ID = primitive.NewObjectID()
	click.Version = 1
	click.IsProcessed = false
	click.CreatedAt = now
	click.UpdatedAt = now
	clone := *click
	m.clicks[click.ID.Hex()] = &clone
	return nil
}

// SeedClick installs a click as-is, for tests that need a preexisting state.
func (m *Memory) SeedClick(click *models.Click) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if click.ID.IsZero() {
		click.ID = primitive.NewObjectID()
	}
	if click.Version == 0 {
		click.Version = 1
	}
	clone := *click
	m.clicks[click.ID.Hex()] = &clone
	return click.ID.Hex()
}

func (m *Memory) GetClick(ctx context.Context, clickID string) (*models.Click, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	click, ok := m.clicks[clickID]
	if !ok {
		return nil, fmt.Errorf("%w: click %s", store.ErrNotFound, clickID)
	}
	clone := *click
	return &clone, nil
}

func (m *Memory) UpdateClickResults(ctx context.Context, clickID string, expectedVersion int, results store.ClickResults) (*models.Click, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	click, ok := m.clicks[clickID]
	if !ok {
		return nil, fmt.Errorf("%w: click %s", store.ErrNotFound, clickID)
	}
	if click.Version != expectedVersion {
		return nil, fmt.Errorf("%w: click %s expected version %d", store.ErrVersionConflict, clickID, expectedVersion)
	}
	click.ImageURL = &results.ImageURL
	click.ImageSize = results.ImageSize
	click.BBox = results.BBox
	click.Segm = results.Segm
	click.MaskedURL = &results.MaskedURL
	click.MaskedSize = results.MaskedSize
	click.Description = results.Description
	click.IsProcessed = true
	click.UpdatedAt = time.Now().Unix()
	clone := *click
	return &clone, nil
}

func (m *Memory) BumpClickDescription(ctx context.Context, clickID string, description string) (*models.Click, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	click, ok := m.clicks[clickID]
	if !ok {
		return nil, fmt.Errorf("%w: click %s", store.ErrNotFound, clickID)
	}
	click.Description = &description
	click.Version++
	click.UpdatedAt = time.Now().Unix()
	clone := *click
	return &clone, nil
}

func (m *Memory) SetClickProcessed(ctx context.Context, clickID string, processed bool) (*models.Click, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	click, ok := m.clicks[clickID]
	if !ok {
		return nil, fmt.Errorf("%w: click %s", store.ErrNotFound, clickID)
	}
	click.IsProcessed = processed
	click.UpdatedAt = time.Now().Unix()
	clone := *click
	return &clone, nil
}

func (m *Memory) RecentClicksByUser(ctx context.Context, userID string, limit int) ([]models.Click, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Click
	for _, click := range m.clicks {
		if click.UserID != nil && *click.UserID == userID {
			out = append(out, *click)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) CreateChat(ctx context.Context, chat *models.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().Unix()
	chat.ID = primitive.NewObjectID()
	chat.CreatedAt = now
	chat.UpdatedAt = now
	m.chats = append(m.chats, *chat)
	return nil
}

func (m *Memory) ChatsForClick(ctx context.Context, clickID string, limit int) ([]models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Chat
	for i := len(m.chats) - 1; i >= 0; i-- {
		if m.chats[i].ClickID == clickID {
			out = append(out, m.chats[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) CreateItem(ctx context.Context, item *models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().Unix()
	item.ID = primitive.NewObjectID()
	item.CreatedAt = now
	item.UpdatedAt = now
	clone := *item
	m.items[item.ID.Hex()] = &clone
	m.itemOrder = append(m.itemOrder, item.ID.Hex())
	return nil
}

func (m *Memory) GetItem(ctx context.Context, itemID string) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: item %s", store.ErrNotFound, itemID)
	}
	clone := *item
	return &clone, nil
}

func (m *Memory) SetItemFavorite(ctx context.Context, itemID string, favorite bool) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: item %s", store.ErrNotFound, itemID)
	}
	item.IsFavorite = favorite
	item.UpdatedAt = time.Now().Unix()
	clone := *item
	return &clone, nil
}

func (m *Memory) ItemsForClick(ctx context.Context, clickID string, version int, limit int) ([]models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Item
	for i := len(m.itemOrder) - 1; i >= 0; i-- {
		item := m.items[m.itemOrder[i]]
		if item.ClickID == clickID && item.Version == version {
			out = append(out, *item)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) FavoriteItemsForClick(ctx context.Context, clickID string, limit int) ([]models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Item
	for i := len(m.itemOrder) - 1; i >= 0; i-- {
		item := m.items[m.itemOrder[i]]
		if item.ClickID == clickID && item.IsFavorite {
			out = append(out, *item)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) CountItems(ctx context.Context, clickID string, version int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, item := range m.items {
		if item.ClickID == clickID && item.Version == version {
			count++
		}
	}
	return count, nil
}
