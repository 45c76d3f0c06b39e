// Package search queries a product-search provider and persists qualifying
// results as Items. Two engines share one output contract: a visual-match
// lookup by image URL and a shopping lookup by free text.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/seeclickbuy/backend/logger"
	"github.com/seeclickbuy/backend/models"
)

// MaxResults is the adapter-wide ceiling on accepted results per call.
const MaxResults = 50

const defaultBaseURL = "https://serpapi.com/search.json"

// ItemWriter is the slice of the entity store the adapter needs.
type ItemWriter interface {
	CreateItem(ctx context.Context, item *models.Item) error
}

type Adapter struct {
	apiKey  string
	baseURL string
	http    *http.Client
	items   ItemWriter
	log     *logger.Logger
}

func New(apiKey string, items ItemWriter, log *logger.Logger) *Adapter {
	return &Adapter{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
		items:   items,
		log:     log.With("service", "SearchAdapter"),
	}
}

// Lens (visual match) payload. Validated once here; nothing downstream sees
// raw provider JSON.
type lensResponse struct {
	VisualMatches []lensMatch `json:"visual_matches"`
}

type lensMatch struct {
	Title      string     `json:"title"`
	Link       string     `json:"link"`
	Source     string     `json:"source"`
	SourceIcon string     `json:"source_icon"`
	Thumbnail  string     `json:"thumbnail"`
	InStock    bool       `json:"in_stock"`
	Price      *lensPrice `json:"price"`
}

type lensPrice struct {
	ExtractedValue *float64 `json:"extracted_value"`
	Currency       string   `json:"currency"`
}

// Shopping payload.
type shoppingResponse struct {
	ShoppingResults []shoppingResult `json:"shopping_results"`
}

type shoppingResult struct {
	Title          string   `json:"title"`
	ProductLink    string   `json:"product_link"`
	Source         string   `json:"source"`
	SourceIcon     string   `json:"source_icon"`
	Thumbnail      string   `json:"thumbnail"`
	ExtractedPrice *float64 `json:"extracted_price"`
}

// SearchByImage runs a visual-match query against the masked-object image and
// persists each qualifying result as an Item tagged with version. A result
// qualifies if it carries title, link, source and an extracted price, and is
// not marked out of stock. Zero qualifying results is a nil-error empty list;
// only a provider-level failure returns an error.
func (a *Adapter) SearchByImage(ctx context.Context, clickID, imageURL string, version, limit int) ([]models.Item, error) {
	params := url.Values{}
	params.Set("api_key", a.apiKey)
	params.Set("engine", "google_lens")
	params.Set("url", imageURL)

	var payload lensResponse
	if err := a.get(ctx, params, &payload); err != nil {
		return nil, err
	}

	limit = clampLimit(limit)
	items := make([]models.Item, 0, limit)
	for _, match := range payload.VisualMatches {
		if match.Title == "" || match.Link == "" || match.Source == "" ||
			match.Price == nil || match.Price.ExtractedValue == nil {
			continue
		}
		if !match.InStock {
			continue
		}
		item := models.Item{
			ClickID:       clickID,
			Title:         match.Title,
			Link:          match.Link,
			Source:        match.Source,
			SourceIcon:    optional(match.SourceIcon),
			PriceValue:    *match.Price.ExtractedValue,
			PriceCurrency: match.Price.Currency,
			Thumbnail:     optional(match.Thumbnail),
			InStock:       match.InStock,
			IsFavorite:    false,
			Version:       version,
		}
		if err := a.items.CreateItem(ctx, &item); err != nil {
			return items, fmt.Errorf("failed to persist item: %w", err)
		}
		items = append(items, item)
		if len(items) >= limit {
			a.log.Info("reached result limit", "click_id", clickID, "limit", limit)
			break
		}
	}
	return items, nil
}

// SearchByText runs a shopping query for the given text. The shopping engine
// does not report stock, so every persisted result is marked in stock, with
// a dollar currency by convention.
func (a *Adapter) SearchByText(ctx context.Context, clickID, query string, version, limit int) ([]models.Item, error) {
	params := url.Values{}
	params.Set("api_key", a.apiKey)
	params.Set("engine", "google_shopping")
	params.Set("q", query)
	params.Set("google_domain", "google.com")

	var payload shoppingResponse
	if err := a.get(ctx, params, &payload); err != nil {
		return nil, err
	}

	limit = clampLimit(limit)
	items := make([]models.Item, 0, limit)
	for _, result := range payload.ShoppingResults {
		if result.Title == "" || result.ProductLink == "" || result.Source == "" ||
			result.ExtractedPrice == nil {
			continue
		}
		item := models.Item{
			ClickID:       clickID,
			Title:         result.Title,
			Link:          result.ProductLink,
			Source:        result.Source,
			SourceIcon:    optional(result.SourceIcon),
			PriceValue:    *result.ExtractedPrice,
			PriceCurrency: "$",
			Thumbnail:     optional(result.Thumbnail),
			InStock:       true,
			IsFavorite:    false,
			Version:       version,
		}
		if err := a.items.CreateItem(ctx, &item); err != nil {
			return items, fmt.Errorf("failed to persist item: %w", err)
		}
		items = append(items, item)
		if len(items) >= limit {
			a.log.Info("reached result limit", "click_id", clickID, "limit", limit)
			break
		}
	}
	return items, nil
}

func (a *Adapter) get(ctx context.Context, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build search request: %w", err)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("search provider returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode search response: %w", err)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxResults {
		return MaxResults
	}
	return limit
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
