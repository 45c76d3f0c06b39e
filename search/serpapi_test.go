package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seeclickbuy/backend/logger"
	"github.com/seeclickbuy/backend/models"
)

type fakeItems struct {
	created []models.Item
	fail    bool
}

func (f *fakeItems) CreateItem(ctx context.Context, item *models.Item) error {
	if f.fail {
		return errors.New("store down")
	}
	item.CreatedAt = time.Now().Unix()
	item.UpdatedAt = item.CreatedAt
	f.created = append(f.created, *item)
	return nil
}

func testAdapter(t *testing.T, serverURL string, items ItemWriter) *Adapter {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return &Adapter{
		apiKey:  "test-key",
		baseURL: serverURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		items:   items,
		log:     log,
	}
}

const lensBody = `{
  "visual_matches": [
    {"title": "Red Sneaker", "link": "https://a.example/1", "source": "ShopA",
     "source_icon": "https://a.example/icon.png", "thumbnail": "https://a.example/t1.png",
     "in_stock": true, "price": {"extracted_value": 59.99, "currency": "$"}},
    {"link": "https://a.example/2", "source": "ShopB",
     "in_stock": true, "price": {"extracted_value": 10, "currency": "$"}},
    {"title": "No Price Shoe", "link": "https://a.example/3", "source": "ShopC",
     "in_stock": true, "price": {"currency": "$"}},
    {"title": "Sold Out Shoe", "link": "https://a.example/4", "source": "ShopD",
     "in_stock": false, "price": {"extracted_value": 20, "currency": "$"}},
    {"title": "Blue Sneaker", "link": "https://a.example/5", "source": "ShopE",
     "in_stock": true, "price": {"extracted_value": 79.5, "currency": "$"}}
  ]
}`

func TestSearchByImageFiltersAndPersists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("engine"); got != "google_lens" {
			t.Errorf("engine = %q, want google_lens", got)
		}
		if got := r.URL.Query().Get("url"); got != "https://cdn.example/mask.png" {
			t.Errorf("url = %q", got)
		}
		w.Write([]byte(lensBody))
	}))
	defer srv.Close()

	items := &fakeItems{}
	a := testAdapter(t, srv.URL, items)
	got, err := a.SearchByImage(context.Background(), "click1", "https://cdn.example/mask.png", 3, 25)
	if err != nil {
		t.Fatalf("SearchByImage: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("accepted %d items, want 2", len(got))
	}
	if got[0].Title != "Red Sneaker" || got[1].Title != "Blue Sneaker" {
		t.Fatalf("unexpected titles: %q, %q", got[0].Title, got[1].Title)
	}
	for _, item := range got {
		if item.Version != 3 {
			t.Errorf("item version = %d, want 3", item.Version)
		}
		if !item.InStock {
			t.Errorf("accepted item not in stock: %q", item.Title)
		}
	}
	if len(items.created) != 2 {
		t.Fatalf("persisted %d items, want 2", len(items.created))
	}
	if got[0].SourceIcon == nil || *got[0].SourceIcon == "" {
		t.Errorf("expected source icon to survive")
	}
}

func TestSearchByImageLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(lensBody))
	}))
	defer srv.Close()

	items := &fakeItems{}
	a := testAdapter(t, srv.URL, items)
	got, err := a.SearchByImage(context.Background(), "click1", "u", 1, 1)
	if err != nil {
		t.Fatalf("SearchByImage: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("accepted %d items, want 1", len(got))
	}
}

func TestSearchByImageProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := testAdapter(t, srv.URL, &fakeItems{})
	if _, err := a.SearchByImage(context.Background(), "click1", "u", 1, 25); err == nil {
		t.Fatalf("expected an error for a failed provider call")
	}
}

func TestSearchByImageZeroMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	a := testAdapter(t, srv.URL, &fakeItems{})
	got, err := a.SearchByImage(context.Background(), "click1", "u", 1, 25)
	if err != nil {
		t.Fatalf("zero matches must not be an error, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %d", len(got))
	}
}

func TestSearchByTextShoppingConventions(t *testing.T) {
	body := `{
	  "shopping_results": [
	    {"title": "Blue Shirt", "product_link": "https://b.example/1", "source": "ShopX",
	     "extracted_price": 25.0, "thumbnail": "https://b.example/t.png"},
	    {"title": "Missing Link Shirt", "source": "ShopY", "extracted_price": 30.0},
	    {"title": "No Price Shirt", "product_link": "https://b.example/3", "source": "ShopZ"}
	  ]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("engine"); got != "google_shopping" {
			t.Errorf("engine = %q, want google_shopping", got)
		}
		if got := r.URL.Query().Get("q"); got != "blue shirt" {
			t.Errorf("q = %q, want %q", got, "blue shirt")
		}
		w.Write([]byte(body))
	}))
	defer srv.Close()

	items := &fakeItems{}
	a := testAdapter(t, srv.URL, items)
	got, err := a.SearchByText(context.Background(), "click1", "blue shirt", 2, 25)
	if err != nil {
		t.Fatalf("SearchByText: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("accepted %d items, want 1", len(got))
	}
	item := got[0]
	if !item.InStock {
		t.Errorf("shopping results are in stock by convention")
	}
	if item.PriceCurrency != "$" {
		t.Errorf("currency = %q, want $", item.PriceCurrency)
	}
	if item.Version != 2 {
		t.Errorf("version = %d, want 2", item.Version)
	}
}

func TestSearchStoreFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(lensBody))
	}))
	defer srv.Close()

	a := testAdapter(t, srv.URL, &fakeItems{fail: true})
	if _, err := a.SearchByImage(context.Background(), "click1", "u", 1, 25); err == nil {
		t.Fatalf("expected persistence failure to surface")
	}
}
