package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/seeclickbuy/backend/clicks"
	"github.com/seeclickbuy/backend/logger"
	"github.com/seeclickbuy/backend/models"
	"github.com/seeclickbuy/backend/queue"
	"github.com/seeclickbuy/backend/store/storetest"
)

type fakeQueue struct{ jobs []queue.Job }

func (f *fakeQueue) Enqueue(ctx context.Context, job queue.Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeEditor struct{ out string }

func (f *fakeEditor) Edit(ctx context.Context, original, instruction string) (string, error) {
	return f.out, nil
}

type fakeSearcher struct{}

func (fakeSearcher) SearchByImage(ctx context.Context, clickID, imageURL string, version, limit int) ([]models.Item, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *storetest.Memory) {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	mem := storetest.NewMemory()
	svc := clicks.NewService(mem, &fakeQueue{}, &fakeEditor{out: "edited"}, fakeSearcher{}, log)
	mux := http.NewServeMux()
	NewHandler(svc, log).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, mem
}

func TestSubmitClickEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	body := `{"base64_image":"aGk=","click":[100,150]}`
	resp, err := http.Post(srv.URL+"/click", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /click: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var click models.Click
	if err := json.NewDecoder(resp.Body).Decode(&click); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if click.Version != 1 || click.IsProcessed {
		t.Errorf("click = %+v, want fresh version-1 unprocessed", click)
	}
}

func TestSubmitClickEndpointRejectsBadSpatialInput(t *testing.T) {
	srv, _ := newTestServer(t)
	body := `{"base64_image":"aGk=","click":[1,2],"selection":[1,2,3,4]}`
	resp, err := http.Post(srv.URL+"/click", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /click: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSubmitClickEndpointRejectsMalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/click", "application/json", bytes.NewReader([]byte("{")))
	if err != nil {
		t.Fatalf("POST /click: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChatEndpoint(t *testing.T) {
	srv, mem := newTestServer(t)
	desc := "red sneaker"
	clickID := mem.SeedClick(&models.Click{Click: []int{1, 1}, Description: &desc, Version: 2})

	body := `{"click_id":"` + clickID + `","text":"make it blue"}`
	resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /chat: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Click.Version != 3 {
		t.Errorf("version = %d, want 3", out.Click.Version)
	}
	if out.Chat.PreDescription != "red sneaker" || out.Chat.PostDescription != "edited" {
		t.Errorf("chat = %+v", out.Chat)
	}
}

func TestGetClickNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/click/aaaaaaaaaaaaaaaaaaaaaaaa")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestClickItemsReturnsEmptyArray(t *testing.T) {
	srv, mem := newTestServer(t)
	clickID := mem.SeedClick(&models.Click{Click: []int{1, 1}})

	resp, err := http.Get(srv.URL + "/click/" + clickID + "/items")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var raw bytes.Buffer
	raw.ReadFrom(resp.Body)
	if !strings.HasPrefix(strings.TrimSpace(raw.String()), "[") {
		t.Errorf("body = %q, want a JSON array", raw.String())
	}
}

func TestFavoriteEndpoints(t *testing.T) {
	srv, mem := newTestServer(t)
	item := models.Item{
		ClickID: "c1", Title: "t", Link: "l", Source: "s",
		PriceValue: 1, PriceCurrency: "$", InStock: true, Version: 1,
	}
	if err := mem.CreateItem(context.Background(), &item); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	resp, err := http.Post(srv.URL+"/item/"+item.ID.Hex()+"/favorite", "application/json", nil)
	if err != nil {
		t.Fatalf("POST favorite: %v", err)
	}
	defer resp.Body.Close()
	var got models.Item
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.IsFavorite {
		t.Errorf("is_favorite = false after favorite")
	}

	resp2, err := http.Post(srv.URL+"/item/"+item.ID.Hex()+"/unfavorite", "application/json", nil)
	if err != nil {
		t.Fatalf("POST unfavorite: %v", err)
	}
	defer resp2.Body.Close()
	if err := json.NewDecoder(resp2.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.IsFavorite {
		t.Errorf("is_favorite = true after unfavorite")
	}
}

func TestUserClicksEndpoint(t *testing.T) {
	srv, mem := newTestServer(t)
	user := "u1"
	mem.SeedClick(&models.Click{Click: []int{1, 1}, UserID: &user})
	mem.SeedClick(&models.Click{Click: []int{2, 2}, UserID: &user})
	other := "u2"
	mem.SeedClick(&models.Click{Click: []int{3, 3}, UserID: &other})

	resp, err := http.Get(srv.URL + "/user/u1/clicks")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var out []models.Click
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("clicks = %d, want 2", len(out))
	}
}
