package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
	"io"
	"strings"
	"testing"

	"github.com/seeclickbuy/backend/geometry"
	"github.com/seeclickbuy/backend/imaging"
	"github.com/seeclickbuy/backend/logger"
	"github.com/seeclickbuy/backend/models"
	"github.com/seeclickbuy/backend/segment"
	"github.com/seeclickbuy/backend/store"
	"github.com/seeclickbuy/backend/store/storetest"
)

type fakeUploader struct {
	keys []string
	fail bool
}

func (f *fakeUploader) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if f.fail {
		return "", errors.New("storage down")
	}
	f.keys = append(f.keys, key)
	return "https://cdn.test/" + key, nil
}

type fakeSegmenter struct {
	mask      *geometry.Mask
	err       error
	lastPoint *segment.Point
	lastBox   *segment.Box
}

func (f *fakeSegmenter) SegmentPoint(ctx context.Context, img image.Image, p segment.Point) (*geometry.Mask, error) {
	f.lastPoint = &p
	return f.mask, f.err
}

func (f *fakeSegmenter) SegmentBox(ctx context.Context, img image.Image, b segment.Box) (*geometry.Mask, error) {
	f.lastBox = &b
	return f.mask, f.err
}

type fakeSearcher struct {
	mem        *storetest.Memory
	titles     []string
	err        error
	imageCalls int
	textCalls  int
	lastURL    string
	lastQuery  string
	onSearch   func(ctx context.Context)
}

func (f *fakeSearcher) persist(ctx context.Context, clickID string, version int) []models.Item {
	items := make([]models.Item, 0, len(f.titles))
	for _, title := range f.titles {
		item := models.Item{
			ClickID:       clickID,
			Title:         title,
			Link:          "https://shop.test/" + title,
			Source:        "shop",
			PriceValue:    10,
			PriceCurrency: "$",
			InStock:       true,
			Version:       version,
		}
		_ = f.mem.CreateItem(ctx, &item)
		items = append(items, item)
	}
	return items
}

func (f *fakeSearcher) SearchByImage(ctx context.Context, clickID, imageURL string, version, limit int) ([]models.Item, error) {
	f.imageCalls++
	f.lastURL = imageURL
	if f.onSearch != nil {
		f.onSearch(ctx)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.persist(ctx, clickID, version), nil
}

func (f *fakeSearcher) SearchByText(ctx context.Context, clickID, query string, version, limit int) ([]models.Item, error) {
	f.textCalls++
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.persist(ctx, clickID, version), nil
}

type fakeDescriber struct {
	out    string
	err    error
	titles []string
}

func (f *fakeDescriber) Summarize(ctx context.Context, titles []string) (string, error) {
	f.titles = titles
	return f.out, f.err
}

func encodeTestImage(t *testing.T, w, h int) string {
	t.Helper()
	raw, err := imaging.EncodePNG(image.NewNRGBA(image.Rect(0, 0, w, h)))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func testMask(w, h, x1, y1, x2, y2 int) *geometry.Mask {
	m := geometry.NewMask(w, h)
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			m.Set(x, y)
		}
	}
	return m
}

type fixture struct {
	mem       *storetest.Memory
	uploader  *fakeUploader
	segmenter *fakeSegmenter
	searcher  *fakeSearcher
	describer *fakeDescriber
	orch      *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	mem := storetest.NewMemory()
	f := &fixture{
		mem:       mem,
		uploader:  &fakeUploader{},
		segmenter: &fakeSegmenter{},
		searcher:  &fakeSearcher{mem: mem, titles: []string{"Red Sneaker", "Crimson Shoe"}},
		describer: &fakeDescriber{out: "red sneaker"},
	}
	f.orch = NewOrchestrator(mem, f.uploader, f.segmenter, f.searcher, f.describer, log)
	return f
}

func TestClickJobHappyPath(t *testing.T) {
	f := newFixture(t)
	clickID := f.mem.SeedClick(&models.Click{Click: []int{100, 150}})
	f.segmenter.mask = testMask(400, 300, 80, 40, 120, 60)

	if err := f.orch.ProcessClick(context.Background(), clickID, encodeTestImage(t, 400, 300)); err != nil {
		t.Fatalf("ProcessClick: %v", err)
	}

	click, err := f.mem.GetClick(context.Background(), clickID)
	if err != nil {
		t.Fatalf("GetClick: %v", err)
	}
	if !click.IsProcessed {
		t.Errorf("is_processed = false, want true")
	}
	wantBBox := []int{80, 40, 121, 61}
	for i, v := range wantBBox {
		if click.BBox[i] != v {
			t.Fatalf("bbox = %v, want %v", click.BBox, wantBBox)
		}
	}
	if len(click.Segm) != 1 {
		t.Errorf("segm has %d contours, want 1", len(click.Segm))
	}
	if click.ImageSize[0] != 400 || click.ImageSize[1] != 300 {
		t.Errorf("image_size = %v", click.ImageSize)
	}
	if click.MaskedSize[0] != 41 || click.MaskedSize[1] != 21 {
		t.Errorf("masked_size = %v, want [41 21]", click.MaskedSize)
	}
	if click.Description == nil || *click.Description != "red sneaker" {
		t.Errorf("description = %v", click.Description)
	}
	if f.segmenter.lastPoint == nil || f.segmenter.lastPoint.X != 100 || f.segmenter.lastPoint.Y != 150 {
		t.Errorf("segmenter prompt = %+v", f.segmenter.lastPoint)
	}
	if len(f.uploader.keys) != 2 ||
		!strings.HasPrefix(f.uploader.keys[0], "images/") ||
		!strings.HasPrefix(f.uploader.keys[1], "masks/") {
		t.Errorf("uploaded keys = %v", f.uploader.keys)
	}
	items, _ := f.mem.ItemsForClick(context.Background(), clickID, 1, 50)
	if len(items) != 2 {
		t.Errorf("items at version 1 = %d, want 2", len(items))
	}
	if f.searcher.lastURL != "https://cdn.test/masks/"+clickID+".png" {
		t.Errorf("search used url %q", f.searcher.lastURL)
	}
	if len(f.describer.titles) != 2 || f.describer.titles[0] != "Red Sneaker" {
		t.Errorf("describer got titles %v", f.describer.titles)
	}
}

func TestClickJobUsesBoxWhenSelectionSet(t *testing.T) {
	f := newFixture(t)
	clickID := f.mem.SeedClick(&models.Click{Selection: []int{10, 10, 50, 50}})
	f.segmenter.mask = testMask(100, 100, 12, 12, 40, 40)

	if err := f.orch.ProcessClick(context.Background(), clickID, encodeTestImage(t, 100, 100)); err != nil {
		t.Fatalf("ProcessClick: %v", err)
	}
	if f.segmenter.lastBox == nil || f.segmenter.lastBox.X2 != 50 {
		t.Fatalf("segmenter box prompt = %+v", f.segmenter.lastBox)
	}
	if f.segmenter.lastPoint != nil {
		t.Fatalf("point prompt used despite selection")
	}
}

func TestClickJobMissingClick(t *testing.T) {
	f := newFixture(t)
	err := f.orch.ProcessClick(context.Background(), "aaaaaaaaaaaaaaaaaaaaaaaa", encodeTestImage(t, 10, 10))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestClickJobRejectsAmbiguousSpatialInput(t *testing.T) {
	f := newFixture(t)
	clickID := f.mem.SeedClick(&models.Click{
		Click:     []int{1, 2},
		Selection: []int{1, 2, 3, 4},
	})
	if err := f.orch.ProcessClick(context.Background(), clickID, encodeTestImage(t, 10, 10)); err == nil {
		t.Fatalf("expected failure for click with both spatial inputs")
	}
}

func TestClickJobEmptyMaskAborts(t *testing.T) {
	f := newFixture(t)
	clickID := f.mem.SeedClick(&models.Click{Click: []int{5, 5}})
	f.segmenter.mask = geometry.NewMask(400, 300)

	err := f.orch.ProcessClick(context.Background(), clickID, encodeTestImage(t, 400, 300))
	if err == nil {
		t.Fatalf("expected failure for an all-zero mask")
	}
	click, _ := f.mem.GetClick(context.Background(), clickID)
	if click.IsProcessed {
		t.Errorf("click became processed despite abort")
	}
	if count, _ := f.mem.CountItems(context.Background(), clickID, 1); count != 0 {
		t.Errorf("items were created despite abort: %d", count)
	}
	for _, key := range f.uploader.keys {
		if strings.HasPrefix(key, "masks/") {
			t.Errorf("cutout was uploaded despite abort: %v", f.uploader.keys)
		}
	}
}

func TestClickJobSegmenterErrorAborts(t *testing.T) {
	f := newFixture(t)
	clickID := f.mem.SeedClick(&models.Click{Click: []int{5, 5}})
	f.segmenter.err = segment.ErrNoMask

	if err := f.orch.ProcessClick(context.Background(), clickID, encodeTestImage(t, 40, 40)); err == nil {
		t.Fatalf("expected segmenter failure to abort the job")
	}
}

func TestClickJobSearchFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	clickID := f.mem.SeedClick(&models.Click{Click: []int{5, 5}})
	f.segmenter.mask = testMask(40, 40, 5, 5, 10, 10)
	f.searcher.err = errors.New("provider down")

	err := f.orch.ProcessClick(context.Background(), clickID, encodeTestImage(t, 40, 40))
	if err == nil {
		t.Fatalf("expected provider failure to be fatal")
	}
	click, _ := f.mem.GetClick(context.Background(), clickID)
	if click.IsProcessed {
		t.Errorf("click became processed despite search failure")
	}
}

func TestClickJobZeroResultsStillSucceeds(t *testing.T) {
	f := newFixture(t)
	clickID := f.mem.SeedClick(&models.Click{Click: []int{5, 5}})
	f.segmenter.mask = testMask(40, 40, 5, 5, 10, 10)
	f.searcher.titles = nil

	if err := f.orch.ProcessClick(context.Background(), clickID, encodeTestImage(t, 40, 40)); err != nil {
		t.Fatalf("an empty result list must not fail the job: %v", err)
	}
	click, _ := f.mem.GetClick(context.Background(), clickID)
	if !click.IsProcessed {
		t.Errorf("click not processed")
	}
	if click.Description != nil {
		t.Errorf("description should be absent with no titles, got %q", *click.Description)
	}
}

func TestClickJobDescribeFailureDegrades(t *testing.T) {
	f := newFixture(t)
	clickID := f.mem.SeedClick(&models.Click{Click: []int{5, 5}})
	f.segmenter.mask = testMask(40, 40, 5, 5, 10, 10)
	f.describer.err = errors.New("llm down")

	if err := f.orch.ProcessClick(context.Background(), clickID, encodeTestImage(t, 40, 40)); err != nil {
		t.Fatalf("describe failure must not abort: %v", err)
	}
	click, _ := f.mem.GetClick(context.Background(), clickID)
	if !click.IsProcessed {
		t.Errorf("click not processed")
	}
	if click.Description != nil {
		t.Errorf("description = %q, want none", *click.Description)
	}
}

func TestClickJobRedeliverySkipsSearch(t *testing.T) {
	f := newFixture(t)
	clickID := f.mem.SeedClick(&models.Click{Click: []int{5, 5}})
	f.segmenter.mask = testMask(40, 40, 5, 5, 10, 10)

	img := encodeTestImage(t, 40, 40)
	if err := f.orch.ProcessClick(context.Background(), clickID, img); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := f.orch.ProcessClick(context.Background(), clickID, img); err != nil {
		t.Fatalf("redelivered run: %v", err)
	}
	if f.searcher.imageCalls != 1 {
		t.Errorf("search ran %d times across redelivery, want 1", f.searcher.imageCalls)
	}
	if count, _ := f.mem.CountItems(context.Background(), clickID, 1); count != 2 {
		t.Errorf("items = %d, want 2 (no duplicate set)", count)
	}
}

func TestClickJobLosesVersionRace(t *testing.T) {
	f := newFixture(t)
	clickID := f.mem.SeedClick(&models.Click{Click: []int{5, 5}})
	f.segmenter.mask = testMask(40, 40, 5, 5, 10, 10)
	// A chat edit bumps the version while the job is mid-flight.
	f.searcher.onSearch = func(ctx context.Context) {
		if _, err := f.mem.BumpClickDescription(ctx, clickID, "edited elsewhere"); err != nil {
			t.Fatalf("bump: %v", err)
		}
	}

	err := f.orch.ProcessClick(context.Background(), clickID, encodeTestImage(t, 40, 40))
	if !errors.Is(err, store.ErrVersionConflict) {
		t.Fatalf("err = %v, want version conflict", err)
	}
	click, _ := f.mem.GetClick(context.Background(), clickID)
	if click.Description == nil || *click.Description != "edited elsewhere" {
		t.Errorf("newer description was clobbered: %v", click.Description)
	}
}

func TestChatJobSearchesTrimmedDescription(t *testing.T) {
	f := newFixture(t)
	desc := "  blue sneaker  "
	clickID := f.mem.SeedClick(&models.Click{
		Click:       []int{1, 1},
		Description: &desc,
		Version:     4,
		IsProcessed: false,
	})

	if err := f.orch.ProcessChat(context.Background(), clickID); err != nil {
		t.Fatalf("ProcessChat: %v", err)
	}
	if f.searcher.lastQuery != "blue sneaker" {
		t.Errorf("query = %q, want trimmed description", f.searcher.lastQuery)
	}
	click, _ := f.mem.GetClick(context.Background(), clickID)
	if !click.IsProcessed {
		t.Errorf("click not processed after chat job")
	}
	items, _ := f.mem.ItemsForClick(context.Background(), clickID, 4, 50)
	if len(items) != 2 {
		t.Errorf("items at version 4 = %d, want 2", len(items))
	}
}

func TestChatJobProviderFailureLeavesProcessedAlone(t *testing.T) {
	f := newFixture(t)
	desc := "blue sneaker"
	clickID := f.mem.SeedClick(&models.Click{
		Click:       []int{1, 1},
		Description: &desc,
		Version:     2,
		IsProcessed: false,
	})
	f.searcher.err = errors.New("provider down")

	if err := f.orch.ProcessChat(context.Background(), clickID); err == nil {
		t.Fatalf("expected chat job to report failure")
	}
	click, _ := f.mem.GetClick(context.Background(), clickID)
	if click.IsProcessed {
		t.Errorf("is_processed flipped to true on the failure path")
	}
}

func TestChatJobRequiresDescription(t *testing.T) {
	f := newFixture(t)
	clickID := f.mem.SeedClick(&models.Click{Click: []int{1, 1}})
	if err := f.orch.ProcessChat(context.Background(), clickID); err == nil {
		t.Fatalf("expected failure for a click without a description")
	}
	if f.searcher.textCalls != 0 {
		t.Errorf("search ran despite missing description")
	}
}
