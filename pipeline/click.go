package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"github.com/seeclickbuy/backend/geometry"
	"github.com/seeclickbuy/backend/imaging"
	"github.com/seeclickbuy/backend/logger"
	"github.com/seeclickbuy/backend/models"
	"github.com/seeclickbuy/backend/segment"
	"github.com/seeclickbuy/backend/store"
)

// clickRun carries the state threaded through the click saga's steps.
type clickRun struct {
	o           *Orchestrator
	log         *logger.Logger
	clickID     string
	base64Image string

	click       *models.Click
	version     int
	img         *image.NRGBA
	imageURL    string
	mask        *geometry.Mask
	box         geometry.BBox
	polygons    [][]int
	maskedURL   string
	maskedSize  []int
	items       []models.Item
	description *string
}

// ProcessClick runs the full click saga: fetch, validate, decode, upload the
// source image, segment, derive geometry, upload the cutout, search, describe
// and persist. Segmentation and image-search failures are fatal and leave the
// Click unprocessed; description failure only degrades the result.
func (o *Orchestrator) ProcessClick(ctx context.Context, clickID, base64Image string) error {
	run := &clickRun{
		o:           o,
		log:         o.log.With("job", "click", "click_id", clickID),
		clickID:     clickID,
		base64Image: base64Image,
	}
	run.log.Info("click job received")
	start := time.Now()
	err := runSteps(ctx, run.log, []step{
		{"fetch", run.fetch},
		{"decode", run.decode},
		{"upload_image", run.uploadImage},
		{"segment", run.segment},
		{"geometrize", run.geometrize},
		{"upload_cutout", run.uploadCutout},
		{"search", run.search},
		{"describe", run.describe},
		{"persist", run.persist},
	})
	if err != nil {
		return err
	}
	run.log.Info("click job complete", "items", len(run.items), "elapsed", time.Since(start))
	return nil
}

func (r *clickRun) fetch(ctx context.Context) stepResult {
	click, err := r.o.store.GetClick(ctx, r.clickID)
	if err != nil {
		return fatal(err)
	}
	if !click.HasSpatialInput() {
		return fatal(fmt.Errorf("click %s must have exactly one of click or selection", r.clickID))
	}
	r.click = click
	r.version = click.Version
	return ok()
}

func (r *clickRun) decode(ctx context.Context) stepResult {
	img, err := imaging.DecodeBase64(r.base64Image)
	if err != nil {
		return fatal(err)
	}
	r.img = img
	return ok()
}

func (r *clickRun) uploadImage(ctx context.Context) stepResult {
	encoded, err := imaging.EncodePNG(r.img)
	if err != nil {
		return fatal(err)
	}
	url, err := r.o.uploader.Upload(ctx, fmt.Sprintf("images/%s.png", r.clickID),
		bytes.NewReader(encoded), "image/png")
	if err != nil {
		return fatal(err)
	}
	r.imageURL = url
	return ok()
}

func (r *clickRun) segment(ctx context.Context) stepResult {
	var (
		mask *geometry.Mask
		err  error
	)
	if len(r.click.Selection) == 4 {
		s := r.click.Selection
		mask, err = r.o.segmenter.SegmentBox(ctx, r.img, segment.Box{
			X1: s[0], Y1: s[1], X2: s[2], Y2: s[3],
		})
	} else {
		c := r.click.Click
		mask, err = r.o.segmenter.SegmentPoint(ctx, r.img, segment.Point{X: c[0], Y: c[1]})
	}
	if err != nil {
		return fatal(err)
	}
	r.mask = mask
	return ok()
}

func (r *clickRun) geometrize(ctx context.Context) stepResult {
	box, found := geometry.MaskToBBox(r.mask)
	if !found {
		return fatal(fmt.Errorf("no object found for click %s", r.clickID))
	}
	r.box = box
	r.polygons = geometry.MaskToPolygons(r.mask)
	return ok()
}

func (r *clickRun) uploadCutout(ctx context.Context) stepResult {
	cut := geometry.Cutout(r.img, r.mask, r.box)
	encoded, err := imaging.EncodePNG(cut)
	if err != nil {
		return fatal(err)
	}
	url, err := r.o.uploader.Upload(ctx, fmt.Sprintf("masks/%s.png", r.clickID),
		bytes.NewReader(encoded), "image/png")
	if err != nil {
		return fatal(err)
	}
	r.maskedURL = url
	r.maskedSize = []int{r.box.Dx(), r.box.Dy()}
	return ok()
}

// search is fatal on a provider failure: a click with no way to produce
// candidates is a failed pipeline, unlike the chat re-search. Redelivered
// jobs skip the search when items for this click+version already exist, so
// at-least-once delivery does not append duplicate result sets.
func (r *clickRun) search(ctx context.Context) stepResult {
	count, err := r.o.store.CountItems(ctx, r.clickID, r.version)
	if err != nil {
		return fatal(err)
	}
	if count > 0 {
		r.log.Info("items already present, skipping search", "count", count)
		items, err := r.o.store.ItemsForClick(ctx, r.clickID, r.version, searchLimit)
		if err != nil {
			return fatal(err)
		}
		r.items = items
		return ok()
	}
	items, err := r.o.searcher.SearchByImage(ctx, r.clickID, r.maskedURL, r.version, searchLimit)
	if err != nil {
		return fatal(err)
	}
	r.log.Info("items found", "count", len(items))
	r.items = items
	return ok()
}

func (r *clickRun) describe(ctx context.Context) stepResult {
	titles := make([]string, 0, len(r.items))
	for _, item := range r.items {
		titles = append(titles, item.Title)
	}
	if len(titles) == 0 {
		return degraded(fmt.Errorf("no item titles to summarize"))
	}
	description, err := r.o.describer.Summarize(ctx, titles)
	if err != nil {
		return degraded(err)
	}
	r.description = &description
	return ok()
}

// persist is conditional on the version read at fetch: if a chat edit bumped
// the version mid-flight, the update reports a conflict instead of clobbering
// the newer description.
func (r *clickRun) persist(ctx context.Context) stepResult {
	bounds := r.img.Bounds()
	_, err := r.o.store.UpdateClickResults(ctx, r.clickID, r.version, store.ClickResults{
		ImageURL:    r.imageURL,
		ImageSize:   []int{bounds.Dx(), bounds.Dy()},
		BBox:        r.box.Slice(),
		Segm:        r.polygons,
		MaskedURL:   r.maskedURL,
		MaskedSize:  r.maskedSize,
		Description: r.description,
	})
	if err != nil {
		return fatal(err)
	}
	return ok()
}
