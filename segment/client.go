package segment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/seeclickbuy/backend/geometry"
	"github.com/seeclickbuy/backend/imaging"
)

// Client talks to a segmentation sidecar over HTTP. The sidecar accepts a
// base64 PNG plus a point or box prompt and answers with a base64 PNG binary
// mask of the same dimensions.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

type segmentRequest struct {
	Image string `json:"image"`
	Point []int  `json:"point,omitempty"`
	Box   []int  `json:"box,omitempty"`
}

type segmentResponse struct {
	Mask string `json:"mask"`
}

func (c *Client) SegmentPoint(ctx context.Context, img image.Image, p Point) (*geometry.Mask, error) {
	return c.segment(ctx, img, segmentRequest{Point: []int{p.X, p.Y}})
}

func (c *Client) SegmentBox(ctx context.Context, img image.Image, b Box) (*geometry.Mask, error) {
	return c.segment(ctx, img, segmentRequest{Box: []int{b.X1, b.Y1, b.X2, b.Y2}})
}

func (c *Client) segment(ctx context.Context, img image.Image, req segmentRequest) (*geometry.Mask, error) {
	encoded, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	req.Image = base64.StdEncoding.EncodeToString(encoded)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal segment request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/segment", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build segment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("segmenter request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("segmenter returned status %d", resp.StatusCode)
	}

	var body segmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode segmenter response: %w", err)
	}
	if body.Mask == "" {
		return nil, ErrNoMask
	}
	maskImg, err := imaging.DecodeBase64(body.Mask)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mask image: %w", err)
	}
	return imageToMask(maskImg), nil
}

func imageToMask(img image.Image) *geometry.Mask {
	bounds := img.Bounds()
	m := geometry.NewMask(bounds.Dx(), bounds.Dy())
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			if r|g|b != 0 {
				m.Set(x, y)
			}
		}
	}
	return m
}
