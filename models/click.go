package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Click represents one user tap or box selection on an image, together with
// everything the processing pipeline derives from it. The version field
// partitions the description/result lineage: it starts at 1 and is bumped
// exactly once per accepted chat edit.
type Click struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"click_id"`
	ImageURL    *string            `bson:"image_url,omitempty" json:"image_url,omitempty"`
	ImageSize   []int              `bson:"image_size,omitempty" json:"image_size,omitempty"`
	Click       []int              `bson:"click,omitempty" json:"click,omitempty"`
	Selection   []int              `bson:"selection,omitempty" json:"selection,omitempty"`
	UserID      *string            `bson:"user_id,omitempty" json:"user_id,omitempty"`
	MaskedURL   *string            `bson:"masked_url,omitempty" json:"masked_url,omitempty"`
	MaskedSize  []int              `bson:"masked_size,omitempty" json:"masked_size,omitempty"`
	BBox        []int              `bson:"bbox,omitempty" json:"bbox,omitempty"`
	Segm        [][]int            `bson:"segm,omitempty" json:"segm,omitempty"`
	Description *string            `bson:"description,omitempty" json:"description,omitempty"`
	Channel     *string            `bson:"channel,omitempty" json:"channel,omitempty"`
	Version     int                `bson:"version" json:"version"`
	IsProcessed bool               `bson:"is_processed" json:"is_processed"`
	CreatedAt   int64              `bson:"created_at" json:"created_at"`
	UpdatedAt   int64              `bson:"updated_at" json:"updated_at"`
}

// HasSpatialInput reports whether exactly one of click/selection is set.
func (c *Click) HasSpatialInput() bool {
	return (len(c.Click) == 2) != (len(c.Selection) == 4)
}
