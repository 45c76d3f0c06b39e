package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Item is one candidate product match. Items are append-only and tagged with
// the Click version under which they were found; only the favorite flag is
// ever mutated afterwards.
type Item struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"item_id"`
	ClickID       string             `bson:"click_id" json:"click_id"`
	Title         string             `bson:"title" json:"title"`
	Link          string             `bson:"link" json:"link"`
	Source        string             `bson:"source" json:"source"`
	SourceIcon    *string            `bson:"source_icon,omitempty" json:"source_icon,omitempty"`
	PriceValue    float64            `bson:"price_value" json:"price_value"`
	PriceCurrency string             `bson:"price_currency" json:"price_currency"`
	Thumbnail     *string            `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	InStock       bool               `bson:"in_stock" json:"in_stock"`
	IsFavorite    bool               `bson:"is_favorite" json:"is_favorite"`
	Version       int                `bson:"version" json:"version"`
	CreatedAt     int64              `bson:"created_at" json:"created_at"`
	UpdatedAt     int64              `bson:"updated_at" json:"updated_at"`
}
