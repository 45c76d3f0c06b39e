package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat is an immutable audit record of one description edit. Version is the
// Click version before the edit was applied.
type Chat struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"chat_id"`
	ClickID         string             `bson:"click_id" json:"click_id"`
	Text            string             `bson:"text" json:"text"`
	PreDescription  string             `bson:"pre_description" json:"pre_description"`
	PostDescription string             `bson:"post_description" json:"post_description"`
	Version         int                `bson:"version" json:"version"`
	CreatedAt       int64              `bson:"created_at" json:"created_at"`
	UpdatedAt       int64              `bson:"updated_at" json:"updated_at"`
}
