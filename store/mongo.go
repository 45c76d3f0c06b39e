package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/seeclickbuy/backend/models"
)

const (
	clicksCollection = "Clicks"
	chatsCollection  = "Chats"
	itemsCollection  = "Items"
)

// Mongo implements Store on top of a MongoDB database.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB and pings it before returning a Store.
func Connect(ctx context.Context, uri, dbName string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &Mongo{client: client, db: client.Database(dbName)}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) collection(name string) *mongo.Collection {
	return m.db.Collection(name)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: bad id %q", ErrNotFound, id)
	}
	return oid, nil
}

func (m *Mongo) CreateClick(ctx context.Context, click *models.Click) error {
	now := time.Now().Unix()
	click.ID = primitive.NewObjectID()
	click.Version = 1
	click.IsProcessed = false
	click.CreatedAt = now
	click.UpdatedAt = now
	_, err := m.collection(clicksCollection).InsertOne(ctx, click)
	if err != nil {
		return fmt.Errorf("failed to insert click: %w", err)
	}
	return nil
}

func (m *Mongo) GetClick(ctx context.Context, clickID string) (*models.Click, error) {
	oid, err := objectID(clickID)
	if err != nil {
		return nil, err
	}
	var click models.Click
	err = m.collection(clicksCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&click)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: click %s", ErrNotFound, clickID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch click %s: %w", clickID, err)
	}
	return &click, nil
}

func (m *Mongo) UpdateClickResults(ctx context.Context, clickID string, expectedVersion int, results ClickResults) (*models.Click, error) {
	oid, err := objectID(clickID)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$set": bson.M{
		"image_url":    results.ImageURL,
		"image_size":   results.ImageSize,
		"bbox":         results.BBox,
		"segm":         results.Segm,
		"masked_url":   results.MaskedURL,
		"masked_size":  results.MaskedSize,
		"description":  results.Description,
		"is_processed": true,
		"updated_at":   time.Now().Unix(),
	}}
	res, err := m.collection(clicksCollection).UpdateOne(ctx,
		bson.M{"_id": oid, "version": expectedVersion}, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update click %s: %w", clickID, err)
	}
	if res.MatchedCount == 0 {
		// Distinguish a missing document from a lost version race.
		if _, err := m.GetClick(ctx, clickID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: click %s expected version %d", ErrVersionConflict, clickID, expectedVersion)
	}
	return m.GetClick(ctx, clickID)
}

func (m *Mongo) BumpClickDescription(ctx context.Context, clickID string, description string) (*models.Click, error) {
	oid, err := objectID(clickID)
	if err != nil {
		return nil, err
	}
	update := bson.M{
		"$set": bson.M{"description": description, "updated_at": time.Now().Unix()},
		"$inc": bson.M{"version": 1},
	}
	res, err := m.collection(clicksCollection).UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return nil, fmt.Errorf("failed to bump click %s: %w", clickID, err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: click %s", ErrNotFound, clickID)
	}
	return m.GetClick(ctx, clickID)
}

func (m *Mongo) SetClickProcessed(ctx context.Context, clickID string, processed bool) (*models.Click, error) {
	oid, err := objectID(clickID)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$set": bson.M{"is_processed": processed, "updated_at": time.Now().Unix()}}
	res, err := m.collection(clicksCollection).UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update click %s: %w", clickID, err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: click %s", ErrNotFound, clickID)
	}
	return m.GetClick(ctx, clickID)
}

func (m *Mongo) RecentClicksByUser(ctx context.Context, userID string, limit int) ([]models.Click, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := m.collection(clicksCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query clicks for user %s: %w", userID, err)
	}
	var clicks []models.Click
	if err := cursor.All(ctx, &clicks); err != nil {
		return nil, fmt.Errorf("failed to decode clicks: %w", err)
	}
	return clicks, nil
}

func (m *Mongo) CreateChat(ctx context.Context, chat *models.Chat) error {
	now := time.Now().Unix()
	chat.ID = primitive.NewObjectID()
	chat.CreatedAt = now
	chat.UpdatedAt = now
	if _, err := m.collection(chatsCollection).InsertOne(ctx, chat); err != nil {
		return fmt.Errorf("failed to insert chat: %w", err)
	}
	return nil
}

func (m *Mongo) ChatsForClick(ctx context.Context, clickID string, limit int) ([]models.Chat, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := m.collection(chatsCollection).Find(ctx, bson.M{"click_id": clickID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats for click %s: %w", clickID, err)
	}
	var chats []models.Chat
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, fmt.Errorf("failed to decode chats: %w", err)
	}
	return chats, nil
}

func (m *Mongo) CreateItem(ctx context.Context, item *models.Item) error {
	now := time.Now().Unix()
	item.ID = primitive.NewObjectID()
	item.CreatedAt = now
	item.UpdatedAt = now
	if _, err := m.collection(itemsCollection).InsertOne(ctx, item); err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

func (m *Mongo) GetItem(ctx context.Context, itemID string) (*models.Item, error) {
	oid, err := objectID(itemID)
	if err != nil {
		return nil, err
	}
	var item models.Item
	err = m.collection(itemsCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch item %s: %w", itemID, err)
	}
	return &item, nil
}

func (m *Mongo) SetItemFavorite(ctx context.Context, itemID string, favorite bool) (*models.Item, error) {
	oid, err := objectID(itemID)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$set": bson.M{"is_favorite": favorite, "updated_at": time.Now().Unix()}}
	res, err := m.collection(itemsCollection).UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update item %s: %w", itemID, err)
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	return m.GetItem(ctx, itemID)
}

func (m *Mongo) ItemsForClick(ctx context.Context, clickID string, version int, limit int) ([]models.Item, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	filter := bson.M{"click_id": clickID, "version": version}
	cursor, err := m.collection(itemsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query items for click %s: %w", clickID, err)
	}
	var items []models.Item
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return items, nil
}

func (m *Mongo) FavoriteItemsForClick(ctx context.Context, clickID string, limit int) ([]models.Item, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	filter := bson.M{"click_id": clickID, "is_favorite": true}
	cursor, err := m.collection(itemsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites for click %s: %w", clickID, err)
	}
	var items []models.Item
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return items, nil
}

func (m *Mongo) CountItems(ctx context.Context, clickID string, version int) (int64, error) {
	count, err := m.collection(itemsCollection).CountDocuments(ctx,
		bson.M{"click_id": clickID, "version": version})
	if err != nil {
		return 0, fmt.Errorf("failed to count items for click %s: %w", clickID, err)
	}
	return count, nil
}
