package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/rocket_cart/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type snapshotDocument struct {
	Key       string    `bson:"_id"`
	Payload   string    `bson:"payload"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type MongoStorage struct {
	collection *mongo.Collection
	key        string
}

func NewMongoStorage(db *mongo.Database, key string) *MongoStorage {
	if key == "" {
		key = DefaultKey
	}
	return &MongoStorage{
		collection: db.Collection("cart_snapshots"),
		key:        key,
	}
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

func (m MongoStorage) Load(ctx context.Context) (domain.Cart, error) {
	var doc snapshotDocument

	err := m.collection.FindOne(ctx, bson.M{"_id": m.key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Cart{}, nil
		}
		return domain.Cart{}, fmt.Errorf("failed to get cart snapshot: %w", err)
	}

	return decode([]byte(doc.Payload))
}

func (m MongoStorage) Save(ctx context.Context, cart domain.Cart) error {
	data, err := encode(cart)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": m.key}
	update := bson.M{"$set": bson.M{
		"payload":    string(data),
		"updated_at": time.Now(),
	}}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart snapshot: %w", err)
	}
	return nil
}
