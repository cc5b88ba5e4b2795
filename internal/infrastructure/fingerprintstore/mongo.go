package fingerprintstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"multichain_wallet/internal/app/port"
)

type fingerprintDoc struct {
	Fingerprint string    `bson:"fingerprint"`
	CreatedAt   time.Time `bson:"created_at"`
}

// MongoStore keeps fingerprints in a MongoDB collection with a unique index.
type MongoStore struct {
	client *mongo.Client
	col    *mongo.Collection
}

var _ port.FingerprintStore = (*MongoStore)(nil)

// NewMongoStore connects to uri, pings the server and ensures the unique index.
func NewMongoStore(ctx context.Context, uri, dbName, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	col := client.Database(dbName).Collection(collection)
	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "fingerprint", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create fingerprint index: %w", err)
	}
	return &MongoStore{client: client, col: col}, nil
}

func (s *MongoStore) List(ctx context.Context) ([]string, error) {
	cur, err := s.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"created_at": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []string
	for cur.Next(ctx) {
		var d fingerprintDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.Fingerprint)
	}
	return out, cur.Err()
}

// Add upserts so that repeated registration keeps the first timestamp.
func (s *MongoStore) Add(ctx context.Context, fingerprint string) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"fingerprint": fingerprint},
		bson.M{"$setOnInsert": fingerprintDoc{Fingerprint: fingerprint, CreatedAt: time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
