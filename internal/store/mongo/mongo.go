// Package mongo stores tenant documents in a MongoDB collection, one
// document per tenant keyed by the tenant id.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/keshon/orcabot/internal/store"
)

const collectionName = "tenants"

// Config contains configuration for the MongoDB connection.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	PingTimeout    time.Duration
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		URI:            "mongodb://localhost:27017",
		Database:       "orcabot",
		ConnectTimeout: 10 * time.Second,
		PingTimeout:    5 * time.Second,
	}
}

// tenantRecord is the stored shape. Document holds the tenant document
// converted from its JSON form so it stays queryable in the shell.
type tenantRecord struct {
	ID        string    `bson:"_id"`
	Document  bson.Raw  `bson:"document"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Repository implements store.Repository on MongoDB.
type Repository struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, cfg *Config, logger *zap.Logger) (*Repository, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB", zap.String("database", cfg.Database))
	return &Repository{
		client:     client,
		collection: client.Database(cfg.Database).Collection(collectionName),
		logger:     logger,
	}, nil
}

func (r *Repository) Load(ctx context.Context, tenantID uint64) (*store.Document, error) {
	var rec tenantRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": strconv.FormatUint(tenantID, 10)}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tenant %d: %w", tenantID, err)
	}
	doc, skipped, err := fromBSON(rec.Document)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		r.logger.Warn("dropped invalid entries", zap.Uint64("tenant", tenantID), zap.Int("skipped", skipped))
	}
	return doc, nil
}

func (r *Repository) Save(ctx context.Context, tenantID uint64, doc *store.Document) error {
	raw, err := toBSON(doc)
	if err != nil {
		return err
	}
	id := strconv.FormatUint(tenantID, 10)
	rec := tenantRecord{ID: id, Document: raw, UpdatedAt: time.Now().UTC()}
	_, err = r.collection.ReplaceOne(ctx, bson.M{"_id": id}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save tenant %d: %w", tenantID, err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (r *Repository) Close() error {
	if r.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// toBSON converts the JSON form of doc, which keeps the persisted field
// names and the macro template fields, into a BSON document.
func toBSON(doc *store.Document) (bson.Raw, error) {
	data, err := store.EncodeDocument(doc)
	if err != nil {
		return nil, err
	}
	var d bson.D
	if err := bson.UnmarshalExtJSON(data, false, &d); err != nil {
		return nil, fmt.Errorf("convert document: %w", err)
	}
	raw, err := bson.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("convert document: %w", err)
	}
	return raw, nil
}

func fromBSON(raw bson.Raw) (*store.Document, int, error) {
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, 0, fmt.Errorf("convert document: %w", err)
	}
	return store.DecodeDocument(data)
}
