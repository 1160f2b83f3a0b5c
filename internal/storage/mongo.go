package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/njbuds/internal/types"
)

// KeyFunc maps a record to the identity string its document is stored under.
type KeyFunc func(types.Record) string

// mongoDoc is the stored shape: the record plus its identity key and the
// time it was last written.
type mongoDoc struct {
	Key       string       `bson:"_id"`
	Record    types.Record `bson:",inline"`
	UpdatedAt time.Time    `bson:"updated_at"`
}

// MongoSink mirrors record sets into a MongoDB collection, one document per
// identity key. Re-storing a set replaces documents in place.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	keyFn      KeyFunc
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoSink connects to uri and returns a sink for database.collection.
func NewMongoSink(ctx context.Context, uri, database, collection string, keyFn KeyFunc, logger *slog.Logger) (*MongoSink, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Path: uri, Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Path: uri, Err: fmt.Errorf("ping: %w", err)}
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
		keyFn:      keyFn,
		logger:     logger.With("component", "mongo_sink"),
	}, nil
}

func (s *MongoSink) Name() string { return "mongodb" }

func (s *MongoSink) Store(ctx context.Context, records []types.Record) error {
	models := upsertModels(records, s.keyFn, time.Now().UTC())
	if len(models) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := s.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Path: s.collection.Name(), Err: fmt.Errorf("bulk upsert: %w", err)}
	}

	s.count = len(models)
	s.logger.Debug("records upserted", "matched", res.MatchedCount, "upserted", res.UpsertedCount)
	return nil
}

func (s *MongoSink) Close() error {
	s.logger.Info("mongodb sink closing", "records", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// upsertModels builds one replace-or-insert per record. Records without a
// key are skipped; for repeated keys the later record wins.
func upsertModels(records []types.Record, keyFn KeyFunc, now time.Time) []mongo.WriteModel {
	seen := make(map[string]int, len(records))
	models := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		key := keyFn(rec)
		if key == "" {
			continue
		}
		model := mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": key}).
			SetReplacement(mongoDoc{Key: key, Record: rec, UpdatedAt: now}).
			SetUpsert(true)
		if i, ok := seen[key]; ok {
			models[i] = model
			continue
		}
		seen[key] = len(models)
		models = append(models, model)
	}
	return models
}

// --- Multi-Sink Fan-Out ---

// MultiSink writes records to multiple backends.
type MultiSink struct {
	backends []Sink
	logger   *slog.Logger
}

// NewMultiSink creates a sink that fans out to backends in order.
func NewMultiSink(backends []Sink, logger *slog.Logger) *MultiSink {
	return &MultiSink{
		backends: backends,
		logger:   logger.With("component", "multi_sink"),
	}
}

func (s *MultiSink) Name() string { return "multi" }

// Store writes to every backend and returns the first failure.
func (s *MultiSink) Store(ctx context.Context, records []types.Record) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Store(ctx, records); err != nil {
			s.logger.Error("backend store failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiSink) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
