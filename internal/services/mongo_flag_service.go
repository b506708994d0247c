package services

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clubedasmusas/backend/internal/moderation"
)

// ErrStaleWrite means a concurrent write changed the record between read and
// write; the caller should reload and retry. Flag saves and daily-log toggles
// both guard on it.
var ErrStaleWrite = errors.New("record changed since it was read")

// MongoFlagService persists per-user moderation flag records. Writes use an
// optimistic version check so concurrent admin edits cannot silently clobber
// each other.
type MongoFlagService struct {
	client *mongo.Client
	db     *mongo.Database
	col    *mongo.Collection
}

func NewMongoFlagService(ctx context.Context, mongoURI, dbName string) (*MongoFlagService, error) {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetTLSConfig(tlsCfg))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	db := client.Database(dbName)
	col := db.Collection("user_flags")

	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoFlagService{client: client, db: db, col: col}, nil
}

func (s *MongoFlagService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Get returns the user's flag record, creating an all-inactive one on first
// access so a record always exists once a user exists.
func (s *MongoFlagService) Get(ctx context.Context, userID string) (*moderation.FlagRecord, error) {
	now := time.Now().UTC()

	_, err := s.col.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
		"$setOnInsert": bson.M{
			"user_id":    userID,
			"is_banned":  false,
			"is_muted":   false,
			"strikes":    0,
			"version":    int64(0),
			"updated_at": now,
		},
	}, options.Update().SetUpsert(true))
	if err != nil {
		return nil, err
	}

	var out moderation.FlagRecord
	if err := s.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAll returns every flag record keyed by user id, for the admin table.
func (s *MongoFlagService) GetAll(ctx context.Context) (map[string]moderation.FlagRecord, error) {
	cur, err := s.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]moderation.FlagRecord)
	for cur.Next(ctx) {
		var f moderation.FlagRecord
		if err := cur.Decode(&f); err != nil {
			return nil, err
		}
		out[f.UserID] = f
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Save writes the full next record produced by a moderation command. The
// filter matches the version the record was read at; a miss means a
// concurrent edit won and the caller gets ErrStaleWrite with no fields
// changed (all five flags land in one update or none do).
func (s *MongoFlagService) Save(ctx context.Context, next moderation.FlagRecord) (*moderation.FlagRecord, error) {
	now := time.Now().UTC()

	res := s.col.FindOneAndUpdate(
		ctx,
		bson.M{"user_id": next.UserID, "version": next.Version},
		bson.M{
			"$set": bson.M{
				"is_banned":         next.IsBanned,
				"banned_until":      next.BannedUntil,
				"ban_reason":        next.BanReason,
				"feed_banned_until": next.FeedBannedUntil,
				"is_muted":          next.IsMuted,
				"muted_until":       next.MutedUntil,
				"updated_at":        now,
			},
			"$inc": bson.M{"version": int64(1)},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated moderation.FlagRecord
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			// Distinguish a missing record from a lost CAS race.
			var exists moderation.FlagRecord
			if err2 := s.col.FindOne(ctx, bson.M{"user_id": next.UserID}).Decode(&exists); err2 == mongo.ErrNoDocuments {
				return nil, mongo.ErrNoDocuments
			}
			return nil, ErrStaleWrite
		}
		return nil, err
	}
	return &updated, nil
}

// AddStrike increments the strike counter and returns the updated record.
// Strikes are append-only bookkeeping, so they bypass the version check.
func (s *MongoFlagService) AddStrike(ctx context.Context, userID string) (*moderation.FlagRecord, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$inc": bson.M{"strikes": 1},
		"$set": bson.M{"updated_at": now},
		"$setOnInsert": bson.M{
			"user_id":   userID,
			"is_banned": false,
			"is_muted":  false,
			"version":   int64(0),
		},
	}

	_, err := s.col.UpdateOne(ctx, bson.M{"user_id": userID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, err
	}

	var out moderation.FlagRecord
	if err := s.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
