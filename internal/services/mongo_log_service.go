package services

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clubedasmusas/backend/internal/consistency"
)

// MongoLogService persists daily habit logs. The unique (user_id, date)
// index backs the one-log-per-day invariant; reads still tolerate duplicates
// defensively (the aggregator picks the most recently updated record).
type MongoLogService struct {
	client  *mongo.Client
	db      *mongo.Database
	logsCol *mongo.Collection
}

func NewMongoLogService(ctx context.Context, mongoURI, dbName string) (*MongoLogService, error) {
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
	col := db.Collection("daily_logs")

	// Best-effort indexes.
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}}},
	})

	return &MongoLogService{client: client, db: db, logsCol: col}, nil
}

func (s *MongoLogService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// GetForDate returns the user's log for one calendar day, or nil when none
// exists (absence is not an error).
func (s *MongoLogService) GetForDate(ctx context.Context, userID string, date time.Time) (*consistency.DailyLog, error) {
	var log consistency.DailyLog
	err := s.logsCol.FindOne(ctx, bson.M{
		"user_id": userID,
		"date":    consistency.DateOnly(date),
	}).Decode(&log)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

const toggleRetries = 3

// Toggle flips one check-in field on today's log. The write is guarded by the
// snapshot it was computed from: updates only match the record at the prior
// updated_at, and first check-ins insert rather than upsert, so two toggles
// racing on different fields cannot overwrite each other. A guard miss
// re-reads and retries; exhausting the retries returns ErrStaleWrite.
func (s *MongoLogService) Toggle(ctx context.Context, userID string, field consistency.CheckField, now time.Time) (*consistency.DailyLog, error) {
	for attempt := 0; attempt < toggleRetries; attempt++ {
		existing, err := s.GetForDate(ctx, userID, now)
		if err != nil {
			return nil, err
		}

		next, err := consistency.ToggleCheck(existing, field, now)
		if err != nil {
			return nil, err
		}
		next.UserID = userID

		if existing == nil {
			next.ID = uuid.New().String()
			if _, err := s.logsCol.InsertOne(ctx, next); err != nil {
				if mongo.IsDuplicateKeyError(err) {
					// Another toggle created today's log first.
					continue
				}
				return nil, err
			}
			return &next, nil
		}

		res, err := s.logsCol.UpdateOne(ctx, toggleGuardFilter(userID, *existing), toggleUpdate(next))
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			// The log changed between read and write.
			continue
		}
		return &next, nil
	}
	return nil, ErrStaleWrite
}

// toggleGuardFilter matches today's log only at the revision the toggle was
// computed from, so an interleaved write surfaces as a miss instead of a lost
// update.
func toggleGuardFilter(userID string, prior consistency.DailyLog) bson.M {
	return bson.M{
		"user_id":    userID,
		"date":       prior.Date,
		"updated_at": prior.UpdatedAt,
	}
}

func toggleUpdate(next consistency.DailyLog) bson.M {
	return bson.M{
		"$set": bson.M{
			"ate_healthy": next.AteHealthy,
			"trained":     next.Trained,
			"drank_water": next.DrankWater,
			"note":        next.Note,
			"updated_at":  next.UpdatedAt,
		},
	}
}

// SetNote writes the free-text note on today's log, creating it if needed.
func (s *MongoLogService) SetNote(ctx context.Context, userID string, note string, now time.Time) error {
	date := consistency.DateOnly(now)
	_, err := s.logsCol.UpdateOne(
		ctx,
		bson.M{"user_id": userID, "date": date},
		bson.M{
			"$set": bson.M{"note": note, "updated_at": now.UTC()},
			"$setOnInsert": bson.M{
				"_id":        uuid.New().String(),
				"user_id":    userID,
				"date":       date,
				"created_at": now.UTC(),
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// ListWindow returns the user's logs for the windowDays ending at today,
// oldest first.
func (s *MongoLogService) ListWindow(ctx context.Context, userID string, windowDays int, today time.Time) ([]consistency.DailyLog, error) {
	end := consistency.DateOnly(today)
	start := end.AddDate(0, 0, -(windowDays - 1))

	cur, err := s.logsCol.Find(
		ctx,
		bson.M{
			"user_id": userID,
			"date":    bson.M{"$gte": start, "$lte": end},
		},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]consistency.DailyLog, 0)
	for cur.Next(ctx) {
		var l consistency.DailyLog
		if err := cur.Decode(&l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
