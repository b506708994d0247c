package services

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clubedasmusas/backend/internal/models"
)

// MongoReportService stores abuse reports for the admin moderation queue.
type MongoReportService struct {
	client     *mongo.Client
	db         *mongo.Database
	reportsCol *mongo.Collection
}

func NewMongoReportService(ctx context.Context, mongoURI, dbName string) (*MongoReportService, error) {
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
	col := db.Collection("reports")

	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "target_user_id", Value: 1}}},
	})

	return &MongoReportService{client: client, db: db, reportsCol: col}, nil
}

func (s *MongoReportService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoReportService) Create(ctx context.Context, reporterID string, req *models.CreateReportRequest) (*models.Report, error) {
	report := models.Report{
		ID:           uuid.New().String(),
		ReporterID:   reporterID,
		TargetUserID: req.TargetUserID,
		TargetPostID: req.TargetPostID,
		Reason:       req.Reason,
		CreatedAt:    time.Now().UTC(),
	}

	if _, err := s.reportsCol.InsertOne(ctx, report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *MongoReportService) ListRecent(ctx context.Context, limit int) ([]models.Report, error) {
	if limit <= 0 {
		limit = 100
	}

	cur, err := s.reportsCol.Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.Report, 0)
	for cur.Next(ctx) {
		var r models.Report
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
