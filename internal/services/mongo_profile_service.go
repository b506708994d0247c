package services

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clubedasmusas/backend/internal/models"
)

type MongoProfileService struct {
	client      *mongo.Client
	db          *mongo.Database
	profilesCol *mongo.Collection
}

func NewMongoProfileService(ctx context.Context, mongoURI, dbName string) (*MongoProfileService, error) {
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
	col := db.Collection("profiles")

	// Best-effort indexes.
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoProfileService{
		client:      client,
		db:          db,
		profilesCol: col,
	}, nil
}

func (s *MongoProfileService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoProfileService) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var prof models.Profile
	if err := s.profilesCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prof); err != nil {
		return nil, err
	}
	return &prof, nil
}

// GetOrCreate returns the user's profile, creating an empty one on first
// login so every authenticated user always has a profile document.
func (s *MongoProfileService) GetOrCreate(ctx context.Context, userID string, email string) (*models.Profile, error) {
	now := time.Now().UTC()

	var prof models.Profile
	err := s.profilesCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prof)
	if err == nil {
		if email != "" && prof.Email == "" {
			_, _ = s.profilesCol.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
				"$set": bson.M{"email": email, "updated_at": now},
			})
			prof.Email = email
			prof.UpdatedAt = now
		}
		return &prof, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	prof = models.Profile{
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.profilesCol.InsertOne(ctx, prof)
	if err != nil {
		// If a race created it, fetch again.
		var retry models.Profile
		if err2 := s.profilesCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&retry); err2 == nil {
			return &retry, nil
		}
		return nil, err
	}
	return &prof, nil
}

func (s *MongoProfileService) Upsert(ctx context.Context, userID string, email string, req *models.UpsertProfileRequest) (*models.Profile, error) {
	now := time.Now().UTC()

	set := bson.M{
		"updated_at": now,
	}
	if email != "" {
		set["email"] = email
	}
	if req.DisplayName != nil {
		set["display_name"] = *req.DisplayName
	}
	if req.Bio != nil {
		set["bio"] = *req.Bio
	}
	if req.PhotoURL != nil {
		set["photo_url"] = *req.PhotoURL
	}
	if req.HeightCM != nil {
		set["height_cm"] = *req.HeightCM
	}
	if req.GoalWeightKG != nil {
		set["goal_weight_kg"] = *req.GoalWeightKG
	}

	setOnInsert := bson.M{
		"user_id":    userID,
		"points":     0,
		"created_at": now,
	}

	_, err := s.profilesCol.UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": set, "$setOnInsert": setOnInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, err
	}

	var prof models.Profile
	if err := s.profilesCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prof); err != nil {
		return nil, err
	}
	return &prof, nil
}

// AddWeightEntry appends a weigh-in to the profile's weight history.
func (s *MongoProfileService) AddWeightEntry(ctx context.Context, userID string, entry models.WeightEntry) (*models.Profile, error) {
	now := time.Now().UTC()

	res := s.profilesCol.FindOneAndUpdate(
		ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$push": bson.M{"weights": entry},
			"$set":  bson.M{"updated_at": now},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var prof models.Profile
	if err := res.Decode(&prof); err != nil {
		return nil, err
	}
	return &prof, nil
}

// AddPoints credits reward points (e.g. on challenge completion).
func (s *MongoProfileService) AddPoints(ctx context.Context, userID string, amount int) error {
	now := time.Now().UTC()
	_, err := s.profilesCol.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
		"$inc": bson.M{"points": amount},
		"$set": bson.M{"updated_at": now},
	})
	return err
}

// SetPoints overwrites the balance with a value already floored by the
// penalty transform, so the stored balance can never go negative.
func (s *MongoProfileService) SetPoints(ctx context.Context, userID string, points int) error {
	now := time.Now().UTC()
	_, err := s.profilesCol.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
		"$set": bson.M{"points": points, "updated_at": now},
	})
	return err
}

// ListAll returns every profile, newest first, for the admin table and export.
func (s *MongoProfileService) ListAll(ctx context.Context) ([]models.Profile, error) {
	cur, err := s.profilesCol.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.Profile, 0)
	for cur.Next(ctx) {
		var p models.Profile
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ApprovePendingProfilePhoto updates any profile whose photo_url currently equals pendingPath
// to point at the final approved download URL.
func (s *MongoProfileService) ApprovePendingProfilePhoto(ctx context.Context, pendingPath string, approvedURL string) error {
	if strings.TrimSpace(pendingPath) == "" || strings.TrimSpace(approvedURL) == "" {
		return nil
	}
	now := time.Now().UTC()
	_, err := s.profilesCol.UpdateOne(ctx, bson.M{"photo_url": pendingPath}, bson.M{
		"$set": bson.M{"photo_url": approvedURL, "updated_at": now},
	})
	return err
}

// RejectPendingProfilePhoto clears photo_url if it matches pendingPath.
func (s *MongoProfileService) RejectPendingProfilePhoto(ctx context.Context, pendingPath string) error {
	if strings.TrimSpace(pendingPath) == "" {
		return nil
	}
	now := time.Now().UTC()
	_, err := s.profilesCol.UpdateOne(ctx, bson.M{"photo_url": pendingPath}, bson.M{
		"$set": bson.M{"photo_url": "", "updated_at": now},
	})
	return err
}

// ClearPhotoIfMatches clears photo_url if it matches the provided URL.
func (s *MongoProfileService) ClearPhotoIfMatches(ctx context.Context, userID string, url string) error {
	if userID == "" || url == "" {
		return nil
	}
	_, err := s.profilesCol.UpdateOne(ctx, bson.M{"user_id": userID, "photo_url": url}, bson.M{
		"$set": bson.M{"photo_url": ""},
	})
	return err
}
