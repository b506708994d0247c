package services

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clubedasmusas/backend/internal/models"
	"github.com/clubedasmusas/backend/internal/progress"
)

var ErrChallengeNotFound = errors.New("challenge not found")

type MongoChallengeService struct {
	client          *mongo.Client
	db              *mongo.Database
	challengesColl  *mongo.Collection
	participantsCol *mongo.Collection
}

func NewMongoChallengeService(ctx context.Context, mongoURI, dbName string) (*MongoChallengeService, error) {
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
	challenges := db.Collection("challenges")
	participants := db.Collection("challenge_participants")

	svc := &MongoChallengeService{
		client:          client,
		db:              db,
		challengesColl:  challenges,
		participantsCol: participants,
	}

	// Best-effort indexes.
	_, _ = challenges.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	_, _ = participants.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "challenge_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "challenge_id", Value: 1}}},
	})

	log.Printf("MongoDB connected: db=%s", dbName)
	return svc, nil
}

func (s *MongoChallengeService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoChallengeService) Create(ctx context.Context, req *models.UpsertChallengeRequest) (*models.Challenge, error) {
	ch := models.Challenge{
		ID:           uuid.New().String(),
		Title:        req.Title,
		Description:  req.Description,
		CoverPhoto:   req.CoverPhoto,
		DurationDays: req.DurationDays,
		RewardPoints: req.RewardPoints,
		Premium:      req.Premium,
		PriceCents:   req.PriceCents,
		CreatedAt:    time.Now().UTC(),
	}

	if _, err := s.challengesColl.InsertOne(ctx, ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *MongoChallengeService) Update(ctx context.Context, challengeID string, req *models.UpsertChallengeRequest) (*models.Challenge, error) {
	res := s.challengesColl.FindOneAndUpdate(
		ctx,
		bson.M{"_id": challengeID},
		bson.M{"$set": bson.M{
			"title":         req.Title,
			"description":   req.Description,
			"cover_photo":   req.CoverPhoto,
			"duration_days": req.DurationDays,
			"reward_points": req.RewardPoints,
			"premium":       req.Premium,
			"price_cents":   req.PriceCents,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.Challenge
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *MongoChallengeService) Delete(ctx context.Context, challengeID string) error {
	if _, err := s.participantsCol.DeleteMany(ctx, bson.M{"challenge_id": challengeID}); err != nil {
		return err
	}
	res, err := s.challengesColl.DeleteOne(ctx, bson.M{"_id": challengeID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrChallengeNotFound
	}
	return nil
}

func (s *MongoChallengeService) GetByID(ctx context.Context, challengeID string) (*models.Challenge, error) {
	var ch models.Challenge
	if err := s.challengesColl.FindOne(ctx, bson.M{"_id": challengeID}).Decode(&ch); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrChallengeNotFound
		}
		return nil, err
	}
	return &ch, nil
}

func (s *MongoChallengeService) ListAll(ctx context.Context) ([]models.Challenge, error) {
	cur, err := s.challengesColl.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.Challenge, 0)
	for cur.Next(ctx) {
		var ch models.Challenge
		if err := cur.Decode(&ch); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListParticipations returns one user's participations across all challenges.
func (s *MongoChallengeService) ListParticipations(ctx context.Context, userID string) ([]progress.Participation, error) {
	return s.listParticipations(ctx, bson.M{"user_id": userID})
}

// ListAllParticipations feeds the admin dashboard aggregates and the export.
func (s *MongoChallengeService) ListAllParticipations(ctx context.Context) ([]progress.Participation, error) {
	return s.listParticipations(ctx, bson.M{})
}

func (s *MongoChallengeService) listParticipations(ctx context.Context, filter bson.M) ([]progress.Participation, error) {
	cur, err := s.participantsCol.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "joined_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]progress.Participation, 0)
	for cur.Next(ctx) {
		var p progress.Participation
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

// Join runs the pure join over the user's current snapshot and persists the
// appended participation. The unique index backs up the duplicate check
// against races between two sessions of the same user.
func (s *MongoChallengeService) Join(ctx context.Context, userID, challengeID string, now time.Time) (*progress.Participation, error) {
	if _, err := s.GetByID(ctx, challengeID); err != nil {
		return nil, err
	}

	current, err := s.ListParticipations(ctx, userID)
	if err != nil {
		return nil, err
	}

	next, err := progress.Join(current, userID, challengeID, now)
	if err != nil {
		return nil, err
	}

	p := next[len(next)-1]
	p.ID = uuid.New().String()
	if _, err := s.participantsCol.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, progress.ErrAlreadyParticipating
		}
		return nil, err
	}
	return &p, nil
}

// UpdateProgress persists the result of the pure progress transition and
// returns the stored participation. completedNow is true only on the
// transition to 100, so the caller credits reward points exactly once.
func (s *MongoChallengeService) UpdateProgress(ctx context.Context, userID, challengeID string, value int, now time.Time) (*progress.Participation, bool, error) {
	current, err := s.ListParticipations(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	completedBefore := false
	for _, p := range current {
		if p.UserID == userID && p.ChallengeID == challengeID {
			completedBefore = p.CompletedAt != nil
			break
		}
	}

	next, err := progress.UpdateProgress(current, userID, challengeID, value, now)
	if err != nil {
		return nil, false, err
	}

	var updated *progress.Participation
	for i := range next {
		if next[i].UserID == userID && next[i].ChallengeID == challengeID {
			updated = &next[i]
			break
		}
	}

	res := s.participantsCol.FindOneAndUpdate(
		ctx,
		bson.M{"user_id": userID, "challenge_id": challengeID},
		bson.M{"$set": bson.M{
			"progress":     updated.Progress,
			"completed_at": updated.CompletedAt,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var stored progress.Participation
	if err := res.Decode(&stored); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, false, progress.ErrNotParticipating
		}
		return nil, false, err
	}

	completedNow := !completedBefore && stored.CompletedAt != nil
	return &stored, completedNow, nil
}

// RewardsByChallenge maps challenge id to reward points for the aggregate
// point sums.
func (s *MongoChallengeService) RewardsByChallenge(ctx context.Context) (map[string]int, error) {
	challenges, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	rewards := make(map[string]int, len(challenges))
	for _, ch := range challenges {
		rewards[ch.ID] = ch.RewardPoints
	}
	return rewards, nil
}
