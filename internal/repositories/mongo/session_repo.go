package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/legalease/internal/models"
	"github.com/yoockh/legalease/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SessionRepository interface {
	Create(ctx context.Context, s *models.SessionRecord) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.SessionRecord, error)
	MarkStale(ctx context.Context, sessionID string, endedAt time.Time) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.SessionRecord, error)
}

type sessionRepo struct {
	col *mongo.Collection
}

func NewSessionRepo(db *mongo.Database) SessionRepository {
	return &sessionRepo{col: db.Collection("sessions")}
}

func (r *sessionRepo) Create(ctx context.Context, s *models.SessionRecord) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Status == "" {
		s.Status = models.SessionStatusActive
	}
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func (r *sessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	var s models.SessionRecord
	err := r.col.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

// MarkStale closes an active session. Already closed sessions are left as is.
func (r *sessionRepo) MarkStale(ctx context.Context, sessionID string, endedAt time.Time) error {
	s, err := r.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Status != models.SessionStatusActive {
		return nil
	}
	endedAt = endedAt.UTC()
	_, err = r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "status": models.SessionStatusActive},
		bson.M{"$set": bson.M{
			"status":           models.SessionStatusStale,
			"ended_at":         endedAt,
			"duration_seconds": int64(endedAt.Sub(s.CreatedAt).Seconds()),
		}},
	)
	return err
}

func (r *sessionRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]models.SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	cur, err := r.col.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.SessionRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
