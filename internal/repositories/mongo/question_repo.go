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

type QuestionRepository interface {
	Insert(ctx context.Context, q *models.QueuedQuestion) error
	Get(ctx context.Context, questionID string) (*models.QueuedQuestion, error)
	UpdateSTT(ctx context.Context, questionID, transcript, status string) error
	UpdateLLM(ctx context.Context, questionID, sessionID, response, status string, processingMS int64) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.QueuedQuestion, error)
}

type questionRepo struct {
	col *mongo.Collection
}

func NewQuestionRepo(db *mongo.Database) QuestionRepository {
	return &questionRepo{col: db.Collection("voice_questions")}
}

func (r *questionRepo) Insert(ctx context.Context, q *models.QueuedQuestion) error {
	if q.Timestamp.IsZero() {
		q.Timestamp = time.Now().UTC()
	}
	if q.LLMStatus == "" {
		q.LLMStatus = models.StatusPending
	}
	_, err := r.col.InsertOne(ctx, q)
	return err
}

func (r *questionRepo) Get(ctx context.Context, questionID string) (*models.QueuedQuestion, error) {
	var q models.QueuedQuestion
	err := r.col.FindOne(ctx, bson.M{"question_id": questionID}).Decode(&q)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &q, err
}

func (r *questionRepo) UpdateSTT(ctx context.Context, questionID, transcript, status string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"question_id": questionID},
		bson.M{"$set": bson.M{
			"transcript": transcript,
			"stt_status": status,
		}},
	)
	return err
}

func (r *questionRepo) UpdateLLM(ctx context.Context, questionID, sessionID, response, status string, processingMS int64) error {
	set := bson.M{
		"llm_response":       response,
		"llm_status":         status,
		"processing_time_ms": processingMS,
	}
	if sessionID != "" {
		set["session_id"] = sessionID
	}
	// the clip is not needed once answered
	_, err := r.col.UpdateOne(ctx,
		bson.M{"question_id": questionID},
		bson.M{"$set": set, "$unset": bson.M{"audio_base64": ""}},
	)
	return err
}

func (r *questionRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]models.QueuedQuestion, error) {
	if limit <= 0 {
		limit = 200
	}

	cur, err := r.col.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.QueuedQuestion
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
