package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/legalease/internal/models"
	"github.com/yoockh/legalease/internal/utils"
	"gorm.io/gorm"
)

type ConversationRepo interface {
	Insert(ctx context.Context, log *models.ConversationLog) error
	InsertBatch(ctx context.Context, logs []models.ConversationLog) error
	ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ConversationLog, error)
	LatestN(ctx context.Context, userID string, n int) ([]models.ConversationLog, error)
	GetByID(ctx context.Context, id string) (*models.ConversationLog, error)
}

type conversationRepo struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) Insert(ctx context.Context, log *models.ConversationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// InsertBatch stores a question and its answer atomically.
func (r *conversationRepo) InsertBatch(ctx context.Context, logs []models.ConversationLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&logs).Error
	})
}

// ListBySession returns the session transcript oldest first.
func (r *conversationRepo) ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]models.ConversationLog, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []models.ConversationLog
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("timestamp ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *conversationRepo) LatestN(ctx context.Context, userID string, n int) ([]models.ConversationLog, error) {
	if n <= 0 {
		n = 5
	}
	var rows []models.ConversationLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Limit(n).
		Find(&rows).Error
	return rows, err
}

func (r *conversationRepo) GetByID(ctx context.Context, id string) (*models.ConversationLog, error) {
	var row models.ConversationLog
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}
