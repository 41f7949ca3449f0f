package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/legalease/internal/models"
	"github.com/yoockh/legalease/internal/utils"
	"gorm.io/gorm"
)

type DocumentRepository interface {
	Insert(ctx context.Context, d *models.DocumentRecord) error
	LatestByUser(ctx context.Context, userID string) (*models.DocumentRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.DocumentRecord, error)
}

type documentRepo struct {
	db *gorm.DB
}

func NewDocumentRepo(db *gorm.DB) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Insert(ctx context.Context, d *models.DocumentRecord) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *documentRepo) LatestByUser(ctx context.Context, userID string) (*models.DocumentRecord, error) {
	var row models.DocumentRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("upload_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *documentRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.DocumentRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.DocumentRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("upload_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
