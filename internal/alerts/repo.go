package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/libralend/libralend-backend/pkg/db/models"
	"github.com/libralend/libralend-backend/pkg/pagination"
)

// Repository exposes persistence helpers for borrower alerts.
type Repository interface {
	Create(ctx context.Context, tx *gorm.DB, alert *models.Alert) error
	List(ctx context.Context, params listAlertsParams) ([]models.Alert, *pagination.Cursor, error)
	MarkRead(ctx context.Context, userID, alertID uuid.UUID, now time.Time) (alertMarkResult, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an alerts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listAlertsParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type alertMarkResult struct {
	Updated bool
	Found   bool
}

// Create writes the alert inside the caller's transaction when one is given.
func (r *repositoryImpl) Create(ctx context.Context, tx *gorm.DB, alert *models.Alert) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	return db.WithContext(ctx).Create(alert).Error
}

func (r *repositoryImpl) List(ctx context.Context, params listAlertsParams) ([]models.Alert, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Alert{}).Where("user_id = ?", params.UserID)
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Alert
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[len(rows)-1]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}

func (r *repositoryImpl) MarkRead(ctx context.Context, userID, alertID uuid.UUID, now time.Time) (alertMarkResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", alertID, userID).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return alertMarkResult{}, result.Error
	}

	mark := alertMarkResult{Updated: result.RowsAffected > 0}
	if result.RowsAffected > 0 {
		mark.Found = true
		return mark, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ? AND user_id = ?", alertID, userID).
		Count(&count).Error; err != nil {
		return alertMarkResult{}, err
	}
	mark.Found = count > 0
	return mark, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteReadBefore prunes alerts that were read before the cutoff.
func (r *repositoryImpl) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&models.Alert{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
