package customstyles

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadhouse-backend/pkg/db/models"
	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	"github.com/angelmondragon/threadhouse-backend/pkg/pagination"
)

// Repository persists custom style requests.
type Repository interface {
	Create(ctx context.Context, req *models.CustomStyleRequest) (*models.CustomStyleRequest, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.CustomStyleRequest, error)
	List(ctx context.Context, filter Filter, limit int, cursor *pagination.Cursor) ([]models.CustomStyleRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CustomStyleStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	UserID *uuid.UUID
	Status *enums.CustomStyleStatus
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a custom style repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, req *models.CustomStyleRequest) (*models.CustomStyleRequest, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CustomStyleRequest, error) {
	var req models.CustomStyleRequest
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests newest first. A limit of zero or less is unbounded.
func (r *repository) List(ctx context.Context, filter Filter, limit int, cursor *pagination.Cursor) ([]models.CustomStyleRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.CustomStyleRequest{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	query = query.Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.CustomStyleRequest
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CustomStyleStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.CustomStyleRequest{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.CustomStyleRequest{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
