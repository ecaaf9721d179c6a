package repository

import (
	"context"
	"errors"
	"time"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"gorm.io/gorm"
)

type LogListParams struct {
	TenantID string
	Type     *domain.NotificationType
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// NotificationLogRepository stores dispatch audit rows.
type NotificationLogRepository interface {
	Create(ctx context.Context, l *domain.NotificationLog) error
	GetByID(ctx context.Context, id string) (*domain.NotificationLog, error)
	List(ctx context.Context, params LogListParams) ([]domain.NotificationLog, int64, error)
}

type GormNotificationLogRepo struct {
	db *gorm.DB
}

func NewGormNotificationLogRepo(db *gorm.DB) *GormNotificationLogRepo {
	return &GormNotificationLogRepo{db: db}
}

func (r *GormNotificationLogRepo) Create(ctx context.Context, l *domain.NotificationLog) error {
	model := notificationLogModelFromDomain(l)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if l != nil {
		*l = *notificationLogModelToDomain(model)
	}
	return nil
}

func (r *GormNotificationLogRepo) GetByID(ctx context.Context, id string) (*domain.NotificationLog, error) {
	var model NotificationLogModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return notificationLogModelToDomain(&model), nil
}

func (r *GormNotificationLogRepo) List(ctx context.Context, params LogListParams) ([]domain.NotificationLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&NotificationLogModel{})

	if params.TenantID != "" {
		query = query.Where("tenant_id = ?", params.TenantID)
	}
	if params.Type != nil {
		query = query.Where("notification_type = ?", *params.Type)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []NotificationLogModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	logs := make([]domain.NotificationLog, 0, len(models))
	for i := range models {
		logs = append(logs, *notificationLogModelToDomain(&models[i]))
	}

	return logs, total, nil
}
