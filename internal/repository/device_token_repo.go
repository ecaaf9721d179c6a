package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceTokenRegistry is the device token lifecycle port. All operations are
// keyed by the (tenantID, token) pair and are safe under concurrent calls:
// racing registrations of the same token converge to one row via upsert.
type DeviceTokenRegistry interface {
	Register(ctx context.Context, t *domain.DeviceToken) error
	Rotate(ctx context.Context, tenantID, userID, oldToken, newToken string) error
	Invalidate(ctx context.Context, tenantID, token string) error
	ActiveTokensFor(ctx context.Context, tenantID, userID string) ([]domain.DeviceToken, error)
	DeleteForUser(ctx context.Context, tenantID, userID string) error
}

type GormDeviceTokenRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormDeviceTokenRepo(db *gorm.DB) *GormDeviceTokenRepo {
	return &GormDeviceTokenRepo{db: db, now: time.Now}
}

// Register upserts on (tenant_id, token): a fresh pair inserts a new row, a
// known pair overwrites user_id and platform, clears revoked_at, and bumps
// last_used_at. Calling twice with unchanged inputs is a no-op in effect.
func (r *GormDeviceTokenRepo) Register(ctx context.Context, t *domain.DeviceToken) error {
	if err := t.Validate(); err != nil {
		return err
	}

	now := r.now().UTC()
	model := deviceTokenModelFromDomain(t)
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	model.LastUsedAt = now
	model.RevokedAt = nil

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "token"}},
			DoUpdates: clause.Assignments(map[string]any{
				"user_id":      model.UserID,
				"platform":     model.Platform,
				"last_used_at": now,
				"revoked_at":   nil,
			}),
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("failed to register device token: %w", err)
	}

	*t = *deviceTokenModelToDomain(model)
	return nil
}

// Rotate atomically revokes the old token's row and registers the new one.
// Used when the platform push SDK issues a replacement token.
func (r *GormDeviceTokenRepo) Rotate(ctx context.Context, tenantID, userID, oldToken, newToken string) error {
	now := r.now().UTC()
	replacement := &domain.DeviceToken{
		TenantID: tenantID,
		UserID:   userID,
		Token:    newToken,
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old DeviceTokenModel
		err := tx.Where("tenant_id = ? AND token = ?", tenantID, oldToken).First(&old).Error
		if err == nil {
			replacement.Platform = old.Platform
			if err := tx.Model(&DeviceTokenModel{}).
				Where("tenant_id = ? AND token = ? AND revoked_at IS NULL", tenantID, oldToken).
				Update("revoked_at", now).Error; err != nil {
				return fmt.Errorf("failed to revoke rotated token: %w", err)
			}
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		if !replacement.Platform.IsValid() {
			replacement.Platform = domain.PlatformAndroid
		}

		inner := &GormDeviceTokenRepo{db: tx, now: r.now}
		return inner.Register(ctx, replacement)
	})
}

// Invalidate soft-revokes the row by setting revoked_at. A missing or
// already-revoked row is not an error: invalidation is total and idempotent.
func (r *GormDeviceTokenRepo) Invalidate(ctx context.Context, tenantID, token string) error {
	err := r.db.WithContext(ctx).
		Model(&DeviceTokenModel{}).
		Where("tenant_id = ? AND token = ? AND revoked_at IS NULL", tenantID, token).
		Update("revoked_at", r.now().UTC()).Error
	if err != nil {
		return fmt.Errorf("failed to invalidate device token: %w", err)
	}
	return nil
}

// ActiveTokensFor returns all non-revoked rows for the user, most recently
// used first. A user with N devices contributes N rows.
func (r *GormDeviceTokenRepo) ActiveTokensFor(ctx context.Context, tenantID, userID string) ([]domain.DeviceToken, error) {
	var models []DeviceTokenModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ? AND revoked_at IS NULL", tenantID, userID).
		Order("last_used_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load active tokens: %w", err)
	}

	tokens := make([]domain.DeviceToken, 0, len(models))
	for i := range models {
		tokens = append(tokens, *deviceTokenModelToDomain(&models[i]))
	}

	return tokens, nil
}

// RevokeUnusedSince soft-revokes active rows whose last_used_at predates the
// cutoff, across all tenants. The sweeper runs this; a returning device
// un-revokes itself on the next registration.
func (r *GormDeviceTokenRepo) RevokeUnusedSince(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&DeviceTokenModel{}).
		Where("revoked_at IS NULL AND last_used_at < ?", cutoff).
		Update("revoked_at", r.now().UTC())
	if result.Error != nil {
		return 0, fmt.Errorf("failed to revoke stale tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteForUser hard-deletes every row of the user under the tenant. Only
// the account-deletion cascade calls this; all other paths soft-revoke.
func (r *GormDeviceTokenRepo) DeleteForUser(ctx context.Context, tenantID, userID string) error {
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Delete(&DeviceTokenModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete device tokens: %w", err)
	}
	return nil
}
