package repository

import (
	"time"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
)

// DeviceTokenModel is the persistence model for device_tokens. The composite
// unique index on (tenant_id, token) carries the registry's identity key;
// a token-only index would break once a user joins a second tenant.
type DeviceTokenModel struct {
	ID         string          `gorm:"type:uuid;primaryKey"`
	TenantID   string          `gorm:"type:uuid;not null;uniqueIndex:idx_device_tokens_tenant_token"`
	UserID     string          `gorm:"type:uuid;not null"`
	Token      string          `gorm:"type:varchar(512);not null;uniqueIndex:idx_device_tokens_tenant_token"`
	Platform   domain.Platform `gorm:"type:varchar(10);not null"`
	LastUsedAt time.Time       `gorm:"not null"`
	CreatedAt  time.Time
	RevokedAt  *time.Time `gorm:"type:timestamptz"`
}

func (DeviceTokenModel) TableName() string {
	return "device_tokens"
}

// NotificationLogModel is the persistence model for notification_logs.
type NotificationLogModel struct {
	ID             string                  `gorm:"type:uuid;primaryKey"`
	TenantID       string                  `gorm:"type:uuid;not null"`
	Type           domain.NotificationType `gorm:"column:notification_type;type:varchar(30);not null"`
	RecipientCount int                     `gorm:"not null"`
	SentCount      int                     `gorm:"not null"`
	FailedCount    int                     `gorm:"not null"`
	ErrorSummary   *string                 `gorm:"type:text"`
	CreatedAt      time.Time
}

func (NotificationLogModel) TableName() string {
	return "notification_logs"
}

// MembershipModel is the persistence model for tenant memberships.
type MembershipModel struct {
	ID        string  `gorm:"type:uuid;primaryKey"`
	TenantID  string  `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_tenant_user"`
	UserID    string  `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_tenant_user"`
	Role      string  `gorm:"type:varchar(20);not null;default:member"`
	GroupID   *string `gorm:"type:uuid"`
	Status    string  `gorm:"type:varchar(10);not null;default:active"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (MembershipModel) TableName() string {
	return "memberships"
}

// GroupModel is the persistence model for small groups.
type GroupModel struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	TenantID     string `gorm:"type:uuid;not null"`
	ZoneLeaderID string `gorm:"type:uuid;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (GroupModel) TableName() string {
	return "groups"
}

// ConversationParticipantModel is the persistence model for conversation
// membership rows.
type ConversationParticipantModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	TenantID       string `gorm:"type:uuid;not null;uniqueIndex:idx_conv_participants"`
	ConversationID string `gorm:"type:uuid;not null;uniqueIndex:idx_conv_participants"`
	UserID         string `gorm:"type:uuid;not null;uniqueIndex:idx_conv_participants"`
	CreatedAt      time.Time
}

func (ConversationParticipantModel) TableName() string {
	return "conversation_participants"
}

// ConversationExclusionModel persists privacy-scoped exclusion sets for
// event chats: members listed here never receive pushes for that
// conversation.
type ConversationExclusionModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	TenantID       string `gorm:"type:uuid;not null;uniqueIndex:idx_conv_exclusions"`
	ConversationID string `gorm:"type:uuid;not null;uniqueIndex:idx_conv_exclusions"`
	UserID         string `gorm:"type:uuid;not null;uniqueIndex:idx_conv_exclusions"`
	CreatedAt      time.Time
}

func (ConversationExclusionModel) TableName() string {
	return "conversation_exclusions"
}

func deviceTokenModelFromDomain(t *domain.DeviceToken) *DeviceTokenModel {
	if t == nil {
		return nil
	}

	return &DeviceTokenModel{
		ID:         t.ID,
		TenantID:   t.TenantID,
		UserID:     t.UserID,
		Token:      t.Token,
		Platform:   t.Platform,
		LastUsedAt: t.LastUsedAt,
		CreatedAt:  t.CreatedAt,
		RevokedAt:  t.RevokedAt,
	}
}

func deviceTokenModelToDomain(m *DeviceTokenModel) *domain.DeviceToken {
	if m == nil {
		return nil
	}

	return &domain.DeviceToken{
		ID:         m.ID,
		TenantID:   m.TenantID,
		UserID:     m.UserID,
		Token:      m.Token,
		Platform:   m.Platform,
		LastUsedAt: m.LastUsedAt,
		CreatedAt:  m.CreatedAt,
		RevokedAt:  m.RevokedAt,
	}
}

func notificationLogModelFromDomain(l *domain.NotificationLog) *NotificationLogModel {
	if l == nil {
		return nil
	}

	return &NotificationLogModel{
		ID:             l.ID,
		TenantID:       l.TenantID,
		Type:           l.Type,
		RecipientCount: l.RecipientCount,
		SentCount:      l.SentCount,
		FailedCount:    l.FailedCount,
		ErrorSummary:   l.ErrorSummary,
		CreatedAt:      l.CreatedAt,
	}
}

func notificationLogModelToDomain(m *NotificationLogModel) *domain.NotificationLog {
	if m == nil {
		return nil
	}

	return &domain.NotificationLog{
		ID:             m.ID,
		TenantID:       m.TenantID,
		Type:           m.Type,
		RecipientCount: m.RecipientCount,
		SentCount:      m.SentCount,
		FailedCount:    m.FailedCount,
		ErrorSummary:   m.ErrorSummary,
		CreatedAt:      m.CreatedAt,
	}
}
