package repository

import (
	"context"
	"errors"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"gorm.io/gorm"
)

const (
	RoleMember     = "member"
	RolePastor     = "pastor"
	RoleZoneLeader = "zone_leader"

	MembershipActive = "active"
)

// ConversationDirectory resolves conversation participants and the
// persisted per-conversation exclusion sets of privacy-scoped event chats.
type ConversationDirectory interface {
	Participants(ctx context.Context, tenantID, conversationID string) ([]string, error)
	Exclusions(ctx context.Context, tenantID, conversationID string) ([]string, error)
}

// MembershipDirectory resolves tenant-scoped recipient sets for triggers
// and validates memberships for client-side tenant switches.
type MembershipDirectory interface {
	ActiveMemberIDs(ctx context.Context, tenantID string) ([]string, error)
	GroupMemberIDs(ctx context.Context, tenantID, groupID string) ([]string, error)
	ZoneLeaderFor(ctx context.Context, tenantID, groupID string) (string, error)
	PastorIDs(ctx context.Context, tenantID string) ([]string, error)
	HasActiveMembership(ctx context.Context, tenantID, userID string) (bool, error)
}

type GormDirectoryRepo struct {
	db *gorm.DB
}

func NewGormDirectoryRepo(db *gorm.DB) *GormDirectoryRepo {
	return &GormDirectoryRepo{db: db}
}

func (r *GormDirectoryRepo) Participants(ctx context.Context, tenantID, conversationID string) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).
		Model(&ConversationParticipantModel{}).
		Where("tenant_id = ? AND conversation_id = ?", tenantID, conversationID).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

func (r *GormDirectoryRepo) Exclusions(ctx context.Context, tenantID, conversationID string) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).
		Model(&ConversationExclusionModel{}).
		Where("tenant_id = ? AND conversation_id = ?", tenantID, conversationID).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

func (r *GormDirectoryRepo) ActiveMemberIDs(ctx context.Context, tenantID string) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).
		Model(&MembershipModel{}).
		Where("tenant_id = ? AND status = ?", tenantID, MembershipActive).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

func (r *GormDirectoryRepo) GroupMemberIDs(ctx context.Context, tenantID, groupID string) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).
		Model(&MembershipModel{}).
		Where("tenant_id = ? AND group_id = ? AND status = ?", tenantID, groupID, MembershipActive).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

func (r *GormDirectoryRepo) ZoneLeaderFor(ctx context.Context, tenantID, groupID string) (string, error) {
	var model GroupModel
	err := r.db.WithContext(ctx).
		First(&model, "tenant_id = ? AND id = ?", tenantID, groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return model.ZoneLeaderID, nil
}

func (r *GormDirectoryRepo) PastorIDs(ctx context.Context, tenantID string) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).
		Model(&MembershipModel{}).
		Where("tenant_id = ? AND role = ? AND status = ?", tenantID, RolePastor, MembershipActive).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

func (r *GormDirectoryRepo) HasActiveMembership(ctx context.Context, tenantID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&MembershipModel{}).
		Where("tenant_id = ? AND user_id = ? AND status = ?", tenantID, userID, MembershipActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
