package trigger

import (
	"context"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"github.com/JiminSongSoftware/gagyo-push/internal/repository"
)

type fakeConversationDirectory struct {
	participantsFn func(ctx context.Context, tenantID, conversationID string) ([]string, error)
	exclusionsFn   func(ctx context.Context, tenantID, conversationID string) ([]string, error)
}

var _ repository.ConversationDirectory = (*fakeConversationDirectory)(nil)

func (f *fakeConversationDirectory) Participants(ctx context.Context, tenantID, conversationID string) ([]string, error) {
	if f.participantsFn != nil {
		return f.participantsFn(ctx, tenantID, conversationID)
	}
	return nil, nil
}

func (f *fakeConversationDirectory) Exclusions(ctx context.Context, tenantID, conversationID string) ([]string, error) {
	if f.exclusionsFn != nil {
		return f.exclusionsFn(ctx, tenantID, conversationID)
	}
	return nil, nil
}

type fakeMembershipDirectory struct {
	activeMemberIDsFn func(ctx context.Context, tenantID string) ([]string, error)
	groupMemberIDsFn  func(ctx context.Context, tenantID, groupID string) ([]string, error)
	zoneLeaderForFn   func(ctx context.Context, tenantID, groupID string) (string, error)
	pastorIDsFn       func(ctx context.Context, tenantID string) ([]string, error)
	hasMembershipFn   func(ctx context.Context, tenantID, userID string) (bool, error)
}

var _ repository.MembershipDirectory = (*fakeMembershipDirectory)(nil)

func (f *fakeMembershipDirectory) ActiveMemberIDs(ctx context.Context, tenantID string) ([]string, error) {
	if f.activeMemberIDsFn != nil {
		return f.activeMemberIDsFn(ctx, tenantID)
	}
	return nil, nil
}

func (f *fakeMembershipDirectory) GroupMemberIDs(ctx context.Context, tenantID, groupID string) ([]string, error) {
	if f.groupMemberIDsFn != nil {
		return f.groupMemberIDsFn(ctx, tenantID, groupID)
	}
	return nil, nil
}

func (f *fakeMembershipDirectory) ZoneLeaderFor(ctx context.Context, tenantID, groupID string) (string, error) {
	if f.zoneLeaderForFn != nil {
		return f.zoneLeaderForFn(ctx, tenantID, groupID)
	}
	return "", nil
}

func (f *fakeMembershipDirectory) PastorIDs(ctx context.Context, tenantID string) ([]string, error) {
	if f.pastorIDsFn != nil {
		return f.pastorIDsFn(ctx, tenantID)
	}
	return nil, nil
}

func (f *fakeMembershipDirectory) HasActiveMembership(ctx context.Context, tenantID, userID string) (bool, error) {
	if f.hasMembershipFn != nil {
		return f.hasMembershipFn(ctx, tenantID, userID)
	}
	return false, nil
}

// denyListGate suppresses the listed users regardless of type.
type denyListGate struct {
	denied map[string]bool
}

func (g denyListGate) Allows(_ context.Context, _ string, userID string, _ domain.NotificationType) (bool, error) {
	return !g.denied[userID], nil
}
