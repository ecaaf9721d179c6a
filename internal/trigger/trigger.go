// Package trigger adapts domain events into dispatch requests. Triggers are
// pure: event in, at most one DispatchRequest out, and none of them talk to
// the push provider.
package trigger

import (
	"context"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
)

// PreferenceGate is the per-user notification preference collaborator. It
// is consulted before a DispatchRequest is constructed: suppressed users
// simply never appear in the recipient list. The preference model itself
// lives outside this service.
type PreferenceGate interface {
	Allows(ctx context.Context, tenantID, userID string, t domain.NotificationType) (bool, error)
}

// AllowAllGate admits every recipient. Used when no preference backend is
// wired.
type AllowAllGate struct{}

func (AllowAllGate) Allows(context.Context, string, string, domain.NotificationType) (bool, error) {
	return true, nil
}

// filterByGate drops recipients whose preferences suppress this type.
func filterByGate(
	ctx context.Context,
	gate PreferenceGate,
	tenantID string,
	t domain.NotificationType,
	userIDs []string,
) ([]string, error) {
	if gate == nil {
		return userIDs, nil
	}

	allowed := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		ok, err := gate.Allows(ctx, tenantID, userID, t)
		if err != nil {
			return nil, err
		}
		if ok {
			allowed = append(allowed, userID)
		}
	}

	return allowed, nil
}

func payloadData(t domain.NotificationType, tenantID, link string) map[string]string {
	return map[string]string{
		"type":     t.String(),
		"tenantId": tenantID,
		"link":     link,
	}
}
