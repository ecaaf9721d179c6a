package trigger

import (
	"context"
	"fmt"
	"strings"

	"github.com/JiminSongSoftware/gagyo-push/internal/applink"
	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"github.com/JiminSongSoftware/gagyo-push/internal/repository"
)

// PrayerAnsweredEvent is the prayer collaborator's "card updated" event,
// carrying the answered flag before and after the update.
type PrayerAnsweredEvent struct {
	TenantID    string             `json:"tenantId"`
	CardID      string             `json:"cardId"`
	AuthorID    string             `json:"authorId"`
	GroupID     string             `json:"groupId,omitempty"`
	Scope       domain.PrayerScope `json:"recipientScope"`
	Title       string             `json:"title"`
	WasAnswered bool               `json:"wasAnswered"`
	Answered    bool               `json:"answered"`
}

// PrayerAnsweredTrigger notifies when a prayer card's answered flag flips
// false→true. The recipient set follows the card's recipientScope.
type PrayerAnsweredTrigger struct {
	members repository.MembershipDirectory
	gate    PreferenceGate
}

func NewPrayerAnsweredTrigger(members repository.MembershipDirectory, gate PreferenceGate) (*PrayerAnsweredTrigger, error) {
	if members == nil {
		return nil, fmt.Errorf("membership directory is required")
	}
	if gate == nil {
		gate = AllowAllGate{}
	}

	return &PrayerAnsweredTrigger{members: members, gate: gate}, nil
}

func (t *PrayerAnsweredTrigger) Build(ctx context.Context, event PrayerAnsweredEvent) (*domain.DispatchRequest, error) {
	if strings.TrimSpace(event.TenantID) == "" {
		return nil, fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(event.CardID) == "" {
		return nil, fmt.Errorf("%w: card id is required", domain.ErrValidation)
	}
	if !event.Scope.IsValid() {
		return nil, fmt.Errorf("%w: invalid recipient scope %q", domain.ErrValidation, event.Scope)
	}

	// Only the false→true flip fires; edits to an already-answered card and
	// un-answering are silent.
	if event.WasAnswered || !event.Answered {
		return nil, nil
	}

	recipients, err := t.resolveScope(ctx, event)
	if err != nil {
		return nil, err
	}

	recipients, err = filterByGate(ctx, t.gate, event.TenantID, domain.TypePrayerAnswered, recipients)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	link := applink.DeepLink{Screen: applink.ScreenPrayer, ID: event.CardID}
	body := strings.TrimSpace(event.Title)
	if body == "" {
		body = "A prayer has been answered"
	}

	return &domain.DispatchRequest{
		TenantID: event.TenantID,
		Type:     domain.TypePrayerAnswered,
		Recipients: domain.Recipients{
			UserIDs: recipients,
		},
		Payload: domain.Payload{
			Title: "Prayer answered",
			Body:  body,
			Data:  payloadData(domain.TypePrayerAnswered, event.TenantID, link.String()),
		},
	}, nil
}

func (t *PrayerAnsweredTrigger) resolveScope(ctx context.Context, event PrayerAnsweredEvent) ([]string, error) {
	switch event.Scope {
	case domain.ScopeIndividual:
		if event.AuthorID == "" {
			return nil, fmt.Errorf("%w: author id is required for individual scope", domain.ErrValidation)
		}
		return []string{event.AuthorID}, nil

	case domain.ScopeSmallGroup:
		if event.GroupID == "" {
			return nil, fmt.Errorf("%w: group id is required for small_group scope", domain.ErrValidation)
		}
		members, err := t.members.GroupMemberIDs(ctx, event.TenantID, event.GroupID)
		if err != nil {
			return nil, fmt.Errorf("failed to load group members: %w", err)
		}
		return members, nil

	case domain.ScopeChurchWide:
		members, err := t.members.ActiveMemberIDs(ctx, event.TenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to load tenant members: %w", err)
		}
		return members, nil
	}

	return nil, fmt.Errorf("%w: invalid recipient scope %q", domain.ErrValidation, event.Scope)
}
