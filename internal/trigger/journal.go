package trigger

import (
	"context"
	"fmt"
	"strings"

	"github.com/JiminSongSoftware/gagyo-push/internal/applink"
	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"github.com/JiminSongSoftware/gagyo-push/internal/repository"
)

// JournalStatusEvent describes a pastoral journal moving between workflow
// states. From/To carry the previous and the new status.
type JournalStatusEvent struct {
	TenantID   string               `json:"tenantId"`
	JournalID  string               `json:"journalId"`
	AuthorID   string               `json:"authorId"`
	GroupID    string               `json:"groupId"`
	AuthorName string               `json:"authorName,omitempty"`
	From       domain.JournalStatus `json:"from"`
	To         domain.JournalStatus `json:"to"`
}

// PastoralJournalTrigger routes journal workflow transitions to the next
// actor in the review chain: the zone leader on submission, the pastors on
// zone review, and the author on final confirmation. Any other transition
// is silent.
type PastoralJournalTrigger struct {
	members repository.MembershipDirectory
	gate    PreferenceGate
}

func NewPastoralJournalTrigger(members repository.MembershipDirectory, gate PreferenceGate) (*PastoralJournalTrigger, error) {
	if members == nil {
		return nil, fmt.Errorf("membership directory is required")
	}
	if gate == nil {
		gate = AllowAllGate{}
	}

	return &PastoralJournalTrigger{members: members, gate: gate}, nil
}

func (t *PastoralJournalTrigger) Build(ctx context.Context, event JournalStatusEvent) (*domain.DispatchRequest, error) {
	if strings.TrimSpace(event.TenantID) == "" {
		return nil, fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(event.JournalID) == "" {
		return nil, fmt.Errorf("%w: journal id is required", domain.ErrValidation)
	}
	if !event.From.IsValid() || !event.To.IsValid() {
		return nil, fmt.Errorf("%w: invalid journal status transition %q -> %q", domain.ErrValidation, event.From, event.To)
	}

	notifType, recipients, err := t.resolveTransition(ctx, event)
	if err != nil {
		return nil, err
	}
	if recipients == nil {
		return nil, nil
	}

	recipients, err = filterByGate(ctx, t.gate, event.TenantID, notifType, recipients)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	link := applink.DeepLink{Screen: applink.ScreenPastoral, ID: event.JournalID}

	return &domain.DispatchRequest{
		TenantID: event.TenantID,
		Type:     notifType,
		Recipients: domain.Recipients{
			UserIDs: recipients,
		},
		Payload: domain.Payload{
			Title: journalTitle(notifType),
			Body:  journalBody(notifType, event.AuthorName),
			Data:  payloadData(notifType, event.TenantID, link.String()),
		},
	}, nil
}

// resolveTransition returns a nil recipient slice for transitions that do
// not notify anyone.
func (t *PastoralJournalTrigger) resolveTransition(ctx context.Context, event JournalStatusEvent) (domain.NotificationType, []string, error) {
	switch {
	case event.From == domain.JournalDraft && event.To == domain.JournalSubmitted:
		if event.GroupID == "" {
			return "", nil, fmt.Errorf("%w: group id is required for journal submission", domain.ErrValidation)
		}
		leader, err := t.members.ZoneLeaderFor(ctx, event.TenantID, event.GroupID)
		if err != nil {
			return "", nil, fmt.Errorf("failed to resolve zone leader: %w", err)
		}
		if leader == "" {
			return domain.TypeJournalSubmitted, []string{}, nil
		}
		return domain.TypeJournalSubmitted, []string{leader}, nil

	case event.From == domain.JournalSubmitted && event.To == domain.JournalZoneReviewed:
		pastors, err := t.members.PastorIDs(ctx, event.TenantID)
		if err != nil {
			return "", nil, fmt.Errorf("failed to load pastors: %w", err)
		}
		if pastors == nil {
			pastors = []string{}
		}
		return domain.TypeJournalZoneReviewed, pastors, nil

	case event.From == domain.JournalZoneReviewed && event.To == domain.JournalPastorConfirmed:
		if event.AuthorID == "" {
			return "", nil, fmt.Errorf("%w: author id is required for journal confirmation", domain.ErrValidation)
		}
		return domain.TypeJournalPastorConfirmed, []string{event.AuthorID}, nil
	}

	return "", nil, nil
}

func journalTitle(t domain.NotificationType) string {
	switch t {
	case domain.TypeJournalSubmitted:
		return "Journal submitted"
	case domain.TypeJournalZoneReviewed:
		return "Journal reviewed"
	case domain.TypeJournalPastorConfirmed:
		return "Journal confirmed"
	}
	return "Journal updated"
}

func journalBody(t domain.NotificationType, authorName string) string {
	name := strings.TrimSpace(authorName)
	if name == "" {
		name = "A member"
	}

	switch t {
	case domain.TypeJournalSubmitted:
		return fmt.Sprintf("%s submitted a pastoral journal for review", name)
	case domain.TypeJournalZoneReviewed:
		return fmt.Sprintf("%s's journal passed zone review", name)
	case domain.TypeJournalPastorConfirmed:
		return "Your pastoral journal has been confirmed"
	}
	return "A pastoral journal was updated"
}
