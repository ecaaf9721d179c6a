package trigger

import (
	"context"
	"errors"
	"testing"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
)

func prayerEvent(scope domain.PrayerScope) PrayerAnsweredEvent {
	return PrayerAnsweredEvent{
		TenantID:    "tenant-a",
		CardID:      "card-1",
		AuthorID:    "author",
		GroupID:     "group-1",
		Scope:       scope,
		Title:       "For the youth retreat",
		WasAnswered: false,
		Answered:    true,
	}
}

func TestPrayerTriggerFiresOnlyOnAnsweredFlip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		wasAnswered bool
		answered    bool
		wantRequest bool
	}{
		{name: "false to true fires", wasAnswered: false, answered: true, wantRequest: true},
		{name: "already answered is silent", wasAnswered: true, answered: true, wantRequest: false},
		{name: "un-answering is silent", wasAnswered: true, answered: false, wantRequest: false},
		{name: "still unanswered is silent", wasAnswered: false, answered: false, wantRequest: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			trig, err := NewPrayerAnsweredTrigger(&fakeMembershipDirectory{}, nil)
			if err != nil {
				t.Fatalf("NewPrayerAnsweredTrigger() error = %v", err)
			}

			event := prayerEvent(domain.ScopeIndividual)
			event.WasAnswered = tt.wasAnswered
			event.Answered = tt.answered

			req, err := trig.Build(context.Background(), event)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if (req != nil) != tt.wantRequest {
				t.Fatalf("Build() = %v, wantRequest = %v", req, tt.wantRequest)
			}
		})
	}
}

func TestPrayerTriggerIndividualScopeNotifiesAuthor(t *testing.T) {
	t.Parallel()

	trig, err := NewPrayerAnsweredTrigger(&fakeMembershipDirectory{}, nil)
	if err != nil {
		t.Fatalf("NewPrayerAnsweredTrigger() error = %v", err)
	}

	req, err := trig.Build(context.Background(), prayerEvent(domain.ScopeIndividual))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(req.Recipients.UserIDs) != 1 || req.Recipients.UserIDs[0] != "author" {
		t.Fatalf("recipients = %v, want [author]", req.Recipients.UserIDs)
	}
	if req.Type != domain.TypePrayerAnswered {
		t.Errorf("Type = %s, want prayer_answered", req.Type)
	}
	if req.Payload.Data["link"] != "app:///prayer/card-1" {
		t.Errorf("link = %s, want app:///prayer/card-1", req.Payload.Data["link"])
	}
}

func TestPrayerTriggerSmallGroupScopeNotifiesGroup(t *testing.T) {
	t.Parallel()

	directory := &fakeMembershipDirectory{
		groupMemberIDsFn: func(ctx context.Context, tenantID, groupID string) ([]string, error) {
			if groupID != "group-1" {
				t.Fatalf("groupID = %s, want group-1", groupID)
			}
			return []string{"member-1", "member-2", "author"}, nil
		},
	}
	trig, err := NewPrayerAnsweredTrigger(directory, nil)
	if err != nil {
		t.Fatalf("NewPrayerAnsweredTrigger() error = %v", err)
	}

	req, err := trig.Build(context.Background(), prayerEvent(domain.ScopeSmallGroup))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(req.Recipients.UserIDs) != 3 {
		t.Fatalf("recipients = %v, want all 3 group members", req.Recipients.UserIDs)
	}
}

func TestPrayerTriggerChurchWideScopeNotifiesAllActiveMembers(t *testing.T) {
	t.Parallel()

	directory := &fakeMembershipDirectory{
		activeMemberIDsFn: func(ctx context.Context, tenantID string) ([]string, error) {
			return []string{"member-1", "member-2", "member-3", "member-4"}, nil
		},
	}
	trig, err := NewPrayerAnsweredTrigger(directory, nil)
	if err != nil {
		t.Fatalf("NewPrayerAnsweredTrigger() error = %v", err)
	}

	req, err := trig.Build(context.Background(), prayerEvent(domain.ScopeChurchWide))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(req.Recipients.UserIDs) != 4 {
		t.Fatalf("recipients = %v, want all active members", req.Recipients.UserIDs)
	}
}

func TestPrayerTriggerRejectsInvalidScope(t *testing.T) {
	t.Parallel()

	trig, err := NewPrayerAnsweredTrigger(&fakeMembershipDirectory{}, nil)
	if err != nil {
		t.Fatalf("NewPrayerAnsweredTrigger() error = %v", err)
	}

	event := prayerEvent("continental")
	if _, err := trig.Build(context.Background(), event); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Build() error = %v, want ErrValidation", err)
	}
}

func TestPrayerTriggerSmallGroupRequiresGroupID(t *testing.T) {
	t.Parallel()

	trig, err := NewPrayerAnsweredTrigger(&fakeMembershipDirectory{}, nil)
	if err != nil {
		t.Fatalf("NewPrayerAnsweredTrigger() error = %v", err)
	}

	event := prayerEvent(domain.ScopeSmallGroup)
	event.GroupID = ""

	if _, err := trig.Build(context.Background(), event); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Build() error = %v, want ErrValidation", err)
	}
}
