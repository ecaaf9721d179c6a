package domain

import (
	"fmt"
	"strings"
)

// NotificationType is the closed set of push notification variants. Payload
// building and trigger construction both switch exhaustively over it so a
// new variant fails to compile until every site handles it.
type NotificationType string

const (
	TypeNewMessage             NotificationType = "new_message"
	TypeMention                NotificationType = "mention"
	TypePrayerAnswered         NotificationType = "prayer_answered"
	TypeJournalSubmitted       NotificationType = "journal_submitted"
	TypeJournalZoneReviewed    NotificationType = "journal_zone_reviewed"
	TypeJournalPastorConfirmed NotificationType = "journal_pastor_confirmed"
)

func (t NotificationType) String() string { return string(t) }

func (t NotificationType) IsValid() bool {
	switch t {
	case TypeNewMessage, TypeMention, TypePrayerAnswered,
		TypeJournalSubmitted, TypeJournalZoneReviewed, TypeJournalPastorConfirmed:
		return true
	}
	return false
}

func ParseNotificationType(s string) (NotificationType, error) {
	t := NotificationType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: invalid notification type %q", ErrValidation, s)
	}
	return t, nil
}

// DefaultPriority maps a notification type to its delivery priority.
// Mentions are the only elevated variant.
func (t NotificationType) DefaultPriority() Priority {
	switch t {
	case TypeMention:
		return PriorityHigh
	case TypeNewMessage, TypePrayerAnswered,
		TypeJournalSubmitted, TypeJournalZoneReviewed, TypeJournalPastorConfirmed:
		return PriorityNormal
	}
	return PriorityNormal
}

// DefaultSound maps a notification type to its notification sound.
func (t NotificationType) DefaultSound() string {
	switch t {
	case TypeMention:
		return "mention"
	case TypeNewMessage, TypePrayerAnswered,
		TypeJournalSubmitted, TypeJournalZoneReviewed, TypeJournalPastorConfirmed:
		return "default"
	}
	return "default"
}

// Platform identifies the device push platform.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

func (p Platform) String() string { return string(p) }

func (p Platform) IsValid() bool {
	switch p {
	case PlatformIOS, PlatformAndroid:
		return true
	}
	return false
}

func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: invalid platform %q", ErrValidation, s)
	}
	return p, nil
}

// Priority is the push delivery priority level.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

func (p Priority) String() string { return string(p) }

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityNormal:
		return true
	}
	return false
}

// PrayerScope controls the recipient set of a prayer-answered notification.
type PrayerScope string

const (
	ScopeIndividual PrayerScope = "individual"
	ScopeSmallGroup PrayerScope = "small_group"
	ScopeChurchWide PrayerScope = "church_wide"
)

func (s PrayerScope) String() string { return string(s) }

func (s PrayerScope) IsValid() bool {
	switch s {
	case ScopeIndividual, ScopeSmallGroup, ScopeChurchWide:
		return true
	}
	return false
}

func ParsePrayerScope(s string) (PrayerScope, error) {
	sc := PrayerScope(strings.ToLower(strings.TrimSpace(s)))
	if !sc.IsValid() {
		return "", fmt.Errorf("%w: invalid prayer scope %q", ErrValidation, s)
	}
	return sc, nil
}

// JournalStatus is a pastoral journal workflow state. The trigger's
// recipient table keys off the (from, to) edge, so the states are modeled
// here even though the workflow itself lives with an external collaborator.
type JournalStatus string

const (
	JournalDraft           JournalStatus = "draft"
	JournalSubmitted       JournalStatus = "submitted"
	JournalZoneReviewed    JournalStatus = "zone_reviewed"
	JournalPastorConfirmed JournalStatus = "pastor_confirmed"
)

func (s JournalStatus) String() string { return string(s) }

func (s JournalStatus) IsValid() bool {
	switch s {
	case JournalDraft, JournalSubmitted, JournalZoneReviewed, JournalPastorConfirmed:
		return true
	}
	return false
}

func ParseJournalStatus(s string) (JournalStatus, error) {
	st := JournalStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid journal status %q", ErrValidation, s)
	}
	return st, nil
}
