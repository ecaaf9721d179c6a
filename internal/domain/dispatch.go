package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxBatchTokens is the hard provider ceiling on tokens per batch call.
const MaxBatchTokens = 100

// Recipients names the target users of a dispatch. ExcludeUserIDs carries
// explicit per-message exclusions; ConversationID, when set, additionally
// pulls the conversation's persisted exclusion set.
type Recipients struct {
	UserIDs        []string `json:"userIds"`
	ConversationID string   `json:"conversationId,omitempty"`
	ExcludeUserIDs []string `json:"excludeUserIds,omitempty"`
}

// Payload is the notification content delivered to the device. Data rides
// along for client-side deep-link resolution.
type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Options tunes delivery behavior per request.
type Options struct {
	Priority Priority `json:"priority,omitempty"`
	Sound    string   `json:"sound,omitempty"`
	Badge    int      `json:"badge,omitempty"`
}

// DispatchRequest is one push dispatch unit of work. It is transient: only
// its aggregated NotificationLog row outlives the call.
type DispatchRequest struct {
	TenantID   string           `json:"tenantId"`
	Type       NotificationType `json:"notificationType"`
	Recipients Recipients       `json:"recipients"`
	Payload    Payload          `json:"payload"`
	Options    *Options         `json:"options,omitempty"`
}

func (r *DispatchRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: dispatch request is required", ErrValidation)
	}
	if strings.TrimSpace(r.TenantID) == "" {
		return fmt.Errorf("%w: tenant id is required", ErrValidation)
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: invalid notification type %q", ErrValidation, r.Type)
	}
	if len(r.Recipients.UserIDs) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrValidation)
	}
	if strings.TrimSpace(r.Payload.Title) == "" {
		return fmt.Errorf("%w: payload title is required", ErrValidation)
	}
	if strings.TrimSpace(r.Payload.Body) == "" {
		return fmt.Errorf("%w: payload body is required", ErrValidation)
	}
	if r.Options != nil && r.Options.Priority != "" && !r.Options.Priority.IsValid() {
		return fmt.Errorf("%w: invalid priority %q", ErrValidation, r.Options.Priority)
	}
	return nil
}

// Priority resolves the effective delivery priority: explicit option first,
// then the type default.
func (r *DispatchRequest) Priority() Priority {
	if r.Options != nil && r.Options.Priority.IsValid() {
		return r.Options.Priority
	}
	return r.Type.DefaultPriority()
}

// Sound resolves the effective notification sound.
func (r *DispatchRequest) Sound() string {
	if r.Options != nil && strings.TrimSpace(r.Options.Sound) != "" {
		return r.Options.Sound
	}
	return r.Type.DefaultSound()
}

// DispatchResult summarizes one completed dispatch.
type DispatchResult struct {
	LogID          string `json:"logId"`
	RecipientCount int    `json:"recipientCount"`
	TargetCount    int    `json:"targetCount"`
	TokenCount     int    `json:"tokenCount"`
	BatchCount     int    `json:"batchCount"`
	SentCount      int    `json:"sentCount"`
	FailedCount    int    `json:"failedCount"`
	RevokedCount   int    `json:"revokedCount"`
}

// NotificationLog is the append-only audit row, exactly one per
// DispatchRequest regardless of batch count.
type NotificationLog struct {
	ID             string
	TenantID       string
	Type           NotificationType
	RecipientCount int
	SentCount      int
	FailedCount    int
	ErrorSummary   *string
	CreatedAt      time.Time
}
