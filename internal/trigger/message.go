package trigger

import (
	"context"
	"fmt"
	"strings"

	"github.com/JiminSongSoftware/gagyo-push/internal/applink"
	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"github.com/JiminSongSoftware/gagyo-push/internal/repository"
)

// MessageSentEvent is the chat collaborator's "message persisted" event.
// ExcludedUserIDs carries the message's own privacy exclusions (event
// chats); the conversation-level exclusion set is applied downstream by the
// dispatcher.
type MessageSentEvent struct {
	TenantID         string   `json:"tenantId"`
	ConversationID   string   `json:"conversationId"`
	MessageID        string   `json:"messageId"`
	SenderID         string   `json:"senderId"`
	SenderName       string   `json:"senderName"`
	Preview          string   `json:"preview"`
	ThreadID         string   `json:"threadId,omitempty"`
	ExcludedUserIDs  []string `json:"excludedUserIds,omitempty"`
	MentionedUserIDs []string `json:"mentionedUserIds,omitempty"`
}

// MessageSentTrigger notifies conversation participants about a new
// message. Recipients are the participants minus the sender minus the
// message's exclusion set; the type escalates to mention when the message
// targets at least one remaining recipient.
type MessageSentTrigger struct {
	conversations repository.ConversationDirectory
	gate          PreferenceGate
}

func NewMessageSentTrigger(conversations repository.ConversationDirectory, gate PreferenceGate) (*MessageSentTrigger, error) {
	if conversations == nil {
		return nil, fmt.Errorf("conversation directory is required")
	}
	if gate == nil {
		gate = AllowAllGate{}
	}

	return &MessageSentTrigger{conversations: conversations, gate: gate}, nil
}

func (t *MessageSentTrigger) Build(ctx context.Context, event MessageSentEvent) (*domain.DispatchRequest, error) {
	if strings.TrimSpace(event.TenantID) == "" {
		return nil, fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(event.ConversationID) == "" {
		return nil, fmt.Errorf("%w: conversation id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(event.SenderID) == "" {
		return nil, fmt.Errorf("%w: sender id is required", domain.ErrValidation)
	}

	participants, err := t.conversations.Participants(ctx, event.TenantID, event.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation participants: %w", err)
	}

	excluded := make(map[string]struct{}, len(event.ExcludedUserIDs)+1)
	excluded[event.SenderID] = struct{}{}
	for _, userID := range event.ExcludedUserIDs {
		excluded[userID] = struct{}{}
	}

	recipients := make([]string, 0, len(participants))
	for _, userID := range participants {
		if _, skip := excluded[userID]; skip {
			continue
		}
		recipients = append(recipients, userID)
	}

	notificationType := messageType(recipients, event.MentionedUserIDs)

	recipients, err = filterByGate(ctx, t.gate, event.TenantID, notificationType, recipients)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	link := applink.DeepLink{
		Screen: applink.ScreenChat,
		ID:     event.ConversationID,
		Params: map[string]string{"messageId": event.MessageID},
	}
	if event.ThreadID != "" {
		link.Params["threadId"] = event.ThreadID
	}

	title := strings.TrimSpace(event.SenderName)
	if title == "" {
		title = "New message"
	}

	excludeList := make([]string, 0, len(event.ExcludedUserIDs)+1)
	excludeList = append(excludeList, event.SenderID)
	excludeList = append(excludeList, event.ExcludedUserIDs...)

	return &domain.DispatchRequest{
		TenantID: event.TenantID,
		Type:     notificationType,
		Recipients: domain.Recipients{
			UserIDs:        recipients,
			ConversationID: event.ConversationID,
			ExcludeUserIDs: excludeList,
		},
		Payload: domain.Payload{
			Title: title,
			Body:  event.Preview,
			Data:  payloadData(notificationType, event.TenantID, link.String()),
		},
	}, nil
}

// messageType escalates to mention when the message targets at least one of
// the surviving recipients.
func messageType(recipients []string, mentioned []string) domain.NotificationType {
	if len(mentioned) == 0 {
		return domain.TypeNewMessage
	}

	recipientSet := make(map[string]struct{}, len(recipients))
	for _, userID := range recipients {
		recipientSet[userID] = struct{}{}
	}
	for _, userID := range mentioned {
		if _, ok := recipientSet[userID]; ok {
			return domain.TypeMention
		}
	}

	return domain.TypeNewMessage
}
