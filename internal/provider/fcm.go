package provider

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"google.golang.org/api/option"
)

// multicastSender is the slice of messaging.Client the provider needs;
// tests substitute a fake.
type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMProvider delivers batches through Firebase Cloud Messaging.
type FCMProvider struct {
	client multicastSender
}

func NewFCMProvider(ctx context.Context, credentialsFile string) (*FCMProvider, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fcm messaging client: %w", err)
	}

	return &FCMProvider{client: client}, nil
}

func newFCMProviderWithSender(sender multicastSender) (*FCMProvider, error) {
	if sender == nil {
		return nil, fmt.Errorf("multicast sender is required")
	}
	return &FCMProvider{client: sender}, nil
}

func (p *FCMProvider) Send(ctx context.Context, batch Batch) ([]Receipt, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if len(batch.Tokens) == 0 {
		return nil, nil
	}
	if len(batch.Tokens) > domain.MaxBatchTokens {
		return nil, fmt.Errorf("batch of %d tokens exceeds provider ceiling %d", len(batch.Tokens), domain.MaxBatchTokens)
	}

	response, err := p.client.SendEachForMulticast(ctx, multicastMessage(batch))
	if err != nil {
		return nil, &ProviderError{
			Message:   "fcm multicast failed",
			Transient: true,
			Cause:     err,
		}
	}

	receipts := make([]Receipt, 0, len(batch.Tokens))
	for i, resp := range response.Responses {
		if i >= len(batch.Tokens) {
			break
		}

		token := batch.Tokens[i]
		if resp.Success {
			receipts = append(receipts, Receipt{Token: token, Status: ReceiptDelivered})
			continue
		}

		receipts = append(receipts, Receipt{
			Token:  token,
			Status: classifyFCMError(resp.Error),
			Reason: errorReason(resp.Error),
		})
	}

	return receipts, nil
}

func multicastMessage(batch Batch) *messaging.MulticastMessage {
	androidPriority := "normal"
	apnsPriority := "5"
	if batch.Priority == domain.PriorityHigh {
		androidPriority = "high"
		apnsPriority = "10"
	}

	badge := batch.Badge
	return &messaging.MulticastMessage{
		Tokens: batch.Tokens,
		Notification: &messaging.Notification{
			Title: batch.Title,
			Body:  batch.Body,
		},
		Data: batch.Data,
		Android: &messaging.AndroidConfig{
			Priority: androidPriority,
			Notification: &messaging.AndroidNotification{
				Sound: batch.Sound,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": apnsPriority},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: batch.Sound,
					Badge: &badge,
				},
			},
		},
	}
}

// classifyFCMError maps a per-token FCM error to a receipt status. Only
// errors that mean the token itself is dead are permanent; everything else
// leaves the token active.
func classifyFCMError(err error) ReceiptStatus {
	if err == nil {
		return ReceiptTransientFailure
	}

	if messaging.IsUnregistered(err) ||
		messaging.IsSenderIDMismatch(err) ||
		messaging.IsInvalidArgument(err) {
		return ReceiptPermanentFailure
	}

	return ReceiptTransientFailure
}

func errorReason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
