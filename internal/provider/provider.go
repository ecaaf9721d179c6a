package provider

import (
	"context"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
)

// ReceiptStatus is the per-token outcome of a batch send.
type ReceiptStatus string

const (
	// ReceiptDelivered means the provider accepted the message for the token.
	ReceiptDelivered ReceiptStatus = "delivered"
	// ReceiptTransientFailure means the send failed but the token stays
	// active; the dispatcher never retries within the same call.
	ReceiptTransientFailure ReceiptStatus = "transient_failure"
	// ReceiptPermanentFailure means the token is dead and must be revoked.
	ReceiptPermanentFailure ReceiptStatus = "permanent_failure"
)

// Receipt is one token's delivery outcome.
type Receipt struct {
	Token  string
	Status ReceiptStatus
	Reason string
}

// Batch is one provider API call: at most domain.MaxBatchTokens targets
// sharing a single payload.
type Batch struct {
	Tokens   []string
	Title    string
	Body     string
	Data     map[string]string
	Priority domain.Priority
	Sound    string
	Badge    int
}

// PushProvider is the outbound push delivery port. Send returns one receipt
// per token; a returned error means the whole call failed and nothing in the
// batch was delivered.
type PushProvider interface {
	Send(ctx context.Context, batch Batch) ([]Receipt, error)
}
