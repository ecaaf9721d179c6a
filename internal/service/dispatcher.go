package service

import (
	"context"
	"fmt"
	"time"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"github.com/JiminSongSoftware/gagyo-push/internal/observability"
	"github.com/JiminSongSoftware/gagyo-push/internal/provider"
	"github.com/JiminSongSoftware/gagyo-push/internal/ratelimit"
	"github.com/JiminSongSoftware/gagyo-push/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher turns one DispatchRequest into batched provider sends. It is
// stateless per invocation; the rate limiter's counter store is the only
// shared state. Within a request batches go out sequentially, so rate
// accounting and failure attribution stay deterministic.
type Dispatcher struct {
	tokens        repository.DeviceTokenRegistry
	conversations repository.ConversationDirectory
	logs          repository.NotificationLogRepository
	limiter       ratelimit.Limiter
	provider      provider.PushProvider
	logger        *zap.Logger
	metrics       *observability.Metrics
	batchSize     int
	now           func() time.Time
}

func NewDispatcher(
	tokens repository.DeviceTokenRegistry,
	conversations repository.ConversationDirectory,
	logs repository.NotificationLogRepository,
	limiter ratelimit.Limiter,
	pushProvider provider.PushProvider,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if tokens == nil {
		return nil, fmt.Errorf("device token registry is required")
	}
	if logs == nil {
		return nil, fmt.Errorf("notification log repository is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if pushProvider == nil {
		return nil, fmt.Errorf("push provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		tokens:        tokens,
		conversations: conversations,
		logs:          logs,
		limiter:       limiter,
		provider:      pushProvider,
		logger:        logger,
		batchSize:     domain.MaxBatchTokens,
		now:           time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Dispatch runs the full pipeline: recipient resolution, token fan-out,
// dedup, admission, batching, sequential sends, token cleanup, and exactly
// one audit row. Delivery is at most once per call; failed sends are never
// retried here.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.DispatchRequest) (*domain.DispatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	targets, recipientCount, err := d.resolveTargets(ctx, req)
	if err != nil {
		return nil, err
	}

	deviceTokens, err := d.resolveTokens(ctx, req.TenantID, targets)
	if err != nil {
		return nil, err
	}

	result := &domain.DispatchResult{
		RecipientCount: recipientCount,
		TargetCount:    len(targets),
		TokenCount:     len(deviceTokens),
	}

	if len(deviceTokens) == 0 {
		return result, d.appendLog(ctx, req, result, nil)
	}

	decision, err := d.limiter.TryAdmit(ctx, req.TenantID, len(deviceTokens))
	if err != nil {
		return nil, fmt.Errorf("admission check failed: %w", err)
	}
	if !decision.Admitted {
		rateErr := &domain.RateLimitError{
			TenantID:   req.TenantID,
			Cost:       len(deviceTokens),
			RetryAfter: decision.RetryAfter,
		}
		d.metrics.IncDispatchRejected("rate_limited")
		if logErr := d.appendLog(ctx, req, result, rateErr); logErr != nil {
			d.logger.Error("failed to append rate-limited audit row",
				zap.String("tenantId", req.TenantID),
				zap.Error(logErr),
			)
		}
		return result, rateErr
	}

	sendErr := d.sendBatches(ctx, req, deviceTokens, result)

	if logErr := d.appendLog(ctx, req, result, sendErr); logErr != nil {
		d.logger.Error("failed to append audit row",
			zap.String("tenantId", req.TenantID),
			zap.Error(logErr),
		)
		if sendErr == nil {
			return result, logErr
		}
	}

	if sendErr != nil {
		return result, sendErr
	}

	d.logger.Info("dispatch completed",
		zap.String("tenantId", req.TenantID),
		zap.String("type", req.Type.String()),
		zap.Int("recipients", result.RecipientCount),
		zap.Int("tokens", result.TokenCount),
		zap.Int("sent", result.SentCount),
		zap.Int("failed", result.FailedCount),
	)

	return result, nil
}

// resolveTargets subtracts explicit and conversation-scoped exclusions from
// the requested recipients. The returned count is the pre-exclusion unique
// user count, which is what the audit row records.
func (d *Dispatcher) resolveTargets(ctx context.Context, req domain.DispatchRequest) ([]string, int, error) {
	excluded := make(map[string]struct{}, len(req.Recipients.ExcludeUserIDs))
	for _, userID := range req.Recipients.ExcludeUserIDs {
		excluded[userID] = struct{}{}
	}

	if req.Recipients.ConversationID != "" && d.conversations != nil {
		conversationExcluded, err := d.conversations.Exclusions(ctx, req.TenantID, req.Recipients.ConversationID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load conversation exclusions: %w", err)
		}
		for _, userID := range conversationExcluded {
			excluded[userID] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(req.Recipients.UserIDs))
	targets := make([]string, 0, len(req.Recipients.UserIDs))
	for _, userID := range req.Recipients.UserIDs {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		if _, skip := excluded[userID]; skip {
			continue
		}
		targets = append(targets, userID)
	}

	return targets, len(seen), nil
}

// resolveTokens fans each target user out to all their active devices, then
// collapses by raw token string. Duplicate tokens should not occur under
// correct registration, but a duplicate must never double-send.
func (d *Dispatcher) resolveTokens(ctx context.Context, tenantID string, targets []string) ([]domain.DeviceToken, error) {
	seen := make(map[string]struct{})
	var deviceTokens []domain.DeviceToken

	for _, userID := range targets {
		userTokens, err := d.tokens.ActiveTokensFor(ctx, tenantID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve tokens for user %s: %w", userID, err)
		}
		for _, t := range userTokens {
			if _, dup := seen[t.Token]; dup {
				continue
			}
			seen[t.Token] = struct{}{}
			deviceTokens = append(deviceTokens, t)
		}
	}

	return deviceTokens, nil
}

func (d *Dispatcher) sendBatches(
	ctx context.Context,
	req domain.DispatchRequest,
	deviceTokens []domain.DeviceToken,
	result *domain.DispatchResult,
) error {
	batchSize := d.batchSize
	if batchSize <= 0 || batchSize > domain.MaxBatchTokens {
		batchSize = domain.MaxBatchTokens
	}

	badge := 0
	if req.Options != nil {
		badge = req.Options.Badge
	}

	for start := 0; start < len(deviceTokens); start += batchSize {
		end := min(start+batchSize, len(deviceTokens))
		chunk := deviceTokens[start:end]

		batchTokens := make([]string, 0, len(chunk))
		for _, t := range chunk {
			batchTokens = append(batchTokens, t.Token)
		}

		result.BatchCount++
		d.metrics.ObserveDispatchBatchSize(len(batchTokens))

		sendStart := d.now()
		receipts, err := d.provider.Send(ctx, provider.Batch{
			Tokens:   batchTokens,
			Title:    req.Payload.Title,
			Body:     req.Payload.Body,
			Data:     req.Payload.Data,
			Priority: req.Priority(),
			Sound:    req.Sound(),
			Badge:    badge,
		})
		d.metrics.ObserveProviderSendDuration(d.now().Sub(sendStart))

		if err != nil {
			// Whole-call failure aborts the remaining batches; nothing in
			// this or later batches was delivered.
			d.metrics.IncDispatchRejected("provider_unreachable")
			result.FailedCount += len(deviceTokens) - start
			return fmt.Errorf("%w: batch %d: %v", domain.ErrProviderUnreachable, result.BatchCount, err)
		}

		d.applyReceipts(ctx, req, receipts, result)
	}

	return nil
}

// applyReceipts tallies per-token outcomes and retires permanently dead
// tokens. A transient failure counts against the request but leaves the
// token active.
func (d *Dispatcher) applyReceipts(
	ctx context.Context,
	req domain.DispatchRequest,
	receipts []provider.Receipt,
	result *domain.DispatchResult,
) {
	for _, receipt := range receipts {
		switch receipt.Status {
		case provider.ReceiptDelivered:
			result.SentCount++
			d.metrics.IncPushSent(req.Type.String())
		case provider.ReceiptTransientFailure:
			result.FailedCount++
			d.metrics.IncPushFailed(req.Type.String(), "transient")
		case provider.ReceiptPermanentFailure:
			result.FailedCount++
			d.metrics.IncPushFailed(req.Type.String(), "permanent")

			if err := d.tokens.Invalidate(ctx, req.TenantID, receipt.Token); err != nil {
				d.logger.Warn("failed to invalidate dead token",
					zap.String("tenantId", req.TenantID),
					zap.Error(err),
				)
				continue
			}
			result.RevokedCount++
			d.metrics.IncTokenRevoked("provider_receipt")
		}
	}
}

// appendLog writes the single audit row for this request. Validation
// failures never reach here; every other outcome, including rate-limited
// and provider-unreachable dispatches, is recorded.
func (d *Dispatcher) appendLog(
	ctx context.Context,
	req domain.DispatchRequest,
	result *domain.DispatchResult,
	outcome error,
) error {
	var errorSummary *string
	if outcome != nil {
		summary := outcome.Error()
		errorSummary = &summary
	} else if result.FailedCount > 0 {
		summary := fmt.Sprintf("%d of %d sends failed", result.FailedCount, result.TokenCount)
		errorSummary = &summary
	}

	log := &domain.NotificationLog{
		ID:             uuid.NewString(),
		TenantID:       req.TenantID,
		Type:           req.Type,
		RecipientCount: result.RecipientCount,
		SentCount:      result.SentCount,
		FailedCount:    result.FailedCount,
		ErrorSummary:   errorSummary,
		CreatedAt:      d.now().UTC(),
	}

	if err := d.logs.Create(ctx, log); err != nil {
		return fmt.Errorf("failed to append notification log: %w", err)
	}

	result.LogID = log.ID
	return nil
}
