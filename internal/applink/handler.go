package applink

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// TapOutcome is the terminal state of a single tap resolution.
type TapOutcome string

const (
	OutcomeNavigated         TapOutcome = "navigated"
	OutcomeDiscarded         TapOutcome = "discarded"
	OutcomeMembershipInvalid TapOutcome = "membership_invalid"
	OutcomeSessionExpired    TapOutcome = "session_expired"
)

// NotificationPayload is the push payload as delivered to the device. Data
// carries at least type, tenantId and link for a well-formed notification.
type NotificationPayload struct {
	Title string
	Body  string
	Data  map[string]string
}

// Session exposes the authentication and tenant context of the running app.
type Session interface {
	IsAuthenticated(ctx context.Context) bool
	ActiveTenantID(ctx context.Context) string
	CurrentUserID(ctx context.Context) string
}

// MembershipChecker verifies that a user currently belongs to a tenant.
type MembershipChecker interface {
	HasActiveMembership(ctx context.Context, tenantID, userID string) (bool, error)
}

// TenantSwitcher changes the app's active tenant context.
type TenantSwitcher interface {
	SwitchTenant(ctx context.Context, tenantID string) error
}

// Navigator pushes a screen onto the app's navigation stack.
type Navigator interface {
	Navigate(ctx context.Context, link DeepLink) error
}

// Handler resolves notification taps into navigation. A tap that arrives
// before the session is ready (cold start) is held as a single pending
// intent and replayed once the session reports ready.
type Handler struct {
	session    Session
	membership MembershipChecker
	switcher   TenantSwitcher
	navigator  Navigator
	logger     *zap.Logger

	mu        sync.Mutex
	resolving bool
	queue     []NotificationPayload
	pending   *NotificationPayload
}

func NewHandler(
	session Session,
	membership MembershipChecker,
	switcher TenantSwitcher,
	navigator Navigator,
	logger *zap.Logger,
) (*Handler, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if membership == nil {
		return nil, fmt.Errorf("membership checker is required")
	}
	if switcher == nil {
		return nil, fmt.Errorf("tenant switcher is required")
	}
	if navigator == nil {
		return nil, fmt.Errorf("navigator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		session:    session,
		membership: membership,
		switcher:   switcher,
		navigator:  navigator,
		logger:     logger,
	}, nil
}

// HandleTap resolves a tapped notification. Taps arriving while a prior tap
// is still resolving are queued and drained in arrival order. The outcome
// returned is the outcome of this tap; queued taps report through the logger.
func (h *Handler) HandleTap(ctx context.Context, payload NotificationPayload) (TapOutcome, error) {
	if !wellFormed(payload) {
		h.logger.Warn("discarding malformed notification payload")
		return OutcomeDiscarded, nil
	}

	if !h.session.IsAuthenticated(ctx) {
		h.holdPending(payload)
		return OutcomeSessionExpired, nil
	}

	h.mu.Lock()
	if h.resolving {
		h.queue = append(h.queue, payload)
		h.mu.Unlock()
		h.logger.Debug("tap queued behind in-flight resolution")
		return OutcomeNavigated, nil
	}
	h.resolving = true
	h.mu.Unlock()

	outcome, err := h.resolve(ctx, payload)
	h.drainQueue(ctx)
	return outcome, err
}

// ColdStartReady replays the pending cold-start intent, if any. Call once
// after authentication and tenant context are established; the intent is
// cleared before resolution so it can never run twice.
func (h *Handler) ColdStartReady(ctx context.Context) (TapOutcome, error) {
	h.mu.Lock()
	payload := h.pending
	h.pending = nil
	h.mu.Unlock()

	if payload == nil {
		return OutcomeDiscarded, nil
	}
	if !h.session.IsAuthenticated(ctx) {
		h.logger.Warn("cold start replay before authentication, dropping intent")
		return OutcomeSessionExpired, nil
	}

	h.mu.Lock()
	if h.resolving {
		h.queue = append(h.queue, *payload)
		h.mu.Unlock()
		return OutcomeNavigated, nil
	}
	h.resolving = true
	h.mu.Unlock()

	outcome, err := h.resolve(ctx, *payload)
	h.drainQueue(ctx)
	return outcome, err
}

// HasPendingIntent reports whether a cold-start intent is held.
func (h *Handler) HasPendingIntent() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending != nil
}

func (h *Handler) holdPending(payload NotificationPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	// At most one pending intent; a later tap replaces an earlier one.
	h.pending = &payload
}

func (h *Handler) resolve(ctx context.Context, payload NotificationPayload) (TapOutcome, error) {
	link, err := ParseDeepLink(payload.Data["link"])
	if err != nil {
		h.logger.Warn("discarding notification with bad deep link", zap.Error(err))
		return OutcomeDiscarded, nil
	}

	targetTenant := payload.Data["tenantId"]
	if targetTenant != "" && targetTenant != h.session.ActiveTenantID(ctx) {
		userID := h.session.CurrentUserID(ctx)
		ok, err := h.membership.HasActiveMembership(ctx, targetTenant, userID)
		if err != nil {
			return OutcomeMembershipInvalid, fmt.Errorf("membership check failed: %w", err)
		}
		if !ok {
			h.logger.Warn("tap targets a tenant the user does not belong to",
				zap.String("tenant_id", targetTenant))
			return OutcomeMembershipInvalid, nil
		}
		if err := h.switcher.SwitchTenant(ctx, targetTenant); err != nil {
			return OutcomeMembershipInvalid, fmt.Errorf("tenant switch failed: %w", err)
		}
	}

	if err := h.navigator.Navigate(ctx, link); err != nil {
		return OutcomeDiscarded, fmt.Errorf("navigation failed: %w", err)
	}

	h.logger.Info("notification tap navigated",
		zap.String("screen", link.Screen.String()),
		zap.String("id", link.ID))
	return OutcomeNavigated, nil
}

// drainQueue resolves taps that queued while a resolution was in flight,
// in arrival order, then releases the resolving flag.
func (h *Handler) drainQueue(ctx context.Context) {
	for {
		h.mu.Lock()
		if len(h.queue) == 0 {
			h.resolving = false
			h.mu.Unlock()
			return
		}
		next := h.queue[0]
		h.queue = h.queue[1:]
		h.mu.Unlock()

		if _, err := h.resolve(ctx, next); err != nil {
			h.logger.Warn("queued tap resolution failed", zap.Error(err))
		}
	}
}

func wellFormed(payload NotificationPayload) bool {
	if payload.Title == "" || payload.Body == "" {
		return false
	}
	if payload.Data == nil || payload.Data["type"] == "" {
		return false
	}
	return true
}
