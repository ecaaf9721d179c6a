package service

import (
	"context"
	"time"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"github.com/JiminSongSoftware/gagyo-push/internal/provider"
	"github.com/JiminSongSoftware/gagyo-push/internal/queue"
	"github.com/JiminSongSoftware/gagyo-push/internal/ratelimit"
	"github.com/JiminSongSoftware/gagyo-push/internal/repository"
)

type fakeTokenRegistry struct {
	registerFn      func(ctx context.Context, t *domain.DeviceToken) error
	rotateFn        func(ctx context.Context, tenantID, userID, oldToken, newToken string) error
	invalidateFn    func(ctx context.Context, tenantID, token string) error
	activeTokensFn  func(ctx context.Context, tenantID, userID string) ([]domain.DeviceToken, error)
	deleteForUserFn func(ctx context.Context, tenantID, userID string) error
}

var _ repository.DeviceTokenRegistry = (*fakeTokenRegistry)(nil)

func (f *fakeTokenRegistry) Register(ctx context.Context, t *domain.DeviceToken) error {
	if f.registerFn != nil {
		return f.registerFn(ctx, t)
	}
	return nil
}

func (f *fakeTokenRegistry) Rotate(ctx context.Context, tenantID, userID, oldToken, newToken string) error {
	if f.rotateFn != nil {
		return f.rotateFn(ctx, tenantID, userID, oldToken, newToken)
	}
	return nil
}

func (f *fakeTokenRegistry) Invalidate(ctx context.Context, tenantID, token string) error {
	if f.invalidateFn != nil {
		return f.invalidateFn(ctx, tenantID, token)
	}
	return nil
}

func (f *fakeTokenRegistry) ActiveTokensFor(ctx context.Context, tenantID, userID string) ([]domain.DeviceToken, error) {
	if f.activeTokensFn != nil {
		return f.activeTokensFn(ctx, tenantID, userID)
	}
	return nil, nil
}

func (f *fakeTokenRegistry) DeleteForUser(ctx context.Context, tenantID, userID string) error {
	if f.deleteForUserFn != nil {
		return f.deleteForUserFn(ctx, tenantID, userID)
	}
	return nil
}

type fakeConversationDirectory struct {
	participantsFn func(ctx context.Context, tenantID, conversationID string) ([]string, error)
	exclusionsFn   func(ctx context.Context, tenantID, conversationID string) ([]string, error)
}

var _ repository.ConversationDirectory = (*fakeConversationDirectory)(nil)

func (f *fakeConversationDirectory) Participants(ctx context.Context, tenantID, conversationID string) ([]string, error) {
	if f.participantsFn != nil {
		return f.participantsFn(ctx, tenantID, conversationID)
	}
	return nil, nil
}

func (f *fakeConversationDirectory) Exclusions(ctx context.Context, tenantID, conversationID string) ([]string, error) {
	if f.exclusionsFn != nil {
		return f.exclusionsFn(ctx, tenantID, conversationID)
	}
	return nil, nil
}

type fakeLogRepo struct {
	created  []*domain.NotificationLog
	createFn func(ctx context.Context, l *domain.NotificationLog) error
}

var _ repository.NotificationLogRepository = (*fakeLogRepo)(nil)

func (f *fakeLogRepo) Create(ctx context.Context, l *domain.NotificationLog) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, l); err != nil {
			return err
		}
	}
	f.created = append(f.created, l)
	return nil
}

func (f *fakeLogRepo) GetByID(ctx context.Context, id string) (*domain.NotificationLog, error) {
	for _, l := range f.created {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeLogRepo) List(ctx context.Context, params repository.LogListParams) ([]domain.NotificationLog, int64, error) {
	out := make([]domain.NotificationLog, 0, len(f.created))
	for _, l := range f.created {
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

type fakeLimiter struct {
	tryAdmitFn func(ctx context.Context, tenantID string, cost int) (ratelimit.Decision, error)
}

var _ ratelimit.Limiter = (*fakeLimiter)(nil)

func (f *fakeLimiter) TryAdmit(ctx context.Context, tenantID string, cost int) (ratelimit.Decision, error) {
	if f.tryAdmitFn != nil {
		return f.tryAdmitFn(ctx, tenantID, cost)
	}
	return ratelimit.Decision{Admitted: true}, nil
}

type fakeProvider struct {
	sendFn func(ctx context.Context, batch provider.Batch) ([]provider.Receipt, error)
}

var _ provider.PushProvider = (*fakeProvider)(nil)

func (f *fakeProvider) Send(ctx context.Context, batch provider.Batch) ([]provider.Receipt, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, batch)
	}
	return nil, nil
}

type fakeDispatcher struct {
	dispatchFn func(ctx context.Context, req domain.DispatchRequest) (*domain.DispatchResult, error)
}

var _ PushDispatcher = (*fakeDispatcher)(nil)

func (f *fakeDispatcher) Dispatch(ctx context.Context, req domain.DispatchRequest) (*domain.DispatchResult, error) {
	if f.dispatchFn != nil {
		return f.dispatchFn(ctx, req)
	}
	return &domain.DispatchResult{}, nil
}

type fakePublisher struct {
	publishFn func(ctx context.Context, queueName string, msg queue.DispatchMessage) error
}

var _ queue.Publisher = (*fakePublisher)(nil)

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.DispatchMessage) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, queueName, msg)
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }

// fakeConsumer delivers a fixed set of messages to the handler, then blocks
// until the context is canceled.
type fakeConsumer struct {
	messages []queue.DispatchMessage
	handled  chan error
}

var _ queue.Consumer = (*fakeConsumer)(nil)

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	for _, msg := range f.messages {
		err := handler(ctx, msg)
		if f.handled != nil {
			f.handled <- err
		}
	}
	<-ctx.Done()
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

func noSleep(ctx context.Context, d time.Duration) error { return nil }
