package handler

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"github.com/JiminSongSoftware/gagyo-push/internal/queue"
	"github.com/JiminSongSoftware/gagyo-push/internal/repository"
	"github.com/JiminSongSoftware/gagyo-push/internal/transport"
	"github.com/JiminSongSoftware/gagyo-push/internal/trigger"
)

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})
}

type fakeDispatcher struct {
	dispatchFn func(ctx context.Context, req domain.DispatchRequest) (*domain.DispatchResult, error)
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, req domain.DispatchRequest) (*domain.DispatchResult, error) {
	return f.dispatchFn(ctx, req)
}

type fakeLogReader struct {
	getFn  func(ctx context.Context, id string) (*domain.NotificationLog, error)
	listFn func(ctx context.Context, params repository.LogListParams) ([]domain.NotificationLog, int64, error)
}

func (f *fakeLogReader) GetByID(ctx context.Context, id string) (*domain.NotificationLog, error) {
	return f.getFn(ctx, id)
}

func (f *fakeLogReader) List(ctx context.Context, params repository.LogListParams) ([]domain.NotificationLog, int64, error) {
	return f.listFn(ctx, params)
}

type fakeDeviceService struct {
	registerFn   func(ctx context.Context, tenantID, userID, token, platform string) (*domain.DeviceToken, error)
	rotateFn     func(ctx context.Context, tenantID, userID, oldToken, newToken string) error
	invalidateFn func(ctx context.Context, tenantID, token string) error
	listActiveFn func(ctx context.Context, tenantID, userID string) ([]domain.DeviceToken, error)
	removeUserFn func(ctx context.Context, tenantID, userID string) error
}

func (f *fakeDeviceService) Register(ctx context.Context, tenantID, userID, token, platform string) (*domain.DeviceToken, error) {
	return f.registerFn(ctx, tenantID, userID, token, platform)
}

func (f *fakeDeviceService) Rotate(ctx context.Context, tenantID, userID, oldToken, newToken string) error {
	return f.rotateFn(ctx, tenantID, userID, oldToken, newToken)
}

func (f *fakeDeviceService) Invalidate(ctx context.Context, tenantID, token string) error {
	return f.invalidateFn(ctx, tenantID, token)
}

func (f *fakeDeviceService) ListActive(ctx context.Context, tenantID, userID string) ([]domain.DeviceToken, error) {
	return f.listActiveFn(ctx, tenantID, userID)
}

func (f *fakeDeviceService) RemoveUser(ctx context.Context, tenantID, userID string) error {
	return f.removeUserFn(ctx, tenantID, userID)
}

type fakeMessageTrigger struct {
	buildFn func(ctx context.Context, event trigger.MessageSentEvent) (*domain.DispatchRequest, error)
}

func (f *fakeMessageTrigger) Build(ctx context.Context, event trigger.MessageSentEvent) (*domain.DispatchRequest, error) {
	return f.buildFn(ctx, event)
}

type fakePrayerTrigger struct {
	buildFn func(ctx context.Context, event trigger.PrayerAnsweredEvent) (*domain.DispatchRequest, error)
}

func (f *fakePrayerTrigger) Build(ctx context.Context, event trigger.PrayerAnsweredEvent) (*domain.DispatchRequest, error) {
	return f.buildFn(ctx, event)
}

type fakeJournalTrigger struct {
	buildFn func(ctx context.Context, event trigger.JournalStatusEvent) (*domain.DispatchRequest, error)
}

func (f *fakeJournalTrigger) Build(ctx context.Context, event trigger.JournalStatusEvent) (*domain.DispatchRequest, error) {
	return f.buildFn(ctx, event)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []queue.DispatchMessage
	publishFn func(ctx context.Context, queueName string, msg queue.DispatchMessage) error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.DispatchMessage) error {
	f.mu.Lock()
	f.published = append(f.published, msg)
	f.mu.Unlock()

	if f.publishFn != nil {
		return f.publishFn(ctx, queueName, msg)
	}
	return nil
}

var (
	_ Dispatcher        = (*fakeDispatcher)(nil)
	_ LogReader         = (*fakeLogReader)(nil)
	_ DeviceService     = (*fakeDeviceService)(nil)
	_ MessageTrigger    = (*fakeMessageTrigger)(nil)
	_ PrayerTrigger     = (*fakePrayerTrigger)(nil)
	_ JournalTrigger    = (*fakeJournalTrigger)(nil)
	_ DispatchPublisher = (*fakePublisher)(nil)
)
