package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"github.com/JiminSongSoftware/gagyo-push/internal/repository"
)

func dispatchBody(t *testing.T) *bytes.Reader {
	t.Helper()

	body, err := json.Marshal(domain.DispatchRequest{
		TenantID: "tenant-a",
		Type:     domain.TypeNewMessage,
		Recipients: domain.Recipients{
			UserIDs: []string{"user-1", "user-2"},
		},
		Payload: domain.Payload{
			Title: "New message",
			Body:  "Hello",
		},
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return bytes.NewReader(body)
}

func TestDispatchHandlerDispatch(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{
		dispatchFn: func(ctx context.Context, req domain.DispatchRequest) (*domain.DispatchResult, error) {
			if req.TenantID != "tenant-a" {
				return nil, fmt.Errorf("unexpected tenant %q", req.TenantID)
			}
			return &domain.DispatchResult{
				LogID:          "log-1",
				RecipientCount: 2,
				SentCount:      3,
			}, nil
		},
	}
	logs := &fakeLogReader{}

	app := newTestApp()
	if err := RegisterDispatchRoutes(app, dispatcher, logs); err != nil {
		t.Fatalf("RegisterDispatchRoutes() error = %v", err)
	}

	req := httptest.NewRequest("POST", "/v1/dispatch", dispatchBody(t))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result domain.DispatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.LogID != "log-1" {
		t.Fatalf("logId = %q, want log-1", result.LogID)
	}
	if result.SentCount != 3 {
		t.Fatalf("sentCount = %d, want 3", result.SentCount)
	}
}

func TestDispatchHandlerRateLimited(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{
		dispatchFn: func(ctx context.Context, req domain.DispatchRequest) (*domain.DispatchResult, error) {
			return nil, &domain.RateLimitError{
				TenantID:   req.TenantID,
				Cost:       2,
				RetryAfter: 30 * time.Second,
			}
		},
	}

	app := newTestApp()
	if err := RegisterDispatchRoutes(app, dispatcher, &fakeLogReader{}); err != nil {
		t.Fatalf("RegisterDispatchRoutes() error = %v", err)
	}

	req := httptest.NewRequest("POST", "/v1/dispatch", dispatchBody(t))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if got := resp.Header.Get(fiber.HeaderRetryAfter); got != "31" {
		t.Fatalf("Retry-After = %q, want 31", got)
	}
}

func TestDispatchHandlerProviderUnreachable(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{
		dispatchFn: func(ctx context.Context, req domain.DispatchRequest) (*domain.DispatchResult, error) {
			return nil, fmt.Errorf("send batch: %w", domain.ErrProviderUnreachable)
		},
	}

	app := newTestApp()
	if err := RegisterDispatchRoutes(app, dispatcher, &fakeLogReader{}); err != nil {
		t.Fatalf("RegisterDispatchRoutes() error = %v", err)
	}

	req := httptest.NewRequest("POST", "/v1/dispatch", dispatchBody(t))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
}

func TestDispatchHandlerValidationError(t *testing.T) {
	t.Parallel()

	dispatcher := &fakeDispatcher{
		dispatchFn: func(ctx context.Context, req domain.DispatchRequest) (*domain.DispatchResult, error) {
			return nil, fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
		},
	}

	app := newTestApp()
	if err := RegisterDispatchRoutes(app, dispatcher, &fakeLogReader{}); err != nil {
		t.Fatalf("RegisterDispatchRoutes() error = %v", err)
	}

	req := httptest.NewRequest("POST", "/v1/dispatch", dispatchBody(t))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDispatchHandlerGetLog(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	logs := &fakeLogReader{
		getFn: func(ctx context.Context, id string) (*domain.NotificationLog, error) {
			if id != "log-1" {
				return nil, fmt.Errorf("%w: notification log %q", domain.ErrNotFound, id)
			}
			return &domain.NotificationLog{
				ID:             "log-1",
				TenantID:       "tenant-a",
				Type:           domain.TypeMention,
				RecipientCount: 4,
				SentCount:      6,
				FailedCount:    1,
				CreatedAt:      created,
			}, nil
		},
	}

	app := newTestApp()
	if err := RegisterDispatchRoutes(app, &fakeDispatcher{}, logs); err != nil {
		t.Fatalf("RegisterDispatchRoutes() error = %v", err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/logs/log-1", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got notificationLogResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Type != "mention" {
		t.Fatalf("notificationType = %q, want mention", got.Type)
	}
	if got.RecipientCount != 4 || got.SentCount != 6 || got.FailedCount != 1 {
		t.Fatalf("counts = (%d, %d, %d), want (4, 6, 1)", got.RecipientCount, got.SentCount, got.FailedCount)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/logs/missing", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status for missing log = %d, want 404", resp.StatusCode)
	}
}

func TestDispatchHandlerListLogs(t *testing.T) {
	t.Parallel()

	var gotParams repository.LogListParams
	logs := &fakeLogReader{
		listFn: func(ctx context.Context, params repository.LogListParams) ([]domain.NotificationLog, int64, error) {
			gotParams = params
			return []domain.NotificationLog{
				{ID: "log-1", TenantID: params.TenantID, Type: domain.TypeNewMessage},
				{ID: "log-2", TenantID: params.TenantID, Type: domain.TypeNewMessage},
			}, 12, nil
		},
	}

	app := newTestApp()
	if err := RegisterDispatchRoutes(app, &fakeDispatcher{}, logs); err != nil {
		t.Fatalf("RegisterDispatchRoutes() error = %v", err)
	}

	target := "/v1/logs?tenantId=tenant-a&type=new_message&page=2&pageSize=2&from=2026-08-01T00:00:00Z"
	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if gotParams.TenantID != "tenant-a" || gotParams.Page != 2 || gotParams.PageSize != 2 {
		t.Fatalf("params = %+v, want tenant-a page 2 pageSize 2", gotParams)
	}
	if gotParams.Type == nil || *gotParams.Type != domain.TypeNewMessage {
		t.Fatalf("type filter = %v, want new_message", gotParams.Type)
	}
	if gotParams.From == nil || !gotParams.From.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("from filter = %v, want 2026-08-01T00:00:00Z", gotParams.From)
	}

	var body listLogsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data) != 2 {
		t.Fatalf("data length = %d, want 2", len(body.Data))
	}
	if body.Meta.Total != 12 {
		t.Fatalf("total = %d, want 12", body.Meta.Total)
	}
}

func TestDispatchHandlerListLogsBadQuery(t *testing.T) {
	t.Parallel()

	app := newTestApp()
	if err := RegisterDispatchRoutes(app, &fakeDispatcher{}, &fakeLogReader{}); err != nil {
		t.Fatalf("RegisterDispatchRoutes() error = %v", err)
	}

	targets := []string{
		"/v1/logs",
		"/v1/logs?tenantId=tenant-a&pageSize=500",
		"/v1/logs?tenantId=tenant-a&type=fax",
		"/v1/logs?tenantId=tenant-a&from=yesterday",
	}

	for _, target := range targets {
		resp, err := app.Test(httptest.NewRequest("GET", target, nil))
		if err != nil {
			t.Fatalf("app.Test(%q) error = %v", target, err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("status for %q = %d, want 400", target, resp.StatusCode)
		}
	}
}
