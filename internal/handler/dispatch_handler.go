package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"github.com/JiminSongSoftware/gagyo-push/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type Dispatcher interface {
	Dispatch(ctx context.Context, req domain.DispatchRequest) (*domain.DispatchResult, error)
}

type LogReader interface {
	GetByID(ctx context.Context, id string) (*domain.NotificationLog, error)
	List(ctx context.Context, params repository.LogListParams) ([]domain.NotificationLog, int64, error)
}

// DispatchHandler exposes synchronous dispatch and the audit log. The
// synchronous path bypasses the broker; rate-limit rejections surface as
// 429 with a Retry-After header instead of being requeued.
type DispatchHandler struct {
	dispatcher Dispatcher
	logs       LogReader
}

func NewDispatchHandler(dispatcher Dispatcher, logs LogReader) (*DispatchHandler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if logs == nil {
		return nil, fmt.Errorf("log reader is required")
	}
	return &DispatchHandler{dispatcher: dispatcher, logs: logs}, nil
}

func RegisterDispatchRoutes(router fiber.Router, dispatcher Dispatcher, logs LogReader) error {
	h, err := NewDispatchHandler(dispatcher, logs)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/dispatch", h.Dispatch)
	v1.Get("/logs", h.ListLogs)
	v1.Get("/logs/:id", h.GetLog)

	return nil
}

type notificationLogResponse struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenantId"`
	Type           string    `json:"notificationType"`
	RecipientCount int       `json:"recipientCount"`
	SentCount      int       `json:"sentCount"`
	FailedCount    int       `json:"failedCount"`
	ErrorSummary   *string   `json:"errorSummary,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type listLogsResponse struct {
	Data []notificationLogResponse `json:"data"`
	Meta listMeta                  `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *DispatchHandler) Dispatch(c *fiber.Ctx) error {
	var req domain.DispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.dispatcher.Dispatch(c.Context(), req)
	if err != nil {
		var rateErr *domain.RateLimitError
		if errors.As(err, &rateErr) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(rateErr.RetryAfter.Seconds())+1))
			return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
		}
		if errors.Is(err, domain.ErrProviderUnreachable) {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *DispatchHandler) GetLog(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	log, err := h.logs.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toLogResponse(log))
}

func (h *DispatchHandler) ListLogs(c *fiber.Ctx) error {
	params, err := parseLogListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	logs, total, err := h.logs.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]notificationLogResponse, 0, len(logs))
	for _, log := range logs {
		l := log
		responses = append(responses, toLogResponse(&l))
	}

	return c.Status(fiber.StatusOK).JSON(listLogsResponse{
		Data: responses,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseLogListParams(c *fiber.Ctx) (repository.LogListParams, error) {
	params := repository.LogListParams{
		TenantID: strings.TrimSpace(c.Query("tenantId")),
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.TenantID == "" {
		return repository.LogListParams{}, fmt.Errorf("%w: tenantId is required", domain.ErrValidation)
	}
	if params.Page < 1 {
		return repository.LogListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.LogListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawType := strings.TrimSpace(c.Query("type")); rawType != "" {
		notifType, err := domain.ParseNotificationType(rawType)
		if err != nil {
			return repository.LogListParams{}, err
		}
		params.Type = &notifType
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.LogListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.LogListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func toLogResponse(l *domain.NotificationLog) notificationLogResponse {
	if l == nil {
		return notificationLogResponse{}
	}

	return notificationLogResponse{
		ID:             l.ID,
		TenantID:       l.TenantID,
		Type:           l.Type.String(),
		RecipientCount: l.RecipientCount,
		SentCount:      l.SentCount,
		FailedCount:    l.FailedCount,
		ErrorSummary:   l.ErrorSummary,
		CreatedAt:      l.CreatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
