package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"github.com/JiminSongSoftware/gagyo-push/internal/queue"
	"github.com/JiminSongSoftware/gagyo-push/internal/trigger"
)

type MessageTrigger interface {
	Build(ctx context.Context, event trigger.MessageSentEvent) (*domain.DispatchRequest, error)
}

type PrayerTrigger interface {
	Build(ctx context.Context, event trigger.PrayerAnsweredEvent) (*domain.DispatchRequest, error)
}

type JournalTrigger interface {
	Build(ctx context.Context, event trigger.JournalStatusEvent) (*domain.DispatchRequest, error)
}

type DispatchPublisher interface {
	Publish(ctx context.Context, queueName string, msg queue.DispatchMessage) error
}

// EventHandler turns domain events into queued dispatches. Events that
// resolve to an empty recipient set are acknowledged without enqueueing.
type EventHandler struct {
	messages  MessageTrigger
	prayers   PrayerTrigger
	journals  JournalTrigger
	publisher DispatchPublisher
}

func NewEventHandler(
	messages MessageTrigger,
	prayers PrayerTrigger,
	journals JournalTrigger,
	publisher DispatchPublisher,
) (*EventHandler, error) {
	if messages == nil || prayers == nil || journals == nil {
		return nil, fmt.Errorf("all event triggers are required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("dispatch publisher is required")
	}

	return &EventHandler{
		messages:  messages,
		prayers:   prayers,
		journals:  journals,
		publisher: publisher,
	}, nil
}

func RegisterEventRoutes(
	router fiber.Router,
	messages MessageTrigger,
	prayers PrayerTrigger,
	journals JournalTrigger,
	publisher DispatchPublisher,
) error {
	h, err := NewEventHandler(messages, prayers, journals, publisher)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1/events")
	v1.Post("/message-sent", h.MessageSent)
	v1.Post("/prayer-answered", h.PrayerAnswered)
	v1.Post("/journal-status", h.JournalStatus)

	return nil
}

func (h *EventHandler) MessageSent(c *fiber.Ctx) error {
	var event trigger.MessageSentEvent
	if err := c.BodyParser(&event); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req, err := h.messages.Build(c.Context(), event)
	if err != nil {
		return toHTTPError(err)
	}

	return h.enqueue(c, req)
}

func (h *EventHandler) PrayerAnswered(c *fiber.Ctx) error {
	var event trigger.PrayerAnsweredEvent
	if err := c.BodyParser(&event); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req, err := h.prayers.Build(c.Context(), event)
	if err != nil {
		return toHTTPError(err)
	}

	return h.enqueue(c, req)
}

func (h *EventHandler) JournalStatus(c *fiber.Ctx) error {
	var event trigger.JournalStatusEvent
	if err := c.BodyParser(&event); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req, err := h.journals.Build(c.Context(), event)
	if err != nil {
		return toHTTPError(err)
	}

	return h.enqueue(c, req)
}

func (h *EventHandler) enqueue(c *fiber.Ctx, req *domain.DispatchRequest) error {
	if req == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "skipped",
		})
	}

	msg := queue.DispatchMessage{
		ID:      uuid.NewString(),
		Request: *req,
	}
	if err := h.publisher.Publish(c.Context(), queue.DispatchQueue, msg); err != nil {
		return fmt.Errorf("failed to enqueue dispatch: %w", err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":     "queued",
		"dispatchId": msg.ID,
	})
}
