package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
)

type DeviceService interface {
	Register(ctx context.Context, tenantID, userID, token, platform string) (*domain.DeviceToken, error)
	Rotate(ctx context.Context, tenantID, userID, oldToken, newToken string) error
	Invalidate(ctx context.Context, tenantID, token string) error
	ListActive(ctx context.Context, tenantID, userID string) ([]domain.DeviceToken, error)
	RemoveUser(ctx context.Context, tenantID, userID string) error
}

type DeviceHandler struct {
	devices DeviceService
}

func NewDeviceHandler(devices DeviceService) (*DeviceHandler, error) {
	if devices == nil {
		return nil, fmt.Errorf("device service is required")
	}
	return &DeviceHandler{devices: devices}, nil
}

func RegisterDeviceRoutes(router fiber.Router, devices DeviceService) error {
	h, err := NewDeviceHandler(devices)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1/tenants/:tenantId")
	v1.Post("/devices", h.RegisterToken)
	v1.Post("/devices/rotate", h.RotateToken)
	v1.Delete("/devices/:token", h.InvalidateToken)
	v1.Get("/users/:userId/devices", h.ListActiveTokens)
	v1.Delete("/users/:userId/devices", h.RemoveUserTokens)

	return nil
}

type registerTokenRequest struct {
	UserID   string `json:"userId"`
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type rotateTokenRequest struct {
	UserID   string `json:"userId"`
	OldToken string `json:"oldToken"`
	NewToken string `json:"newToken"`
}

type deviceTokenResponse struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenantId"`
	UserID     string `json:"userId"`
	Token      string `json:"token"`
	Platform   string `json:"platform"`
	State      string `json:"state"`
	LastUsedAt string `json:"lastUsedAt"`
}

func (h *DeviceHandler) RegisterToken(c *fiber.Ctx) error {
	var req registerTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	tenantID := strings.TrimSpace(c.Params("tenantId"))
	created, err := h.devices.Register(c.Context(), tenantID, req.UserID, req.Token, req.Platform)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toDeviceTokenResponse(created))
}

func (h *DeviceHandler) RotateToken(c *fiber.Ctx) error {
	var req rotateTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	tenantID := strings.TrimSpace(c.Params("tenantId"))
	if err := h.devices.Rotate(c.Context(), tenantID, req.UserID, req.OldToken, req.NewToken); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "rotated",
	})
}

func (h *DeviceHandler) InvalidateToken(c *fiber.Ctx) error {
	tenantID := strings.TrimSpace(c.Params("tenantId"))
	token := strings.TrimSpace(c.Params("token"))

	if err := h.devices.Invalidate(c.Context(), tenantID, token); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "revoked",
	})
}

func (h *DeviceHandler) ListActiveTokens(c *fiber.Ctx) error {
	tenantID := strings.TrimSpace(c.Params("tenantId"))
	userID := strings.TrimSpace(c.Params("userId"))

	tokens, err := h.devices.ListActive(c.Context(), tenantID, userID)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]deviceTokenResponse, 0, len(tokens))
	for _, token := range tokens {
		t := token
		responses = append(responses, toDeviceTokenResponse(&t))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": responses,
	})
}

func (h *DeviceHandler) RemoveUserTokens(c *fiber.Ctx) error {
	tenantID := strings.TrimSpace(c.Params("tenantId"))
	userID := strings.TrimSpace(c.Params("userId"))

	if err := h.devices.RemoveUser(c.Context(), tenantID, userID); err != nil {
		return toHTTPError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func toDeviceTokenResponse(t *domain.DeviceToken) deviceTokenResponse {
	if t == nil {
		return deviceTokenResponse{}
	}

	return deviceTokenResponse{
		ID:         t.ID,
		TenantID:   t.TenantID,
		UserID:     t.UserID,
		Token:      t.Token,
		Platform:   t.Platform.String(),
		State:      string(t.State()),
		LastUsedAt: t.LastUsedAt.Format(time.RFC3339),
	}
}
