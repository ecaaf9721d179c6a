package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"github.com/JiminSongSoftware/gagyo-push/internal/observability"
	"github.com/JiminSongSoftware/gagyo-push/internal/repository"
	"go.uber.org/zap"
)

// DeviceService fronts the token registry for the HTTP surface. Client-side
// registration is fire-and-forget, so every operation here is total and
// idempotent; racing a concurrent dispatch read is safe under upsert
// semantics.
type DeviceService struct {
	tokens  repository.DeviceTokenRegistry
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewDeviceService(tokens repository.DeviceTokenRegistry, logger *zap.Logger) (*DeviceService, error) {
	if tokens == nil {
		return nil, fmt.Errorf("device token registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeviceService{
		tokens: tokens,
		logger: logger,
	}, nil
}

func (s *DeviceService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *DeviceService) Register(ctx context.Context, tenantID, userID, token, platform string) (*domain.DeviceToken, error) {
	parsedPlatform, err := domain.ParsePlatform(platform)
	if err != nil {
		return nil, err
	}

	deviceToken := &domain.DeviceToken{
		TenantID: strings.TrimSpace(tenantID),
		UserID:   strings.TrimSpace(userID),
		Token:    strings.TrimSpace(token),
		Platform: parsedPlatform,
	}

	if err := s.tokens.Register(ctx, deviceToken); err != nil {
		return nil, err
	}

	s.logger.Debug("device token registered",
		zap.String("tenantId", deviceToken.TenantID),
		zap.String("userId", deviceToken.UserID),
		zap.String("platform", parsedPlatform.String()),
	)

	return deviceToken, nil
}

func (s *DeviceService) Rotate(ctx context.Context, tenantID, userID, oldToken, newToken string) error {
	tenantID = strings.TrimSpace(tenantID)
	userID = strings.TrimSpace(userID)
	oldToken = strings.TrimSpace(oldToken)
	newToken = strings.TrimSpace(newToken)

	if tenantID == "" || userID == "" {
		return fmt.Errorf("%w: tenant id and user id are required", domain.ErrValidation)
	}
	if oldToken == "" || newToken == "" {
		return fmt.Errorf("%w: old and new tokens are required", domain.ErrValidation)
	}
	if oldToken == newToken {
		return fmt.Errorf("%w: new token must differ from old token", domain.ErrValidation)
	}

	if err := s.tokens.Rotate(ctx, tenantID, userID, oldToken, newToken); err != nil {
		return err
	}

	s.metrics.IncTokenRevoked("rotation")
	return nil
}

func (s *DeviceService) Invalidate(ctx context.Context, tenantID, token string) error {
	tenantID = strings.TrimSpace(tenantID)
	token = strings.TrimSpace(token)
	if tenantID == "" || token == "" {
		return fmt.Errorf("%w: tenant id and token are required", domain.ErrValidation)
	}

	if err := s.tokens.Invalidate(ctx, tenantID, token); err != nil {
		return err
	}

	s.metrics.IncTokenRevoked("explicit")
	return nil
}

func (s *DeviceService) ListActive(ctx context.Context, tenantID, userID string) ([]domain.DeviceToken, error) {
	tenantID = strings.TrimSpace(tenantID)
	userID = strings.TrimSpace(userID)
	if tenantID == "" || userID == "" {
		return nil, fmt.Errorf("%w: tenant id and user id are required", domain.ErrValidation)
	}

	return s.tokens.ActiveTokensFor(ctx, tenantID, userID)
}

// RemoveUser hard-deletes all of the user's rows under the tenant. Only the
// account-deletion cascade goes through here.
func (s *DeviceService) RemoveUser(ctx context.Context, tenantID, userID string) error {
	tenantID = strings.TrimSpace(tenantID)
	userID = strings.TrimSpace(userID)
	if tenantID == "" || userID == "" {
		return fmt.Errorf("%w: tenant id and user id are required", domain.ErrValidation)
	}

	if err := s.tokens.DeleteForUser(ctx, tenantID, userID); err != nil {
		return err
	}

	s.logger.Info("device tokens removed for deleted account",
		zap.String("tenantId", tenantID),
		zap.String("userId", userID),
	)
	return nil
}
