package domain

import (
	"fmt"
	"time"
)

// TokenState is derived from the nullable RevokedAt timestamp. Register,
// Rotate, and Invalidate on the registry are the only legal transitions.
type TokenState string

const (
	TokenActive  TokenState = "active"
	TokenRevoked TokenState = "revoked"
)

func (s TokenState) String() string { return string(s) }

// DeviceToken is one device registration under one tenant. The identity key
// is (TenantID, Token): the same physical token string legitimately appears
// under multiple tenants when a user belongs to several, and each row's
// lifecycle is independent.
type DeviceToken struct {
	ID         string
	TenantID   string
	UserID     string
	Token      string
	Platform   Platform
	LastUsedAt time.Time
	CreatedAt  time.Time
	RevokedAt  *time.Time
}

// State reports the soft-deletion state derived from RevokedAt.
func (t *DeviceToken) State() TokenState {
	if t == nil || t.RevokedAt != nil {
		return TokenRevoked
	}
	return TokenActive
}

func (t *DeviceToken) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: device token is required", ErrValidation)
	}
	if t.TenantID == "" {
		return fmt.Errorf("%w: tenant id is required", ErrValidation)
	}
	if t.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if t.Token == "" {
		return fmt.Errorf("%w: token is required", ErrValidation)
	}
	if !t.Platform.IsValid() {
		return fmt.Errorf("%w: invalid platform %q", ErrValidation, t.Platform)
	}
	return nil
}
