package queue

import (
	"fmt"
	"strings"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
)

// DispatchMessage is the broker payload carrying one DispatchRequest from a
// trigger to a dispatch worker. Attempt counts caller-side requeues; the
// dispatcher itself never retries.
type DispatchMessage struct {
	ID      string                 `json:"id"`
	Request domain.DispatchRequest `json:"request"`
	Attempt int                    `json:"attempt"`
}

func (m DispatchMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("message id is required")
	}
	if m.Attempt < 0 {
		return fmt.Errorf("attempt must be >= 0")
	}
	if err := m.Request.Validate(); err != nil {
		return fmt.Errorf("invalid dispatch request: %w", err)
	}
	return nil
}
