package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JiminSongSoftware/gagyo-push/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultGatewayTimeout = 10 * time.Second

type gatewayRequest struct {
	Tokens   []string          `json:"tokens"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Priority string            `json:"priority,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Badge    int               `json:"badge,omitempty"`
}

type gatewayResponse struct {
	Results []gatewayResult `json:"results"`
}

type gatewayResult struct {
	Token  string `json:"token"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// HTTPGatewayProvider delivers batches to a self-hosted push relay speaking
// a simple JSON contract. Used for development and on-prem tenants without
// direct FCM credentials.
type HTTPGatewayProvider struct {
	client   *resty.Client
	endpoint string
}

func NewHTTPGatewayProvider(endpoint string) (*HTTPGatewayProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultGatewayTimeout)
	client.SetRetryCount(0)

	return NewHTTPGatewayProviderWithClient(endpoint, client)
}

func NewHTTPGatewayProviderWithClient(endpoint string, client *resty.Client) (*HTTPGatewayProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("gateway endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid gateway endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPGatewayProvider{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (p *HTTPGatewayProvider) Send(ctx context.Context, batch Batch) ([]Receipt, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if len(batch.Tokens) == 0 {
		return nil, nil
	}
	if len(batch.Tokens) > domain.MaxBatchTokens {
		return nil, fmt.Errorf("batch of %d tokens exceeds provider ceiling %d", len(batch.Tokens), domain.MaxBatchTokens)
	}

	reqBody := gatewayRequest{
		Tokens:   batch.Tokens,
		Title:    batch.Title,
		Body:     batch.Body,
		Data:     batch.Data,
		Priority: batch.Priority.String(),
		Sound:    batch.Sound,
		Badge:    batch.Badge,
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "gateway returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("gateway returned status %d", statusCode),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	return receiptsFromGatewayBody(batch.Tokens, response.Body()), nil
}

// receiptsFromGatewayBody maps per-token results onto receipts. Tokens the
// gateway does not mention are treated as delivered, so a relay that only
// acks the whole batch still works.
func receiptsFromGatewayBody(tokens []string, body []byte) []Receipt {
	byToken := make(map[string]gatewayResult)

	var parsed gatewayResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &parsed); err == nil {
			for _, result := range parsed.Results {
				byToken[result.Token] = result
			}
		}
	}

	receipts := make([]Receipt, 0, len(tokens))
	for _, token := range tokens {
		result, ok := byToken[token]
		if !ok {
			receipts = append(receipts, Receipt{Token: token, Status: ReceiptDelivered})
			continue
		}

		receipts = append(receipts, Receipt{
			Token:  token,
			Status: parseReceiptStatus(result.Status),
			Reason: result.Reason,
		})
	}

	return receipts
}

func parseReceiptStatus(s string) ReceiptStatus {
	switch ReceiptStatus(strings.ToLower(strings.TrimSpace(s))) {
	case ReceiptDelivered, "ok", "success":
		return ReceiptDelivered
	case ReceiptPermanentFailure, "unregistered", "invalid_token":
		return ReceiptPermanentFailure
	case ReceiptTransientFailure, "throttled", "unavailable":
		return ReceiptTransientFailure
	default:
		return ReceiptTransientFailure
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}
