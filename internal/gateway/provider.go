package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"lapak/internal/models"
)

// Provider registers orders with the external payment provider. The
// provider captures funds out of band and calls back with a signed
// confirmation handled by the payment service.
type Provider interface {
	CreateProviderOrder(ctx context.Context, amount int64, currency, receipt string) (providerOrderID string, err error)
}

// HTTPProvider is the HTTP implementation of Provider.
type HTTPProvider struct {
	baseURL string
	keyID   string
	client  *http.Client
}

// Config holds payment provider connection details.
type Config struct {
	BaseURL string
	KeyID   string
	Timeout time.Duration
}

// NewHTTPProvider creates a provider client. Every request carries the
// configured timeout; a timed-out registration leaves the local order in
// pending, which is safe because nothing has been committed yet.
func NewHTTPProvider(cfg Config) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		baseURL: cfg.BaseURL,
		keyID:   cfg.KeyID,
		client:  &http.Client{Timeout: timeout},
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResponse struct {
	ID string `json:"id"`
}

// CreateProviderOrder registers an order with the provider and returns the
// provider's order reference. Transport failures and non-2xx responses map
// to models.ErrProviderUnavailable so callers can treat them as transient.
func (p *HTTPProvider) CreateProviderOrder(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal provider order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build provider order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.keyID != "" {
		req.Header.Set("X-Api-Key", p.keyID)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: provider returned status %d", models.ErrProviderUnavailable, resp.StatusCode)
	}

	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: invalid provider response: %v", models.ErrProviderUnavailable, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: provider response missing order id", models.ErrProviderUnavailable)
	}
	return out.ID, nil
}
