// Package payments talks to the card processor for refunds.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nexcart/commerce-core/internal/errors"
)

const (
	defaultBaseURL = "https://api.stripe.com/v1"

	maxResponseBytes = 1 << 20
)

// Gateway issues refunds against a previously captured payment.
type Gateway interface {
	CreateRefund(ctx context.Context, paymentRef string) (string, error)
}

// StripeGateway is a Gateway backed by the Stripe REST API.
type StripeGateway struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewStripeGateway creates a gateway using the given secret key.
func NewStripeGateway(secretKey string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("payment gateway secret key is required")
	}
	return &StripeGateway{
		secretKey:  secretKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// CreateRefund refunds the full amount of the payment identified by
// paymentRef and returns the processor's refund id.
func (g *StripeGateway) CreateRefund(ctx context.Context, paymentRef string) (string, error) {
	form := url.Values{}
	form.Set("payment_intent", paymentRef)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/refunds", strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Dependency("build refund request", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", errors.Dependency("create refund", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", errors.Dependency("read refund response", err)
	}
	if resp.StatusCode >= 400 {
		return "", errors.Dependency(fmt.Sprintf("refund failed with status %d", resp.StatusCode), nil)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", errors.Dependency("decode refund response", err)
	}
	if payload.ID == "" {
		return "", errors.Dependency("refund response carried no id", nil)
	}
	return payload.ID, nil
}

// NoopGateway accepts every refund without calling a processor. It backs
// development and test environments.
type NoopGateway struct{}

// CreateRefund returns a synthetic refund id derived from the payment ref.
func (NoopGateway) CreateRefund(_ context.Context, paymentRef string) (string, error) {
	return "re_noop_" + paymentRef, nil
}
