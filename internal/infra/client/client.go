// Package client holds the HTTP adapters for an external ledger API that
// serves transactions and profiles as JSON.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/resilience"
)

var tracer = otel.Tracer("client")

// base holds what both ledger API clients share.
type base struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// getJSON fetches {baseURL}/v1/customers/{id}/{resource} into out through
// the breaker and the retry policy.
func (b *base) getJSON(ctx context.Context, service, customerID, resource string, out any) error {
	return resilience.Call(ctx, b.cb, b.cfg, service, func() error {
		u := fmt.Sprintf("%s/v1/customers/%s/%s", b.baseURL, url.PathEscape(customerID), resource)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return resilience.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := b.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return resilience.Permanent(&domain.ErrNotFound{Resource: resource, ID: customerID})
		case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
			return resilience.Permanent(fmt.Errorf("%s API returned status %d", service, resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("%s API returned status %d", service, resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resilience.Permanent(fmt.Errorf("decode %s: %w", resource, err))
		}
		return nil
	})
}
