package client

import (
	"context"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/resilience"
)

// ProfileClient fetches the ledger owner's profile from the ledger API.
type ProfileClient struct {
	base
}

// NewProfileClient creates a new ProfileClient.
func NewProfileClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *ProfileClient {
	return &ProfileClient{base{httpClient: httpClient, baseURL: baseURL, cb: cb, cfg: cfg}}
}

// GetProfile fetches a profile with retry, circuit breaker, and tracing.
func (c *ProfileClient) GetProfile(ctx context.Context, customerID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "ProfileClient.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	var profile domain.Profile
	if err := c.getJSON(ctx, "profile", customerID, "profile", &profile); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &profile, nil
}
