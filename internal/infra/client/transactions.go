package client

import (
	"context"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/resilience"
)

// TransactionsClient fetches ledger rows from the ledger API.
type TransactionsClient struct {
	base
}

// NewTransactionsClient creates a new TransactionsClient.
func NewTransactionsClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *TransactionsClient {
	return &TransactionsClient{base{httpClient: httpClient, baseURL: baseURL, cb: cb, cfg: cfg}}
}

// GetTransactions fetches the customer ledger with retry, circuit breaker, and tracing.
func (c *TransactionsClient) GetTransactions(ctx context.Context, customerID string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionsClient.GetTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", customerID))

	var transactions []domain.Transaction
	if err := c.getJSON(ctx, "transactions", customerID, "transactions", &transactions); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	span.SetAttributes(attribute.Int("transactions.count", len(transactions)))
	return transactions, nil
}
