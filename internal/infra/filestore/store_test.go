package filestore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-insights-bfa-go/internal/infra/filestore"
)

func TestStore_SaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	s := filestore.New(dir)

	snap := &domain.LedgerSnapshot{
		Transactions: []domain.Transaction{{
			ID:          "t1",
			Date:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			Amount:      -45.9,
			Type:        domain.TypeSaida,
			Description: "IFOOD",
		}},
		Profile: domain.Profile{InitialBalance: 1000, Salary: 4000},
	}
	if err := s.Save("cust-1", snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	ctx := context.Background()
	txs, err := s.GetTransactions(ctx, "cust-1")
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].Amount != -45.9 || !txs[0].Date.Equal(snap.Transactions[0].Date) {
		t.Errorf("unexpected transactions: %+v", txs)
	}

	p, err := s.GetProfile(ctx, "cust-1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Salary != 4000 {
		t.Errorf("expected salary 4000, got %v", p.Salary)
	}
}

func TestStore_Errors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := filestore.New(dir)
	ctx := context.Background()

	var nf *domain.ErrNotFound
	if _, err := s.GetTransactions(ctx, "missing"); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	var invalid *domain.ErrValidation
	if _, err := s.GetTransactions(ctx, "broken"); !errors.As(err, &invalid) {
		t.Errorf("expected ErrValidation for malformed json, got %v", err)
	}
	if _, err := s.GetProfile(ctx, "../etc/passwd"); !errors.As(err, &invalid) {
		t.Errorf("expected ErrValidation for traversal, got %v", err)
	}
}

func TestStore_EmptyLedger(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "empty.json"), []byte(`{"profile":{"salary":3000}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	txs, err := filestore.New(dir).GetTransactions(context.Background(), "empty")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txs == nil || len(txs) != 0 {
		t.Errorf("expected empty, non-nil ledger, got %v", txs)
	}
}
