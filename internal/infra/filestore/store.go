// Package filestore serves ledgers from JSON snapshot files on disk, one
// file per customer ({dir}/{customerID}.json). It is the offline ledger
// source used for local runs and replays.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/boddenberg/ledger-insights-bfa-go/internal/domain"
)

// Store implements port.TransactionsFetcher and port.ProfileFetcher.
type Store struct {
	dir string
}

// New returns a Store reading snapshots from dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// GetTransactions returns the ledger rows of the snapshot.
func (s *Store) GetTransactions(ctx context.Context, customerID string) ([]domain.Transaction, error) {
	snap, err := s.Load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if snap.Transactions == nil {
		return []domain.Transaction{}, nil
	}
	return snap.Transactions, nil
}

// GetProfile returns the profile of the snapshot.
func (s *Store) GetProfile(ctx context.Context, customerID string) (*domain.Profile, error) {
	snap, err := s.Load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &snap.Profile, nil
}

// Load reads and decodes the whole snapshot of a customer.
func (s *Store) Load(ctx context.Context, customerID string) (*domain.LedgerSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.pathFor(customerID)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &domain.ErrNotFound{Resource: "ledger snapshot", ID: customerID}
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "filestore", Err: err}
	}

	var snap domain.LedgerSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, &domain.ErrValidation{Field: "snapshot", Message: fmt.Sprintf("%s: %v", filepath.Base(path), err)}
	}
	return &snap, nil
}

// Save writes a snapshot atomically (temp file + rename).
func (s *Store) Save(customerID string, snap *domain.LedgerSnapshot) error {
	path, err := s.pathFor(customerID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *Store) pathFor(customerID string) (string, error) {
	if customerID == "" || strings.ContainsAny(customerID, `/\`) || strings.Contains(customerID, "..") {
		return "", &domain.ErrValidation{Field: "customerId", Message: "invalid customer id"}
	}
	return filepath.Join(s.dir, customerID+".json"), nil
}
