package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
	"github.com/andresuchdata/oilhub/backend-go/internal/ledgerio"
	"github.com/urfave/cli/v2"
)

type ledgerKind string

const (
	ledgerBranches   ledgerKind = "branches"
	ledgerDeliveries ledgerKind = "deliveries"
	ledgerReclaims   ledgerKind = "reclaims"
)

var ledgerExtensions = []string{".csv", ".xlsx"}

// ingestStore is the write side of the ledgers, satisfied by repository.IngestRepository.
type ingestStore interface {
	UpsertBranch(ctx context.Context, branch *domain.Branch) (int64, error)
	UpsertDelivery(ctx context.Context, delivery *domain.Delivery) (int64, error)
	InsertReclaim(ctx context.Context, record *domain.ReclaimRecord) (int64, error)
}

type loadReport struct {
	loaded   int
	rejected []ledgerio.RowError
}

type ledgerLoader struct {
	store ingestStore
	now   func() time.Time
}

func newLedgerLoader(store ingestStore) *ledgerLoader {
	return &ledgerLoader{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (l *ledgerLoader) load(ctx context.Context, kind ledgerKind, path string) (*loadReport, error) {
	rows, err := ledgerio.ReadRows(path)
	if err != nil {
		return nil, err
	}

	report := &loadReport{}
	switch kind {
	case ledgerBranches:
		branches, rejected, err := ledgerio.ParseBranches(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		report.rejected = rejected
		for i := range branches {
			if _, err := l.store.UpsertBranch(ctx, &branches[i]); err != nil {
				return nil, err
			}
			report.loaded++
		}
	case ledgerDeliveries:
		deliveries, rejected, err := ledgerio.ParseDeliveries(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		report.rejected = rejected
		for i := range deliveries {
			if _, err := l.store.UpsertDelivery(ctx, &deliveries[i]); err != nil {
				return nil, err
			}
			report.loaded++
		}
	case ledgerReclaims:
		records, rejected, err := ledgerio.ParseReclaims(rows, l.now())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		report.rejected = rejected
		for i := range records {
			if _, err := l.store.InsertReclaim(ctx, &records[i]); err != nil {
				return nil, err
			}
			report.loaded++
		}
	default:
		return nil, fmt.Errorf("unknown ledger %q", kind)
	}
	return report, nil
}

// locateLedger finds <dir>/<kind>.csv or .xlsx. With --remote the directory is an object
// prefix and the .csv key is assumed.
func locateLedger(c *cli.Context, dir string, kind ledgerKind) (string, error) {
	if c.Bool("remote") {
		return resolveObjectKey(dir, string(kind)+".csv"), nil
	}
	for _, ext := range ledgerExtensions {
		candidate := filepath.Join(dir, string(kind)+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no %s ledger (.csv or .xlsx) found in %s", kind, dir)
}
