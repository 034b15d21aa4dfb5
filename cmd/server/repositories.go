package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andresuchdata/oilhub/backend-go/internal/config"
	"github.com/andresuchdata/oilhub/backend-go/internal/ledgerio"
	"github.com/andresuchdata/oilhub/backend-go/internal/repository"
	"github.com/andresuchdata/oilhub/backend-go/internal/repository/memory"
	"github.com/andresuchdata/oilhub/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/oilhub/backend-go/pkg/logger"
)

type repositories struct {
	branches   repository.BranchRepository
	deliveries repository.DeliveryRepository
	reclaims   repository.ReclaimRepository
	orders     repository.OrderRepository
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, func(), error) {
	switch strings.ToLower(cfg.App.Store) {
	case "memory":
		store := memory.NewStore()
		if err := loadMemoryLedgers(store, cfg.App.SeedDir); err != nil {
			return nil, nil, err
		}
		return &repositories{
			branches:   store,
			deliveries: store,
			reclaims:   store,
			orders:     store,
		}, func() {}, nil
	case "postgres", "":
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return &repositories{
			branches:   postgres.NewBranchRepository(db),
			deliveries: postgres.NewDeliveryRepository(db),
			reclaims:   postgres.NewReclaimRepository(db),
			orders:     postgres.NewOrderRepository(db),
		}, func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown APP_STORE %q", cfg.App.Store)
	}
}

// loadMemoryLedgers fills the in-memory store from the seed directory. Missing files are skipped.
func loadMemoryLedgers(store *memory.Store, dir string) error {
	if path := findLedger(dir, "branches"); path != "" {
		rows, err := ledgerio.ReadRows(path)
		if err != nil {
			return err
		}
		branches, rejected, err := ledgerio.ParseBranches(rows)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for _, b := range branches {
			store.AddBranch(b)
		}
		logLoaded(path, len(branches), rejected)
	}

	if path := findLedger(dir, "deliveries"); path != "" {
		rows, err := ledgerio.ReadRows(path)
		if err != nil {
			return err
		}
		deliveries, rejected, err := ledgerio.ParseDeliveries(rows)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for _, d := range deliveries {
			store.AddDelivery(d)
		}
		logLoaded(path, len(deliveries), rejected)
	}

	if path := findLedger(dir, "reclaims"); path != "" {
		rows, err := ledgerio.ReadRows(path)
		if err != nil {
			return err
		}
		records, rejected, err := ledgerio.ParseReclaims(rows, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for _, r := range records {
			store.AddReclaim(r)
		}
		logLoaded(path, len(records), rejected)
	}
	return nil
}

func findLedger(dir, name string) string {
	if dir == "" {
		return ""
	}
	for _, ext := range []string{".csv", ".xlsx"} {
		candidate := filepath.Join(dir, name+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func logLoaded(path string, loaded int, rejected []ledgerio.RowError) {
	event := logger.Log.Info()
	if len(rejected) > 0 {
		event = logger.Log.Warn()
	}
	event.Str("file", path).Int("loaded", loaded).Int("rejected", len(rejected)).Msg("ledger loaded into memory store")
	for _, re := range rejected {
		logger.Log.Debug().Str("file", path).Int("row", re.Row).Err(re.Err).Msg("ledger row rejected")
	}
}
