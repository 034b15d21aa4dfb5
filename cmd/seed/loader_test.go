package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresuchdata/oilhub/backend-go/internal/domain"
)

type recordingStore struct {
	branches   []domain.Branch
	deliveries []domain.Delivery
	reclaims   []domain.ReclaimRecord
	failOn     ledgerKind
}

func (s *recordingStore) UpsertBranch(ctx context.Context, branch *domain.Branch) (int64, error) {
	if s.failOn == ledgerBranches {
		return 0, errors.New("boom")
	}
	s.branches = append(s.branches, *branch)
	return branch.ID, nil
}

func (s *recordingStore) UpsertDelivery(ctx context.Context, delivery *domain.Delivery) (int64, error) {
	s.deliveries = append(s.deliveries, *delivery)
	return int64(len(s.deliveries)), nil
}

func (s *recordingStore) InsertReclaim(ctx context.Context, record *domain.ReclaimRecord) (int64, error) {
	s.reclaims = append(s.reclaims, *record)
	return int64(len(s.reclaims)), nil
}

func writeLedger(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLedgerLoaderLoadsEachKind(t *testing.T) {
	dir := t.TempDir()
	store := &recordingStore{}
	loader := newLedgerLoader(store)
	now := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	loader.now = func() time.Time { return now }
	ctx := context.Background()

	branches := writeLedger(t, dir, "branches.csv", "id,name,is_hub\n1,Central Hub,true\n2,North Branch,false\nbad,Broken,\n")
	report, err := loader.load(ctx, ledgerBranches, branches)
	if err != nil {
		t.Fatalf("load branches: %v", err)
	}
	if report.loaded != 2 || len(report.rejected) != 1 {
		t.Errorf("branches report = %d loaded, %d rejected", report.loaded, len(report.rejected))
	}

	deliveries := writeLedger(t, dir, "deliveries.csv",
		"delivery_no,from_branch_id,to_branch_id,status,oil_type,quantity,kept_on_truck_quantity\n"+
			"DLV-1,1,2,arrived,diesel,2000,800\n"+
			"DLV-1,1,2,arrived,e20,500,0\n")
	report, err = loader.load(ctx, ledgerDeliveries, deliveries)
	if err != nil {
		t.Fatalf("load deliveries: %v", err)
	}
	if report.loaded != 1 || len(store.deliveries[0].Items) != 2 {
		t.Errorf("expected one delivery with two items, got %+v", store.deliveries)
	}

	reclaims := writeLedger(t, dir, "reclaims.csv", "branch_id,oil_type,quantity\n2,diesel,120.5\n")
	if _, err := loader.load(ctx, ledgerReclaims, reclaims); err != nil {
		t.Fatalf("load reclaims: %v", err)
	}
	if len(store.reclaims) != 1 || !store.reclaims[0].RecordedAt.Equal(now) {
		t.Errorf("unexpected reclaims: %+v", store.reclaims)
	}
}

func TestLedgerLoaderPropagatesStoreErrors(t *testing.T) {
	dir := t.TempDir()
	loader := newLedgerLoader(&recordingStore{failOn: ledgerBranches})
	path := writeLedger(t, dir, "branches.csv", "id,name\n1,Hub\n")

	if _, err := loader.load(context.Background(), ledgerBranches, path); err == nil {
		t.Fatal("expected store error")
	}
}

func TestLedgerLoaderUnknownKind(t *testing.T) {
	dir := t.TempDir()
	path := writeLedger(t, dir, "x.csv", "a\n1\n")
	if _, err := newLedgerLoader(&recordingStore{}).load(context.Background(), ledgerKind("tanks"), path); err == nil {
		t.Fatal("expected error for unknown ledger kind")
	}
}

func TestResolveObjectKey(t *testing.T) {
	tests := []struct {
		prefix, name, want string
	}{
		{"", "branches.csv", "branches.csv"},
		{".", "branches.csv", "branches.csv"},
		{"seeds/", "branches.csv", "seeds/branches.csv"},
		{"/seeds", "/branches.csv", "seeds/branches.csv"},
		{"seeds", "seeds/branches.csv", "seeds/branches.csv"},
	}
	for _, tt := range tests {
		if got := resolveObjectKey(tt.prefix, tt.name); got != tt.want {
			t.Errorf("resolveObjectKey(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}
