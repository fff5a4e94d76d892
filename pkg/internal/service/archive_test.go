package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yeisme/tweetfreq/pkg/configs"
	"github.com/yeisme/tweetfreq/pkg/internal/storage/db"
	"github.com/yeisme/tweetfreq/pkg/types"
)

type memoryBlobs struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryBlobs) Key(name string) string { return "reports/" + name }

func (m *memoryBlobs) PutJSON(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = data

	return nil
}

func (m *memoryBlobs) GetJSON(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.data[key]
	if !ok {
		return nil, errors.New("no such key")
	}

	return b, nil
}

func (m *memoryBlobs) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)

	return nil
}

func newArchive(t *testing.T, blobs BlobStore) (*ArchiveService, *clockwork.FakeClock) {
	t.Helper()

	dbc, err := db.New(context.Background(), &configs.DBConfig{
		Type:         configs.SQLite,
		Database:     filepath.Join(t.TempDir(), "archive"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	t.Cleanup(func() { _ = dbc.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2020, 1, 6, 12, 0, 0, 0, time.UTC))
	cfg := configs.ArchiveConfig{Enabled: true, Retention: 24 * time.Hour, RecentLimit: 10}

	return NewArchiveService(dbc, blobs, cfg, clock), clock
}

func sampleReport(user string, total int) *types.UserReport {
	return &types.UserReport{
		Stats: types.Stats{
			Total:     types.Number{Value: float64(total), Formatted: "x"},
			AvgPerDay: types.Number{Value: 1.5, Formatted: "1.5"},
			MaxPerDay: types.Number{Value: 3, Formatted: "3"},
		},
		Dates: []types.DateCount{{Date: "2020-01-01", Count: total}},
		Words: []types.WordCount{{Word: "cats", Count: 2}},
		Users: []string{user},
	}
}

func TestArchiveSaveRecentSnapshot(t *testing.T) {
	blobs := &memoryBlobs{data: map[string][]byte{}}
	a, clock := newArchive(t, blobs)
	ctx := context.Background()

	first, err := a.Save(ctx, sampleReport("jack", 3))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	clock.Advance(time.Minute)

	if _, err := a.Save(ctx, sampleReport("biz", 5)); err != nil {
		t.Fatalf("save: %v", err)
	}

	rows, err := a.Recent(ctx, "", 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}

	if len(rows) != 2 || rows[0].User != "biz" || rows[1].User != "jack" {
		t.Fatalf("recent = %+v", rows)
	}

	if rows[1].TopWord != "cats" || rows[1].ObjectKey != "reports/jack/"+first+".json" {
		t.Errorf("row = %+v", rows[1])
	}

	only, _ := a.Recent(ctx, "jack", 0)
	if len(only) != 1 || only[0].ReportID != first {
		t.Fatalf("filtered = %+v", only)
	}

	snap, err := a.Snapshot(ctx, first)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if snap.Users[0] != "jack" || snap.Dates[0] != (types.DateCount{Date: "2020-01-01", Count: 3}) {
		t.Fatalf("snapshot = %+v", snap)
	}

	if _, err := a.Snapshot(ctx, "missing"); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
}

func TestArchivePurge(t *testing.T) {
	blobs := &memoryBlobs{data: map[string][]byte{}}
	a, clock := newArchive(t, blobs)
	ctx := context.Background()

	_, _ = a.Save(ctx, sampleReport("jack", 3))

	clock.Advance(12 * time.Hour)
	_, _ = a.Save(ctx, sampleReport("biz", 5))

	clock.Advance(13 * time.Hour)

	n, err := a.Purge(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}

	if n != 1 || len(blobs.data) != 1 {
		t.Fatalf("purged %d rows, %d blobs left", n, len(blobs.data))
	}

	rows, _ := a.Recent(ctx, "", 0)
	if len(rows) != 1 || rows[0].User != "biz" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestArchiveWithoutBlobs(t *testing.T) {
	a, _ := newArchive(t, nil)
	ctx := context.Background()

	id, err := a.Save(ctx, sampleReport("jack", 1))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := a.Snapshot(ctx, id); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}
