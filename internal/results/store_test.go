package results

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(" "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestRecordAndListRecent(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		result := Result{
			MatchID: NewMatchID(),
			Role:    "host",
			Winner:  i % 2,
			Points:  [2]int{200 * i, 300},
			Hits:    [2]int{i, 1},
			Ticks:   uint32(1000 + i),
			EndedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.RecordResult(ctx, result); err != nil {
			t.Fatalf("record result %d: %v", i, err)
		}
	}

	recent, err := store.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 results, got %d", len(recent))
	}
	if !recent[0].EndedAt.Equal(base.Add(2*time.Minute)) || recent[0].Ticks != 1002 || recent[0].Points[0] != 400 {
		t.Fatalf("unexpected newest result %+v", recent[0])
	}
	if _, err := uuid.Parse(recent[0].MatchID); err != nil {
		t.Fatalf("expected uuid match id, got %q", recent[0].MatchID)
	}
}

func TestRecordResultRejectsDuplicates(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	result := Result{MatchID: "match-1", Role: "client", Winner: 1}
	if err := store.RecordResult(context.Background(), result); err != nil {
		t.Fatalf("record result: %v", err)
	}
	if err := store.RecordResult(context.Background(), result); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestRecordResultValidates(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	cases := []Result{
		{Role: "host"},
		{MatchID: "m", Winner: 2},
	}
	for _, result := range cases {
		if err := store.RecordResult(context.Background(), result); err == nil {
			t.Fatalf("expected validation error for %+v", result)
		}
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen should skip applied migrations: %v", err)
	}
	second.Close()
}

func TestExtractUp(t *testing.T) {
	got := extractUp("-- +migrate Up\nCREATE TABLE a (x);\n-- +migrate Down\nDROP TABLE a;")
	if got != "\nCREATE TABLE a (x);\n" {
		t.Fatalf("unexpected up section %q", got)
	}
}
