package migrations

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	for i := range 2 {
		if err := Run(ctx, db); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}

	p, err := NewProvider(db)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	version, err := p.GetDBVersion(ctx)
	if err != nil {
		t.Fatalf("db version: %v", err)
	}
	if diff := cmp.Diff(int64(2), version); diff != "" {
		t.Errorf("version mismatch (-want +got):\n%s", diff)
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		t.Fatalf("query runs table: %v", err)
	}
}

func TestDownToZero(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	if err := Run(ctx, db); err != nil {
		t.Fatalf("run: %v", err)
	}
	p, err := NewProvider(db)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, err := p.DownTo(ctx, 0); err != nil {
		t.Fatalf("down to 0: %v", err)
	}

	var name string
	err = db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'runs'").Scan(&name)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected runs table to be dropped, got name=%q err=%v", name, err)
	}
}
