package database

import (
	"testing"
	"testing/fstest"
)

func TestListMigrationFiles(t *testing.T) {
	src := fstest.MapFS{
		"0002_add_index.up.sql":       {Data: []byte("--")},
		"0001_create_orders.up.sql":   {Data: []byte("--")},
		"0001_create_orders.down.sql": {Data: []byte("--")},
		"embed.go":                    {Data: []byte("package migrations")},
	}
	got := listMigrationFiles(src)
	want := []string{"0001_create_orders.up.sql", "0002_add_index.up.sql"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSelectApplied(t *testing.T) {
	files := []string{"0001_a.up.sql", "0002_b.up.sql", "0003_c.up.sql"}
	if got := selectApplied(files, 1, 3); len(got) != 2 || got[0] != "0002_b.up.sql" {
		t.Fatalf("unexpected applied set %v", got)
	}
	if got := selectApplied(files, 3, 3); len(got) != 0 {
		t.Fatalf("expected nothing applied, got %v", got)
	}
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "bot", Password: "p@ss", Name: "exchange"}
	if got := cfg.URL(); got != "postgres://bot:p%40ss@db:5432/exchange?sslmode=disable" {
		t.Fatalf("unexpected url %q", got)
	}
	if got := cfg.KeywordDSN(); got != "user=bot password=p@ss host=db port=5432 dbname=exchange sslmode=disable" {
		t.Fatalf("unexpected dsn %q", got)
	}
	if !cfg.Enabled() || (Config{}).Enabled() {
		t.Fatal("Enabled mismatch")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Host: "db", Name: "exchange", SSLMode: "require"}
	if got := cfg.URL(); got != "postgres://:@db:5432/exchange?sslmode=require" {
		t.Fatalf("unexpected url %q", got)
	}
	if cfg.pool() != defaultPool || cfg.wait() != defaultWait {
		t.Fatalf("pool=%d wait=%s", cfg.pool(), cfg.wait())
	}
	cfg.MaxConnections, cfg.WaitSeconds = 3, 1
	if cfg.pool() != 3 || cfg.wait().Seconds() != 1 {
		t.Fatalf("pool=%d wait=%s", cfg.pool(), cfg.wait())
	}
}
