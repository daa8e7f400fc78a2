package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("KARANGTEST_")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "/data/database.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Query.TimeoutSeconds != 300 {
		t.Errorf("timeout = %d, want 300", cfg.Query.TimeoutSeconds)
	}
	if cfg.Query.BatchSize != 10000 {
		t.Errorf("batch size = %d, want 10000", cfg.Query.BatchSize)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Query.Timeout() != 300*time.Second {
		t.Errorf("timeout duration = %v", cfg.Query.Timeout())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KARANGTEST_QUERY_BATCHSIZE", "500")
	t.Setenv("KARANGTEST_QUERY_TIMEOUTSECONDS", "60")
	t.Setenv("KARANGTEST_SERVER_PORT", "9000")

	cfg, err := Load("KARANGTEST_")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Query.BatchSize != 500 {
		t.Errorf("batch size = %d, want 500", cfg.Query.BatchSize)
	}
	if cfg.Query.TimeoutSeconds != 60 {
		t.Errorf("timeout = %d, want 60", cfg.Query.TimeoutSeconds)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
}

func TestLegacyEnvNames(t *testing.T) {
	t.Setenv("SQLITE_DB_PATH", "/tmp/legacy.db")
	t.Setenv("PORT", "8080")

	cfg, err := Load("KARANGTEST_")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "/tmp/legacy.db" {
		t.Errorf("database path = %q, want /tmp/legacy.db", cfg.Database.Path)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
}

func TestMalformedDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := os.WriteFile(".env", []byte("not a key value pair\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	if _, err := Load("KARANGTEST_"); err == nil {
		t.Error("malformed .env silently ignored")
	}
}

func TestMissingDotEnvIgnored(t *testing.T) {
	t.Chdir(t.TempDir())

	if _, err := Load("KARANGTEST_"); err != nil {
		t.Errorf("missing .env should not be an error: %v", err)
	}
}

func TestInvalidLimits(t *testing.T) {
	t.Setenv("KARANGTEST_QUERY_BATCHSIZE", "0")
	if _, err := Load("KARANGTEST_"); err == nil {
		t.Error("zero batch size accepted")
	}
}
