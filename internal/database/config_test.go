package database

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid: %v", err)
	}
	if config.Path != "aware.db" {
		t.Errorf("Expected default path aware.db, got %s", config.Path)
	}
	if config.JournalMode != "WAL" {
		t.Errorf("Expected WAL journal mode, got %s", config.JournalMode)
	}
	if !config.AutoMigrate {
		t.Error("Expected AutoMigrate enabled by default")
	}
}

func TestTestConfig(t *testing.T) {
	config := TestConfig()

	if err := config.Validate(); err != nil {
		t.Errorf("TestConfig should be valid: %v", err)
	}
	if !config.IsInMemory() {
		t.Error("TestConfig should use in-memory database")
	}
	if config.JournalMode == "WAL" {
		t.Error("TestConfig must not use WAL with in-memory database")
	}
	if !config.IsTest() {
		t.Error("TestConfig environment should be test")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty path", func(c *Config) { c.Path = "" }, "path cannot be empty"},
		{"zero max connections", func(c *Config) { c.MaxConnections = 0 }, "maxConnections"},
		{"negative idle", func(c *Config) { c.MaxIdleConns = -1 }, "maxIdleConns"},
		{"idle exceeds max", func(c *Config) { c.MaxIdleConns = 50; c.MaxConnections = 10 }, "maxIdleConns"},
		{"negative lifetime", func(c *Config) { c.ConnMaxLifetime = -time.Second }, "connMaxLifetime"},
		{"bad journal mode", func(c *Config) { c.JournalMode = "SPIRAL" }, "journalMode"},
		{"wal in memory", func(c *Config) { c.Path = ":memory:"; c.JournalMode = "WAL" }, "WAL"},
		{"bad sync mode", func(c *Config) { c.SynchronousMode = "SOMETIMES" }, "synchronousMode"},
		{"zero cache", func(c *Config) { c.CacheSize = 0 }, "cacheSize"},
		{"negative busy timeout", func(c *Config) { c.BusyTimeout = -1 }, "busyTimeout"},
		{"negative retention", func(c *Config) { c.RetentionDays = -1 }, "retentionDays"},
		{"bad environment", func(c *Config) { c.Environment = "staging" }, "environment"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "logLevel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_LoadFromEnvironment(t *testing.T) {
	t.Setenv("AWARE_DB_PATH", "/tmp/test-aware.db")
	t.Setenv("AWARE_DB_MAX_CONNECTIONS", "7")
	t.Setenv("AWARE_DB_AUTO_MIGRATE", "off")
	t.Setenv("AWARE_DB_RETENTION_DAYS", "90")
	t.Setenv("AWARE_ENVIRONMENT", "development")

	config := DefaultConfig()
	if err := config.LoadFromEnvironment(); err != nil {
		t.Fatalf("LoadFromEnvironment failed: %v", err)
	}

	if config.Path != "/tmp/test-aware.db" {
		t.Errorf("Expected path override, got %s", config.Path)
	}
	if config.MaxConnections != 7 {
		t.Errorf("Expected 7 max connections, got %d", config.MaxConnections)
	}
	if config.AutoMigrate {
		t.Error("Expected AutoMigrate disabled via env")
	}
	if config.RetentionDays != 90 {
		t.Errorf("Expected 90 retention days, got %d", config.RetentionDays)
	}
	if config.Environment != "development" {
		t.Errorf("Expected development environment, got %s", config.Environment)
	}
}

func TestConfig_LoadFromEnvironment_IgnoresInvalid(t *testing.T) {
	t.Setenv("AWARE_DB_MAX_CONNECTIONS", "not-a-number")
	t.Setenv("AWARE_DB_RETENTION_DAYS", "-4")

	config := DefaultConfig()
	if err := config.LoadFromEnvironment(); err != nil {
		t.Fatalf("LoadFromEnvironment failed: %v", err)
	}

	if config.MaxConnections != DefaultConfig().MaxConnections {
		t.Error("Invalid numeric value should be ignored")
	}
	if config.RetentionDays != DefaultConfig().RetentionDays {
		t.Error("Negative retention should be ignored")
	}
}

func TestConfig_GetConnectionString(t *testing.T) {
	config := DefaultConfig()
	config.Path = "wellbeing.db"

	conn := config.GetConnectionString()

	if !strings.HasPrefix(conn, "wellbeing.db?") {
		t.Errorf("Expected path prefix, got %s", conn)
	}
	if !strings.Contains(conn, "_journal_mode=WAL") {
		t.Errorf("Expected journal mode parameter, got %s", conn)
	}
	if !strings.Contains(conn, "_foreign_keys=on") {
		t.Errorf("Expected foreign keys parameter, got %s", conn)
	}
	if !strings.Contains(conn, "_cache_size=-2000") {
		t.Errorf("Expected negative cache size, got %s", conn)
	}
}

func TestConfig_Clone(t *testing.T) {
	original := DefaultConfig()
	clone := original.Clone()

	clone.Path = "other.db"
	clone.RetentionDays = 1

	if original.Path == clone.Path {
		t.Error("Clone should not share state with original")
	}
	if original.RetentionDays == clone.RetentionDays {
		t.Error("Clone should not share state with original")
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value       string
		want        bool
		wantPresent bool
	}{
		{"true", true, true},
		{"1", true, true},
		{"yes", true, true},
		{"on", true, true},
		{"false", false, true},
		{"0", false, true},
		{"no", false, true},
		{"off", false, true},
		{"maybe", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run("value="+tt.value, func(t *testing.T) {
			t.Setenv("AWARE_TEST_BOOL", tt.value)
			got, present := parseBoolEnv("AWARE_TEST_BOOL")
			if got != tt.want || present != tt.wantPresent {
				t.Errorf("parseBoolEnv(%q) = (%v, %v), want (%v, %v)", tt.value, got, present, tt.want, tt.wantPresent)
			}
		})
	}
}
