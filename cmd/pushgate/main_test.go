package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"reflect"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/pushgate/internal/infrastructure/config"
	"github.com/nerrad567/pushgate/internal/infrastructure/database"
	"github.com/nerrad567/pushgate/internal/infrastructure/logging"
)

const testJWTSecret = "test-secret-key-at-least-32-characters-long"

// writeConfig writes a YAML config to a temp dir and points PUSHGATE_CONFIG at it.
func writeConfig(t *testing.T, content string) {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("PUSHGATE_CONFIG", configPath)
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("PUSHGATE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails validation with an empty database path.
func TestRun_MissingDatabasePath(t *testing.T) {
	writeConfig(t, `
database:
  path: ""
security:
  jwt:
    secret: "`+testJWTSecret+`"
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_MissingJWTSecret verifies run refuses to start without a client token secret.
func TestRun_MissingJWTSecret(t *testing.T) {
	t.Setenv("PUSHGATE_JWT_SECRET", "")
	writeConfig(t, `
database:
  path: "`+filepath.Join(t.TempDir(), "test.db")+`"
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail without security.jwt.secret")
	}
}

// TestRun_StartupAndShutdown runs the full stack with MQTT and InfluxDB
// disabled and checks the audit database was migrated.
func TestRun_StartupAndShutdown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	writeConfig(t, `
api:
  host: "127.0.0.1"
  port: 18089
database:
  path: "`+dbPath+`"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: false
influxdb:
  enabled: false
logging:
  level: error
  format: text
  output: stdout
security:
  jwt:
    secret: "`+testJWTSecret+`"
`)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	db, err := database.Open(context.Background(), config.DatabaseConfig{Path: dbPath})
	if err != nil {
		t.Fatalf("reopening database: %v", err)
	}
	defer db.Close()

	applied, err := db.AppliedVersions(context.Background())
	if err != nil {
		t.Fatalf("AppliedVersions() error = %v", err)
	}
	if len(applied) == 0 {
		t.Error("no migrations applied")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("PUSHGATE_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("PUSHGATE_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestHealthCheck_OptionalClients verifies disabled integrations are skipped.
func TestHealthCheck_OptionalClients(t *testing.T) {
	db, err := database.Open(context.Background(), config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "h.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if err := healthCheck(context.Background(), db, nil, nil); err != nil {
		t.Errorf("healthCheck() error = %v", err)
	}
}

// TestDrainOrder verifies intake closes before the workers stop and the
// workers are waited on last.
func TestDrainOrder(t *testing.T) {
	tests := []struct {
		name     string
		closeErr error
		waitErr  error
	}{
		{"clean", nil, nil},
		{"intake error does not stop later stages", errors.New("close failed"), nil},
		{"worker error returned", nil, errors.New("worker failed")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := logging.NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "test", &buf)

			var order []string
			step := func(name string, err error) stage {
				return stage{name, func() error {
					order = append(order, name)
					return err
				}}
			}
			intake := []stage{step("server", tt.closeErr), step("ingress", nil), step("connections", nil)}
			stop := func() { order = append(order, "stop") }
			wait := func() error {
				order = append(order, "wait")
				return tt.waitErr
			}

			err := drain(log, intake, stop, wait)
			if !errors.Is(err, tt.waitErr) {
				t.Errorf("drain() error = %v, want %v", err, tt.waitErr)
			}
			want := []string{"server", "ingress", "connections", "stop", "wait"}
			if !reflect.DeepEqual(order, want) {
				t.Errorf("order = %v, want %v", order, want)
			}
			if tt.closeErr != nil && !bytes.Contains(buf.Bytes(), []byte("error closing server")) {
				t.Errorf("close failure not logged: %s", buf.String())
			}
		})
	}
}

// TestCloseIngressNil verifies a disabled ingress is a no-op shutdown step.
func TestCloseIngressNil(t *testing.T) {
	if err := closeIngress(nil)(); err != nil {
		t.Errorf("closeIngress(nil)() = %v, want nil", err)
	}
}
