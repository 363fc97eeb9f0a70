package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validJWTSecret meets the 32-character minimum.
const validJWTSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  id: "edge-7"
api:
  port: 9090
  service_key: "backend-key"
websocket:
  path: "/socket"
  send_buffer: 16
push:
  strict_publish: true
  max_connections_per_user: 4
mqtt:
  enabled: true
  broker:
    host: "broker.local"
  qos: 0
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ID != "edge-7" {
		t.Errorf("Server.ID = %q, want %q", cfg.Server.ID, "edge-7")
	}
	if cfg.API.Port != 9090 || cfg.API.ServiceKey != "backend-key" {
		t.Errorf("API = %+v, want port 9090 with service key", cfg.API)
	}
	if cfg.WebSocket.Path != "/socket" || cfg.WebSocket.SendBuffer != 16 {
		t.Errorf("WebSocket = %+v", cfg.WebSocket)
	}
	if !cfg.Push.StrictPublish || cfg.Push.MaxConnectionsPerUser != 4 {
		t.Errorf("Push = %+v", cfg.Push)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	// Unset keys keep their defaults.
	if cfg.MQTT.Broker.Port != 1883 || cfg.MQTT.TopicPrefix != "pushgate" {
		t.Errorf("MQTT defaults lost: port=%d prefix=%q", cfg.MQTT.Broker.Port, cfg.MQTT.TopicPrefix)
	}
	if cfg.Database.Path != "./data/pushgate.db" {
		t.Errorf("Database.Path = %q, want default", cfg.Database.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
server:
  id: ""
api:
  port: 8080
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	// All problems are reported together.
	for _, want := range []string{"server.id", "security.jwt.secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoad_BadEnvOverride(t *testing.T) {
	path := writeConfig(t, "security:\n  jwt:\n    secret: \""+validJWTSecret+"\"\n")
	t.Setenv("PUSHGATE_API_PORT", "eighty")

	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for non-numeric PUSHGATE_API_PORT, got nil")
	}
}

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWT.Secret = validJWTSecret
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(*Config) {}, false},
		{"missing server ID", func(c *Config) { c.Server.ID = "" }, true},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, true},
		{"invalid QoS", func(c *Config) { c.MQTT.QoS = 3 }, true},
		{"invalid port low", func(c *Config) { c.API.Port = 0 }, true},
		{"invalid port high", func(c *Config) { c.API.Port = 70000 }, true},
		{"websocket path without slash", func(c *Config) { c.WebSocket.Path = "ws" }, true},
		{"zero send buffer", func(c *Config) { c.WebSocket.SendBuffer = 0 }, true},
		{"zero ping interval", func(c *Config) { c.WebSocket.PingInterval = 0 }, true},
		{"zero pong timeout", func(c *Config) { c.WebSocket.PongTimeout = 0 }, true},
		{"negative connection cap", func(c *Config) { c.Push.MaxConnectionsPerUser = -1 }, true},
		{"TLS without cert", func(c *Config) { c.API.TLS.Enabled = true }, true},
		{"influx enabled without url", func(c *Config) { c.InfluxDB.Enabled = true }, true},
		{"mqtt enabled without prefix", func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.TopicPrefix = ""
		}, true},
		{"missing JWT secret", func(c *Config) { c.Security.JWT.Secret = "" }, true},
		{"JWT secret too short", func(c *Config) { c.Security.JWT.Secret = "short" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAPIConfigTimeouts(t *testing.T) {
	api := APIConfig{Timeouts: APITimeoutConfig{Read: 30, Write: 45, Idle: 60}}

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"read", api.ReadTimeout(), 30 * time.Second},
		{"write", api.WriteTimeout(), 45 * time.Second},
		{"idle", api.IdleTimeout(), 60 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestWebSocketConfigKeepalive(t *testing.T) {
	tests := []struct {
		name         string
		cfg          WebSocketConfig
		wantPing     time.Duration
		wantPong     time.Duration
		wantDeadline time.Duration
	}{
		{"configured", WebSocketConfig{PingInterval: 20, PongTimeout: 5}, 20 * time.Second, 5 * time.Second, 25 * time.Second},
		{"zero falls back", WebSocketConfig{}, 30 * time.Second, 10 * time.Second, 40 * time.Second},
		{"negative falls back", WebSocketConfig{PingInterval: -1, PongTimeout: -1}, 30 * time.Second, 10 * time.Second, 40 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.PingPeriod(); got != tt.wantPing {
				t.Errorf("PingPeriod() = %v, want %v", got, tt.wantPing)
			}
			if got := tt.cfg.PongWait(); got != tt.wantPong {
				t.Errorf("PongWait() = %v, want %v", got, tt.wantPong)
			}
			if got := tt.cfg.ReadDeadline(); got != tt.wantDeadline {
				t.Errorf("ReadDeadline() = %v, want %v", got, tt.wantDeadline)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("PUSHGATE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("PUSHGATE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("PUSHGATE_MQTT_USERNAME", "testuser")
	t.Setenv("PUSHGATE_MQTT_PASSWORD", "testpass")
	t.Setenv("PUSHGATE_API_HOST", "192.168.1.1")
	t.Setenv("PUSHGATE_API_PORT", "9000")
	t.Setenv("PUSHGATE_SERVICE_KEY", "svc")
	t.Setenv("PUSHGATE_PUSH_STRICT_PUBLISH", "true")
	t.Setenv("PUSHGATE_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("PUSHGATE_LOG_LEVEL", "debug")
	t.Setenv("PUSHGATE_JWT_SECRET", "jwt-secret")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"API.Host", cfg.API.Host, "192.168.1.1"},
		{"API.Port", cfg.API.Port, 9000},
		{"API.ServiceKey", cfg.API.ServiceKey, "svc"},
		{"Push.StrictPublish", cfg.Push.StrictPublish, true},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
		{"Security.JWT.Secret", cfg.Security.JWT.Secret, "jwt-secret"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.ID == "" {
		t.Error("defaultConfig should have non-empty Server.ID")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
	if cfg.WebSocket.Path != "/ws" {
		t.Errorf("defaultConfig WebSocket.Path = %q, want /ws", cfg.WebSocket.Path)
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled {
		t.Error("defaultConfig should leave MQTT and InfluxDB disabled")
	}
	// Only the secret is missing from a default config.
	cfg.Security.JWT.Secret = validJWTSecret
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig with secret: Validate() error = %v", err)
	}
}
