package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_RequiresAPIKey(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("Load() error = nil without an api key")
	}
}

func TestLoad_DefaultsWithEnvKey(t *testing.T) {
	t.Setenv("RELAY_API_KEY", "dev-secret-key-123")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.APIKey != "dev-secret-key-123" {
		t.Errorf("Auth.APIKey = %q, want env value", cfg.Auth.APIKey)
	}
	if cfg.HTTP.Port != 3000 {
		t.Errorf("HTTP.Port = %d, want 3000", cfg.HTTP.Port)
	}
	if cfg.Socket.HandshakeTimeout != 10*time.Second {
		t.Errorf("Socket.HandshakeTimeout = %v, want 10s", cfg.Socket.HandshakeTimeout)
	}
	if cfg.Socket.SendBuffer != 64 {
		t.Errorf("Socket.SendBuffer = %d, want 64", cfg.Socket.SendBuffer)
	}
	if cfg.Registry.Capacity != 1000 {
		t.Errorf("Registry.Capacity = %d, want 1000", cfg.Registry.Capacity)
	}
	if cfg.AMQP.Enabled || cfg.Mongo.Enabled {
		t.Error("AMQP/Mongo enabled by default, want disabled")
	}
	if cfg.Mongo.AuditRetention != 30*24*time.Hour {
		t.Errorf("Mongo.AuditRetention = %v, want 720h", cfg.Mongo.AuditRetention)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("RELAY_API_KEY", "dev-secret-key-123")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http:
  port: 8080
socket:
  send_buffer: 128
registry:
  capacity: 50
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTP.Port != 8080 {
		t.Errorf("HTTP.Port = %d, want 8080", cfg.HTTP.Port)
	}
	if cfg.Socket.SendBuffer != 128 {
		t.Errorf("Socket.SendBuffer = %d, want 128", cfg.Socket.SendBuffer)
	}
	if cfg.Registry.Capacity != 50 {
		t.Errorf("Registry.Capacity = %d, want 50", cfg.Registry.Capacity)
	}
	// Untouched keys keep their defaults.
	if cfg.HTTP.Host != "0.0.0.0" {
		t.Errorf("HTTP.Host = %q, want default", cfg.HTTP.Host)
	}
}

func TestLoad_EnvEnablesAMQPAndMongo(t *testing.T) {
	t.Setenv("RELAY_API_KEY", "dev-secret-key-123")
	t.Setenv("AMQP_URI", "amqp://broker:5672/")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("MONGODB_DATABASE", "relay_audit")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.AMQP.Enabled || cfg.AMQP.URI != "amqp://broker:5672/" {
		t.Errorf("AMQP = %+v, want enabled with env uri", cfg.AMQP)
	}
	if !cfg.Mongo.Enabled || cfg.Mongo.Database != "relay_audit" {
		t.Errorf("Mongo = %+v, want enabled with env database", cfg.Mongo)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("Load() error = nil for missing file")
	}
}
