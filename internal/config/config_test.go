package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("LOG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error = %v", err)
	}

	if cfg.Database.Name != "taskdeck" {
		t.Errorf("Database.Name = %q", cfg.Database.Name)
	}
	if cfg.JWT.Expiration != 15*time.Minute {
		t.Errorf("JWT.Expiration = %v", cfg.JWT.Expiration)
	}
	if cfg.WebSocket.PingPeriod >= cfg.WebSocket.PongWait {
		t.Errorf("PingPeriod %v must be shorter than PongWait %v", cfg.WebSocket.PingPeriod, cfg.WebSocket.PongWait)
	}
	if cfg.Logging.File != "" {
		t.Errorf("Logging.File = %q, want stderr only", cfg.Logging.File)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad jwt expiration", env: map[string]string{"JWT_EXPIRATION": "soon"}},
		{name: "bad refresh expiration", env: map[string]string{"REFRESH_TOKEN_EXPIRATION": "later"}},
		{name: "bad pong wait", env: map[string]string{"WS_PONG_WAIT": "1x"}},
		{name: "default secret in production", env: map[string]string{"ENV": "production", "JWT_SECRET": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if _, err := Load(); err == nil {
				t.Error("Load() expected error but got none")
			}
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("WS_MAX_CONN_PER_USER", "2")
	t.Setenv("LOG_COMPRESS", "false")
	t.Setenv("LOG_MAX_BACKUPS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q", cfg.Server.Port)
	}
	if cfg.WebSocket.MaxConnPerUser != 2 {
		t.Errorf("MaxConnPerUser = %d", cfg.WebSocket.MaxConnPerUser)
	}
	if cfg.Logging.Compress {
		t.Error("Logging.Compress should be false")
	}
	if cfg.Logging.MaxBackups != 3 {
		t.Errorf("MaxBackups = %d, want fallback 3", cfg.Logging.MaxBackups)
	}
}
