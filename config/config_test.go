package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
github:
  post_receive_secret: hunter2
redirects:
  error: https://example.edu/oops
stats:
  timezone: America/Toronto
queue:
  resque:
    queues:
      CompilationJob: latex
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GitHub.PostReceiveSecret != "hunter2" {
		t.Errorf("PostReceiveSecret = %q", cfg.GitHub.PostReceiveSecret)
	}
	if cfg.GitHub.BranchRef != "refs/heads/master" || cfg.GitHub.Extension != ".tex" {
		t.Errorf("github defaults = %+v", cfg.GitHub)
	}
	if cfg.Redirects.Error != "https://example.edu/oops" {
		t.Errorf("Redirects.Error = %q", cfg.Redirects.Error)
	}
	if cfg.Stats.Timezone != "America/Toronto" {
		t.Errorf("Stats.Timezone = %q", cfg.Stats.Timezone)
	}
	if cfg.Store.Driver != "redis" || cfg.Queue.Driver != "resque" || cfg.Artifacts.Driver != "fs" {
		t.Errorf("drivers = %s/%s/%s", cfg.Store.Driver, cfg.Queue.Driver, cfg.Artifacts.Driver)
	}
	if cfg.Queue.Resque.Queues["CompilationJob"] != "latex" {
		t.Errorf("Resque.Queues = %v", cfg.Queue.Resque.Queues)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.Server.ShutdownTimeout)
	}
	if len(cfg.Server.TrustedProxies) != 0 {
		t.Errorf("TrustedProxies = %v, want none by default", cfg.Server.TrustedProxies)
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	path := writeConfig(t, `
github:
  post_receive_secret: s
server:
  trusted_proxies:
    - 10.0.0.0/8
    - 192.0.2.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Server.TrustedProxies) != 2 || cfg.Server.TrustedProxies[1] != "192.0.2.5" {
		t.Errorf("TrustedProxies = %v", cfg.Server.TrustedProxies)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "github:\n  post_receive_secret: from-file\n")
	t.Setenv("NOTEFACE_GITHUB__POST_RECEIVE_SECRET", "from-env")
	t.Setenv("NOTEFACE_SERVER__PORT", "9090")
	t.Setenv("NOTEFACE_STORE__REDIS_URL", "redis://cache:6379/2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GitHub.PostReceiveSecret != "from-env" {
		t.Errorf("PostReceiveSecret = %q, want from-env", cfg.GitHub.PostReceiveSecret)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.ResqueRedisURL() != "redis://cache:6379/2" {
		t.Errorf("ResqueRedisURL() = %q", cfg.ResqueRedisURL())
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing secret", "log:\n  level: debug\n", "PostReceiveSecret"},
		{"unknown store driver", "github:\n  post_receive_secret: s\nstore:\n  driver: mongo\n", "Driver"},
		{"postgres without url", "github:\n  post_receive_secret: s\nstore:\n  driver: postgres\n", "DatabaseURL"},
		{"s3 without bucket", "github:\n  post_receive_secret: s\nartifacts:\n  driver: s3\n", "artifacts.s3"},
		{"half dashboard credentials", "github:\n  post_receive_secret: s\ndashboard:\n  username: admin\n", "dashboard"},
		{"bad trusted proxy", "github:\n  post_receive_secret: s\nserver:\n  trusted_proxies: [lb.internal]\n", "TrustedProxies"},
		{"bad redirect", "github:\n  post_receive_secret: s\nredirects:\n  error: not a url\n", "Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load() error = nil, want validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Error("Load(absent) error = nil, want error")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	if got := envTransformFunc("NOTEFACE_QUEUE__NATS__SUBJECT_PREFIX"); got != "queue.nats.subject_prefix" {
		t.Errorf("envTransformFunc() = %q", got)
	}
}
