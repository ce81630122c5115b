package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultPath is read when no --config flag is given
	DefaultPath = "config/settings.yml"
	// EnvPrefix scopes environment overrides; "__" separates nesting levels,
	// e.g. NOTEFACE_GITHUB__POST_RECEIVE_SECRET
	EnvPrefix = "NOTEFACE_"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Queue     QueueConfig     `koanf:"queue"`
	Artifacts ArtifactsConfig `koanf:"artifacts"`
	GitHub    GitHubConfig    `koanf:"github"`
	Dashboard DashboardConfig `koanf:"dashboard"`
	Session   SessionConfig   `koanf:"session"`
	Stats     StatsConfig     `koanf:"stats"`
	Redirects RedirectsConfig `koanf:"redirects"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Port            string        `koanf:"port" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// TrustedProxies lists the CIDRs or addresses whose X-Forwarded-For is believed
	TrustedProxies []string `koanf:"trusted_proxies" validate:"dive,cidr|ip"`
}

type StoreConfig struct {
	Driver      string `koanf:"driver" validate:"oneof=redis postgres sqlite badger"`
	RedisURL    string `koanf:"redis_url"`
	DatabaseURL string `koanf:"database_url" validate:"required_if=Driver postgres"`
	SQLitePath  string `koanf:"sqlite_path" validate:"required_if=Driver sqlite"`
	BadgerPath  string `koanf:"badger_path"`
}

type QueueConfig struct {
	Driver           string         `koanf:"driver" validate:"oneof=resque temporal nats"`
	Resque           ResqueConfig   `koanf:"resque"`
	Temporal         TemporalConfig `koanf:"temporal"`
	NATS             NATSConfig     `koanf:"nats"`
	FailureThreshold uint32         `koanf:"failure_threshold"`
	BreakerTimeout   time.Duration  `koanf:"breaker_timeout"`
}

type ResqueConfig struct {
	RedisURL  string `koanf:"redis_url"`
	Namespace string `koanf:"namespace"`
	// Queues maps a job class to its Resque queue
	Queues  map[string]string `koanf:"queues"`
	Default string            `koanf:"default"`
}

type TemporalConfig struct {
	HostPort  string `koanf:"host_port"`
	Namespace string `koanf:"namespace"`
	TaskQueue string `koanf:"task_queue"`
}

type NATSConfig struct {
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

type ArtifactsConfig struct {
	Driver string   `koanf:"driver" validate:"oneof=fs s3"`
	Root   string   `koanf:"root"`
	S3     S3Config `koanf:"s3"`
}

type S3Config struct {
	Endpoint        string `koanf:"endpoint"`
	Bucket          string `koanf:"bucket"`
	Prefix          string `koanf:"prefix"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	UseSSL          bool   `koanf:"use_ssl"`
}

type GitHubConfig struct {
	PostReceiveSecret string `koanf:"post_receive_secret" validate:"required"`
	BranchRef         string `koanf:"branch_ref" validate:"required"`
	Extension         string `koanf:"extension" validate:"required"`
}

type DashboardConfig struct {
	Username string `koanf:"username"`
	// Password may be plain text or a bcrypt hash
	Password   string `koanf:"password"`
	BcryptCost int    `koanf:"bcrypt_cost" validate:"omitempty,min=4,max=31"`
}

type SessionConfig struct {
	CookieName string        `koanf:"cookie_name" validate:"required"`
	MaxAge     time.Duration `koanf:"max_age"`
	Secure     bool          `koanf:"secure"`
}

type StatsConfig struct {
	Timezone string `koanf:"timezone"`
}

type RedirectsConfig struct {
	Error string `koanf:"error" validate:"omitempty,url"`
}

type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests" validate:"omitempty,min=1"`
	Window   time.Duration `koanf:"window"`
}

type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format" validate:"omitempty,oneof=json console"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver:     "redis",
			RedisURL:   "localhost:6379",
			SQLitePath: "noteface.db",
		},
		Queue: QueueConfig{
			Driver: "resque",
			Resque: ResqueConfig{
				Namespace: "resque",
				Queues: map[string]string{
					"CompilationJob":        "compilation",
					"MixpanelTrackingEvent": "tracking",
				},
				Default: "default",
			},
			Temporal: TemporalConfig{
				HostPort:  "localhost:7233",
				Namespace: "default",
				TaskQueue: "noteface",
			},
			NATS: NATSConfig{
				URL:           "nats://localhost:4222",
				SubjectPrefix: "noteface",
			},
			FailureThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
		Artifacts: ArtifactsConfig{
			Driver: "fs",
			Root:   "./documents",
		},
		GitHub: GitHubConfig{
			BranchRef: "refs/heads/master",
			Extension: ".tex",
		},
		Dashboard: DashboardConfig{
			BcryptCost: 10,
		},
		Session: SessionConfig{
			CookieName: "noteface_session",
			MaxAge:     365 * 24 * time.Hour,
		},
		Stats: StatsConfig{
			Timezone: "UTC",
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 120,
			Window:   time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load layers struct defaults, the YAML file at path and NOTEFACE_*
// environment variables, in increasing priority. A missing file is only
// an error when path was given explicitly.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envTransformFunc maps NOTEFACE_STORE__REDIS_URL to store.redis_url
func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Artifacts.Driver == "s3" && (c.Artifacts.S3.Endpoint == "" || c.Artifacts.S3.Bucket == "") {
		return fmt.Errorf("artifacts.s3.endpoint and artifacts.s3.bucket are required for the s3 driver")
	}
	if (c.Dashboard.Username == "") != (c.Dashboard.Password == "") {
		return fmt.Errorf("dashboard.username and dashboard.password must be set together")
	}
	return nil
}

// ResqueRedisURL falls back to the store's Redis when the queue has no URL of its own
func (c *Config) ResqueRedisURL() string {
	if c.Queue.Resque.RedisURL != "" {
		return c.Queue.Resque.RedisURL
	}
	return c.Store.RedisURL
}
