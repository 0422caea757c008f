package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Minio      MinioConfig      `yaml:"minio"`
	Mineru     MineruConfig     `yaml:"mineru"`
	Store      StoreConfig      `yaml:"store"`
	Extraction ExtractionConfig `yaml:"extraction"`
	// NodeID seeds the snowflake generator for extraction request ids (0-1023)
	NodeID int64 `yaml:"node_id"`
}

type ServerConfig struct {
	Port               int    `yaml:"port"`
	StaticDir          string `yaml:"static_dir"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	Region     string `yaml:"region"`
	ExpireDays int    `yaml:"expire_days"`
}

type MineruConfig struct {
	APIURL       string `yaml:"api_url"`
	APIToken     string `yaml:"api_token"`
	ModelVersion string `yaml:"model_version"`
	CallbackURL  string `yaml:"callback_url"`
	Seed         string `yaml:"seed"`
	// UID is the account id MinerU mixes into callback checksums
	UID string `yaml:"uid"`
}

// Enabled reports whether document extraction can be offered at all
func (c MineruConfig) Enabled() bool {
	return c.APIURL != "" && c.APIToken != ""
}

type StoreConfig struct {
	Driver   string `yaml:"driver"` // memory, badger, redis, sqlite
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
	Key      string `yaml:"key"`
}

type ExtractionConfig struct {
	PollIntervalSeconds int   `yaml:"poll_interval_seconds"`
	MaxPollAttempts     int   `yaml:"max_poll_attempts"`
	MaxUploadBytes      int64 `yaml:"max_upload_bytes"`
}

// Load reads the YAML file at path, applies environment overrides and fills defaults.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&c.Mineru.APIToken, "MINERU_API_TOKEN")
	override(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	override(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	override(&c.Store.RedisURL, "REDIS_URL")
	override(&c.Store.Driver, "COCKPIT_STORE_DRIVER")

	if v, ok := os.LookupEnv("PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitPerMinute == 0 {
		c.Server.RateLimitPerMinute = 100
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Minio.Region == "" {
		c.Minio.Region = "us-east-1"
	}
	if c.Minio.ExpireDays == 0 {
		c.Minio.ExpireDays = 7
	}
	if c.Mineru.ModelVersion == "" {
		c.Mineru.ModelVersion = "vlm"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "badger"
	}
	if c.Store.Path == "" {
		switch c.Store.Driver {
		case "sqlite":
			c.Store.Path = "data/cockpit.db"
		default:
			c.Store.Path = "data/badger"
		}
	}
	if c.Store.Key == "" {
		c.Store.Key = "loan-cockpit-state"
	}
	if c.Extraction.PollIntervalSeconds == 0 {
		c.Extraction.PollIntervalSeconds = 5
	}
	if c.Extraction.MaxPollAttempts == 0 {
		c.Extraction.MaxPollAttempts = 60
	}
	if c.Extraction.MaxUploadBytes == 0 {
		c.Extraction.MaxUploadBytes = 20 << 20
	}
}
