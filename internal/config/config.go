package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            string   `yaml:"port"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
		ShutdownTimeout string   `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
	} `yaml:"auth"`
	Redis struct {
		Addr      string `yaml:"addr"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		Channel   string `yaml:"channel"`
		PushQueue string `yaml:"push_queue"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL                 string `yaml:"ttl"`
		RevealAnswers       bool   `yaml:"reveal_answers"`
		LeaderboardLimit    int    `yaml:"leaderboard_limit"`
		OverallLimit        int    `yaml:"overall_limit"`
		MaxLeaderboardLimit int    `yaml:"max_leaderboard_limit"`
		PublishTimeout      string `yaml:"publish_timeout"`
		ShuffleSeed         int64  `yaml:"shuffle_seed"`
	} `yaml:"quiz"`
	Avatar struct {
		Dir      string `yaml:"dir"`
		BaseURL  string `yaml:"base_url"`
		Size     int    `yaml:"size"`
		MaxBytes int64  `yaml:"max_bytes"`
	} `yaml:"avatar"`
	Push struct {
		AppURL string `yaml:"app_url"`
	} `yaml:"push"`
}

// Load reads YAML config from path and applies environment overrides. A
// missing file yields an empty config so the service can run on env alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	case os.IsNotExist(err):
	default:
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&cfg.Auth.JWTSecret, "JWT_SECRET")
	override(&cfg.Postgres.URL, "POSTGRES_URL")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
	override(&cfg.Log.Mode, "LOG_MODE")
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
