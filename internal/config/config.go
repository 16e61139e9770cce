package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port       string `yaml:"port"`
		AdminToken string `yaml:"admin_token"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Game struct {
		CacheTTL           string `yaml:"cache_ttl"`
		QuestionSeconds    int    `yaml:"question_seconds"`
		ResultSeconds      int    `yaml:"result_seconds"`
		LeaderboardSeconds int    `yaml:"leaderboard_seconds"`
	} `yaml:"game"`
	Scheduler struct {
		Interval  string `yaml:"interval"`
		Lookahead string `yaml:"lookahead"`
	} `yaml:"scheduler"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or
// malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Seconds returns raw unless it is zero or negative.
func Seconds(raw, fallback int) int {
	if raw > 0 {
		return raw
	}
	return fallback
}
