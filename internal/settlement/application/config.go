package application

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ScheduleConfig defines the daily settlement run.
type ScheduleConfig struct {
	DailyAt string   `yaml:"daily_at"`
	Owners  []string `yaml:"owners"`
}

// Config defines settlement runtime configuration.
type Config struct {
	Schedule      ScheduleConfig `yaml:"schedule"`
	CreateTimeout time.Duration  `yaml:"create_timeout"`
}

// LoadConfig loads config from yaml (SETTLE_CONFIG path) with env fallbacks.
func LoadConfig() (Config, error) {
	cfg := Config{
		CreateTimeout: getenvDuration("SETTLE_CREATE_TIMEOUT", 30*time.Second),
	}

	if path := os.Getenv("SETTLE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.Schedule.DailyAt == "" {
		cfg.Schedule.DailyAt = getenvDefault("SETTLE_DAILY_AT", "03:00")
	}
	if len(cfg.Schedule.Owners) == 0 {
		cfg.Schedule.Owners = splitCSV(getenvDefault("SETTLE_OWNERS", ""))
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
