package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken     string       `yaml:"discord_token"`
	MongoURI         string       `yaml:"mongodb_uri"`
	RedisURL         string       `yaml:"redis_url"`
	LogLevel         string       `yaml:"log_level"`
	RetentionDays    int          `yaml:"retention_days"`
	DefaultProvider  string       `yaml:"default_ai_provider"`
	DeveloperGuildID string       `yaml:"developer_guild_id"`
	Health           HealthConfig `yaml:"health"`
	Alerts           AlertConfig  `yaml:"alerts"`
	Cache            CacheConfig  `yaml:"cache"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// AlertConfig carries the fallback thresholds used when a guild has no
// override stored for an alert kind.
type AlertConfig struct {
	JoinRaidThreshold     float64 `yaml:"join_raid_threshold"`
	ActivityDropThreshold float64 `yaml:"activity_drop_threshold"`
	MassDeleteThreshold   float64 `yaml:"mass_delete_threshold"`
	VoiceSurgeMultiplier  float64 `yaml:"voice_surge_multiplier"`
}

type CacheConfig struct {
	LeaderboardTTLSeconds int `yaml:"leaderboard_ttl_seconds"`
	StatsTTLSeconds       int `yaml:"stats_ttl_seconds"`
}

func DefaultConfig() Config {
	return Config{
		MongoURI:        "mongodb://localhost:27017/serverpulse",
		RedisURL:        "redis://localhost:6379",
		LogLevel:        "info",
		RetentionDays:   90,
		DefaultProvider: "openrouter",
		Health:          HealthConfig{Enabled: false, Addr: ":8080"},
		Alerts: AlertConfig{
			JoinRaidThreshold:     10,
			ActivityDropThreshold: 50,
			MassDeleteThreshold:   5,
			VoiceSurgeMultiplier:  3,
		},
		Cache: CacheConfig{
			LeaderboardTTLSeconds: 300,
			StatsTTLSeconds:       600,
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.MongoURI = envString("MONGODB_URI", cfg.MongoURI)
	cfg.RedisURL = envString("REDIS_URL", cfg.RedisURL)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.RetentionDays = envInt("DATA_RETENTION_DAYS", cfg.RetentionDays)
	cfg.DefaultProvider = envString("AI_PROVIDER", cfg.DefaultProvider)
	cfg.DeveloperGuildID = envString("DEVELOPER_GUILD_ID", cfg.DeveloperGuildID)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Alerts.JoinRaidThreshold = envFloat("DEFAULT_ALERT_THRESHOLD_JOIN_RAID", cfg.Alerts.JoinRaidThreshold)
	cfg.Alerts.ActivityDropThreshold = envFloat("DEFAULT_ALERT_THRESHOLD_ACTIVITY_DROP", cfg.Alerts.ActivityDropThreshold)
	cfg.Alerts.MassDeleteThreshold = envFloat("DEFAULT_ALERT_THRESHOLD_MASS_DELETE", cfg.Alerts.MassDeleteThreshold)
	cfg.Alerts.VoiceSurgeMultiplier = envFloat("DEFAULT_ALERT_THRESHOLD_VOICE_SURGE", cfg.Alerts.VoiceSurgeMultiplier)
	cfg.Cache.LeaderboardTTLSeconds = envInt("CACHE_TTL_LEADERBOARD", cfg.Cache.LeaderboardTTLSeconds)
	cfg.Cache.StatsTTLSeconds = envInt("CACHE_TTL_STATS", cfg.Cache.StatsTTLSeconds)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
