// Package config loads engine configuration from config.json with
// environment variable overrides. Environment values take precedence.
package config

import (
	"encoding/json"
	"os"
	"strconv"
)

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Logging    LoggingConfig    `json:"logging"`
	Redis      RedisConfig      `json:"redis"`
	Pipeline   PipelineConfig   `json:"pipeline"`
	Thresholds ThresholdsConfig `json:"thresholds"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	AllowedOrigins  string `json:"allowed_origins"`
	ShutdownTimeout int    `json:"shutdown_timeout"` // Seconds
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `json:"level"`
	JSONFormat bool   `json:"json_format"`
}

// RedisConfig holds the optional shared snapshot store configuration.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// PipelineConfig holds the risk-parameterization policy constants. The
// defaults are the policy; configuration just makes them visible.
type PipelineConfig struct {
	EqualCapitalPerSignal  float64 `json:"equal_capital_per_signal"` // Capital slice per concurrently open signal
	RiskPercent            float64 `json:"risk_percent"`             // Fraction of the slice risked. Default 0.02
	Leverage               int     `json:"leverage"`                 // Fixed leverage. Default 10
	WickBufferPercent      float64 `json:"wick_buffer_percent"`      // Added to ATR-derived stops. Default 0.3
	FallbackStopPercent    float64 `json:"fallback_stop_percent"`    // Flat stop without ATR. Default 2.0
	MinAITargetMovePercent float64 `json:"min_ai_target_move_percent"`
	MaxAITargetMovePercent float64 `json:"max_ai_target_move_percent"`
}

// ThresholdsConfig holds decision thresholds.
type ThresholdsConfig struct {
	Confidence ConfidenceThresholds `json:"confidence"`
}

// ConfidenceThresholds holds the confidence bands.
type ConfidenceThresholds struct {
	Minimum float64 `json:"minimum"` // Admission threshold. Default 0.60
	Medium  float64 `json:"medium"`  // Below this the minimum R:R is elevated. Default 0.75
}

// MediumConfidence exposes the medium threshold to the take-profit
// calculator's minimum R:R rule.
func (c *Config) MediumConfidence() float64 {
	return c.Thresholds.Confidence.Medium
}

// Load reads config.json when present and applies environment overrides and
// defaults.
func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = &Config{}
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func loadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Server.Host = getEnvOrDefault("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvIntOrDefault("SERVER_PORT", cfg.Server.Port)
	cfg.Server.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	if v := os.Getenv("LOG_JSON"); v != "" {
		cfg.Logging.JSONFormat = v == "true"
	}

	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = v == "true"
	}
	cfg.Redis.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.Redis.Address)
	cfg.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvIntOrDefault("REDIS_DB", cfg.Redis.DB)

	cfg.Pipeline.EqualCapitalPerSignal = getEnvFloatOrDefault("PIPELINE_EQUAL_CAPITAL", cfg.Pipeline.EqualCapitalPerSignal)
	cfg.Pipeline.Leverage = getEnvIntOrDefault("PIPELINE_LEVERAGE", cfg.Pipeline.Leverage)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.AllowedOrigins == "" {
		cfg.Server.AllowedOrigins = "*"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = "localhost:6379"
	}
	if cfg.Pipeline.EqualCapitalPerSignal == 0 {
		cfg.Pipeline.EqualCapitalPerSignal = 100
	}
	if cfg.Pipeline.RiskPercent == 0 {
		cfg.Pipeline.RiskPercent = 0.02
	}
	if cfg.Pipeline.Leverage == 0 {
		cfg.Pipeline.Leverage = 10
	}
	if cfg.Pipeline.WickBufferPercent == 0 {
		cfg.Pipeline.WickBufferPercent = 0.3
	}
	if cfg.Pipeline.FallbackStopPercent == 0 {
		cfg.Pipeline.FallbackStopPercent = 2.0
	}
	if cfg.Pipeline.MinAITargetMovePercent == 0 {
		cfg.Pipeline.MinAITargetMovePercent = 2.0
	}
	if cfg.Pipeline.MaxAITargetMovePercent == 0 {
		cfg.Pipeline.MaxAITargetMovePercent = 5.0
	}
	if cfg.Thresholds.Confidence.Minimum == 0 {
		cfg.Thresholds.Confidence.Minimum = 0.60
	}
	if cfg.Thresholds.Confidence.Medium == 0 {
		cfg.Thresholds.Confidence.Medium = 0.75
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
