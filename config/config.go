// Package config loads process configuration: a default baseline,
// optionally overridden by an on-disk JSON file, then by environment
// variables (environment always wins).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the full process configuration.
type Config struct {
	Engine   EngineConfig   `json:"engine"`
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
	Backtest BacktestConfig `json:"backtest"`
}

// EngineConfig holds the watchlist and the signal engine's tunables, one
// set shared by every symbol's per-worker engine instance.
type EngineConfig struct {
	Watchlist              []string `json:"watchlist"`
	Timeframe              string   `json:"timeframe"`
	RSIPeriod              int      `json:"rsi_period"`
	MACDFast               int      `json:"macd_fast"`
	MACDSlow               int      `json:"macd_slow"`
	MACDSignal             int      `json:"macd_signal"`
	ATRPeriod              int      `json:"atr_period"`
	ZoneWidthATRMultiplier float64  `json:"zone_width_atr_multiplier"`
	SLBufferATRMultiplier  float64  `json:"sl_buffer_atr_multiplier"`
	RiskRewardRatio        float64  `json:"risk_reward_ratio"`
	DefaultQuantity        float64  `json:"default_quantity"`
	AutoTradeEnabled       bool     `json:"auto_trade_enabled"`
}

// ServerConfig holds the REST/WebSocket listener settings.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DatabaseConfig holds Postgres connection settings. DSN, if set, takes
// precedence over the discrete fields.
type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
	SSLMode  string `json:"sslmode"`
}

// LoggingConfig holds the ambient logger's level.
type LoggingConfig struct {
	Level string `json:"level"`
}

// BacktestConfig holds the backtest driver's capital and sizing inputs.
type BacktestConfig struct {
	InitialCapital      float64 `json:"initial_capital"`
	PositionSizePercent float64 `json:"position_size_percent"`
}

// Load builds the config from defaults, an optional config.json, then
// environment variables, in that order of increasing precedence.
func Load() (*Config, error) {
	cfg := defaults()

	if file, err := loadFromFile("config.json"); err == nil {
		cfg = file
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			Watchlist:              []string{"VNM", "HPG", "FPT"},
			Timeframe:              "1H",
			RSIPeriod:              14,
			MACDFast:               12,
			MACDSlow:               26,
			MACDSignal:             9,
			ATRPeriod:              14,
			ZoneWidthATRMultiplier: 0.2,
			SLBufferATRMultiplier:  0.05,
			RiskRewardRatio:        2.0,
			DefaultQuantity:        100,
			AutoTradeEnabled:       false,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "vn_signal_engine",
			SSLMode: "disable",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Backtest: BacktestConfig{
			InitialCapital:      100_000_000,
			PositionSizePercent: 10,
		},
	}
}

func loadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := getEnvString("WATCHLIST", ""); v != "" {
		cfg.Engine.Watchlist = strings.Split(v, ",")
	}
	cfg.Engine.Timeframe = getEnvString("TIMEFRAME", cfg.Engine.Timeframe)
	cfg.Engine.RSIPeriod = getEnvInt("RSI_PERIOD", cfg.Engine.RSIPeriod)
	cfg.Engine.MACDFast = getEnvInt("MACD_FAST", cfg.Engine.MACDFast)
	cfg.Engine.MACDSlow = getEnvInt("MACD_SLOW", cfg.Engine.MACDSlow)
	cfg.Engine.MACDSignal = getEnvInt("MACD_SIGNAL", cfg.Engine.MACDSignal)
	cfg.Engine.ATRPeriod = getEnvInt("ATR_PERIOD", cfg.Engine.ATRPeriod)
	cfg.Engine.ZoneWidthATRMultiplier = getEnvFloat("ZONE_WIDTH_ATR_MULTIPLIER", cfg.Engine.ZoneWidthATRMultiplier)
	cfg.Engine.SLBufferATRMultiplier = getEnvFloat("SL_BUFFER_ATR_MULTIPLIER", cfg.Engine.SLBufferATRMultiplier)
	cfg.Engine.RiskRewardRatio = getEnvFloat("RISK_REWARD_RATIO", cfg.Engine.RiskRewardRatio)
	cfg.Engine.DefaultQuantity = getEnvFloat("DEFAULT_QUANTITY", cfg.Engine.DefaultQuantity)
	cfg.Engine.AutoTradeEnabled = getEnvBool("AUTO_TRADE_ENABLED", cfg.Engine.AutoTradeEnabled)

	cfg.Server.Host = getEnvString("HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("PORT", cfg.Server.Port)

	cfg.Database.DSN = getEnvString("DATABASE_URL", cfg.Database.DSN)
	cfg.Database.Host = getEnvString("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnvString("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnvString("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnvString("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getEnvString("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.Logging.Level = getEnvString("LOG_LEVEL", cfg.Logging.Level)

	cfg.Backtest.InitialCapital = getEnvFloat("BACKTEST_INITIAL_CAPITAL", cfg.Backtest.InitialCapital)
	cfg.Backtest.PositionSizePercent = getEnvFloat("BACKTEST_POSITION_SIZE_PERCENT", cfg.Backtest.PositionSizePercent)
}

func getEnvString(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
