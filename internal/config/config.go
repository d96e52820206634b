package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr string

	EngineHost        string
	EnginePort        int
	EnginePoolSize    int
	EngineDialTimeout time.Duration
	EngineIOTimeout   time.Duration
	LevelsFile        string

	RedisURL    string
	DatabaseURL string

	SessionTTL    time.Duration
	SweepInterval time.Duration
	BotChainLimit int

	LogLevel string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:        ":8080",
		EngineHost:        "localhost",
		EnginePort:        8001,
		EnginePoolSize:    4,
		EngineDialTimeout: 3 * time.Second,
		EngineIOTimeout:   10 * time.Second,
		SessionTTL:        2 * time.Minute,
		SweepInterval:     2 * time.Minute,
		BotChainLimit:     512,
		LogLevel:          "info",
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_HOST")); v != "" {
		cfg.EngineHost = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EnginePort = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_POOL_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EnginePoolSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_DIAL_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.EngineDialTimeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_IO_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.EngineIOTimeout = d
		}
	}
	cfg.LevelsFile = strings.TrimSpace(os.Getenv("LEVELS_FILE"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SessionTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("SWEEP_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SweepInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOT_CHAIN_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BotChainLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}

// EngineAddr is the host:port the rules engine listens on.
func (c *AppConfig) EngineAddr() string {
	return c.EngineHost + ":" + strconv.Itoa(c.EnginePort)
}
