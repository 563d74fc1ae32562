package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"engagement-tracker/internal/logging"
)

type Config struct {
	DBDSN         string
	ServerPort    string
	SessionSecret string

	AdminUsername string
	AdminPassword string
	SeedDemoUsers bool

	LogLevel  string
	LogFormat string
}

// Load читает .env и окружение; без обязательных переменных сервер не стартует.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := FromEnv()
	if err != nil {
		logging.New("config").Fatal(err.Error())
	}
	return cfg
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		ServerPort:    os.Getenv("SERVER_PORT"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		LogFormat:     os.Getenv("LOG_FORMAT"),
	}

	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET is not set")
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.AdminUsername == "" {
		cfg.AdminUsername = "admin@pentest.local"
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = "Admin123!"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if v := os.Getenv("SEED_DEMO_USERS"); v != "" {
		seed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("SEED_DEMO_USERS must be a boolean")
		}
		cfg.SeedDemoUsers = seed
	}

	return cfg, nil
}
