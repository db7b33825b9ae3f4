// Package config loads host settings from a YAML file, a .env file and the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/jrh3k5/forest-and-wolves/game"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Storage   StorageConfig   `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Game      GameConfig      `yaml:"game"`
	LogLevel  string          `yaml:"log_level"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type SchedulerConfig struct {
	Tick     string        `yaml:"tick"`
	Cleanup  string        `yaml:"cleanup"`
	LobbyTTL time.Duration `yaml:"lobby_ttl"`
}

type GameConfig struct {
	FirstNight      time.Duration `yaml:"first_night"`
	Night           time.Duration `yaml:"night"`
	Day             time.Duration `yaml:"day"`
	Voting          time.Duration `yaml:"voting"`
	MinPlayers      int           `yaml:"min_players"`
	TestMinPlayers  int           `yaml:"test_min_players"`
	MaxPlayers      int           `yaml:"max_players"`
	InitialSupplies int           `yaml:"initial_supplies"`
	DailyForage     int           `yaml:"daily_forage"`
}

func Default() *Config {
	settings := game.DefaultSettings()
	return &Config{
		Server:  ServerConfig{Addr: "0.0.0.0:3000"},
		Storage: StorageConfig{Driver: "memory"},
		Scheduler: SchedulerConfig{
			Tick:     "@every 1s",
			Cleanup:  "0 * * * *",
			LobbyTTL: 6 * time.Hour,
		},
		Game: GameConfig{
			FirstNight:      settings.FirstNightDuration,
			Night:           settings.NightDuration,
			Day:             settings.DayDuration,
			Voting:          settings.VotingDuration,
			MinPlayers:      settings.MinPlayers,
			TestMinPlayers:  settings.TestMinPlayers,
			MaxPlayers:      settings.MaxPlayers,
			InitialSupplies: settings.InitialSupplies,
			DailyForage:     settings.DailyForage,
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path, if one is given, over the defaults and then applies
// environment overrides. A .env file in the working directory is loaded first.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	cfg.Server.Addr = getEnv("SERVER_ADDR", cfg.Server.Addr)
	cfg.Telegram.Token = getEnv("TELEGRAM_TOKEN", cfg.Telegram.Token)
	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.DSN = getEnv("DATABASE_URL", cfg.Storage.DSN)
	cfg.Scheduler.Tick = getEnv("TICK_SPEC", cfg.Scheduler.Tick)
	cfg.Scheduler.Cleanup = getEnv("CLEANUP_SPEC", cfg.Scheduler.Cleanup)
	cfg.Scheduler.LobbyTTL = getEnvAsDuration("LOBBY_TTL", cfg.Scheduler.LobbyTTL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

// Settings maps the game section onto engine settings. Unset values fall back to the
// engine defaults.
func (c *Config) Settings() game.Settings {
	return game.Settings{
		FirstNightDuration: c.Game.FirstNight,
		NightDuration:      c.Game.Night,
		DayDuration:        c.Game.Day,
		VotingDuration:     c.Game.Voting,
		MinPlayers:         c.Game.MinPlayers,
		TestMinPlayers:     c.Game.TestMinPlayers,
		MaxPlayers:         c.Game.MaxPlayers,
		InitialSupplies:    c.Game.InitialSupplies,
		DailyForage:        c.Game.DailyForage,
	}
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		slog.Warn("ignoring invalid duration", "key", key, "value", valueStr)
		return defaultValue
	}
	return value
}
