package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds all configurable server and rule parameters.
type Config struct {
	WSPort int `json:"ws_port"`

	// PhaseTimeoutSec is the budget of every phase before it is forced
	// forward. 0 disables the timer.
	PhaseTimeoutSec int `json:"phase_timeout_sec"`

	DeckSize        int `json:"deck_size"`
	OpeningHandSize int `json:"opening_hand_size"`

	ChampionHP int `json:"champion_hp"`
	BaseGold   int `json:"base_gold"`
	// GoldGrowthPerTurn is added to a champion's base gold at the start of each of its turns, up to MaxGold.
	GoldGrowthPerTurn int `json:"gold_growth_per_turn"`
	MaxGold           int `json:"max_gold"`

	// DatabaseURL selects the Postgres card catalog; empty falls back to CatalogPath.
	DatabaseURL string `json:"database_url"`
	// CatalogPath is a JSON catalog file used when no database is configured.
	CatalogPath string `json:"catalog_path"`

	NeonAuthBaseURL string `json:"neon_auth_base_url"`
	LogLevel        string `json:"log_level"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		WSPort:            8080,
		PhaseTimeoutSec:   30,
		DeckSize:          30,
		OpeningHandSize:   4,
		ChampionHP:        30,
		BaseGold:          1,
		GoldGrowthPerTurn: 1,
		MaxGold:           10,
		CatalogPath:       "catalog.json",
		LogLevel:          "info",
	}
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	cfg := Defaults()

	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			slog.Warn("failed to parse config.json", "tag", "config", "err", err)
		}
	}

	overrideInt(&cfg.WSPort, "WS_PORT")
	overrideInt(&cfg.PhaseTimeoutSec, "PHASE_TIMEOUT_SEC")
	overrideInt(&cfg.DeckSize, "DECK_SIZE")
	overrideInt(&cfg.OpeningHandSize, "OPENING_HAND_SIZE")
	overrideInt(&cfg.ChampionHP, "CHAMPION_HP")
	overrideInt(&cfg.BaseGold, "BASE_GOLD")
	overrideInt(&cfg.GoldGrowthPerTurn, "GOLD_GROWTH_PER_TURN")
	overrideInt(&cfg.MaxGold, "MAX_GOLD")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.CatalogPath, "CATALOG_PATH")
	overrideString(&cfg.NeonAuthBaseURL, "NEON_AUTH_BASE_URL")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")

	return cfg
}

// SlogLevel maps LogLevel to a slog.Level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
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

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			slog.Warn("invalid integer in environment", "tag", "config", "key", envKey, "value", val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
