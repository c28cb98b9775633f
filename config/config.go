package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full file/env configuration surface for MARTIN (spec §6).
// Effective values layer on top of this at runtime: the settings table
// (internal/config.Resolve) takes priority over whatever is loaded here.
type Config struct {
	Trading         TradingConfig         `yaml:"trading"`
	DayNight        DayNightConfig        `yaml:"day_night"`
	Execution       ExecutionConfig       `yaml:"execution"`
	RollingQuantile RollingQuantileConfig `yaml:"rolling_quantile"`
	Loop            LoopConfig            `yaml:"loop"`
	API             APIConfig             `yaml:"api"`
	Storage         StorageConfig         `yaml:"storage"`
	Books           BooksConfig           `yaml:"books"`
	Log             LogConfig             `yaml:"log"`
}

// TradingConfig is the §6 trading.* surface.
type TradingConfig struct {
	Assets              []string `yaml:"assets"`
	PriceCap            float64  `yaml:"price_cap"`
	ConfirmDelaySeconds int64    `yaml:"confirm_delay_seconds"`
	CapMinTicks         int      `yaml:"cap_min_ticks"`
	WindowSeconds       int64    `yaml:"window_seconds"`
	StakeAmount         float64  `yaml:"stake_amount"`
}

// DayNightConfig is the §6 day_night.* surface.
type DayNightConfig struct {
	DayStartHour           int     `yaml:"day_start_hour"`
	DayEndHour             int     `yaml:"day_end_hour"`
	BaseDayMinQuality      float64 `yaml:"base_day_min_quality"`
	BaseNightMinQuality    float64 `yaml:"base_night_min_quality"`
	SwitchStreakAt         int     `yaml:"switch_streak_at"`
	StartStrictAfterNWins  int     `yaml:"start_strict_after_n_wins"`
	StrictQualityIncrement float64 `yaml:"strict_quality_increment"`
	NightMaxWinStreak      int     `yaml:"night_max_win_streak"`
	NightAutotradeEnabled  bool    `yaml:"night_autotrade_enabled"`
	NightSessionMode       string  `yaml:"night_session_mode"` // OFF | SOFT | HARD
	MaxResponseSeconds     int64   `yaml:"max_response_seconds"`
}

// ExecutionConfig selects the Executor adapter.
type ExecutionConfig struct {
	Mode string `yaml:"mode"` // paper | live
}

// RollingQuantileConfig is the §6 rolling_quantile.* surface.
type RollingQuantileConfig struct {
	RollingDays        int     `yaml:"rolling_days"`
	MaxSamples         int     `yaml:"max_samples"`
	MinSamples         int     `yaml:"min_samples"`
	StrictFallbackMult float64 `yaml:"strict_fallback_mult"`
}

// LoopConfig holds the two independent worker periods (§5).
type LoopConfig struct {
	TickSeconds int `yaml:"tick_seconds"` // P_TICK
	SnapSeconds int `yaml:"snap_seconds"` // P_SNAP
}

// APIConfig contains the outbound collaborator base URLs.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// StorageConfig controls where the ledger persists data.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // path to the SQLite file, or ":memory:"
}

// BooksConfig selects the ports.BookProvider implementation the CAP
// evaluator reads price_ticks from (§4.6).
type BooksConfig struct {
	Source    string `yaml:"source"`     // rest | stream
	StreamURL string `yaml:"stream_url"` // websocket URL, source=stream only
}

// LogConfig controls log format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML config file and layers in a .env file if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// TickInterval returns P_TICK as a time.Duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Loop.TickSeconds) * time.Second
}

// SnapInterval returns P_SNAP as a time.Duration.
func (c *Config) SnapInterval() time.Duration {
	return time.Duration(c.Loop.SnapSeconds) * time.Second
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("EXECUTION_MODE"); v != "" {
		cfg.Execution.Mode = v
	}
	if v := os.Getenv("MARTIN_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("MARTIN_BOOKS_SOURCE"); v != "" {
		cfg.Books.Source = v
	}
	if v := os.Getenv("MARTIN_BOOKS_STREAM_URL"); v != "" {
		cfg.Books.StreamURL = v
	}
	if v := os.Getenv("MARTIN_NIGHT_AUTOTRADE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DayNight.NightAutotradeEnabled = b
		}
	}
}

func setDefaults(cfg *Config) {
	if len(cfg.Trading.Assets) == 0 {
		cfg.Trading.Assets = []string{"BTC", "ETH"}
	}
	if cfg.Trading.PriceCap <= 0 {
		cfg.Trading.PriceCap = 0.65
	}
	if cfg.Trading.ConfirmDelaySeconds <= 0 {
		cfg.Trading.ConfirmDelaySeconds = 60
	}
	if cfg.Trading.CapMinTicks <= 0 {
		cfg.Trading.CapMinTicks = 3
	}
	if cfg.Trading.WindowSeconds <= 0 {
		cfg.Trading.WindowSeconds = 3600
	}
	if cfg.Trading.StakeAmount <= 0 {
		cfg.Trading.StakeAmount = 25
	}

	if cfg.DayNight.DayEndHour == 0 && cfg.DayNight.DayStartHour == 0 {
		cfg.DayNight.DayStartHour = 7
		cfg.DayNight.DayEndHour = 23
	}
	if cfg.DayNight.BaseDayMinQuality <= 0 {
		cfg.DayNight.BaseDayMinQuality = 0.6
	}
	if cfg.DayNight.BaseNightMinQuality <= 0 {
		cfg.DayNight.BaseNightMinQuality = 0.75
	}
	if cfg.DayNight.SwitchStreakAt <= 0 {
		cfg.DayNight.SwitchStreakAt = 3
	}
	if cfg.DayNight.StartStrictAfterNWins <= 0 {
		cfg.DayNight.StartStrictAfterNWins = 3
	}
	if cfg.DayNight.StrictQualityIncrement <= 0 {
		cfg.DayNight.StrictQualityIncrement = 0.02
	}
	if cfg.DayNight.NightMaxWinStreak <= 0 {
		cfg.DayNight.NightMaxWinStreak = 5
	}
	if cfg.DayNight.NightSessionMode == "" {
		cfg.DayNight.NightSessionMode = "SOFT"
	}
	if cfg.DayNight.MaxResponseSeconds <= 0 {
		cfg.DayNight.MaxResponseSeconds = 120
	}

	if cfg.Execution.Mode == "" {
		cfg.Execution.Mode = "paper"
	}

	if cfg.RollingQuantile.RollingDays <= 0 {
		cfg.RollingQuantile.RollingDays = 14
	}
	if cfg.RollingQuantile.MaxSamples <= 0 {
		cfg.RollingQuantile.MaxSamples = 500
	}
	if cfg.RollingQuantile.MinSamples <= 0 {
		cfg.RollingQuantile.MinSamples = 30
	}
	if cfg.RollingQuantile.StrictFallbackMult <= 0 {
		cfg.RollingQuantile.StrictFallbackMult = 1.1
	}

	if cfg.Loop.TickSeconds <= 0 {
		cfg.Loop.TickSeconds = 60
	}
	if cfg.Loop.SnapSeconds <= 0 {
		cfg.Loop.SnapSeconds = 30
	}

	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "martin.db"
	}
	if cfg.Books.Source == "" {
		cfg.Books.Source = "rest"
	}
	if cfg.Books.StreamURL == "" {
		cfg.Books.StreamURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
