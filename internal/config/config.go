package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"telegram_tapper/internal/economy"
	"telegram_tapper/internal/logger"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	AppPort       string
	StoreDriver   string
	DatabaseURL   string
	BotToken      string
	AdminIDs      []int64
	JWTSecret     string
	JWTTTL        time.Duration
	DevMode       bool
	AllowedOrigin string

	LogLevel  string
	LogFormat string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APIRateLimit  int
	APIRateWindow time.Duration
	TapRateLimit  int
	TapRateWindow time.Duration

	StoreTimeout       time.Duration
	TurboSweepInterval time.Duration
	TopCacheTTL        time.Duration

	// Seed is the starting state of new players.
	Seed economy.Seed
}

// Load reads .env (if present) and the environment. Missing required values
// are fatal.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:       envString("APP_PORT", "8080"),
		StoreDriver:   envString("STORE_DRIVER", StoreDriverPostgres),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		BotToken:      os.Getenv("BOT_TOKEN"),
		AdminIDs:      envInt64List("ADMIN_IDS"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTTTL:        time.Duration(envInt("JWT_TTL_HOURS", 24)) * time.Hour,
		DevMode:       os.Getenv("DEV_MODE") == "true",
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),

		LogLevel:  envString("LOG_LEVEL", "info"),
		LogFormat: envString("LOG_FORMAT", "text"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		APIRateLimit:  envInt("API_RATE_LIMIT", 120),
		APIRateWindow: time.Duration(envInt("API_RATE_WINDOW_SECONDS", 60)) * time.Second,
		TapRateLimit:  envInt("TAP_RATE_LIMIT", 20),    // taps per window
		TapRateWindow: time.Duration(envInt("TAP_RATE_WINDOW_SECONDS", 1)) * time.Second,

		StoreTimeout:       time.Duration(envInt("STORE_TIMEOUT_MS", 3000)) * time.Millisecond,
		TurboSweepInterval: time.Duration(envInt("TURBO_SWEEP_SECONDS", 5)) * time.Second,
		TopCacheTTL:        time.Duration(envInt("TOP_CACHE_SECONDS", 10)) * time.Second,

		Seed: economy.DefaultSeed(),
	}

	if cfg.StoreDriver != StoreDriverPostgres && cfg.StoreDriver != StoreDriverMemory {
		logger.Fatal("unknown STORE_DRIVER", "driver", cfg.StoreDriver)
	}
	if cfg.StoreDriver == StoreDriverPostgres && cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}
	// without a bot token init_data cannot be verified
	if cfg.BotToken == "" && !cfg.DevMode {
		logger.Fatal("BOT_TOKEN is not set")
	}

	if path := os.Getenv("ECONOMY_CONFIG"); path != "" {
		seed, err := LoadSeed(path, cfg.Seed)
		if err != nil {
			logger.Fatal("failed to load economy config", "path", path, "error", err)
		}
		cfg.Seed = seed
	}

	return cfg
}

// LoadSeed decodes a TOML economy file over base; keys missing from the file
// keep base's values.
//
//	[seed]
//	max_energy = 1500
//	multitap_price = 200
func LoadSeed(path string, base economy.Seed) (economy.Seed, error) {
	file, err := os.Open(path)
	if err != nil {
		return base, fmt.Errorf("failed to open economy config: %w", err)
	}
	defer file.Close()

	doc := struct {
		Seed economy.Seed `toml:"seed"`
	}{Seed: base}
	if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&doc); err != nil {
		return base, err
	}
	if err := validateSeed(doc.Seed); err != nil {
		return base, err
	}
	return doc.Seed, nil
}

func validateSeed(s economy.Seed) error {
	fields := map[string]int64{
		"balance_amount":            s.BalanceAmount,
		"energy_amount":             s.EnergyAmount,
		"energy_recovery_amount":    s.EnergyRecoveryAmount,
		"max_energy":                s.MaxEnergy,
		"multitap_price":            s.MultitapPrice,
		"energy_limit_price":        s.EnergyLimitPrice,
		"max_quantity_energy_boost": s.MaxQuantityEnergyBoost,
		"max_quantity_turbo_boost":  s.MaxQuantityTurboBoost,
	}
	for name, v := range fields {
		if v < 0 {
			return fmt.Errorf("seed.%s must not be negative", name)
		}
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt64List parses a comma separated list, skipping malformed items.
func envInt64List(key string) []int64 {
	var out []int64
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(item), 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
