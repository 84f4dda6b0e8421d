package config

import (
	"math/rand"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the scraper.
type Config struct {
	SeedURL   string
	OutFile   string
	Headless  bool
	UserAgent string

	// Timing
	PageLoadTimeout time.Duration
	WaitTimeout     time.Duration
	SettleDelay     time.Duration
	SettleJitterMin time.Duration
	SettleJitterMax time.Duration
	GlobalTimeout   time.Duration

	// Pagination
	StartPage  int
	EndPage    int // 0 keeps going until navigation fails
	PerPageMax int // 0 means no cap
	MaxRetries int

	// Backoff and politeness
	BaseRateLimit time.Duration
	BackoffStep   time.Duration
	JitterMin     time.Duration
	JitterMax     time.Duration
	CooldownEvery int
	CooldownFor   time.Duration

	// Lazy-load scrolling
	ScrollPasses int
	ScrollPause  time.Duration

	// PostgreSQL mirror
	DBEnabled  bool
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

// Default returns a Config populated with sensible defaults, each
// overridable through the environment.
func Default() Config {
	return Config{
		SeedURL:  getEnv("SEED_URL", "https://purchasing.alberta.ca/search"),
		OutFile:  getEnv("OUT_PATH", "opportunities.jsonl"),
		Headless: getEnvBool("HEADLESS", false),
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",

		PageLoadTimeout: getEnvSeconds("PAGELOAD_TIMEOUT", 60),
		WaitTimeout:     getEnvSeconds("WAIT_TIMEOUT", 35),
		SettleDelay:     getEnvSeconds("SLEEP_AFTER_NAV", 0.8),
		SettleJitterMin: 100 * time.Millisecond,
		SettleJitterMax: 500 * time.Millisecond,
		GlobalTimeout:   getEnvSeconds("RUN_TIMEOUT", 0),

		StartPage:  getEnvInt("START_PAGE", 1),
		EndPage:    getEnvInt("END_PAGE", 1289),
		PerPageMax: getEnvInt("PER_PAGE_MAX", 0),
		MaxRetries: getEnvInt("MAX_RETRIES_PER_PAGE", 5),

		BaseRateLimit: getEnvSeconds("BASE_RATE_LIMIT", 0.7),
		BackoffStep:   1200 * time.Millisecond,
		JitterMin:     200 * time.Millisecond,
		JitterMax:     800 * time.Millisecond,
		CooldownEvery: getEnvInt("LONG_PAUSE_EVERY", 25),
		CooldownFor:   getEnvSeconds("LONG_PAUSE_SECONDS", 10),

		ScrollPasses: 4,
		ScrollPause:  300 * time.Millisecond,

		DBEnabled:  getEnvBool("DB_ENABLE", false),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "apc"),
		DBPassword: getEnv("DB_PASSWORD", "apc"),
		DBName:     getEnv("DB_NAME", "apc_scraper"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

// Jitter returns a uniformly distributed duration in [min, max).
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

func getEnv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvSeconds reads a duration expressed in (possibly fractional) seconds,
// e.g. SLEEP_AFTER_NAV=0.8.
func getEnvSeconds(key string, fallback float64) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(fallback * float64(time.Second))
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return time.Duration(fallback * float64(time.Second))
	}
	return time.Duration(parsed * float64(time.Second))
}
