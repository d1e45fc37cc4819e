package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Server  ServerConfig
	Site    SiteConfig
	Scraper ScraperConfig
	Browser BrowserConfig
	LLM     LLMConfig
	Redis   RedisConfig
	Ranking RankingConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	AllowedOrigins  []string
	DefaultLimit    int
	MaxLimit        int
}

type SiteConfig struct {
	BaseURL   string
	MobileURL string
}

type ScraperConfig struct {
	RateLimitMin      time.Duration
	RateLimitMax      time.Duration
	BurstSize         int
	SearchSettle      time.Duration
	MobileSettle      time.Duration
	SearchConcurrency int
	UserAgents        []string
	Proxies           []string
	// ContainerSelectors are tried before the built-in container strategies.
	ContainerSelectors []string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ExecutablePath string
	Engines        []string
}

type LLMConfig struct {
	Provider         string
	APIKey           string
	BaseURL          string
	Model            string
	Timeout          time.Duration
	ExpansionTimeout time.Duration
}

// RedisConfig enables the shared navigation limit when Addr is set.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	RateLimitKey   string
	RateLimitMax   int
	RateLimitEvery time.Duration
}

type RankingConfig struct {
	TokenMatch       float64
	BrandMatch       float64
	PriceAvailable   float64
	RatingMultiplier float64
	PrimaryBonus     float64
	AlternativeBonus float64
	FallbackBonus    float64
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; variables already set in
// the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 3*time.Minute),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getDurationOrDefault("SERVER_REQUEST_TIMEOUT", 150*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{"*"}),
			DefaultLimit:    getIntOrDefault("SEARCH_DEFAULT_LIMIT", 30),
			MaxLimit:        getIntOrDefault("SEARCH_MAX_LIMIT", 50),
		},
		Site: SiteConfig{
			BaseURL:   getEnvOrDefault("DIGIKALA_BASE_URL", "https://www.digikala.com"),
			MobileURL: getEnvOrDefault("DIGIKALA_MOBILE_URL", "https://m.digikala.com"),
		},
		Scraper: ScraperConfig{
			RateLimitMin:      getDurationOrDefault("SCRAPER_RATE_LIMIT_MIN", time.Second),
			RateLimitMax:      getDurationOrDefault("SCRAPER_RATE_LIMIT_MAX", 3*time.Second),
			BurstSize:         getIntOrDefault("SCRAPER_BURST_SIZE", 3),
			SearchSettle:      getDurationOrDefault("SCRAPER_SEARCH_SETTLE", 3*time.Second),
			MobileSettle:      getDurationOrDefault("SCRAPER_MOBILE_SETTLE", 2*time.Second),
			SearchConcurrency: getIntOrDefault("SEARCH_CONCURRENCY", 1),
			UserAgents:        getStringSliceOrDefault("SCRAPER_USER_AGENTS", defaultUserAgents()),
			Proxies:           getStringSliceOrDefault("SCRAPER_PROXIES", []string{}),
			// Selectors contain commas, so this list is separated by semicolons.
			ContainerSelectors: getListOrDefault("SCRAPER_CONTAINER_SELECTORS", ";", nil),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "fa,en-US;q=0.7,en;q=0.3"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Asia/Tehran"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "fa-IR"),
			ExecutablePath: getEnvOrDefault("BROWSER_EXECUTABLE_PATH", ""),
			Engines:        lowerAll(getStringSliceOrDefault("BROWSER_ENGINES", []string{"playwright", "chromedp"})),
		},
		LLM: LLMConfig{
			Provider:         getEnvOrDefault("LLM_PROVIDER", "openrouter"),
			APIKey:           apiKey(getEnvOrDefault("LLM_PROVIDER", "openrouter")),
			BaseURL:          getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:            getEnvOrDefault("LLM_MODEL", "deepseek/deepseek-chat-v3.1:free"),
			Timeout:          getDurationOrDefault("LLM_TIMEOUT", 30*time.Second),
			ExpansionTimeout: getDurationOrDefault("LLM_EXPANSION_TIMEOUT", 20*time.Second),
		},
		Redis: RedisConfig{
			Addr:           getEnvOrDefault("REDIS_ADDR", ""),
			Password:       getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:             getIntOrDefault("REDIS_DB", 0),
			RateLimitKey:   getEnvOrDefault("REDIS_RATE_LIMIT_KEY", "digikala-search:navigations"),
			RateLimitMax:   getIntOrDefault("REDIS_RATE_LIMIT_MAX", 30),
			RateLimitEvery: getDurationOrDefault("REDIS_RATE_LIMIT_WINDOW", time.Minute),
		},
		Ranking: RankingConfig{
			TokenMatch:       getFloatOrDefault("RANK_TOKEN_MATCH", 10),
			BrandMatch:       getFloatOrDefault("RANK_BRAND_MATCH", 20),
			PriceAvailable:   getFloatOrDefault("RANK_PRICE_AVAILABLE", 5),
			RatingMultiplier: getFloatOrDefault("RANK_RATING_MULTIPLIER", 2),
			PrimaryBonus:     getFloatOrDefault("RANK_PRIMARY_BONUS", 15),
			AlternativeBonus: getFloatOrDefault("RANK_ALTERNATIVE_BONUS", 10),
			FallbackBonus:    getFloatOrDefault("RANK_FALLBACK_BONUS", 5),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.SearchConcurrency < 1 {
		return fmt.Errorf("%w: SEARCH_CONCURRENCY must be at least 1", ErrInvalidConfig)
	}

	if c.Scraper.RateLimitMin > c.Scraper.RateLimitMax {
		return fmt.Errorf("%w: SCRAPER_RATE_LIMIT_MIN cannot be greater than SCRAPER_RATE_LIMIT_MAX", ErrInvalidConfig)
	}

	if c.Server.DefaultLimit < 1 || c.Server.MaxLimit < c.Server.DefaultLimit {
		return fmt.Errorf("%w: SEARCH_DEFAULT_LIMIT must be between 1 and SEARCH_MAX_LIMIT", ErrInvalidConfig)
	}

	for name, raw := range map[string]string{
		"DIGIKALA_BASE_URL":   c.Site.BaseURL,
		"DIGIKALA_MOBILE_URL": c.Site.MobileURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%w: %s must be an absolute http(s) URL", ErrInvalidConfig, name)
		}
	}

	if len(c.Browser.Engines) == 0 {
		return fmt.Errorf("%w: BROWSER_ENGINES must name at least one engine", ErrInvalidConfig)
	}
	for _, engine := range c.Browser.Engines {
		if engine != "playwright" && engine != "chromedp" {
			return fmt.Errorf("%w: unknown browser engine %q", ErrInvalidConfig, engine)
		}
	}

	if c.Redis.Addr != "" && c.Redis.RateLimitMax < 1 {
		return fmt.Errorf("%w: REDIS_RATE_LIMIT_MAX must be at least 1", ErrInvalidConfig)
	}

	return nil
}

// Addr is the listen address of the HTTP server.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// apiKey prefers the key named after the provider and falls back to
// LLM_API_KEY.
func apiKey(provider string) string {
	if strings.EqualFold(provider, "gemini") {
		return firstEnv("GEMINI_API_KEY", "LLM_API_KEY")
	}
	return firstEnv("OPENROUTER_API_KEY", "LLM_API_KEY")
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	return getListOrDefault(key, ",", defaultValue)
}

// getListOrDefault splits the value on sep, trimming items and skipping
// empty ones.
func getListOrDefault(key, sep string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, sep) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}
