package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"suggestguard/notify"
	"suggestguard/scraper"
	"suggestguard/scraper/browser"
	"suggestguard/scraper/google"
)

const (
	SourceHTTP    = "http"
	SourceBrowser = "browser"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL string

	SourceMode      string
	AutocompleteURL string
	Language        string
	Country         string
	UserAgent       string
	ChromeBin       string

	MaxConcurrency int
	RequestDelayMs int
	// MaxAttempts is the total number of tries per query, first one included.
	MaxAttempts      int
	RetryBaseMs      int
	RetryMaxMs       int
	RequestTimeoutMs int
	CancelGraceMs    int

	NATSURL          string
	NATSSubject      string
	WebhookURL       string
	SlackWebhookURL  string
	TelegramAPIURL   string
	TelegramBotToken string
	TelegramChatID   string
	ValkeyAddr       string
	ValkeyPassword   string
	ValkeyTLS        bool
	AlertDedupeHours int

	HTTPAddr           string
	CSVOutputPath      string
	TrendCSVOutputPath string
	ReportOutputDir    string
	LogLevel           string

	// Brand seeded into the store on start when BrandName is set.
	BrandName     string
	BrandKeywords []string
	BrandExpand   bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", "file:suggestguard.db?_pragma=busy_timeout(5000)"),

		SourceMode:      strings.ToLower(getEnv("SOURCE_MODE", SourceHTTP)),
		AutocompleteURL: getEnv("AUTOCOMPLETE_URL", google.DefaultEndpoint),
		Language:        getEnv("LANGUAGE", "tr"),
		Country:         getEnv("COUNTRY", "TR"),
		UserAgent:       getEnv("USER_AGENT", google.DefaultUserAgent),
		ChromeBin:       getEnv("CHROME_BIN", ""),

		MaxConcurrency:   getEnvInt("MAX_CONCURRENCY", 3),
		RequestDelayMs:   getEnvInt("REQUEST_DELAY_MS", 1500),
		MaxAttempts:      getEnvInt("MAX_ATTEMPTS", 3),
		RetryBaseMs:      getEnvInt("RETRY_BASE_MS", 500),
		RetryMaxMs:       getEnvInt("RETRY_MAX_MS", 8000),
		RequestTimeoutMs: getEnvInt("REQUEST_TIMEOUT_MS", 10000),
		CancelGraceMs:    getEnvInt("CANCEL_GRACE_MS", 5000),

		NATSURL:          getEnv("NATS_URL", ""),
		NATSSubject:      getEnv("NATS_SUBJECT", notify.DefaultSubject),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		SlackWebhookURL:  getEnv("SLACK_WEBHOOK_URL", ""),
		TelegramAPIURL:   getEnv("TELEGRAM_API_URL", notify.DefaultTelegramAPI),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		ValkeyAddr:       getEnv("VALKEY_ADDR", ""),
		ValkeyPassword:   getEnv("VALKEY_PASSWORD", ""),
		ValkeyTLS:        getEnvBool("VALKEY_TLS", false),
		AlertDedupeHours: getEnvInt("ALERT_DEDUPE_HOURS", 24),

		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		CSVOutputPath:      getEnv("CSV_OUTPUT_PATH", "./output/snapshots.csv"),
		TrendCSVOutputPath: getEnv("TREND_CSV_OUTPUT_PATH", "./output/trends.csv"),
		ReportOutputDir:    getEnv("REPORT_OUTPUT_DIR", "./output/reports"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		BrandName:     getEnv("BRAND_NAME", ""),
		BrandKeywords: getEnvList("BRAND_KEYWORDS", nil),
		BrandExpand:   getEnvBool("BRAND_EXPAND", true),
	}
}

// ScraperOptions converts the collection settings.
func (c *Config) ScraperOptions() scraper.Options {
	return scraper.Options{
		Workers:        c.MaxConcurrency,
		Delay:          ms(c.RequestDelayMs),
		RequestTimeout: ms(c.RequestTimeoutMs),
		MaxAttempts:    c.MaxAttempts,
		BaseBackoff:    ms(c.RetryBaseMs),
		MaxBackoff:     ms(c.RetryMaxMs),
		GracePeriod:    ms(c.CancelGraceMs),
	}
}

func (c *Config) GoogleConfig() google.Config {
	return google.Config{
		Endpoint:  c.AutocompleteURL,
		Language:  c.Language,
		Country:   c.Country,
		UserAgent: c.UserAgent,
	}
}

func (c *Config) BrowserConfig() browser.Config {
	return browser.Config{
		Endpoint:  c.AutocompleteURL,
		Language:  c.Language,
		Country:   c.Country,
		UserAgent: c.UserAgent,
		ChromeBin: c.ChromeBin,
	}
}

func (c *Config) ValkeyConfig() notify.ValkeyConfig {
	return notify.ValkeyConfig{
		Addr:     c.ValkeyAddr,
		Password: c.ValkeyPassword,
		TLS:      c.ValkeyTLS,
		TTL:      time.Duration(c.AlertDedupeHours) * time.Hour,
	}
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
