package utils

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Telegram  TelegramConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
	Purchase  PurchaseConfig
}

type AppConfig struct {
	Name      string
	Port      string
	Debug     bool
	LogPath   string
	PublicURL string
	Timezone  string

	// empty allows any origin
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	MaxConns     int32
	QueryTimeout time.Duration
	AutoMigrate  bool
}

type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	BalanceTTL    time.Duration
	EventsChannel string
}

type TelegramConfig struct {
	BotToken    string
	AdminChatID int64
}

type AdminConfig struct {
	// bcrypt hash of the token admins send in X-Admin-Token
	TokenHash string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type PurchaseConfig struct {
	VerifyPrices bool
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "prepaid-shop")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("APP_PUBLIC_URL", "http://localhost:8080")
	viper.SetDefault("APP_TIMEZONE", "Asia/Yangon")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "require")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_QUERY_TIMEOUT", "5s")
	viper.SetDefault("DB_AUTO_MIGRATE", true)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_BALANCE_TTL", "30s")
	viper.SetDefault("EVENTS_CHANNEL", "balance-changes")
	viper.SetDefault("RATE_LIMIT_RPS", 2)
	viper.SetDefault("RATE_LIMIT_BURST", 5)
	viper.SetDefault("PURCHASE_VERIFY_PRICES", true)

	// .env is optional when everything comes from the environment
	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:        viper.GetString("APP_NAME"),
			Port:        viper.GetString("PORT"),
			Debug:       viper.GetBool("DEBUG"),
			LogPath:     viper.GetString("LOG_PATH"),
			PublicURL:   viper.GetString("APP_PUBLIC_URL"),
			Timezone:    viper.GetString("APP_TIMEZONE"),
			CORSOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:         viper.GetString("DB_HOST"),
			Port:         viper.GetString("DB_PORT"),
			Name:         viper.GetString("DB_NAME"),
			User:         viper.GetString("DB_USER"),
			Password:     viper.GetString("DB_PASS"),
			SSLMode:      viper.GetString("DB_SSLMODE"),
			MaxConns:     viper.GetInt32("DB_MAX_CONNS"),
			QueryTimeout: viper.GetDuration("DB_QUERY_TIMEOUT"),
			AutoMigrate:  viper.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Addr:          viper.GetString("REDIS_ADDR"),
			Password:      viper.GetString("REDIS_PASSWORD"),
			DB:            viper.GetInt("REDIS_DB"),
			BalanceTTL:    viper.GetDuration("CACHE_BALANCE_TTL"),
			EventsChannel: viper.GetString("EVENTS_CHANNEL"),
		},
		Telegram: TelegramConfig{
			BotToken:    viper.GetString("TELEGRAM_BOT_TOKEN"),
			AdminChatID: viper.GetInt64("TELEGRAM_ADMIN_CHAT_ID"),
		},
		Admin: AdminConfig{
			TokenHash: viper.GetString("ADMIN_TOKEN_HASH"),
		},
		RateLimit: RateLimitConfig{
			RPS:   viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst: viper.GetInt("RATE_LIMIT_BURST"),
		},
		Purchase: PurchaseConfig{
			VerifyPrices: viper.GetBool("PURCHASE_VERIFY_PRICES"),
		},
	}

	return config, nil
}

// Location resolves APP_TIMEZONE, falling back to the host's local zone.
func (c AppConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// splitList parses a comma separated env value
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
