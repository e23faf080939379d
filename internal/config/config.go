// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds the core runtime configuration.  Each field corresponds to
// an environment variable.
type Config struct {
	Env         string // application environment (e.g. "dev", "prod")
	Port        string // HTTP port to listen on
	StoreDriver string // "mysql" or "memory"
	DBUser      string
	DBPass      string // optional
	DBHost      string
	DBPort      string
	DBName      string
	JWTSecret   string
	Timezone    *time.Location // restaurant wall clock
	BcryptCost  int            // cost for check-in code hashes

	SweepInterval time.Duration // 0 disables the in-process sweeper
	SweepTimeout  time.Duration

	Notify NotifyConfig
}

// NotifyConfig describes the RabbitMQ notification sink.
type NotifyConfig struct {
	URL      string // empty disables publishing
	Exchange string
	LogQueue string
	LogPath  string
}

// Load reads configuration values from environment variables and returns a
// Config.  Missing required variables halt the program.  Database
// variables are only required for the mysql driver.
func Load() Config {
	cfg := Config{
		Env:           envStr("APP_ENV", "dev"),
		Port:          must("APP_PORT"),
		StoreDriver:   strings.ToLower(envStr("STORE_DRIVER", StoreMySQL)),
		JWTSecret:     must("JWT_SECRET"),
		Timezone:      mustLocation("RESTAURANT_TZ"),
		BcryptCost:    envInt("BCRYPT_COST", 10),
		SweepInterval: envDur("SWEEP_INTERVAL", time.Minute),
		SweepTimeout:  envDur("SWEEP_TIMEOUT", 30*time.Second),
		Notify:        LoadNotifyConfig(),
	}
	switch cfg.StoreDriver {
	case StoreMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case StoreMemory:
	default:
		log.Fatalf("invalid STORE_DRIVER: %q", cfg.StoreDriver)
	}
	return cfg
}

// LoadNotifyConfig reads the RabbitMQ settings.  Defaults match the
// docker-compose broker.
func LoadNotifyConfig() NotifyConfig {
	return NotifyConfig{
		URL:      os.Getenv("RABBITMQ_URL"),
		Exchange: envStr("RABBITMQ_EXCHANGE", "restaurant.events"),
		LogQueue: envStr("RABBITMQ_LOG_QUEUE", "notifications.log"),
		LogPath:  envStr("NOTIFICATION_LOG_PATH", "logs/notifications.log"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustLocation resolves an IANA zone name.  An unset variable means UTC.
func mustLocation(key string) *time.Location {
	name := os.Getenv(key)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Fatalf("invalid timezone for %s: %q", key, name)
	}
	return loc
}
