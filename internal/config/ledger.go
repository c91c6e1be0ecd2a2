package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type LedgerConfig struct {
	// LockTimeout bounds how long a debit waits for the account row lock. Zero disables the bound.
	LockTimeout    time.Duration
	IdempotencyTTL time.Duration
	EventsQueue    string
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AuthEnabled     bool
	JWTSecret       string
}

func LoadLedgerConfig() *LedgerConfig {
	viper.SetDefault("ledger.lock_timeout", 5*time.Second)
	viper.SetDefault("ledger.idempotency_ttl", 24*time.Hour)
	viper.SetDefault("ledger.events_queue", "ledger:events")

	return &LedgerConfig{
		LockTimeout:    viper.GetDuration("ledger.lock_timeout"),
		IdempotencyTTL: viper.GetDuration("ledger.idempotency_ttl"),
		EventsQueue:    viper.GetString("ledger.events_queue"),
	}
}

func LoadServerConfig() *ServerConfig {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 15*time.Second)
	viper.SetDefault("server.idle_timeout", 60*time.Second)
	viper.SetDefault("server.request_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 30*time.Second)
	viper.SetDefault("auth.enabled", false)

	return &ServerConfig{
		Port:            viper.GetString("server.port"),
		ReadTimeout:     viper.GetDuration("server.read_timeout"),
		WriteTimeout:    viper.GetDuration("server.write_timeout"),
		IdleTimeout:     viper.GetDuration("server.idle_timeout"),
		RequestTimeout:  viper.GetDuration("server.request_timeout"),
		ShutdownTimeout: viper.GetDuration("server.shutdown_timeout"),
		AuthEnabled:     viper.GetBool("auth.enabled"),
		JWTSecret:       viper.GetString("jwt.secret_key"),
	}
}

// Validate rejects settings the server cannot start with.
func (c *ServerConfig) Validate() error {
	if c.AuthEnabled && c.JWTSecret == "" {
		return errors.New("auth.enabled requires jwt.secret_key")
	}
	return nil
}

// BindEnv maps the flat environment variables used in deployments onto viper keys.
func BindEnv() {
	bindings := map[string]string{
		"database.host":              "DATABASE_HOST",
		"database.port":              "DATABASE_PORT",
		"database.user":              "DATABASE_USER",
		"database.password":          "DATABASE_PASSWORD",
		"database.name":              "DATABASE_NAME",
		"database.ssl_mode":          "DATABASE_SSL_MODE",
		"database.max_open_conns":    "DATABASE_MAX_OPEN_CONNS",
		"database.max_idle_conns":    "DATABASE_MAX_IDLE_CONNS",
		"database.conn_max_lifetime": "DATABASE_CONN_MAX_LIFETIME",
		"database.migrate":           "DATABASE_MIGRATE",

		"redis.host":     "REDIS_HOST",
		"redis.port":     "REDIS_PORT",
		"redis.password": "REDIS_PASSWORD",
		"redis.db":       "REDIS_DB",

		"ledger.lock_timeout":    "LEDGER_LOCK_TIMEOUT",
		"ledger.idempotency_ttl": "LEDGER_IDEMPOTENCY_TTL",
		"ledger.events_queue":    "LEDGER_EVENTS_QUEUE",

		"server.port":            "PORT",
		"server.request_timeout": "SERVER_REQUEST_TIMEOUT",
		"auth.enabled":           "AUTH_ENABLED",
		"jwt.secret_key":         "JWT_SECRET_KEY",
		"log.development":        "LOG_DEVELOPMENT",
	}
	for key, env := range bindings {
		viper.BindEnv(key, env)
	}
}
