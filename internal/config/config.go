package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/MrSnakeDoc/engage/internal/utils"
)

// Store drivers
const (
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	ListenPort      string        `validate:"required"` // ex: ":8080"
	ShutdownTimeout time.Duration `validate:"gt=0"`     // ex: 5s
	RequestTimeout  time.Duration `validate:"gt=0"`     // per-request deadline (ex: 10s)

	LogLevel  string `validate:"oneof=debug info warn error"`
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	StoreDriver string `validate:"oneof=redis mongo memory"`

	// Redis
	RedisAddr             string        `validate:"required_if=StoreDriver redis"` // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           `validate:"gte=0"`
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration `validate:"gt=0"` // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration `validate:"gt=0"` // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           `validate:"gte=0"`
	RedisConnectTimeout   time.Duration `validate:"gt=0"` // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration `validate:"gt=0"` // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           `validate:"gte=0"`

	// Mongo
	MongoURI            string        `validate:"required_if=StoreDriver mongo"` // ex: "mongodb://localhost:27017"
	MongoDatabase       string        `validate:"required_if=StoreDriver mongo"`
	MongoSelectTimeout  time.Duration // server selection timeout per operation
	MongoPoolSize       int           `validate:"gte=0"`
	MongoConnectTimeout time.Duration `validate:"gt=0"`
	MongoRetryInterval  time.Duration `validate:"gt=0"`
	MongoMaxWait        time.Duration `validate:"gt=0"`
	MongoPingTimeout    time.Duration `validate:"gt=0"`

	SeedFile          string        // optional YAML fixture of users and articles to create on startup
	ReconcileInterval time.Duration `validate:"gte=0"` // 0 disables periodic reconciliation

	RateLimitRPS   float64 `validate:"gt=0"`
	RateLimitBurst int     `validate:"gte=1"`

	AdminCIDRS []string `validate:"dive,cidr|ip"` // restrict /admin to these networks; empty = loopback only
	TrustProxy bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("ENGAGE_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("ENGAGE_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("ENGAGE_REQUEST_TIMEOUT", 10*time.Second),

		// Logging
		LogLevel:  getenv("ENGAGE_LOG_LEVEL", "info"),
		PrettyLog: mustBool("ENGAGE_PRETTY_LOG", true),

		StoreDriver: strings.ToLower(getenv("ENGAGE_STORE_DRIVER", DriverRedis)),

		// Redis settings
		RedisAddr:             getenv("ENGAGE_REDIS_ADDR", ""),
		RedisUser:             getenv("ENGAGE_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("ENGAGE_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("ENGAGE_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("ENGAGE_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Mongo settings
		MongoURI:            getenv("ENGAGE_MONGO_URI", ""),
		MongoDatabase:       getenv("ENGAGE_MONGO_DATABASE", "engage"),
		MongoSelectTimeout:  mustDuration("MONGO_SELECT_TIMEOUT", 5*time.Second),
		MongoPoolSize:       getenvInt("MONGO_POOL_SIZE", 0),
		MongoConnectTimeout: mustDuration("MONGO_CONNECT_TIMEOUT", 30*time.Second),
		MongoRetryInterval:  mustDuration("MONGO_RETRY_INTERVAL", 2*time.Second),
		MongoMaxWait:        mustDuration("MONGO_MAX_WAIT", 10*time.Second),
		MongoPingTimeout:    mustDuration("MONGO_PING_TIMEOUT", 5*time.Second),

		// Background jobs
		SeedFile:          getenv("ENGAGE_SEED_FILE", ""),
		ReconcileInterval: mustDuration("ENGAGE_RECONCILE_INTERVAL", time.Hour),

		// Rate limiting on /api
		RateLimitRPS:   getenvFloat("ENGAGE_RATE_LIMIT_RPS", 10),
		RateLimitBurst: getenvInt("ENGAGE_RATE_LIMIT_BURST", 20),

		// Access restrictions
		AdminCIDRS: parseAllowedIPs(getenv("ENGAGE_ADMIN_CIDRS", "")),
		TrustProxy: mustBool("ENGAGE_TRUST_PROXY", false),
	}

	if err := Validate(cfg); err != nil {
		panic(fmt.Sprintf("❌ FATAL: invalid configuration: %v", err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return describe(err)
	}

	if cfg.StoreDriver == DriverRedis && cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		return errors.New("ENGAGE_REDIS_PASSWORD is required when ENGAGE_REDIS_PASSWORD_REQUIRED=true")
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	if cp.MongoURI != "" {
		cp.MongoURI = "***REDACTED***"
	}
	return cp
}

// RedisRetry returns the startup retry policy for Redis.
func (c *Config) RedisRetry() utils.RetryPolicy {
	return utils.RetryPolicy{
		ConnectTimeout: c.RedisConnectTimeout,
		RetryInterval:  c.RedisRetryInterval,
		MaxWait:        c.RedisMaxWait,
		PingTimeout:    c.RedisPingTimeout,
		WarnThreshold:  c.RedisWarnThreshold,
	}
}

// MongoRetry returns the startup retry policy for MongoDB.
func (c *Config) MongoRetry() utils.RetryPolicy {
	return utils.RetryPolicy{
		ConnectTimeout: c.MongoConnectTimeout,
		RetryInterval:  c.MongoRetryInterval,
		MaxWait:        c.MongoMaxWait,
		PingTimeout:    c.MongoPingTimeout,
		WarnThreshold:  c.RedisWarnThreshold,
	}
}

// describe flattens validator errors into one readable error.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		switch e.Tag() {
		case "required", "required_if":
			msgs = append(msgs, e.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s (got %q)", e.Field(), e.Param(), e.Value()))
		case "cidr|ip":
			msgs = append(msgs, fmt.Sprintf("%s entry %q is not an IP or CIDR", e.Field(), e.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (got %v)", e.Field(), e.Tag(), e.Param(), e.Value()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
