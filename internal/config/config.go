package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ClientConfig captures all tunable parameters for the courier agent.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without excessive setup.
type ClientConfig struct {
	APIBaseURL  string
	WSURL       string
	HTTPTimeout time.Duration

	// Token persistence: file by default, Redis when REDIS_ADDR is set.
	TokenFile     string
	RedisAddr     string
	RedisPassword string
	TokenRedisKey string

	PollInterval   time.Duration
	PollBackoff    bool
	PollMaxBackoff time.Duration

	// Static requester location for headless runs.
	LocationLat     float64
	LocationLng     float64
	LocationAddress string
	LocationGranted bool

	PGDSN        string
	KafkaBrokers []string
	KafkaTopic   string

	// MetricsAddr serves /metrics from long-running commands when set.
	MetricsAddr string

	LogLevel string
}

func defaultClientConfig() ClientConfig {
	return ClientConfig{
		APIBaseURL:      "http://localhost:8080",
		WSURL:           "ws://localhost:8080/ws",
		HTTPTimeout:     10 * time.Second,
		TokenFile:       defaultTokenFile(),
		TokenRedisKey:   "courier:token",
		PollInterval:    3 * time.Second,
		PollMaxBackoff:  30 * time.Second,
		LocationGranted: true,
		KafkaTopic:      "courier-discovery-events",
		LogLevel:        "info",
	}
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".courier-token"
	}
	return home + "/.config/courier/token"
}

func LoadClientConfig() (ClientConfig, error) {
	cfg := defaultClientConfig()
	var errs []error

	setStringFromEnv(&cfg.APIBaseURL, "COURIER_API_URL")
	setStringFromEnv(&cfg.WSURL, "COURIER_WS_URL")
	setDurationFromEnv(&cfg.HTTPTimeout, "COURIER_HTTP_TIMEOUT", &errs)

	setStringFromEnv(&cfg.TokenFile, "COURIER_TOKEN_FILE")
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.TokenRedisKey, "COURIER_TOKEN_REDIS_KEY")

	setDurationFromEnv(&cfg.PollInterval, "COURIER_POLL_INTERVAL", &errs)
	cfg.PollBackoff = strings.EqualFold(os.Getenv("COURIER_POLL_BACKOFF"), "true")
	setDurationFromEnv(&cfg.PollMaxBackoff, "COURIER_POLL_MAX_BACKOFF", &errs)

	setFloatFromEnv(&cfg.LocationLat, "COURIER_LOCATION_LAT", &errs)
	setFloatFromEnv(&cfg.LocationLng, "COURIER_LOCATION_LNG", &errs)
	setStringFromEnv(&cfg.LocationAddress, "COURIER_LOCATION_ADDRESS")
	if v := os.Getenv("COURIER_LOCATION_GRANTED"); v != "" {
		cfg.LocationGranted = strings.EqualFold(v, "true")
	}

	cfg.PGDSN = os.Getenv("PG_DSN")
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	setStringFromEnv(&cfg.MetricsAddr, "COURIER_METRICS_ADDR")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("COURIER_POLL_INTERVAL must be > 0"))
	}
	if cfg.PollMaxBackoff < cfg.PollInterval {
		errs = append(errs, fmt.Errorf("COURIER_POLL_MAX_BACKOFF must be >= poll interval"))
	}

	return cfg, errors.Join(errs...)
}

// SimConfig captures tunable parameters for the backend simulator process.
type SimConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	NearbyLimit int

	LogLevel string
}

func defaultSimConfig() SimConfig {
	return SimConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		JWTSecret:       "dev-secret",
		JWTIssuer:       "courier-sim",
		JWTTTL:          24 * time.Hour,
		NearbyLimit:     8,
		LogLevel:        "info",
	}
}

func LoadSimConfig() (SimConfig, error) {
	cfg := defaultSimConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	setStringFromEnv(&cfg.JWTSecret, "SIM_JWT_SECRET")
	setStringFromEnv(&cfg.JWTIssuer, "SIM_JWT_ISSUER")
	setDurationFromEnv(&cfg.JWTTTL, "SIM_JWT_TTL", &errs)

	setIntFromEnv(&cfg.NearbyLimit, "SIM_NEARBY_LIMIT", &errs)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.NearbyLimit <= 0 {
		errs = append(errs, fmt.Errorf("SIM_NEARBY_LIMIT must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
