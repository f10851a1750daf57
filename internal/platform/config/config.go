package config

import (
	"os"
	"strconv"
	"time"
)

// Default TTLs for issued credentials. Challenge credentials are deliberately
// short-lived; stamp credentials default to 90 days.
var (
	ChallengeTTL   = 60 * time.Second
	StampTTL       = 90 * 24 * time.Hour
	EthPricePeriod = 5 * time.Minute
)

// Server captures process-level configuration.
type Server struct {
	Addr        string
	Environment string

	// IssuerKey is the signing-backend key material (hex seed for the local
	// signer, an opaque key reference for external backends).
	IssuerKey string
	// SignatureType selects the default credential scheme ("Ed25519" or "EIP712").
	SignatureType string

	ChallengeTTL time.Duration
	StampTTL     time.Duration

	JWTSigningKey string

	RedisURL     string
	DatabaseURL  string
	KafkaBrokers string
	AuditTopic   string

	// RPCURL points at the EVM JSON-RPC node the on-chain providers read from.
	RPCURL string
	// EthPriceURL is polled by the fee loader for the current ETH/USD price.
	EthPriceURL    string
	EthPricePeriod time.Duration

	RateLimit       int
	RateLimitWindow time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:            envOr("STAMPD_ADDR", ":8080"),
		Environment:     envOr("STAMPD_ENV", "development"),
		IssuerKey:       os.Getenv("STAMPD_ISSUER_KEY"),
		SignatureType:   envOr("STAMPD_SIGNATURE_TYPE", "Ed25519"),
		ChallengeTTL:    ChallengeTTL,
		StampTTL:        StampTTL,
		JWTSigningKey:   envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		RedisURL:        os.Getenv("REDIS_URL"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		AuditTopic:      envOr("AUDIT_TOPIC", "stampd.audit"),
		RPCURL:          os.Getenv("RPC_URL"),
		EthPriceURL:     os.Getenv("ETH_PRICE_URL"),
		EthPricePeriod:  EthPricePeriod,
		RateLimit:       envInt("RATE_LIMIT", 60),
		RateLimitWindow: time.Minute,
	}

	if d, err := time.ParseDuration(os.Getenv("CHALLENGE_TTL")); err == nil && d > 0 {
		cfg.ChallengeTTL = d
	}
	if d, err := time.ParseDuration(os.Getenv("STAMP_TTL")); err == nil && d > 0 {
		cfg.StampTTL = d
	}
	if d, err := time.ParseDuration(os.Getenv("ETH_PRICE_PERIOD")); err == nil && d > 0 {
		cfg.EthPricePeriod = d
	}
	if d, err := time.ParseDuration(os.Getenv("RATE_LIMIT_WINDOW")); err == nil && d > 0 {
		cfg.RateLimitWindow = d
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
