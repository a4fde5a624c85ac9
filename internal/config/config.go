package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string

	JWTSecret  string
	HMACSecret string

	XRPLNetwork   string
	XRPLRPCURL    string
	IssuerAddress string
	IssuerSeed    string

	EscrowDays      int
	ProofMaxAgeMins int
	RefreshSchedule string

	RatesURL      string
	LendingMargin float64

	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SenderEmail   string
	OperatorEmail string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DBConn:          getEnv("DB_CONN", "host=localhost port=5432 user=test password=test dbname=liquidity sslmode=disable"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:       getEnv("JWT_SECRET", "secret"),
		HMACSecret:      getEnv("HMAC_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		XRPLNetwork:     getEnv("XRPL_NETWORK", "testnet"),
		XRPLRPCURL:      getEnv("XRPL_RPC_URL", ""),
		IssuerAddress:   getEnv("ISSUER_ADDRESS", ""),
		IssuerSeed:      getEnv("ISSUER_SEED", ""),
		EscrowDays:      getEnvInt("ESCROW_DAYS", 30),
		ProofMaxAgeMins: getEnvInt("PROOF_MAX_AGE_MINUTES", 60),
		RefreshSchedule: getEnv("BALANCE_REFRESH_SCHEDULE", "@every 10m"),
		RatesURL:        getEnv("RATES_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		LendingMargin:   getEnvFloat("LENDING_MARGIN", 5.0),
		SMTPHost:        getEnv("SMTP_HOST", "localhost"),
		SMTPPort:        getEnv("SMTP_PORT", "587"),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SenderEmail:     getEnv("SENDER_EMAIL", "alerts@liquidity.local"),
		OperatorEmail:   getEnv("OPERATOR_EMAIL", "ops@liquidity.local"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}
	if cfg.IssuerSeed == "" {
		return nil, fmt.Errorf("ISSUER_SEED is required")
	}
	if cfg.IssuerAddress == "" {
		return nil, fmt.Errorf("ISSUER_ADDRESS is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
