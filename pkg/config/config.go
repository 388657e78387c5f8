// Package config loads environment-driven settings for the trading service.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings.
type Config struct {
	Port   string
	DBPath string

	// Decision generation
	DefaultSymbol    string
	DefaultTimeframe string
	DecisionInterval int // seconds
	BuyThreshold     float64
	SellThreshold    float64
	MaxDecisions     int
	ProfilesPath     string // optional per-symbol YAML profiles

	// Prediction collaborator
	Predictor    string // "stub" or "remote"
	PredictorURL string

	// Market data / execution
	UseMockMarket    bool
	ExecutionEnabled bool // live order submission must be explicitly enabled
	BinanceAPIKey    string
	BinanceAPISecret string
	BinanceTestnet   bool

	// Balance
	BalanceSource       string // "fixed" or "exchange"
	FixedBalance        float64
	BalanceAsset        string
	BalanceSyncInterval int // seconds

	// Risk limits
	PositionSizePercent float64
	MaxDailyTrades      int
	StopLossPercent     float64
	TakeProfitPercent   float64
	MinAccountBalance   float64
	MaxPositionNotional float64

	// API auth
	JWTSecret string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:   getEnv("PORT", "8080"),
		DBPath: getEnv("DB_PATH", "./data/trading.db"),

		DefaultSymbol:    getEnv("TRADING_SYMBOL", "BTCUSDT"),
		DefaultTimeframe: getEnv("TRADING_TIMEFRAME", "1h"),
		DecisionInterval: getEnvInt("DECISION_INTERVAL_SECONDS", 60),
		BuyThreshold:     getEnvFloat("BUY_THRESHOLD", 0.6),
		SellThreshold:    getEnvFloat("SELL_THRESHOLD", 0.6),
		MaxDecisions:     getEnvInt("MAX_DECISIONS_PER_SESSION", 1000),
		ProfilesPath:     getEnv("PROFILES_PATH", ""),

		Predictor:    strings.ToLower(getEnv("PREDICTOR", "stub")),
		PredictorURL: getEnv("PREDICTOR_URL", "http://localhost:8501"),

		UseMockMarket:    getEnv("USE_MOCK_MARKET", "true") == "true",
		ExecutionEnabled: getEnv("EXECUTION_ENABLED", "false") == "true",
		BinanceAPIKey:    os.Getenv("BINANCE_API_KEY"),
		BinanceAPISecret: os.Getenv("BINANCE_API_SECRET"),
		BinanceTestnet:   getEnv("BINANCE_TESTNET", "true") == "true",

		BalanceSource:       strings.ToLower(getEnv("BALANCE_SOURCE", "fixed")),
		FixedBalance:        getEnvFloat("FIXED_BALANCE", 10000.0),
		BalanceAsset:        getEnv("BALANCE_ASSET", "USDT"),
		BalanceSyncInterval: getEnvInt("BALANCE_SYNC_SECONDS", 60),

		PositionSizePercent: getEnvFloat("POSITION_SIZE_PERCENT", 1.0),
		MaxDailyTrades:      getEnvInt("MAX_DAILY_TRADES", 10),
		StopLossPercent:     getEnvFloat("STOP_LOSS_PERCENT", 2.0),
		TakeProfitPercent:   getEnvFloat("TAKE_PROFIT_PERCENT", 3.0),
		MinAccountBalance:   getEnvFloat("MIN_ACCOUNT_BALANCE", 100.0),
		MaxPositionNotional: getEnvFloat("MAX_POSITION_NOTIONAL", 100.0),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
