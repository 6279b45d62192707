package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"fitness-pay-backend/internal/signature"
)

// Config is built once at startup and handed to every component by pointer.
// Nothing mutates it after Load returns.
type Config struct {
	Port string

	MerchantID  string
	SecretKey   string
	GatewayBase string
	SignScheme  signature.Scheme

	// RejectedSignMode holds the SIGN_MODE value that could not be parsed
	// when SignScheme fell back to append. Empty otherwise.
	RejectedSignMode string

	StoreURL string
	StoreKey string

	Price       decimal.Decimal
	SiteName    string
	ProductName string

	FrontendURL string
	BaseURL     string
	CORSOrigin  string

	RedisURL     string
	OTLPEndpoint string
	LogLevel     slog.Level
}

const (
	keyPort        = "PORT"
	keyMerchantID  = "SEVENPAY_PID"
	keySecretKey   = "SEVENPAY_KEY"
	keyGatewayBase = "SEVENPAY_API_BASE"
	keySignMode    = "SIGN_MODE"
	keyStoreURL    = "DATABASE_URL"
	keyStoreKey    = "DATABASE_KEY"
	keyPrice       = "PAY_PRICE"
	keySiteName    = "PAY_SITENAME"
	keyProductName = "PAY_PRODUCT_NAME"
	keyFrontendURL = "FRONTEND_URL"
	keyBaseURL     = "BASE_URL"
	keyCORSOrigin  = "CORS_ORIGIN"
	keyRedisURL    = "REDIS_URL"
	keyOTLP        = "OTLP_ENDPOINT"
	keyLogLevel    = "LOG_LEVEL"
)

var ErrInvalidPrice = errors.New("invalid PAY_PRICE")

// Load reads an optional dotenv file and then the process environment.
// envFile may be empty, in which case ".env" is tried.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(keyPort, "8787")
	v.SetDefault(keyGatewayBase, "https://7pay.top")
	v.SetDefault(keySignMode, signature.SchemeAppend.String())
	v.SetDefault(keyPrice, "9.90")
	v.SetDefault(keySiteName, "AI Fitness Plan")
	v.SetDefault(keyProductName, "AI Fitness Plan Premium")
	v.SetDefault(keyCORSOrigin, "*")
	v.SetDefault(keyLogLevel, "info")

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(v.GetString(keyPrice)))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPrice, v.GetString(keyPrice))
	}

	var rejected string
	scheme, err := signature.ParseScheme(v.GetString(keySignMode))
	if err != nil {
		rejected = v.GetString(keySignMode)
		scheme = signature.SchemeAppend
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(keyLogLevel))); err != nil {
		level = slog.LevelInfo
	}

	return &Config{
		Port:             v.GetString(keyPort),
		MerchantID:       v.GetString(keyMerchantID),
		SecretKey:        v.GetString(keySecretKey),
		GatewayBase:      strings.TrimRight(v.GetString(keyGatewayBase), "/"),
		SignScheme:       scheme,
		RejectedSignMode: rejected,
		StoreURL:         v.GetString(keyStoreURL),
		StoreKey:         v.GetString(keyStoreKey),
		Price:            price.Round(2),
		SiteName:         v.GetString(keySiteName),
		ProductName:      v.GetString(keyProductName),
		FrontendURL:      v.GetString(keyFrontendURL),
		BaseURL:          strings.TrimRight(v.GetString(keyBaseURL), "/"),
		CORSOrigin:       v.GetString(keyCORSOrigin),
		RedisURL:         v.GetString(keyRedisURL),
		OTLPEndpoint:     v.GetString(keyOTLP),
		LogLevel:         level,
	}, nil
}

// Missing returns the names of required variables that are unset.
func (c *Config) Missing() []string {
	var missing []string
	for _, kv := range []struct{ name, value string }{
		{keyMerchantID, c.MerchantID},
		{keySecretKey, c.SecretKey},
		{keyStoreURL, c.StoreURL},
		{keyStoreKey, c.StoreKey},
	} {
		if kv.value == "" {
			missing = append(missing, kv.name)
		}
	}
	return missing
}

// Configured reports whether order creation and notifications are enabled.
func (c *Config) Configured() bool {
	return len(c.Missing()) == 0
}

// PriceString renders the fixed price with exactly two decimals, e.g. "9.90".
func (c *Config) PriceString() string {
	return c.Price.StringFixed(2)
}
