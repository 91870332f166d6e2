package storefront

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"AlphaStore/internal/currency"
	"AlphaStore/internal/translate"
)

const minSecretLen = 32

type Config struct {
	Port        string
	DatabaseURL string

	SessionSecret string
	SecureCookies bool
	// TrustProxy keys the login rate limit on X-Forwarded-For instead of the
	// socket address. Only enable it behind a proxy that overwrites the header.
	TrustProxy    bool
	JWTSecret     string
	AdminPassword string

	CurrencyURL string
	CurrencyKey string
	RateSeed    decimal.Decimal
	// RateWarmSchedule is a robfig/cron spec; empty disables warming.
	RateWarmSchedule string

	ImageHostURL string
	ImageHostKey string

	TranslateURL    string
	TranslateKey    string
	DefaultLanguage string

	MetricsToken string
}

// ConfigFromEnv reads the service configuration through getenv, usually
// os.Getenv after an optional .env preload.
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	get := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Port:             get("PORT", "8080"),
		DatabaseURL:      get("DATABASE_URL", ""),
		SessionSecret:    get("SESSION_SECRET", ""),
		SecureCookies:    get("SECURE_COOKIES", "false") == "true",
		TrustProxy:       get("TRUST_PROXY", "false") == "true",
		JWTSecret:        get("JWT_SECRET", ""),
		AdminPassword:    get("ADMIN_PASSWORD", ""),
		CurrencyURL:      get("CURRENCY_API_URL", currency.DefaultAPIURL),
		CurrencyKey:      get("CURRENCY_API_KEY", ""),
		RateWarmSchedule: get("RATE_WARM_SCHEDULE", "@hourly"),
		ImageHostURL:     get("IMAGE_HOST_URL", ""),
		ImageHostKey:     get("IMAGE_HOST_KEY", ""),
		TranslateURL:     get("TRANSLATE_URL", ""),
		TranslateKey:     get("TRANSLATE_KEY", ""),
		DefaultLanguage:  get("DEFAULT_LANG", translate.DefaultLanguage),
		MetricsToken:     get("METRICS_TOKEN", ""),
	}
	if cfg.RateWarmSchedule == "off" {
		cfg.RateWarmSchedule = ""
	}

	seed, err := decimal.NewFromString(get("RATE_SEED", currency.DefaultSeed.String()))
	if err != nil || !seed.IsPositive() {
		return Config{}, fmt.Errorf("RATE_SEED must be a positive number")
	}
	cfg.RateSeed = seed

	lang, ok := translate.BaseCode(cfg.DefaultLanguage)
	if !ok {
		return Config{}, fmt.Errorf("DEFAULT_LANG %q is not a language tag", cfg.DefaultLanguage)
	}
	cfg.DefaultLanguage = lang

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	if len(c.SessionSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("SESSION_SECRET is required and must be at least %d chars", minSecretLen))
	}
	if len(c.JWTSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET is required and must be at least %d chars", minSecretLen))
	}
	if c.AdminPassword == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD is required"))
	}
	return errors.Join(errs...)
}
