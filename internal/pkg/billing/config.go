package billing

import (
	"strings"
	"time"

	"github.com/plclassificados/marketplace/internal/pkg/env"
)

const (
	defaultMercadoPagoBaseURL = "https://api.mercadopago.com"
	defaultCurrency           = "BRL"

	// entitlementPeriod is added to the expiry on authorization and on each approved payment.
	entitlementPeriod = 30 * 24 * time.Hour

	monthlyRepetitions = 999
	yearlyRepetitions  = 12
)

// Config holds the gateway credentials and billing knobs.
type Config struct {
	AccessToken       string
	BaseURL           string
	Currency          string
	FrontendURL       string
	WebhookSecret     string
	HTTPTimeout       time.Duration
	ProcessingTimeout time.Duration
}

// ConfigFromEnv reads MP_* and FRONTEND_URL settings.
func ConfigFromEnv() Config {
	return Config{
		AccessToken:       strings.TrimSpace(env.GetEnv("MP_ACCESS_TOKEN", "")),
		BaseURL:           strings.TrimSpace(env.GetEnv("MP_API_BASE_URL", defaultMercadoPagoBaseURL)),
		Currency:          strings.TrimSpace(env.GetEnv("MP_CURRENCY", defaultCurrency)),
		FrontendURL:       strings.TrimRight(strings.TrimSpace(env.GetEnv("FRONTEND_URL", "http://localhost:3000")), "/"),
		WebhookSecret:     strings.TrimSpace(env.GetEnv("MP_WEBHOOK_SECRET", "")),
		HTTPTimeout:       env.GetEnvDuration("MP_HTTP_TIMEOUT", 15*time.Second),
		ProcessingTimeout: env.GetEnvDuration("WEBHOOK_PROCESSING_TIMEOUT", 60*time.Second),
	}
}

// BackURL is where the gateway redirects the payer after checkout.
func (c Config) BackURL() string {
	return strings.TrimRight(c.FrontendURL, "/") + "/dashboard?subscription=success"
}

func (c Config) currency() string {
	if c.Currency == "" {
		return defaultCurrency
	}
	return c.Currency
}
