// Package config loads the service configuration from the environment.
//
// Values come from (highest precedence first) process environment variables,
// a .env file in the working directory, and the defaults below.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything main needs to build the service.
type Config struct {
	Port string

	MongoURI      string
	MongoDatabase string

	JWTSecret string
	TokenTTL  time.Duration

	StripeSecretKey     string
	PaymentCurrency     string
	VerifyPaymentIntent bool

	MailProvider     string // "postmark", "sendgrid" or "log"
	PostmarkAPIToken string
	SendGridAPIKey   string
	EmailSender      string

	KafkaBrokers []string
	KafkaTopic   string

	RedisURL       string
	IdempotencyTTL time.Duration

	CORSOrigins []string

	LogLevel  string
	LogFormat string // "json" or "console"

	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}

var defaults = map[string]any{
	"port":                  "3000",
	"mongo_uri":             "mongodb://localhost:27017",
	"mongo_database":        "shopEase",
	"jwt_secret":            "",
	"token_ttl":             "168h",
	"stripe_secret_key":     "",
	"payment_currency":      "usd",
	"verify_payment_intent": false,
	"mail_provider":         "log",
	"postmark_api_token":    "",
	"sendgrid_api_key":      "",
	"email_sender":          "no-reply@shopease.local",
	"kafka_brokers":         "",
	"kafka_topic":           "shopease.orders",
	"redis_url":             "",
	"idempotency_ttl":       "24h",
	"cors_origins":          "*",
	"log_level":             "info",
	"log_format":            "json",
	"timeout_short":         "5s",
	"timeout_medium":        "10s",
	"timeout_long":          "30s",
}

// Load reads .env (if present) and the environment into a Config.
// A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:                v.GetString("port"),
		MongoURI:            v.GetString("mongo_uri"),
		MongoDatabase:       v.GetString("mongo_database"),
		JWTSecret:           v.GetString("jwt_secret"),
		TokenTTL:            v.GetDuration("token_ttl"),
		StripeSecretKey:     v.GetString("stripe_secret_key"),
		PaymentCurrency:     strings.ToLower(v.GetString("payment_currency")),
		VerifyPaymentIntent: v.GetBool("verify_payment_intent"),
		MailProvider:        strings.ToLower(v.GetString("mail_provider")),
		PostmarkAPIToken:    v.GetString("postmark_api_token"),
		SendGridAPIKey:      v.GetString("sendgrid_api_key"),
		EmailSender:         v.GetString("email_sender"),
		KafkaBrokers:        splitList(v.GetString("kafka_brokers")),
		KafkaTopic:          v.GetString("kafka_topic"),
		RedisURL:            v.GetString("redis_url"),
		IdempotencyTTL:      v.GetDuration("idempotency_ttl"),
		CORSOrigins:         splitList(v.GetString("cors_origins")),
		LogLevel:            v.GetString("log_level"),
		LogFormat:           v.GetString("log_format"),
		TimeoutShort:        v.GetDuration("timeout_short"),
		TimeoutMedium:       v.GetDuration("timeout_medium"),
		TimeoutLong:         v.GetDuration("timeout_long"),
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings the service cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.MongoURI == "" {
		return errors.New("MONGO_URI must be set")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	switch c.MailProvider {
	case "log", "":
	case "postmark":
		if c.PostmarkAPIToken == "" {
			return errors.New("POSTMARK_API_TOKEN must be set when MAIL_PROVIDER=postmark")
		}
	case "sendgrid":
		if c.SendGridAPIKey == "" {
			return errors.New("SENDGRID_API_KEY must be set when MAIL_PROVIDER=sendgrid")
		}
	default:
		return errors.New("MAIL_PROVIDER must be one of postmark, sendgrid, log")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
