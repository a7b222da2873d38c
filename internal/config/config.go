// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strings"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Identity, payments and email are external
// services; only their shared secrets live here.
type Config struct {
	Env                 string   // application environment (e.g. "dev", "prod")
	Port                string   // HTTP port to listen on
	DBUser              string   // database username
	DBPass              string   // database password (optional)
	DBHost              string   // database host address
	DBPort              string   // database port number
	DBName              string   // database name
	JWTSecret           string   // secret verifying identity provider tokens
	StripeAPIKey        string   // payment gateway API key
	StripeWebhookSecret string   // shared secret for webhook signature checks
	StripeAPIBase       string   // gateway base URL override, empty in production
	CronSecret          string   // shared secret authorizing the reminder cron
	AdminUserIDs        []string // user ids allowed on the admin surface
	ResendAPIKey        string   // email provider API key (empty disables email)
	MailFrom            string   // From address on outgoing email
	SiteURL             string   // public site URL used in email links
	RabbitURL           string   // broker URL (empty uses the local default)
}

// Load reads configuration values from environment variables and returns
// a Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:                 must("APP_ENV"),
		Port:                must("APP_PORT"),
		DBUser:              must("DB_USER"),
		DBPass:              os.Getenv("DB_PASS"), // empty allowed
		DBHost:              must("DB_HOST"),
		DBPort:              must("DB_PORT"),
		DBName:              must("DB_NAME"),
		JWTSecret:           must("JWT_SECRET"),
		StripeAPIKey:        must("STRIPE_API_KEY"),
		StripeWebhookSecret: must("STRIPE_WEBHOOK_SECRET"),
		StripeAPIBase:       os.Getenv("STRIPE_API_BASE"),
		CronSecret:          must("CRON_SECRET"),
		AdminUserIDs:        splitList(os.Getenv("ADMIN_USER_IDS")),
		ResendAPIKey:        os.Getenv("RESEND_API_KEY"),
		MailFrom:            envStr("MAIL_FROM", "Writing Rooms <rooms@example.com>"),
		SiteURL:             envStr("SITE_URL", "http://localhost:3000"),
		RabbitURL:           firstNonEmpty(os.Getenv("RABBITMQ_URL"), os.Getenv("AMQP_URL")),
	}
}

// splitList parses a comma-separated env value into trimmed, non-empty
// entries.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
