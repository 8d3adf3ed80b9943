// Package config loads the service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/db"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "config/config.yaml"

const minPhotoTargetBytes = 64 << 10

// Config mirrors config.yaml. Every key can be overridden by an environment
// variable of the same name; list values are comma separated.
type Config struct {
	GRPCPort            int      `yaml:"GRPC_PORT"`
	HTTPPort            int      `yaml:"HTTP_PORT"`
	DBDriver            string   `yaml:"DB_DRIVER"`
	DBHost              string   `yaml:"DB_HOST"`
	DBPort              int      `yaml:"DB_PORT"`
	DBUser              string   `yaml:"DB_USER"`
	DBPassword          string   `yaml:"DB_PASSWORD"`
	DBName              string   `yaml:"DB_NAME"`
	DBSSLMode           string   `yaml:"DB_SSLMODE"`
	KafkaBrokers        []string `yaml:"KAFKA_BROKERS"`
	Topic               string   `yaml:"TOPIC"`
	ConsumerGroup       string   `yaml:"CONSUMER_GROUP"`
	JWTSecret           string   `yaml:"JWT_SECRET"`
	JWTAudience         string   `yaml:"JWT_AUDIENCE"`
	StorageDir          string   `yaml:"STORAGE_DIR"`
	StripeSecretKey     string   `yaml:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string   `yaml:"STRIPE_WEBHOOK_SECRET"`
	StripePriceID       string   `yaml:"STRIPE_PRICE_ID"`
	TrialDays           int      `yaml:"TRIAL_DAYS"`
	PhotoTargetBytes    int      `yaml:"PHOTO_TARGET_BYTES"`
	AllowedOrigins      []string `yaml:"ALLOWED_ORIGINS"`
	LogLevel            string   `yaml:"LOG_LEVEL"`
}

// PathFromEnv returns CONFIG_PATH or DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result. A missing file is not an error so that
// deployments can configure everything through the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{TrialDays: -1}

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from variables named after their yaml keys.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("yaml")
		raw, ok := lookup(key)
		if !ok {
			continue
		}
		field := v.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(raw)
		case reflect.Int:
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			field.SetInt(int64(n))
		case reflect.Slice:
			field.Set(reflect.ValueOf(splitList(raw)))
		}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.GRPCPort == 0 {
		c.GRPCPort = 9090
	}
	if c.HTTPPort == 0 {
		c.HTTPPort = 8080
	}
	if c.DBDriver == "" {
		c.DBDriver = db.DriverPostgres
	}
	if c.DBPort == 0 {
		c.DBPort = 5432
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "disable"
	}
	if c.Topic == "" {
		c.Topic = "fieldsnaps.events"
	}
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = "fieldsnaps-projector"
	}
	if c.JWTAudience == "" {
		c.JWTAudience = "authenticated"
	}
	if c.StorageDir == "" {
		c.StorageDir = "./data/blobs"
	}
	if c.TrialDays == -1 {
		c.TrialDays = 14
	}
	if c.PhotoTargetBytes == 0 {
		c.PhotoTargetBytes = 1 << 20
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	for name, port := range map[string]int{"GRPC_PORT": c.GRPCPort, "HTTP_PORT": c.HTTPPort} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%s out of range: %d", name, port)
		}
	}
	if c.GRPCPort == c.HTTPPort {
		return fmt.Errorf("GRPC_PORT and HTTP_PORT must differ")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.DBDriver != db.DriverPostgres && c.DBDriver != db.DriverSQLite {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDriver == db.DriverSQLite && c.DBName == "" {
		return fmt.Errorf("DB_NAME is required for sqlite")
	}
	if c.TrialDays < 0 {
		return fmt.Errorf("TRIAL_DAYS must not be negative")
	}
	if c.PhotoTargetBytes < minPhotoTargetBytes {
		return fmt.Errorf("PHOTO_TARGET_BYTES must be at least %d", minPhotoTargetBytes)
	}
	if c.StripeSecretKey != "" || c.StripePriceID != "" || c.StripeWebhookSecret != "" {
		for _, setting := range []struct{ key, value string }{
			{"STRIPE_SECRET_KEY", c.StripeSecretKey},
			{"STRIPE_PRICE_ID", c.StripePriceID},
			{"STRIPE_WEBHOOK_SECRET", c.StripeWebhookSecret},
		} {
			if setting.value == "" {
				return fmt.Errorf("%s is required when billing is configured", setting.key)
			}
		}
	}
	return nil
}

// Database returns the repository settings.
func (c *Config) Database() *db.Config {
	return &db.Config{
		Driver:   c.DBDriver,
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

// BillingEnabled reports whether Stripe credentials, including the webhook
// signing secret, are configured.
func (c *Config) BillingEnabled() bool {
	return c.StripeSecretKey != "" && c.StripePriceID != "" && c.StripeWebhookSecret != ""
}
