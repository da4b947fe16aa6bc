package internal

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/frahmantamala/conference-payments/internal/vertical"
	"github.com/spf13/cast"
)

type Config struct {
	Env           string              `mapstructure:"env"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Stripe        StripeConfig        `mapstructure:"stripe"`
	Verticals     []VerticalConfig    `mapstructure:"verticals"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

// SecurityConfig holds the key used to verify admin tokens issued by the login service.
type SecurityConfig struct {
	AdminJWTPublicKey string `mapstructure:"admin_jwt_public_key"`
	AdminRole         string `mapstructure:"admin_role"`
}

type StripeConfig struct {
	SecretKey             string        `mapstructure:"secret_key"`
	WebhookSecret         string        `mapstructure:"webhook_secret"`
	DiscountWebhookSecret string        `mapstructure:"discount_webhook_secret"`
	Currency              string        `mapstructure:"currency"`
	RequestTimeout        time.Duration `mapstructure:"request_timeout"`
	// APIBaseURL points the client at stripe-mock or another compatible server. Empty means api.stripe.com.
	APIBaseURL string `mapstructure:"api_base_url"`
}

// VerticalConfig binds a conference vertical to the frontend domains that serve it.
type VerticalConfig struct {
	Name       string   `mapstructure:"name"`
	Domains    []string `mapstructure:"domains"`
	SuccessURL string   `mapstructure:"success_url"`
	CancelURL  string   `mapstructure:"cancel_url"`
}

type NotificationsConfig struct {
	SQS SQSConfig `mapstructure:"sqs"`
}

type SQSConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	QueueURL  string `mapstructure:"queue_url"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ----------------- ENV LOADING -----------------

// LoadConfigFromEnv builds the configuration from environment variables only.
// Used for container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Env: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Port:              cast.ToInt(getEnv("HTTP_PORT", "8080")),
			BaseURL:           getEnv("HTTP_BASE_URL", ""),
			AllowedOrigins:    getEnv("HTTP_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Source:          getEnv("DATABASE_URL", ""),
			MaxOpenConns:    cast.ToInt(getEnv("DATABASE_MAX_OPEN_CONNS", "20")),
			MaxIdleConns:    cast.ToInt(getEnv("DATABASE_MAX_IDLE_CONNS", "5")),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DATABASE_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Security: SecurityConfig{
			AdminJWTPublicKey: getEnv("ADMIN_JWT_PUBLIC_KEY", ""),
			AdminRole:         getEnv("ADMIN_ROLE", "ADMIN"),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
		Stripe: StripeConfig{
			SecretKey:             getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:         getEnv("STRIPE_WEBHOOK_SECRET", ""),
			DiscountWebhookSecret: getEnv("STRIPE_DISCOUNT_WEBHOOK_SECRET", ""),
			Currency:              getEnv("STRIPE_CURRENCY", "eur"),
			RequestTimeout:        getEnvAsDuration("STRIPE_REQUEST_TIMEOUT", 10*time.Second),
			APIBaseURL:            getEnv("STRIPE_API_BASE_URL", ""),
		},
		Notifications: NotificationsConfig{
			SQS: SQSConfig{
				Enabled:   cast.ToBool(getEnv("SQS_ENABLED", "false")),
				QueueURL:  getEnv("SQS_QUEUE_URL", ""),
				Region:    getEnv("SQS_REGION", "eu-west-1"),
				AccessKey: getEnv("SQS_ACCESS_KEY", ""),
				SecretKey: getEnv("SQS_SECRET_KEY", ""),
			},
		},
	}

	// VERTICAL_OPTICS_DOMAINS=globallopmeet.com,www.globallopmeet.com
	for _, v := range vertical.All() {
		prefix := "VERTICAL_" + strings.ToUpper(string(v)) + "_"
		domains := getEnv(prefix+"DOMAINS", "")
		if domains == "" {
			continue
		}
		cfg.Verticals = append(cfg.Verticals, VerticalConfig{
			Name:       string(v),
			Domains:    splitAndTrim(domains),
			SuccessURL: getEnv(prefix+"SUCCESS_URL", ""),
			CancelURL:  getEnv(prefix+"CANCEL_URL", ""),
		})
	}

	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := cast.ToDurationE(value); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DomainMap returns the frontend domain to vertical routing table.
func (c *Config) DomainMap() map[string]vertical.Vertical {
	m := make(map[string]vertical.Vertical)
	for _, vc := range c.Verticals {
		for _, d := range vc.Domains {
			m[strings.ToLower(d)] = vertical.Vertical(vc.Name)
		}
	}
	return m
}

// Vertical returns the settings for the named vertical.
func (c *Config) Vertical(v vertical.Vertical) (VerticalConfig, bool) {
	for _, vc := range c.Verticals {
		if vc.Name == string(v) {
			return vc, true
		}
	}
	return VerticalConfig{}, false
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Stripe.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("stripe config: %v", err))
	}

	if err := c.validateVerticals(); err != nil {
		errs = append(errs, fmt.Sprintf("verticals config: %v", err))
	}

	if err := c.Notifications.SQS.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("notifications config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

// Origins returns the CORS allow-list.
func (c *ServerConfig) Origins() []string {
	return splitAndTrim(c.AllowedOrigins)
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if c.AdminJWTPublicKey == "" {
		return nil
	}
	if _, err := c.GetPublicKey(); err != nil {
		return fmt.Errorf("invalid admin JWT public key: %w", err)
	}
	return nil
}

// GetPublicKey returns nil without error when no key is configured.
func (c *SecurityConfig) GetPublicKey() (*rsa.PublicKey, error) {
	if c.AdminJWTPublicKey == "" {
		return nil, nil
	}
	keyData, err := base64.StdEncoding.DecodeString(c.AdminJWTPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key: %w", err)
	}
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, errors.New("failed to parse PEM block")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return rsaPub, nil
}

func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return errors.New("secret_key is required")
	}
	if c.WebhookSecret == "" {
		return errors.New("webhook_secret is required")
	}
	if c.DiscountWebhookSecret == "" {
		return errors.New("discount_webhook_secret is required")
	}
	if c.Currency != "" && !strings.EqualFold(c.Currency, "eur") {
		return fmt.Errorf("unsupported currency %q", c.Currency)
	}
	return nil
}

func (c *Config) validateVerticals() error {
	if len(c.Verticals) == 0 {
		return errors.New("at least one vertical must be configured")
	}
	seen := make(map[string]string)
	for _, vc := range c.Verticals {
		if _, ok := vertical.Parse(vc.Name); !ok {
			return fmt.Errorf("unknown vertical %q", vc.Name)
		}
		for _, d := range vc.Domains {
			d = strings.ToLower(d)
			if owner, dup := seen[d]; dup {
				return fmt.Errorf("domain %s mapped to both %s and %s", d, owner, vc.Name)
			}
			seen[d] = vc.Name
		}
	}
	return nil
}

func (c *SQSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.QueueURL == "" {
		return errors.New("sqs.queue_url is required when sqs is enabled")
	}
	if c.Region == "" {
		return errors.New("sqs.region is required when sqs is enabled")
	}
	return nil
}
