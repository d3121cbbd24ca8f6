// Package config loads and validates publisher config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// AuthFlowPassword is the OAuth2 username-password grant.
	AuthFlowPassword = "password"
	// AuthFlowJWT is the OAuth2 JWT bearer grant (signed assertion, no password).
	AuthFlowJWT = "jwt"

	sandboxLoginURL    = "https://test.salesforce.com"
	productionLoginURL = "https://login.salesforce.com"
	tokenPath          = "/services/oauth2/token"
	topicPrefix        = "/event/"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// ClientID is the connected app consumer key.
	ClientID string `mapstructure:"SF_CLIENT_ID"`
	// ClientSecret is the connected app consumer secret; required for the password flow.
	ClientSecret string `mapstructure:"SF_CLIENT_SECRET"`
	// Username is the integration user.
	Username string `mapstructure:"SF_USERNAME"`
	// Password is the integration user's password; required for the password flow.
	Password string `mapstructure:"SF_PASSWORD"`
	// SecurityToken is appended to Password. Its rotation is managed outside this process.
	SecurityToken string `mapstructure:"SF_SECURITY_TOKEN"`
	// Sandbox selects test.salesforce.com instead of login.salesforce.com.
	Sandbox bool `mapstructure:"SF_SANDBOX"`
	// LoginURL overrides the login host (e.g. the local emulator). Takes precedence over Sandbox.
	LoginURL string `mapstructure:"SF_LOGIN_URL"`
	// AuthFlow is "password" or "jwt".
	AuthFlow string `mapstructure:"SF_AUTH_FLOW"`
	// JWTPrivateKey is the PEM-encoded private key or path to file used to sign JWT bearer assertions.
	JWTPrivateKey string `mapstructure:"SF_JWT_PRIVATE_KEY"`
	// APIVersion is the REST API version segment (e.g. "v59.0").
	APIVersion string `mapstructure:"SF_API_VERSION"`
	// TopicName is the platform event API name (e.g. "Product_Configuration__e").
	TopicName string `mapstructure:"SF_TOPIC_NAME"`
	// TenantID is the org id sent as tenantid metadata on every Pub/Sub API call.
	TenantID string `mapstructure:"SF_TENANT_ID"`
	// CreatedByID is the user id written to CreatedById on events published over gRPC.
	CreatedByID string `mapstructure:"SF_CREATED_BY_ID"`

	// PubSubEndpoint is the Pub/Sub API gRPC target (host:port).
	PubSubEndpoint string `mapstructure:"PUBSUB_ENDPOINT"`
	// PubSubCAFile is a PEM root certificate bundle for the gRPC channel; empty uses system roots.
	PubSubCAFile string `mapstructure:"PUBSUB_CA_FILE"`
	// PubSubInsecure disables TLS on the gRPC channel. Local emulator only.
	PubSubInsecure bool `mapstructure:"PUBSUB_INSECURE"`

	// HTTPTimeout bounds each HTTP request (token and REST publish), e.g. "30s".
	HTTPTimeout string `mapstructure:"HTTP_TIMEOUT"`
	// RPCTimeout bounds a whole gRPC publish (connect, resolve, publish). "0s" means no deadline.
	RPCTimeout string `mapstructure:"RPC_TIMEOUT"`

	// LogLevel is a zerolog level name (trace, debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is "console" or "json".
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext OTLP connection.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses; when set, publish receipts are written to Kafka.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// ReceiptKafkaTopic is the Kafka topic for publish receipts.
	ReceiptKafkaTopic string `mapstructure:"RECEIPT_KAFKA_TOPIC"`

	// Emulator-only listeners and schema directory.
	EmulatorGRPCAddr  string `mapstructure:"EMULATOR_GRPC_ADDR"`
	EmulatorHTTPAddr  string `mapstructure:"EMULATOR_HTTP_ADDR"`
	EmulatorSchemaDir string `mapstructure:"EMULATOR_SCHEMA_DIR"`
}

// Load reads .env (if present) from the working directory, then builds Config from the environment.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom reads envFile (if present), then builds Config from the environment via Viper.
// A missing file is ignored. Env vars override the file. Credentials are not validated here;
// call Validate or ValidateGRPC for the path being run.
func LoadFrom(envFile string) (*Config, error) {
	v := viper.New()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		_ = v.ReadInConfig() // ignore ErrConfigFileNotFound
	}

	v.AutomaticEnv()

	v.SetDefault("SF_CLIENT_ID", "")
	v.SetDefault("SF_CLIENT_SECRET", "")
	v.SetDefault("SF_USERNAME", "")
	v.SetDefault("SF_PASSWORD", "")
	v.SetDefault("SF_SECURITY_TOKEN", "")
	v.SetDefault("SF_SANDBOX", false)
	v.SetDefault("SF_LOGIN_URL", "")
	v.SetDefault("SF_AUTH_FLOW", AuthFlowPassword)
	v.SetDefault("SF_JWT_PRIVATE_KEY", "")
	v.SetDefault("SF_API_VERSION", "v59.0")
	v.SetDefault("SF_TOPIC_NAME", "Product_Configuration__e")
	v.SetDefault("SF_TENANT_ID", "")
	v.SetDefault("SF_CREATED_BY_ID", "")
	v.SetDefault("PUBSUB_ENDPOINT", "api.pubsub.salesforce.com:443")
	v.SetDefault("PUBSUB_CA_FILE", "")
	v.SetDefault("PUBSUB_INSECURE", false)
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("RPC_TIMEOUT", "0s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("RECEIPT_KAFKA_TOPIC", "platform-event-receipts")
	v.SetDefault("EMULATOR_GRPC_ADDR", ":7011")
	v.SetDefault("EMULATOR_HTTP_ADDR", ":7080")
	v.SetDefault("EMULATOR_SCHEMA_DIR", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.AuthFlow = strings.ToLower(strings.TrimSpace(cfg.AuthFlow))
	return &cfg, nil
}

// Validate checks the settings every publish path needs: credentials for the configured auth flow,
// API version, and topic name.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return errors.New("config: SF_CLIENT_ID must be set")
	}
	if c.Username == "" {
		return errors.New("config: SF_USERNAME must be set")
	}
	switch c.AuthFlow {
	case AuthFlowPassword:
		if c.ClientSecret == "" {
			return errors.New("config: SF_CLIENT_SECRET must be set for the password flow")
		}
		if c.Password == "" {
			return errors.New("config: SF_PASSWORD must be set for the password flow")
		}
	case AuthFlowJWT:
		if c.JWTPrivateKey == "" {
			return errors.New("config: SF_JWT_PRIVATE_KEY must be set for the jwt flow")
		}
	default:
		return errors.New("config: SF_AUTH_FLOW must be \"password\" or \"jwt\"")
	}
	if c.APIVersion == "" {
		return errors.New("config: SF_API_VERSION must be set")
	}
	if c.TopicName == "" {
		return errors.New("config: SF_TOPIC_NAME must be set")
	}
	return nil
}

// ValidateGRPC runs Validate plus the checks specific to the Pub/Sub API path.
func (c *Config) ValidateGRPC() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.TenantID == "" {
		return errors.New("config: SF_TENANT_ID must be set")
	}
	if c.PubSubEndpoint == "" {
		return errors.New("config: PUBSUB_ENDPOINT must be set")
	}
	if c.PubSubInsecure && c.PubSubCAFile != "" {
		return errors.New("config: PUBSUB_CA_FILE must not be set when PUBSUB_INSECURE=true")
	}
	return nil
}

// LoginBaseURL returns LoginURL when set; otherwise the sandbox or production login host.
func (c *Config) LoginBaseURL() string {
	if u := strings.TrimRight(strings.TrimSpace(c.LoginURL), "/"); u != "" {
		return u
	}
	if c.Sandbox {
		return sandboxLoginURL
	}
	return productionLoginURL
}

// TokenURL returns the OAuth2 token endpoint.
func (c *Config) TokenURL() string {
	return c.LoginBaseURL() + tokenPath
}

// TopicPath returns the Pub/Sub API topic name (/event/<TopicName>).
func (c *Config) TopicPath() string {
	return topicPrefix + c.ObjectName()
}

// ObjectName returns the event's sObject API name for the REST path, without the /event/ prefix.
func (c *Config) ObjectName() string {
	return strings.TrimPrefix(c.TopicName, topicPrefix)
}

// HTTPTimeoutDuration parses HTTPTimeout. Returns 30s if unset or invalid.
func (c *Config) HTTPTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.HTTPTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// RPCTimeoutDuration parses RPCTimeout. Returns 0 (no deadline) if unset, invalid, or negative.
func (c *Config) RPCTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.RPCTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list means receipts are not written to Kafka.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
