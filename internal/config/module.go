package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/fx"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	GRPC         GRPCConfig         `yaml:"grpc"`
	Database     DatabaseConfig     `yaml:"database"`
	Cache        CacheConfig        `yaml:"cache"`
	Notify       NotifyConfig       `yaml:"notify"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Logging      LoggingConfig      `yaml:"logging"`
	Templates    TemplatesConfig    `yaml:"templates"`
	Studio       StudioConfig       `yaml:"studio"`
	Organization OrganizationConfig `yaml:"organization"`
	Escalation   EscalationConfig   `yaml:"escalation"`
	Discovery    DiscoveryConfig    `yaml:"discovery"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type GRPCConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig selects the store. An empty DSN keeps everything in memory.
type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

type CacheConfig struct {
	TTL     string `yaml:"ttl"`
	Version string `yaml:"version"`
}

type NotifyConfig struct {
	AuditURL    string `yaml:"audit_url"`
	Timeout     string `yaml:"timeout"`
	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	SinkURL     string `yaml:"sink_url"`
	SinkAPIKey  string `yaml:"sink_api_key"`
}

type TemplatesConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

type StudioConfig struct {
	SeedFile string `yaml:"seed_file"`
}

type OrganizationConfig struct {
	DefaultID string `yaml:"default_id"`
}

type EscalationConfig struct {
	Interval string `yaml:"interval"`
}

// DiscoveryConfig announces this instance on the NATS server named by
// Notify.NATSURL.
type DiscoveryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Bucket        string `yaml:"bucket"`
	Heartbeat     string `yaml:"heartbeat"`
	AdvertiseHost string `yaml:"advertise_host"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8100,
		},
		GRPC: GRPCConfig{
			Host: "0.0.0.0",
			Port: 9114,
		},
		Database: DatabaseConfig{
			MaxConns: 8,
		},
		Cache: CacheConfig{
			TTL:     "5m",
			Version: "v1",
		},
		Notify: NotifyConfig{
			Timeout:     "5s",
			NATSSubject: "studioflow",
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "otel-collector:4317",
			ServiceName: "studioflow",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Escalation: EscalationConfig{
			Interval: "15m",
		},
		Discovery: DiscoveryConfig{
			Bucket:    "service_discovery",
			Heartbeat: "10s",
		},
	}
}

// CacheTTL parses Cache.TTL, falling back to five minutes.
func (c Config) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// EscalationInterval is zero when the sweep is disabled.
func (c Config) EscalationInterval() time.Duration {
	d, err := time.ParseDuration(c.Escalation.Interval)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

func (c Config) DiscoveryHeartbeat() time.Duration {
	d, err := time.ParseDuration(c.Discovery.Heartbeat)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, err
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	setString(&cfg.Server.Host, "APP_SERVER_HOST")
	setInt(&cfg.Server.Port, "APP_SERVER_PORT")
	setString(&cfg.GRPC.Host, "APP_GRPC_HOST")
	setInt(&cfg.GRPC.Port, "APP_GRPC_PORT")
	setString(&cfg.Database.DSN, "APP_DATABASE_DSN")
	setString(&cfg.Cache.TTL, "APP_CACHE_TTL")
	setString(&cfg.Cache.Version, "APP_CACHE_VERSION")
	setString(&cfg.Notify.AuditURL, "APP_NOTIFY_AUDIT_URL")
	setString(&cfg.Notify.Timeout, "APP_NOTIFY_TIMEOUT")
	setString(&cfg.Notify.NATSURL, "APP_NOTIFY_NATS_URL")
	setString(&cfg.Notify.NATSSubject, "APP_NOTIFY_NATS_SUBJECT")
	setBool(&cfg.Telemetry.Enabled, "APP_TELEMETRY_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "APP_TELEMETRY_ENDPOINT")
	setString(&cfg.Logging.Level, "APP_LOGGING_LEVEL")
	setBool(&cfg.Logging.Development, "APP_LOGGING_DEVELOPMENT")
	setString(&cfg.Logging.SinkURL, "APP_LOGGING_SINK_URL")
	setString(&cfg.Logging.SinkAPIKey, "APP_LOGGING_SINK_API_KEY")
	setString(&cfg.Templates.Dir, "APP_TEMPLATES_DIR")
	setBool(&cfg.Templates.Watch, "APP_TEMPLATES_WATCH")
	setString(&cfg.Studio.SeedFile, "APP_STUDIO_SEED_FILE")
	setString(&cfg.Organization.DefaultID, "APP_ORGANIZATION_DEFAULT_ID")
	setString(&cfg.Escalation.Interval, "APP_ESCALATION_INTERVAL")
	setBool(&cfg.Discovery.Enabled, "APP_DISCOVERY_ENABLED")
	setString(&cfg.Discovery.Bucket, "APP_DISCOVERY_BUCKET")
	setString(&cfg.Discovery.Heartbeat, "APP_DISCOVERY_HEARTBEAT")
	setString(&cfg.Discovery.AdvertiseHost, "APP_DISCOVERY_ADVERTISE_HOST")

	return cfg, nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func Module(path string) fx.Option {
	return fx.Provide(func() (Config, error) {
		return Load(path)
	})
}
