// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PRESALED_STORAGE_POSTGRES_URL.
const EnvPrefix = "PRESALED"

type Config struct {
	Program ProgramConfig `mapstructure:"program"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	Events  EventsConfig  `mapstructure:"events"`
	AMQP    AMQPConfig    `mapstructure:"amqp"`
	Oracle  OracleConfig  `mapstructure:"oracle"`
	License LicenseConfig `mapstructure:"license"`
	Audit   AuditConfig   `mapstructure:"audit"`
}

type ProgramConfig struct {
	// ID is the program id all record addresses are derived under.
	ID string `mapstructure:"id"`
}

type HTTPConfig struct {
	Listen          string        `mapstructure:"listen"`
	CallerHeader    string        `mapstructure:"caller_header"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// Faucet enables the development credit endpoint.
	Faucet bool `mapstructure:"faucet"`
	// RateLimit is requests per second per client; zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

type StorageConfig struct {
	// PostgresURL selects the postgres store; empty keeps state in memory.
	PostgresURL     string        `mapstructure:"postgres_url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SlowQuery       time.Duration `mapstructure:"slow_query"`
}

type LogConfig struct {
	File        string `mapstructure:"file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxAge      int    `mapstructure:"max_age"`
	MaxBackups  int    `mapstructure:"max_backups"`
	Compress    bool   `mapstructure:"compress"`
	Development bool   `mapstructure:"development"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type AMQPConfig struct {
	URL       string `mapstructure:"url"`
	Exchange  string `mapstructure:"exchange"`
	Queue     string `mapstructure:"queue"`
	DialTries uint   `mapstructure:"dial_tries"`
}

type OracleConfig struct {
	URL            string        `mapstructure:"url"`
	Path           string        `mapstructure:"path"`
	Feeds          []string      `mapstructure:"feeds"`
	Refresh        string        `mapstructure:"refresh"`
	MaxAge         time.Duration `mapstructure:"max_age"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxTries       uint          `mapstructure:"max_tries"`
	MaxManualPrice uint64        `mapstructure:"max_manual_price"`
}

type LicenseConfig struct {
	Account   string `mapstructure:"account"`
	Product   string `mapstructure:"product"`
	Token     string `mapstructure:"token"`
	Key       string `mapstructure:"key"`
	Heartbeat string `mapstructure:"heartbeat"`
}

type AuditConfig struct {
	File          string        `mapstructure:"file"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

const (
	DefaultListen        = ":8080"
	DefaultCallerHeader  = "X-Caller-Identity"
	DefaultBufferSize    = 1024
	DefaultOracleRefresh = "*/30 * * * * *"
	DefaultOracleMaxAge  = 2 * time.Minute
	DefaultOracleTries   = 3
	DefaultDialTries     = 5
	DefaultHeartbeat     = "@every 1h"
)

var defaults = map[string]interface{}{
	"program.id":                "",
	"http.listen":               DefaultListen,
	"http.caller_header":        DefaultCallerHeader,
	"http.read_timeout":         10 * time.Second,
	"http.shutdown_timeout":     15 * time.Second,
	"http.faucet":               false,
	"http.rate_limit":           20.0,
	"http.rate_burst":           40,
	"storage.postgres_url":      "",
	"storage.max_idle_conns":    10,
	"storage.max_open_conns":    100,
	"storage.conn_max_lifetime": time.Hour,
	"storage.slow_query":        200 * time.Millisecond,
	"log.file":                  "presaled.log",
	"log.max_size":              100,
	"log.max_age":               7,
	"log.max_backups":           3,
	"log.compress":              true,
	"log.development":           false,
	"events.buffer_size":        DefaultBufferSize,
	"amqp.url":                  "",
	"amqp.exchange":             "presale.events",
	"amqp.queue":                "",
	"amqp.dial_tries":           DefaultDialTries,
	"oracle.url":                "",
	"oracle.path":               "",
	"oracle.feeds":              []string{},
	"oracle.refresh":            DefaultOracleRefresh,
	"oracle.max_age":            DefaultOracleMaxAge,
	"oracle.timeout":            5 * time.Second,
	"oracle.max_tries":          DefaultOracleTries,
	"oracle.max_manual_price":   uint64(0),
	"license.account":           "",
	"license.product":           "",
	"license.token":             "",
	"license.key":               "",
	"license.heartbeat":         DefaultHeartbeat,
	"audit.file":                "",
	"audit.flush_interval":      time.Second,
}

// LoadConfig reads path, applies defaults and PRESALED_* overrides, then
// validates. An empty path configures from defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Oracle.Feeds = cleanList(cfg.Oracle.Feeds)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ProgramID parses the configured program id.
func (c *Config) ProgramID() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.Program.ID)
}

func validateConfig(cfg *Config) error {
	if cfg.Program.ID == "" {
		return errors.New("program.id is required")
	}
	if _, err := solana.PublicKeyFromBase58(cfg.Program.ID); err != nil {
		return fmt.Errorf("invalid program.id: %w", err)
	}
	if cfg.HTTP.Listen == "" {
		return errors.New("http.listen is required")
	}
	if cfg.HTTP.CallerHeader == "" {
		return errors.New("http.caller_header is required")
	}
	if cfg.HTTP.RateLimit < 0 || (cfg.HTTP.RateLimit > 0 && cfg.HTTP.RateBurst <= 0) {
		return errors.New("invalid http rate limit")
	}
	if cfg.Events.BufferSize <= 0 {
		return errors.New("invalid events.buffer_size")
	}
	if cfg.Storage.PostgresURL != "" {
		if err := validateURL(cfg.Storage.PostgresURL, "postgres"); err != nil {
			return fmt.Errorf("storage.postgres_url: %w", err)
		}
	}
	if cfg.AMQP.URL != "" {
		if err := validateURL(cfg.AMQP.URL, "amqp"); err != nil {
			return fmt.Errorf("amqp.url: %w", err)
		}
		if cfg.AMQP.Exchange == "" && cfg.AMQP.Queue == "" {
			return errors.New("amqp needs an exchange or a queue")
		}
	}
	if err := validateOracle(&cfg.Oracle); err != nil {
		return err
	}
	if cfg.License.Key != "" {
		if cfg.License.Account == "" || cfg.License.Product == "" {
			return errors.New("license.account and license.product are required with license.key")
		}
		if _, err := cron.ParseStandard(cfg.License.Heartbeat); err != nil {
			return fmt.Errorf("invalid license.heartbeat: %w", err)
		}
	}
	return nil
}

func validateOracle(o *OracleConfig) error {
	if o.URL == "" {
		return nil
	}
	if err := validateURL(o.URL, "http"); err != nil {
		return fmt.Errorf("oracle.url: %w", err)
	}
	if o.Path == "" {
		return errors.New("oracle.path is required with oracle.url")
	}
	if !strings.Contains(o.URL+o.Path, "{feed}") && len(o.Feeds) > 1 {
		return errors.New("oracle.url or oracle.path must contain {feed} with several feeds")
	}
	if len(o.Feeds) == 0 {
		return errors.New("oracle.feeds is empty")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(o.Refresh); err != nil {
		return fmt.Errorf("invalid oracle.refresh: %w", err)
	}
	if o.MaxAge <= 0 {
		return errors.New("invalid oracle.max_age")
	}
	if o.MaxTries == 0 {
		return errors.New("invalid oracle.max_tries")
	}
	return nil
}

func validateURL(rawURL, scheme string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, scheme) {
		return fmt.Errorf("expected %s scheme, got %q", scheme, parsed.Scheme)
	}
	return nil
}

func cleanList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if clean := strings.TrimSpace(part); clean != "" {
				out = append(out, clean)
			}
		}
	}
	return out
}
