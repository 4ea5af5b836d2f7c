package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix は環境変数による上書きで使用するプレフィックスです。
const EnvPrefix = "EMPLOYEES_"

// キャッシュドライバの種別です。
const (
	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	CORS     CORSConfig     `yaml:"cors" envPrefix:"CORS_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`
	Cache    CacheConfig    `yaml:"cache" envPrefix:"CACHE_"`
	Logging  LoggingConfig  `yaml:"logging" envPrefix:"LOG_"`
	Metrics  MetricsConfig  `yaml:"metrics" envPrefix:"METRICS_"`
}

// ServerConfig は HTTP サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr         string        `yaml:"listen_addr" env:"LISTEN_ADDR"`
	ReadTimeout        time.Duration `yaml:"-"`
	WriteTimeout       time.Duration `yaml:"-"`
	ShutdownTimeout    time.Duration `yaml:"-"`
	ReadTimeoutRaw     string        `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeoutRaw    string        `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// CORSConfig はクロスオリジン応答ヘッダに関する設定です。
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	AllowCredentials bool     `yaml:"allow_credentials" env:"ALLOW_CREDENTIALS"`
}

// RetryConfig は接続確立時の再試行ポリシーです。
type RetryConfig struct {
	MaxAttempts        int           `yaml:"max_attempts"`
	InitialInterval    time.Duration `yaml:"-"`
	MaxInterval        time.Duration `yaml:"-"`
	InitialIntervalRaw string        `yaml:"initial_interval"`
	MaxIntervalRaw     string        `yaml:"max_interval"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host                  string        `yaml:"host" env:"HOST"`
	Port                  int           `yaml:"port" env:"PORT"`
	User                  string        `yaml:"user" env:"USER"`
	Password              string        `yaml:"password" env:"PASSWORD"`
	Name                  string        `yaml:"name" env:"NAME"`
	SSLMode               string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns          int           `yaml:"max_open_conns"`
	MaxIdleConns          int           `yaml:"max_idle_conns"`
	IsolationLevel        string        `yaml:"isolation_level" env:"ISOLATION_LEVEL"`
	ConnMaxLifetime       time.Duration `yaml:"-"`
	ConnMaxIdleTime       time.Duration `yaml:"-"`
	SlowQueryThreshold    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw    string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw    string        `yaml:"conn_max_idle_time"`
	SlowQueryThresholdRaw string        `yaml:"slow_query_threshold"`
	ConnectRetry          RetryConfig   `yaml:"connect_retry"`
}

// CacheConfig はキャッシュストアに関する設定です。
type CacheConfig struct {
	Driver                string        `yaml:"driver" env:"DRIVER"`
	Addr                  string        `yaml:"addr" env:"ADDR"`
	Password              string        `yaml:"password" env:"PASSWORD"`
	DB                    int           `yaml:"db" env:"DB"`
	TLS                   bool          `yaml:"tls" env:"TLS"`
	TLSInsecureSkipVerify bool          `yaml:"tls_insecure_skip_verify" env:"TLS_INSECURE_SKIP_VERIFY"`
	KeyPrefix             string        `yaml:"key_prefix" env:"KEY_PREFIX"`
	DialTimeout           time.Duration `yaml:"-"`
	DialTimeoutRaw        string        `yaml:"dial_timeout"`
	ConnectRetry          RetryConfig   `yaml:"connect_retry"`
}

// LoggingConfig はロガーに関する設定です。
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// MetricsConfig は Prometheus エンドポイントに関する設定です。
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}

// Load は指定されたパスから設定ファイルを読み込み、環境変数で上書きします。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if err := c.Server.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Cache.validateAndNormalize(); err != nil {
		return err
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Format {
	case "":
		c.Logging.Format = "json"
	case "json", "text":
	default:
		return fmt.Errorf("config: logging.format must be json or text")
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("config: metrics.path must start with /")
	}

	return nil
}

func (s *ServerConfig) validateAndNormalize() error {
	if s.ListenAddr == "" {
		return fmt.Errorf("config: server.listen_addr must be set")
	}

	var err error
	if s.ReadTimeout, err = parseDurationDefault(s.ReadTimeoutRaw, 10*time.Second); err != nil {
		return fmt.Errorf("config: server.read_timeout: %w", err)
	}
	if s.WriteTimeout, err = parseDurationDefault(s.WriteTimeoutRaw, 30*time.Second); err != nil {
		return fmt.Errorf("config: server.write_timeout: %w", err)
	}
	if s.ShutdownTimeout, err = parseDurationDefault(s.ShutdownTimeoutRaw, 15*time.Second); err != nil {
		return fmt.Errorf("config: server.shutdown_timeout: %w", err)
	}
	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	switch strings.ToLower(d.IsolationLevel) {
	case "":
		d.IsolationLevel = "read committed"
	case "read committed", "repeatable read", "serializable":
		d.IsolationLevel = strings.ToLower(d.IsolationLevel)
	default:
		return fmt.Errorf("config: database.isolation_level %q is not supported", d.IsolationLevel)
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	slow, err := parseDurationDefault(d.SlowQueryThresholdRaw, time.Second)
	if err != nil {
		return fmt.Errorf("config: database.slow_query_threshold: %w", err)
	}
	d.SlowQueryThreshold = slow

	if err := d.ConnectRetry.validateAndNormalize("database.connect_retry"); err != nil {
		return err
	}

	return nil
}

func (c *CacheConfig) validateAndNormalize() error {
	switch c.Driver {
	case "":
		c.Driver = CacheDriverRedis
	case CacheDriverRedis, CacheDriverMemory:
	default:
		return fmt.Errorf("config: cache.driver must be %s or %s", CacheDriverRedis, CacheDriverMemory)
	}

	if c.Driver == CacheDriverRedis && c.Addr == "" {
		return fmt.Errorf("config: cache.addr must be set when cache.driver is redis")
	}

	timeout, err := parseDurationDefault(c.DialTimeoutRaw, 5*time.Second)
	if err != nil {
		return fmt.Errorf("config: cache.dial_timeout: %w", err)
	}
	c.DialTimeout = timeout

	return c.ConnectRetry.validateAndNormalize("cache.connect_retry")
}

func (r *RetryConfig) validateAndNormalize(field string) error {
	if r.MaxAttempts < 0 {
		return fmt.Errorf("config: %s.max_attempts must not be negative", field)
	}
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}

	var err error
	if r.InitialInterval, err = parseDurationDefault(r.InitialIntervalRaw, time.Second); err != nil {
		return fmt.Errorf("config: %s.initial_interval: %w", field, err)
	}
	if r.MaxInterval, err = parseDurationDefault(r.MaxIntervalRaw, 10*time.Second); err != nil {
		return fmt.Errorf("config: %s.max_interval: %w", field, err)
	}
	if r.MaxInterval < r.InitialInterval {
		return fmt.Errorf("config: %s.max_interval must not be shorter than initial_interval", field)
	}
	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	return parseDurationDefault(raw, 0)
}

func parseDurationDefault(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。
func (d DatabaseConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
