package config

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DBConfig Database configuration
type DBConfig struct {
	Type     string `yaml:"type"` // postgres, mysql, sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"` // database name, or file path for sqlite
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig System configuration
type SysConfig struct {
	Appid         string `yaml:"appid"`
	Location      string `yaml:"location"`
	Workdir       string `yaml:"workdir"`
	Debug         bool   `yaml:"debug"`
	AdminPassword string `yaml:"admin_password"` // initial password of the admin account
	NodeID        int64  `yaml:"node_id"`        // snowflake node id
}

// WebConfig Web server configuration
type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Secret        string `yaml:"secret"`          // session cookie signing key
	SessionMaxAge int    `yaml:"session_max_age"` // seconds
	PageSize      int    `yaml:"page_size"`
	LoginRate     int    `yaml:"login_rate"` // login attempts per minute per client
}

// LogConfig Logging configuration
type LogConfig struct {
	Mode       string `yaml:"mode"` // development or production
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// CartConfig Session cart configuration
type CartConfig struct {
	IdleTTL int `yaml:"idle_ttl"` // seconds a cart may stay untouched before eviction
}

// KafkaConfig Order event publishing
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// RedisConfig Idempotency key storage
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AppConfig Application configuration
type AppConfig struct {
	System   SysConfig   `yaml:"system" json:"system"`
	Web      WebConfig   `yaml:"web" json:"web"`
	Database DBConfig    `yaml:"database" json:"database"`
	Logger   LogConfig   `yaml:"logger" json:"logger"`
	Cart     CartConfig  `yaml:"cart" json:"cart"`
	Kafka    KafkaConfig `yaml:"kafka" json:"kafka"`
	Redis    RedisConfig `yaml:"redis" json:"redis"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

// CartIdleTTL returns the eviction threshold for untouched carts
func (c *AppConfig) CartIdleTTL() time.Duration {
	if c.Cart.IdleTTL <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(c.Cart.IdleTTL) * time.Second
}

// InitDirs creates the working directories
func (c *AppConfig) InitDirs() error {
	for _, dir := range []string{c.GetLogDir(), c.GetDataDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create dir %s", dir)
		}
	}
	return nil
}

// DefaultAppConfig returns a configuration usable for local development
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:         "Stockroom",
			Location:      "Europe/Moscow",
			Workdir:       "/var/stockroom",
			Debug:         true,
			AdminPassword: "storekeeper123",
			NodeID:        1,
		},
		Web: WebConfig{
			Host:          "0.0.0.0",
			Port:          8080,
			Secret:        "9b6de5cc-0731-4bf1-8a7f-3e1c2f0d5a11",
			SessionMaxAge: 86400,
			PageSize:      10,
			LoginRate:     10,
		},
		Database: DBConfig{
			Type:     "postgres",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "stockroom",
			User:     "postgres",
			Passwd:   "myroot",
			MaxConn:  100,
			IdleConn: 10,
			Debug:    false,
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: true,
			Filename:   "/var/stockroom/logs/stockroom.log",
		},
		Cart: CartConfig{
			IdleTTL: 43200,
		},
		Kafka: KafkaConfig{
			Enabled: false,
			Brokers: []string{"localhost:9092"},
			Topic:   "stockroom-orders",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
		},
	}
}

// LoadConfig reads the yaml file (if any) over the defaults, then applies
// environment overrides.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if cfile == "" {
		cfile = "/etc/stockroom.yml"
		if _, err := os.Stat(cfile); err != nil {
			cfile = ""
		}
	}
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", cfile)
		}
	}

	setEnvValue("STOCKROOM_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("STOCKROOM_SYSTEM_ADMIN_PASSWORD", &cfg.System.AdminPassword)
	setEnvBoolValue("STOCKROOM_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("STOCKROOM_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("STOCKROOM_WEB_PORT", &cfg.Web.Port)
	setEnvValue("STOCKROOM_WEB_SECRET", &cfg.Web.Secret)

	setEnvValue("STOCKROOM_DB_TYPE", &cfg.Database.Type)
	setEnvValue("STOCKROOM_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("STOCKROOM_DB_PORT", &cfg.Database.Port)
	setEnvValue("STOCKROOM_DB_NAME", &cfg.Database.Name)
	setEnvValue("STOCKROOM_DB_USER", &cfg.Database.User)
	setEnvValue("STOCKROOM_DB_PWD", &cfg.Database.Passwd)
	setEnvBoolValue("STOCKROOM_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("STOCKROOM_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("STOCKROOM_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	setEnvBoolValue("STOCKROOM_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	if brokers := os.Getenv("STOCKROOM_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	setEnvBoolValue("STOCKROOM_REDIS_ENABLED", &cfg.Redis.Enabled)
	setEnvValue("STOCKROOM_REDIS_ADDR", &cfg.Redis.Addr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late at runtime
func (c *AppConfig) Validate() error {
	switch c.Database.Type {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}
	if c.Web.Secret == "" {
		return errors.New("web.secret must not be empty")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers must be set when kafka is enabled")
	}
	return nil
}

func setEnvValue(name string, val *string) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	if b, err := cast.ToBoolE(evalue); err == nil {
		*val = b
	}
}

func setEnvIntValue(name string, val *int) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	if i, err := cast.ToIntE(evalue); err == nil {
		*val = i
	}
}
