// Package config loads the xmldbms configuration file.
//
// Values are resolved in this order, later wins: built-in defaults, the
// YAML file (with ${VAR} expansion), then XMLDBMS_* environment variables.
// An optional .env file is loaded into the environment first.
package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"

	"github.com/koustreak/xmldbms/internal/database"
	"github.com/koustreak/xmldbms/internal/dialect"
	"github.com/koustreak/xmldbms/internal/errs"
	"github.com/koustreak/xmldbms/internal/filestore"
	"github.com/koustreak/xmldbms/internal/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "XMLDBMS_"

// Config is the complete configuration of the xmldbms binary.
type Config struct {
	Log LogConfig `yaml:"log"`

	// Database is set when a live connection is configured.
	Database *database.Config `yaml:"database"`

	Dialect dialect.Overrides `yaml:"dialect"`

	// Namespaces maps prefixes to URIs for qualified names in map files.
	Namespaces map[string]string `yaml:"namespaces"`

	// Store is set when map definitions are read from an object store.
	Store *filestore.Config `yaml:"store"`

	Server ServerConfig `yaml:"server"`
}

// LogConfig is the YAML form of logger.Config.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "console"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads path (skipped when empty), then applies environment
// overrides. envFile names a dotenv file; a missing one is ignored.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to load "+envFile, err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read config file", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv(os.Getenv)
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML data on top of the defaults without consulting the
// environment.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to parse config file", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}

	set(&c.Log.Level, "LOG_LEVEL")
	set(&c.Log.Format, "LOG_FORMAT")
	set(&c.Server.Addr, "SERVER_ADDR")

	if getenv(EnvPrefix+"DATABASE_DSN") != "" && c.Database == nil {
		c.Database = &database.Config{}
	}
	if c.Database != nil {
		driver := string(c.Database.Driver)
		set(&driver, "DATABASE_DRIVER")
		c.Database.Driver = database.Driver(driver)
		set(&c.Database.DSN, "DATABASE_DSN")
	}

	if getenv(EnvPrefix+"STORE_ENDPOINT") != "" && c.Store == nil {
		c.Store = &filestore.Config{Provider: filestore.ProviderMinIO}
	}
	if c.Store != nil {
		set(&c.Store.Endpoint, "STORE_ENDPOINT")
		set(&c.Store.AccessKey, "STORE_ACCESS_KEY")
		set(&c.Store.SecretKey, "STORE_SECRET_KEY")
		set(&c.Store.Bucket, "STORE_BUCKET")
	}
}

// fillDefaults fills unset pool settings from database.DefaultConfig.
func (c *Config) fillDefaults() {
	if c.Store != nil && c.Store.Provider == "" {
		c.Store.Provider = filestore.ProviderMinIO
	}
	if c.Database == nil {
		return
	}
	def := database.DefaultConfig(c.Database.Driver, c.Database.DSN)
	db := c.Database
	if db.MaxConns == 0 {
		db.MaxConns = def.MaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = def.MinConns
	}
	if db.MaxConnLifetime == 0 {
		db.MaxConnLifetime = def.MaxConnLifetime
	}
	if db.MaxConnIdleTime == 0 {
		db.MaxConnIdleTime = def.MaxConnIdleTime
	}
	if db.ConnectTimeout == 0 {
		db.ConnectTimeout = def.ConnectTimeout
	}
	if db.QueryTimeout == 0 {
		db.QueryTimeout = def.QueryTimeout
	}
}

// Validate checks every configured section.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "json", "console":
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unknown log format %q", c.Log.Format)
	}
	if c.Database != nil {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}
	if c.Store != nil {
		if err := c.Store.Validate(); err != nil {
			return err
		}
	}
	if err := dialect.Default().Apply(c.Dialect); err != nil {
		return err
	}
	return nil
}

// Logger builds the logger described by the log section.
func (c *Config) Logger(out io.Writer) *logger.Logger {
	return logger.New(&logger.Config{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		TimeFormat: "rfc3339",
		Output:     out,
	})
}
