// Package config assembles the run configuration from a YAML file, a .env
// file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/vibesql/queryrunner/internal/database"
	"github.com/vibesql/queryrunner/internal/query"
)

// Defaults.
const (
	DefaultDriver    = database.DriverMySQL
	DefaultHost      = "localhost"
	DefaultOutputDir = "output"
	DefaultEnvFile   = ".env"
)

// ErrMissing is returned when a required setting has no value.
var ErrMissing = errors.New("missing required setting")

// Environment variables.
const (
	EnvDriver   = "DB_DRIVER"
	EnvDSN      = "DB_DSN"
	EnvHost     = "DB_HOST"
	EnvPort     = "DB_PORT"
	EnvUser     = "DB_USER"
	EnvPassword = "DB_PASSWORD"
	EnvName     = "DB_NAME"
)

// Database holds the connection settings.
type Database struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Config is the complete run configuration.
type Config struct {
	Database         Database
	OutputDir        string
	Timeout          time.Duration
	MaxRows          int
	MaxStatementSize int
	Safe             bool
}

// fileConfig is the YAML representation of Config.
type fileConfig struct {
	Database         Database `yaml:"database"`
	OutputDir        string   `yaml:"output_dir"`
	Timeout          string   `yaml:"timeout"`
	MaxRows          int      `yaml:"max_rows"`
	MaxStatementSize int      `yaml:"max_statement_size"`
	Safe             bool     `yaml:"safe"`
}

// Sources tells Load where to look.
type Sources struct {
	// File is an optional YAML configuration file.
	File string

	// EnvFile is a dotenv file. It is optional when left at its default.
	EnvFile string

	// LookupEnv reads the process environment. Defaults to os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: Database{
			Driver: DefaultDriver,
			Host:   DefaultHost,
		},
		OutputDir:        DefaultOutputDir,
		MaxStatementSize: query.DefaultMaxStatementSize,
	}
}

// Load merges defaults, the YAML file, the dotenv file and the environment,
// in increasing order of precedence. Variables already present in the
// environment win over the dotenv file.
func Load(src Sources) (Config, error) {
	cfg := Default()

	if src.LookupEnv == nil {
		src.LookupEnv = os.LookupEnv
	}

	if src.File != "" {
		err := loadFile(src.File, &cfg)
		if err != nil {
			return Config{}, err
		}
	}

	dotenv := map[string]string{}
	envFile := src.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}

	_, err := os.Stat(envFile)
	if err == nil || src.EnvFile != "" {
		dotenv, err = godotenv.Read(envFile)
		if err != nil {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	lookup := func(key string) (string, bool) {
		value, ok := src.LookupEnv(key)
		if ok {
			return value, true
		}

		value, ok = dotenv[key]
		return value, ok
	}

	for key, target := range map[string]*string{
		EnvDriver:   &cfg.Database.Driver,
		EnvDSN:      &cfg.Database.DSN,
		EnvHost:     &cfg.Database.Host,
		EnvUser:     &cfg.Database.User,
		EnvPassword: &cfg.Database.Password,
		EnvName:     &cfg.Database.Name,
	} {
		value, ok := lookup(key)
		if ok && value != "" {
			*target = value
		}
	}

	value, ok := lookup(EnvPort)
	if ok && value != "" {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", EnvPort, value, err)
		}

		cfg.Database.Port = port
	}

	return cfg, nil
}

// loadFile overlays the keys present in a YAML file onto cfg.
func loadFile(path string, cfg *Config) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	fc := fileConfig{
		Database:         cfg.Database,
		OutputDir:        cfg.OutputDir,
		MaxRows:          cfg.MaxRows,
		MaxStatementSize: cfg.MaxStatementSize,
		Safe:             cfg.Safe,
	}

	err = yaml.UnmarshalStrict(content, &fc)
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Timeout != "" {
		cfg.Timeout, err = time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q in %s: %w", fc.Timeout, path, err)
		}
	}

	cfg.Database = fc.Database
	cfg.OutputDir = fc.OutputDir
	cfg.MaxRows = fc.MaxRows
	cfg.MaxStatementSize = fc.MaxStatementSize
	cfg.Safe = fc.Safe

	return nil
}

// Validate normalizes the configuration and checks required settings.
func (c Config) Validate() (Config, error) {
	driver, err := database.NormalizeDriver(c.Database.Driver)
	if err != nil {
		return Config{}, err
	}

	c.Database.Driver = driver

	if c.Database.Port == 0 {
		c.Database.Port = database.DefaultPort(driver)
	}

	if c.Database.Port < 0 || c.Database.Port > 65535 {
		return Config{}, fmt.Errorf("invalid database port %d", c.Database.Port)
	}

	if c.Database.DSN == "" {
		required := []struct {
			name  string
			value string
		}{
			{EnvUser, c.Database.User},
			{EnvPassword, c.Database.Password},
			{EnvName, c.Database.Name},
		}

		if driver == database.DriverSQLite {
			required = required[2:]
		}

		for _, r := range required {
			if r.value == "" {
				return Config{}, fmt.Errorf("%w: %s environment variable is required", ErrMissing, r.name)
			}
		}
	}

	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}

	if c.Timeout < 0 {
		return Config{}, fmt.Errorf("invalid negative timeout %s", c.Timeout)
	}

	if c.MaxRows < 0 {
		return Config{}, fmt.Errorf("invalid negative row limit %d", c.MaxRows)
	}

	if c.MaxStatementSize < 0 {
		return Config{}, fmt.Errorf("invalid negative statement size limit %d", c.MaxStatementSize)
	}

	return c, nil
}

// DatabaseConfig returns the connection settings in the form the database package expects.
func (c Config) DatabaseConfig() database.Config {
	return database.Config{
		Driver:   c.Database.Driver,
		DSN:      c.Database.DSN,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		Name:     c.Database.Name,
	}
}
