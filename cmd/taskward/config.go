package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/vsokolov/taskward/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultAccessTTL    = 15 * time.Minute
	defaultRefreshTTL   = 7 * 24 * time.Hour
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address the taskward service listens on
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Independent secrets for the two token signing contexts
	AccessSecret  string
	RefreshSecret string

	// Token lifetimes
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Bcrypt work factor; 0 means the bcrypt default
	BcryptCost int

	// Environment (dev, prod)
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		ListenAddr:  defaultListenAddr,
		AccessTTL:   defaultAccessTTL,
		RefreshTTL:  defaultRefreshTTL,
		Environment: defaultEnvironment,
	}
}

// Load variables from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = n
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":        setString(&c.ListenAddr),
		"DATABASE_URI":       setString(&c.DatabaseDSN),
		"JWT_ACCESS_SECRET":  setString(&c.AccessSecret),
		"JWT_REFRESH_SECRET": setString(&c.RefreshSecret),
		"ACCESS_TOKEN_TTL":   setDuration(&c.AccessTTL),
		"REFRESH_TOKEN_TTL":  setDuration(&c.RefreshTTL),
		"BCRYPT_COST":        setInt(&c.BcryptCost),
		"LOG_LEVEL":          setString(&c.LogLevel),
		"ENVIRONMENT":        setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid value of %s: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("taskward", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVar(&c.AccessSecret, "access-secret", c.AccessSecret, "Access token signing secret")
	fs.StringVar(&c.RefreshSecret, "refresh-secret", c.RefreshSecret, "Refresh token signing secret")
	fs.DurationVar(&c.AccessTTL, "access-ttl", c.AccessTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTTL, "refresh-ttl", c.RefreshTTL, "Refresh token lifetime")
	fs.IntVar(&c.BcryptCost, "bcrypt-cost", c.BcryptCost, "Bcrypt work factor (0 for library default)")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}

// Validate checks options that have no usable default
func (c *Config) Validate() error {
	if c.DatabaseDSN == "" {
		return errors.New("database DSN is required")
	}
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return errors.New("access and refresh token secrets are required")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("access and refresh token secrets must differ")
	}

	return nil
}
