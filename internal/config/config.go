package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures the settings shared by the portal CLI and gateway.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Listing ListingConfig `yaml:"listing"`
	Logging LoggingConfig `yaml:"logging"`
	Cache   CacheConfig   `yaml:"cache"`
	Server  ServerConfig  `yaml:"server"`
}

// APIConfig configures access to the remote customer API.
type APIConfig struct {
	BaseURL   string        `yaml:"baseURL"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"userAgent"`
	Paths     APIPaths      `yaml:"paths"`
}

// APIPaths lists the endpoint paths relative to BaseURL.
type APIPaths struct {
	Languages             string `yaml:"languages"`
	CallsHistory          string `yaml:"callsHistory"`
	UsageSummary          string `yaml:"usageSummary"`
	LanguagesUsage        string `yaml:"languagesUsage"`
	VideoAccount          string `yaml:"videoAccount"`
	UpdateVideoAccount    string `yaml:"updateVideoAccount"`
	ChangeProfilePicture  string `yaml:"changeProfilePicture"`
	DeleteProfilePicture  string `yaml:"deleteProfilePicture"`
	Login                 string `yaml:"login"`
	SetupMFA              string `yaml:"setupMFA"`
	ConfirmForgotPassword string `yaml:"confirmForgotPassword"`
}

// SessionConfig controls where the bearer token comes from.
type SessionConfig struct {
	TokenFile string `yaml:"tokenFile"`
	Token     string `yaml:"token"`
}

// ListingConfig controls pagination and date filtering defaults.
type ListingConfig struct {
	DefaultPageSize int    `yaml:"defaultPageSize"`
	MaxRangeDays    int    `yaml:"maxRangeDays"`
	TimeZone        string `yaml:"timeZone"`
	DisplayTimeZone string `yaml:"displayTimeZone"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// CacheConfig controls caching of shared lookups such as language availability.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Memory       bool          `yaml:"memory"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	LanguagesTTL time.Duration `yaml:"languagesTTL"`
}

// ServerConfig controls the optional JSON gateway and its health listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	GRPCAddress     string        `yaml:"grpcAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// Load initialises Config from a YAML file and optional environment overrides.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("PORTAL_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location resolves the time zone used for date filtering.
func (c ListingConfig) Location() (*time.Location, error) {
	return loadLocation(c.TimeZone)
}

// DisplayLocation resolves the time zone used to render call timestamps.
func (c ListingConfig) DisplayLocation() (*time.Location, error) {
	return loadLocation(c.DisplayTimeZone)
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return loc, nil
}

func (c *Config) validate() error {
	if c.Listing.DefaultPageSize <= 0 {
		return fmt.Errorf("listing.defaultPageSize must be positive, got %d", c.Listing.DefaultPageSize)
	}
	if c.Listing.MaxRangeDays <= 0 {
		return fmt.Errorf("listing.maxRangeDays must be positive, got %d", c.Listing.MaxRangeDays)
	}
	if _, err := c.Listing.Location(); err != nil {
		return err
	}
	if _, err := c.Listing.DisplayLocation(); err != nil {
		return err
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout:   15 * time.Second,
			UserAgent: "voxbridge-portal",
			Paths:     DefaultAPIPaths(),
		},
		Session: SessionConfig{TokenFile: defaultTokenFile()},
		Listing: ListingConfig{
			DefaultPageSize: 10,
			MaxRangeDays:    31,
			TimeZone:        "Local",
			DisplayTimeZone: "America/New_York",
		},
		Logging: LoggingConfig{Level: "info", JSON: false, MaxSizeMB: 50, MaxAgeDays: 14},
		Cache: CacheConfig{
			Enabled:      false,
			Memory:       true,
			LanguagesTTL: 5 * time.Minute,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
		Server: ServerConfig{
			Address:         ":8080",
			GRPCAddress:     ":9090",
			GracefulTimeout: 10 * time.Second,
		},
	}
}

// DefaultAPIPaths returns the endpoint paths served by the customer API.
func DefaultAPIPaths() APIPaths {
	return APIPaths{
		Languages:             "/get-availability-by-languages",
		CallsHistory:          "/list-calls-history-video",
		UsageSummary:          "/get-usage-by-video-customer",
		LanguagesUsage:        "/list-languages-usage-by-customer",
		VideoAccount:          "/get-customer-video-account-by-id",
		UpdateVideoAccount:    "/user-update-customer-video-account",
		ChangeProfilePicture:  "/change-profile-picture-video",
		DeleteProfilePicture:  "/delete-profile-picture-video",
		Login:                 "/customer-video-login",
		SetupMFA:              "/auth/setup-mfa",
		ConfirmForgotPassword: "/confirm-forgot-password",
	}
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".voxbridge-session.json"
	}
	return filepath.Join(dir, "voxbridge", "session.json")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VITE_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("PORTAL_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("PORTAL_API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.API.Timeout = d
		}
	}
	if v := os.Getenv("PORTAL_API_CALLS_HISTORY_PATH"); v != "" {
		cfg.API.Paths.CallsHistory = v
	}
	if v := os.Getenv("PORTAL_API_USAGE_SUMMARY_PATH"); v != "" {
		cfg.API.Paths.UsageSummary = v
	}
	if v := os.Getenv("PORTAL_API_LANGUAGES_USAGE_PATH"); v != "" {
		cfg.API.Paths.LanguagesUsage = v
	}
	if v := os.Getenv("PORTAL_TOKEN"); v != "" {
		cfg.Session.Token = v
	}
	if v := os.Getenv("PORTAL_TOKEN_FILE"); v != "" {
		cfg.Session.TokenFile = v
	}
	if v := os.Getenv("PORTAL_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Listing.DefaultPageSize = n
		}
	}
	if v := os.Getenv("PORTAL_TIME_ZONE"); v != "" {
		cfg.Listing.TimeZone = v
	}
	if v := os.Getenv("PORTAL_DISPLAY_TIME_ZONE"); v != "" {
		cfg.Listing.DisplayTimeZone = v
	}
	if v := os.Getenv("PORTAL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PORTAL_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("PORTAL_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv("PORTAL_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("PORTAL_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("PORTAL_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("PORTAL_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("PORTAL_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("PORTAL_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("PORTAL_CACHE_LANGUAGES_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.LanguagesTTL = d
		}
	}
	if v := os.Getenv("PORTAL_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("PORTAL_GRPC_ADDRESS"); v != "" {
		cfg.Server.GRPCAddress = v
	}
}
