package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/gmsas95/idscan/internal/errors"
)

// Config holds all configuration for idscan
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Security SecurityConfig `mapstructure:"security"`
	Storage  StorageConfig  `mapstructure:"storage"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	MRZ      MRZConfig      `mapstructure:"mrz"`
	Output   OutputConfig   `mapstructure:"output"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Inbox    InboxConfig    `mapstructure:"inbox"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	BodyLimitMB  int    `mapstructure:"body_limit_mb"`
}

// SecurityConfig holds API authentication and data-at-rest settings
type SecurityConfig struct {
	JWTSecret     string   `mapstructure:"jwt_secret"`
	AdminPassword string   `mapstructure:"admin_password"`
	AllowOrigins  []string `mapstructure:"allow_origins"`
	TokenTTL      int      `mapstructure:"token_ttl"` // minutes
	RedactRawText bool     `mapstructure:"redact_raw_text"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
	BadgerPath string `mapstructure:"badger_path"`
}

// OCRConfig selects and tunes the recognition engine
type OCRConfig struct {
	Engine   string        `mapstructure:"engine"` // tesseract, gosseract
	Binary   string        `mapstructure:"binary"`
	Language string        `mapstructure:"language"`
	PSM      int           `mapstructure:"psm"`
	Timeout  int           `mapstructure:"timeout"` // seconds
	Cache    bool          `mapstructure:"cache"`
	CacheTTL int           `mapstructure:"cache_ttl"` // hours, 0 keeps forever
	Breaker  BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig tunes the OCR circuit breaker
type BreakerConfig struct {
	MaxFailures int `mapstructure:"max_failures"`
	OpenTimeout int `mapstructure:"open_timeout"` // seconds
}

// ExtractConfig tunes the license heuristics
type ExtractConfig struct {
	Profile        string `mapstructure:"profile"` // permissive, strict
	RegionSpecific string `mapstructure:"region_specific"`
	FixedPrefix    string `mapstructure:"fixed_prefix"`
	ResizeWidth    int    `mapstructure:"resize_width"`
}

// MRZConfig tunes the zone locator
type MRZConfig struct {
	FallbackRatio  float64 `mapstructure:"fallback_ratio"`
	MinWidthRatio  float64 `mapstructure:"min_width_ratio"`
	MinHeightRatio float64 `mapstructure:"min_height_ratio"`
	PadRatio       float64 `mapstructure:"pad_ratio"`
	AnalysisWidth  int     `mapstructure:"analysis_width"`
}

// OutputConfig controls result files
type OutputConfig struct {
	Dir     string   `mapstructure:"dir"`
	Formats []string `mapstructure:"formats"` // json, txt, yaml
}

// BatchConfig tunes the batch worker pool
type BatchConfig struct {
	Concurrency int     `mapstructure:"concurrency"`
	Timeout     int     `mapstructure:"timeout"` // seconds per document
	Retries     int     `mapstructure:"retries"`
	RetryDelay  int     `mapstructure:"retry_delay"` // milliseconds
	Rate        float64 `mapstructure:"rate"`        // documents per second, 0 disables
	Burst       int     `mapstructure:"burst"`
}

// InboxConfig controls the scheduled folder sweep
type InboxConfig struct {
	Dir      string `mapstructure:"dir"`
	Schedule string `mapstructure:"schedule"`
	Kind     string `mapstructure:"kind"`
}

// LogConfig controls logging
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

var (
	validEngines  = []string{"tesseract", "gosseract"}
	validProfiles = []string{"permissive", "strict"}
	validFormats  = []string{"json", "txt", "yaml"}
	validKinds    = []string{"license", "ssn", "passport"}
)

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.SetDefault("storage.data_dir", dataDir)
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir, "idscan.db"))
	v.SetDefault("storage.badger_path", filepath.Join(dataDir, "ocrcache"))
	v.SetDefault("output.dir", filepath.Join(dataDir, "output"))
	v.SetDefault("inbox.dir", filepath.Join(dataDir, "inbox"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "idscan.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrConfigInvalid.Code, "failed to read config")
		}
	}

	// Environment variables (IDSCAN_SERVER_PORT, IDSCAN_OCR_LANGUAGE, etc.)
	v.SetEnvPrefix("IDSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrConfigInvalid.Code, "failed to unmarshal config")
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 60)
	v.SetDefault("server.body_limit_mb", 20)

	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.admin_password", "")
	v.SetDefault("security.allow_origins", []string{"*"})
	v.SetDefault("security.token_ttl", 60*24)
	v.SetDefault("security.redact_raw_text", true)

	v.SetDefault("ocr.engine", "tesseract")
	v.SetDefault("ocr.binary", "tesseract")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.psm", 6)
	v.SetDefault("ocr.timeout", 60)
	v.SetDefault("ocr.cache", true)
	v.SetDefault("ocr.cache_ttl", 24*7)
	v.SetDefault("ocr.breaker.max_failures", 5)
	v.SetDefault("ocr.breaker.open_timeout", 30)

	v.SetDefault("extract.profile", "permissive")
	v.SetDefault("extract.region_specific", "Pennsylvania")
	v.SetDefault("extract.fixed_prefix", "DLN")
	v.SetDefault("extract.resize_width", 800)

	v.SetDefault("mrz.fallback_ratio", 0.22)
	v.SetDefault("mrz.min_width_ratio", 0.7)
	v.SetDefault("mrz.min_height_ratio", 0.03)
	v.SetDefault("mrz.pad_ratio", 0.03)
	v.SetDefault("mrz.analysis_width", 800)

	v.SetDefault("output.formats", []string{"json", "txt"})

	v.SetDefault("batch.concurrency", 3)
	v.SetDefault("batch.timeout", 120)
	v.SetDefault("batch.retries", 1)
	v.SetDefault("batch.retry_delay", 500)
	v.SetDefault("batch.rate", 0)
	v.SetDefault("batch.burst", 1)

	v.SetDefault("inbox.schedule", "@every 1m")
	v.SetDefault("inbox.kind", "license")

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}

func getDefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil && os.Getenv("XDG_DATA_HOME") == "" {
		return "./data"
	}

	return filepath.Join(GetEnvDefault("XDG_DATA_HOME", filepath.Join(home, ".local", "share")), "idscan")
}

// loadEnvOverrides applies alias env vars viper does not know about
func loadEnvOverrides(cfg *Config) {
	if v := ResolveEnvWithAliases("IDSCAN_SECURITY_ADMIN_PASSWORD"); v != "" {
		cfg.Security.AdminPassword = v
	}
	if v := ResolveEnvWithAliases("IDSCAN_SECURITY_JWT_SECRET"); v != "" {
		cfg.Security.JWTSecret = v
	}
	if v := ResolveEnvWithAliases("IDSCAN_OCR_BINARY"); v != "" {
		cfg.OCR.Binary = v
	}
	if v := ResolveEnvWithAliases("IDSCAN_OCR_LANGUAGE"); v != "" {
		cfg.OCR.Language = v
	}
	if port := ResolveEnvWithAliases("IDSCAN_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
}

func validate(cfg *Config) error {
	invalid := func(format string, args ...interface{}) error {
		return apperrors.Wrap(fmt.Errorf(format, args...), apperrors.ErrConfigInvalid.Code, "invalid configuration")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return invalid("server.port %d out of range", cfg.Server.Port)
	}
	if !oneOf(cfg.OCR.Engine, validEngines) {
		return invalid("ocr.engine must be one of %v, got %q", validEngines, cfg.OCR.Engine)
	}
	if !oneOf(strings.ToLower(cfg.Extract.Profile), validProfiles) {
		return invalid("extract.profile must be one of %v, got %q", validProfiles, cfg.Extract.Profile)
	}
	for _, f := range cfg.Output.Formats {
		if !oneOf(f, validFormats) {
			return invalid("output.formats: unknown format %q", f)
		}
	}
	if !oneOf(cfg.Inbox.Kind, validKinds) {
		return invalid("inbox.kind must be one of %v, got %q", validKinds, cfg.Inbox.Kind)
	}
	for name, r := range map[string]float64{
		"mrz.fallback_ratio":   cfg.MRZ.FallbackRatio,
		"mrz.min_width_ratio":  cfg.MRZ.MinWidthRatio,
		"mrz.min_height_ratio": cfg.MRZ.MinHeightRatio,
	} {
		if r <= 0 || r > 1 {
			return invalid("%s must be in (0,1], got %v", name, r)
		}
	}
	if cfg.Batch.Concurrency <= 0 {
		cfg.Batch.Concurrency = 1
	}

	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = generateRandomString(32)
	}

	return nil
}

func oneOf(s string, options []string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}

func generateRandomString(n int) string {
	b := make([]byte, n/2)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b)
}

// OCRTimeout returns the per-call recognition timeout
func (c *Config) OCRTimeout() time.Duration {
	return time.Duration(c.OCR.Timeout) * time.Second
}

// CacheTTL returns the OCR cache entry lifetime
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.OCR.CacheTTL) * time.Hour
}

// TokenTTL returns the API token lifetime
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Security.TokenTTL) * time.Minute
}

// Addr returns host:port for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
