package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/stage-loader/internal/digest"
	"github.com/oshokin/stage-loader/internal/fetcher"
	"github.com/oshokin/stage-loader/internal/gate"
)

// Config holds everything one fetch-verify-promote cycle needs.
type Config struct {
	// Host is the HTTP server to download from.
	Host string `yaml:"host"`
	// Port is the plain HTTP port.
	Port int `yaml:"port"`
	// Path is the request target. Defaults to "/<expected digest>".
	Path string `yaml:"path"`
	// ExpectedDigest is the lowercase hex digest of the only acceptable payload.
	ExpectedDigest string `yaml:"expected_digest"`
	// Algorithm names the digest function.
	Algorithm string `yaml:"algorithm"`
	// Output is the final artifact path.
	Output string `yaml:"output"`
	// TempSuffix is appended to Output for the unverified download.
	TempSuffix string `yaml:"temp_suffix"`
	// ReadTimeout bounds every network read.
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// ConnectTimeout bounds the TCP handshake.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// ReadBufferSize is the size of a single network read.
	ReadBufferSize int `yaml:"read_buffer_size"`
	// Promotion is "rename", "apply" or "auto".
	Promotion string `yaml:"promotion"`
	// Quiet disables the progress indicator.
	Quiet bool `yaml:"quiet"`
	// ExecAfter starts the promoted artifact once the cycle succeeds.
	ExecAfter bool `yaml:"exec_after"`
	// ExecArgs are passed to the promoted artifact.
	ExecArgs []string `yaml:"exec_args,omitempty"`
	// LogLevel is a zap level name.
	LogLevel string `yaml:"log_level"`
	// LogFile enables a rotating JSON log file.
	LogFile string `yaml:"log_file,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for loader settings.
	DefaultConfigFilename = "stage-loader.yaml"

	// DefaultOutput is the default final artifact name.
	DefaultOutput = "stage"

	// DefaultTempSuffix marks the unverified download.
	DefaultTempSuffix = ".tmp"

	// DefaultConnectTimeout bounds the TCP handshake.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// PromotionAuto picks "apply" when the final artifact is running and "rename" otherwise.
	PromotionAuto = "auto"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errHostRequired is returned when the download host is missing.
	errHostRequired = errors.New("host must be provided")
	// errDigestRequired is returned when no expected digest is configured.
	errDigestRequired = errors.New("expected digest must be provided")
	// errInvalidPort is returned for ports outside the TCP range.
	errInvalidPort = errors.New("port must be within 1..65535")
	// errInvalidPath is returned for request targets that are not absolute paths.
	errInvalidPath = errors.New("path must start with '/'")
	// errEmptySuffix is returned when the temporary name would equal the final one.
	errEmptySuffix = errors.New("temporary suffix must not be empty")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrEmpty reads configuration from path without validating it, so that
// command-line flags can complete it. A missing file yields an empty Config
// unless the path was given explicitly.
func LoadOrEmpty(path string, explicit bool) (*Config, error) {
	cfg, err := read(path)
	if err == nil {
		return cfg, nil
	}

	if !explicit && errors.Is(err, os.ErrNotExist) {
		return new(Config), nil
	}

	return nil, err
}

// read decodes the YAML file at path.
func read(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return &cfg, nil
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields, normalizes values and fills defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Host == "" {
		return errHostRequired
	}

	if cfg.Port == 0 {
		cfg.Port = fetcher.DefaultPort
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("%d: %w", cfg.Port, errInvalidPort)
	}

	alg, err := digest.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return fmt.Errorf("invalid algorithm: %w", err)
	}

	cfg.Algorithm = alg.String()

	cfg.ExpectedDigest = strings.TrimSpace(cfg.ExpectedDigest)
	if cfg.ExpectedDigest == "" {
		return errDigestRequired
	}

	if _, err = digest.ParseHex(alg, cfg.ExpectedDigest); err != nil {
		return fmt.Errorf("invalid expected digest: %w", err)
	}

	// Payloads are addressed by their digest unless a path is given.
	if cfg.Path == "" {
		cfg.Path = "/" + cfg.ExpectedDigest
	}

	if !strings.HasPrefix(cfg.Path, "/") {
		return fmt.Errorf("%q: %w", cfg.Path, errInvalidPath)
	}

	return validateLocal(cfg)
}

// validateLocal fills defaults of the local side: files, timeouts and promotion.
func validateLocal(cfg *Config) error {
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}

	if cfg.TempSuffix == "" {
		cfg.TempSuffix = DefaultTempSuffix
	}

	if strings.TrimSpace(cfg.TempSuffix) == "" {
		return errEmptySuffix
	}

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = fetcher.DefaultReadTimeout
	}

	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = fetcher.DefaultReadBufferSize
	}

	cfg.Promotion = strings.ToLower(strings.TrimSpace(cfg.Promotion))
	if cfg.Promotion == "" {
		cfg.Promotion = PromotionAuto
	}

	if cfg.Promotion != PromotionAuto {
		if _, err := gate.ParseStrategy(cfg.Promotion); err != nil {
			return fmt.Errorf("invalid promotion: %w", err)
		}
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	return nil
}

// TempPath returns the path of the unverified download.
func (c *Config) TempPath() string {
	return c.Output + c.TempSuffix
}

// Expected returns the parsed expected digest. Call after Validate.
func (c *Config) Expected() (digest.Digest, error) {
	alg, err := digest.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return digest.Digest{}, err
	}

	return digest.ParseHex(alg, c.ExpectedDigest)
}
