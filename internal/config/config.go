package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config holds the launcher settings.
type Config struct {
	// BaseDir is the root holding every channel's install directory and the ledger.
	BaseDir string `yaml:"base_dir"`
	// LedgerFile is the JSON file mapping channels to installed version tags.
	LedgerFile string `yaml:"ledger_file"`
	// SocketPath is the Unix socket used by the single-instance guard.
	SocketPath string `yaml:"socket_path"`
	// APIBaseURL is the release feed API root.
	APIBaseURL string `yaml:"api_base_url"`
	// GitHubToken is sent with feed requests when set, raising the rate limit.
	GitHubToken string `yaml:"github_token,omitempty"`
	// Timeout bounds a single feed request.
	Timeout time.Duration `yaml:"timeout"`
	// RetryMax is how many times a failed feed or download request is retried.
	// Unset selects DefaultRetryMax, zero disables retries.
	RetryMax *int `yaml:"retry_max,omitempty"`
	// PerPage is how many releases a list feed returns.
	PerPage int `yaml:"per_page"`
	// ShowTimeout bounds the "show yourself" call to an already running instance.
	ShowTimeout time.Duration `yaml:"show_timeout"`
	// LogLevel is the console log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// LogFile is the rotating log file; "-" disables file logging.
	LogFile string `yaml:"log_file"`
	// UserDataFolders overrides the folders preserved across upgrades for
	// channels that keep user data inside the bundle.
	UserDataFolders []string `yaml:"user_data_folders,omitempty"`
}

const (
	// AppDirName is the directory created under the user's application support folder.
	AppDirName = "Cataclysm"

	// DefaultConfigFilename is the settings file name inside the base directory.
	DefaultConfigFilename = "launcher.yaml"

	// DefaultLedgerFilename is the ledger file name inside the base directory.
	DefaultLedgerFilename = "versions.json"

	// DefaultSocketFilename is the rendezvous socket name inside the home directory.
	DefaultSocketFilename = ".roguelike-launcher.sock"

	// DefaultAPIBaseURL is the GitHub REST API root.
	DefaultAPIBaseURL = "https://api.github.com"

	// DefaultTimeout bounds a single feed request.
	DefaultTimeout = 30 * time.Second

	// DefaultRetryMax is the number of retries for feed and download requests.
	DefaultRetryMax = 3

	// DefaultPerPage matches the GitHub default page size.
	DefaultPerPage = 30

	// DefaultShowTimeout bounds the call to an already running instance.
	DefaultShowTimeout = 2 * time.Second

	// DefaultLogLevel is the console log level.
	DefaultLogLevel = "info"

	// DisabledLogFile turns file logging off.
	DisabledLogFile = "-"

	// DefaultFilePermissions is the permission for files the launcher writes.
	DefaultFilePermissions = 0o600

	// DefaultDirPermissions is the permission for directories the launcher creates.
	DefaultDirPermissions = 0o755

	maxPerPage = 100
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeRetries is returned for a negative retry count.
	errNegativeRetries = errors.New("retry_max must not be negative")
	// errPerPageRange is returned when per_page is outside the API limits.
	errPerPageRange = errors.New("per_page must be between 1 and 100")
)

// DefaultBaseDir returns ~/Library/Application Support/Cataclysm on macOS
// (the XDG data home elsewhere).
func DefaultBaseDir() string {
	return filepath.Join(xdg.DataHome, AppDirName)
}

// DefaultConfigPath returns the settings file location inside DefaultBaseDir.
func DefaultConfigPath() string {
	return filepath.Join(DefaultBaseDir(), DefaultConfigFilename)
}

// Retries returns the retry budget, DefaultRetryMax when unset.
func (c *Config) Retries() int {
	if c.RetryMax == nil {
		return DefaultRetryMax
	}

	return *c.RetryMax
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	// Validate cannot fail on an empty configuration.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filepath.Clean(path)), DefaultDirPermissions); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	// Restrict permissions, the file may hold a token.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings and fills defaults for empty fields.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.BaseDir == "" {
		settings.BaseDir = DefaultBaseDir()
	}

	if settings.LedgerFile == "" {
		settings.LedgerFile = filepath.Join(settings.BaseDir, DefaultLedgerFilename)
	}

	if settings.SocketPath == "" {
		settings.SocketPath = defaultSocketPath()
	}

	if settings.APIBaseURL == "" {
		settings.APIBaseURL = DefaultAPIBaseURL
	}

	if _, err := url.ParseRequestURI(settings.APIBaseURL); err != nil {
		return fmt.Errorf("invalid api base URL: %w", err)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.RetryMax == nil {
		retries := DefaultRetryMax
		settings.RetryMax = &retries
	}

	if *settings.RetryMax < 0 {
		return errNegativeRetries
	}

	if settings.PerPage == 0 {
		settings.PerPage = DefaultPerPage
	}

	if settings.PerPage < 1 || settings.PerPage > maxPerPage {
		return errPerPageRange
	}

	if settings.ShowTimeout <= 0 {
		settings.ShowTimeout = DefaultShowTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	if settings.LogFile == "" {
		settings.LogFile = filepath.Join(settings.BaseDir, "logs", "launcher.log")
	}

	return nil
}

// LogFilePath returns the log file path or "" when file logging is disabled.
func (c *Config) LogFilePath() string {
	if c.LogFile == DisabledLogFile {
		return ""
	}

	return c.LogFile
}

func defaultSocketPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), DefaultSocketFilename)
	}

	return filepath.Join(home, DefaultSocketFilename)
}
