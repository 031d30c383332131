package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks defaults and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	settings := &Config{BaseDir: "/tmp/launcher"}
	require.NoError(t, Validate(settings))
	require.Equal(t, filepath.Join("/tmp/launcher", DefaultLedgerFilename), settings.LedgerFile)
	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Equal(t, DefaultPerPage, settings.PerPage)
	require.Equal(t, DefaultAPIBaseURL, settings.APIBaseURL)
	require.NotEmpty(t, settings.SocketPath)

	// Bad URL.
	require.Error(t, Validate(&Config{APIBaseURL: "not a url"}))

	// Negative retries.
	negative := -1
	require.Error(t, Validate(&Config{RetryMax: &negative}))

	// Page size outside API limits.
	require.Error(t, Validate(&Config{PerPage: 500}))
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "launcher.yaml")

	retries := 1
	settings := &Config{
		BaseDir:         dir,
		APIBaseURL:      "https://feeds.local/",
		Timeout:         7 * time.Second,
		RetryMax:        &retries,
		UserDataFolders: []string{"save", "config"},
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.BaseDir, loaded.BaseDir)
	require.Equal(t, settings.APIBaseURL, loaded.APIBaseURL)
	require.Equal(t, settings.Timeout, loaded.Timeout)
	require.Equal(t, settings.UserDataFolders, loaded.UserDataFolders)
	require.Equal(t, 1, loaded.Retries())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoadMissingFileYieldsDefaults verifies the settings file is optional.
func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultBaseDir(), cfg.BaseDir)
	require.Equal(t, DefaultRetryMax, cfg.Retries())
}

// TestLoadZeroRetries keeps an explicit zero instead of the default.
func TestLoadZeroRetries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	zero := filepath.Join(dir, "zero.yaml")
	require.NoError(t, os.WriteFile(zero, []byte("retry_max: 0\n"), DefaultFilePermissions))

	cfg, err := Load(zero)
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Retries())

	unset := filepath.Join(dir, "unset.yaml")
	require.NoError(t, os.WriteFile(unset, []byte("per_page: 10\n"), DefaultFilePermissions))

	cfg, err = Load(unset)
	require.NoError(t, err)
	require.Equal(t, DefaultRetryMax, cfg.Retries())
}

// TestLoadRejectsGarbage ensures malformed YAML is reported.
func TestLoadRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "launcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: [unclosed"), DefaultFilePermissions))

	_, err := Load(path)
	require.Error(t, err)
}

// TestLogFilePath checks the "-" switch.
func TestLogFilePath(t *testing.T) {
	t.Parallel()

	cfg := &Config{LogFile: DisabledLogFile}
	require.NoError(t, Validate(cfg))
	require.Empty(t, cfg.LogFilePath())

	cfg = &Config{BaseDir: "/base"}
	require.NoError(t, Validate(cfg))
	require.Equal(t, filepath.Join("/base", "logs", "launcher.log"), cfg.LogFilePath())
}
