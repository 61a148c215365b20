// Package config loads service settings from defaults, an optional YAML file,
// a .env file and the process environment, in increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/audit"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/store"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/tracker"
)

// Environment keys.
const (
	EnvSecret        = "SECRET_TOKEN"
	EnvLogLevel      = "LOG_LEVEL"
	EnvVersion       = "VERSION"
	EnvAddr          = "ECOFMM_ADDR"
	EnvDataDir       = "ECOFMM_DATA_DIR"
	EnvAuditLog      = "ECOFMM_AUDIT_LOG"
	EnvBackupDir     = "ECOFMM_BACKUP_DIR"
	EnvDueDateLayout = "ECOFMM_DUE_DATE_LAYOUT"
	EnvIdentity      = "ECOFMM_IDENTITY"
	EnvConfig        = "ECOFMM_CONFIG"
)

// DefaultEnvFile is the dotenv file read from the working directory.
const DefaultEnvFile = ".env"

// Config holds all configuration for the application.
type Config struct {
	// Secret is the bearer token guarded routes require. Only read from the
	// environment or .env, never from the YAML file.
	Secret string `yaml:"-"`

	LogLevel      string            `yaml:"log_level"`
	Version       string            `yaml:"version"`
	Addr          string            `yaml:"addr"`
	DataDir       string            `yaml:"data_dir"`
	AuditLog      string            `yaml:"audit_log"`
	BackupDir     string            `yaml:"backup_dir"`
	DueDateLayout string            `yaml:"due_date_layout"`
	Identity      string            `yaml:"identity"`
	Stores        map[string]string `yaml:"stores"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel: "info",
		Version:  "2.0.0",
		Addr:     "0.0.0.0:80",
		DataDir:  ".",
		Identity: string(tracker.IdentityByID),
	}
}

// Load builds a Config. path names an optional YAML file; when empty,
// ECOFMM_CONFIG is consulted. A missing .env file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	// Load .env file if it exists; it never overrides the real environment.
	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", DefaultEnvFile, err)
	}
	cfg.mergeEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{EnvSecret, &c.Secret},
		{EnvLogLevel, &c.LogLevel},
		{EnvVersion, &c.Version},
		{EnvAddr, &c.Addr},
		{EnvDataDir, &c.DataDir},
		{EnvAuditLog, &c.AuditLog},
		{EnvBackupDir, &c.BackupDir},
		{EnvDueDateLayout, &c.DueDateLayout},
		{EnvIdentity, &c.Identity},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.dst = v
		}
	}
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var problems []string

	if _, err := tracker.ParseIdentityMode(c.Identity); err != nil {
		problems = append(problems, err.Error())
	}
	for name, file := range c.Stores {
		if !store.IsKnown(name) {
			problems = append(problems, fmt.Sprintf("stores: unknown store %q (want one of %s)", name, strings.Join(store.Names, ", ")))
		}
		if strings.TrimSpace(file) == "" {
			problems = append(problems, fmt.Sprintf("stores: %q has an empty path", name))
		}
	}
	if c.Addr == "" {
		problems = append(problems, "addr must not be empty")
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Level maps LOG_LEVEL onto a zap level. Anything but debug or info runs
// at warn, which selects the production logger.
func (c Config) Level() zapcore.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

// IdentityMode returns the validated identity mode.
func (c Config) IdentityMode() tracker.IdentityMode {
	mode, err := tracker.ParseIdentityMode(c.Identity)
	if err != nil {
		return tracker.IdentityByID
	}
	return mode
}

// StorePaths maps every logical store to its file. Unlisted stores use
// store.DefaultFiles. Relative paths resolve against DataDir.
func (c Config) StorePaths() map[string]string {
	paths := store.DefaultFiles()
	for name, file := range c.Stores {
		paths[name] = file
	}
	for name, file := range paths {
		paths[name] = c.resolve(file)
	}
	return paths
}

// AuditLogPath returns the audit file path.
func (c Config) AuditLogPath() string {
	if c.AuditLog == "" {
		return c.resolve(audit.DefaultFileName)
	}
	return c.resolve(c.AuditLog)
}

// BackupPath returns the directory backup archives are written to.
func (c Config) BackupPath() string {
	if c.BackupDir == "" {
		return c.resolve("backups")
	}
	return c.resolve(c.BackupDir)
}

func (c Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}

// WriteSecret sets SECRET_TOKEN in the dotenv file at path, keeping any
// other keys already there.
func WriteSecret(path, secret string) error {
	env, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		env = map[string]string{}
	} else if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	env[EnvSecret] = secret
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
