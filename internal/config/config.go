// Package config loads rentctl settings from defaults, an optional YAML file
// and RENTCORE_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "RENTCORE_"

// Config is the full runtime configuration.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Blob       BlobConfig       `yaml:"blob"`
	Tickets    TicketConfig     `yaml:"tickets"`
	Deployment DeploymentConfig `yaml:"deployment"`
	Log        LogConfig        `yaml:"log"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver         string `yaml:"driver" validate:"oneof=memory sqlite postgres badger"`
	SQLitePath     string `yaml:"sqlite_path"`
	PostgresDSN    string `yaml:"postgres_dsn"`
	BadgerPath     string `yaml:"badger_path"`
	BadgerInMemory bool   `yaml:"badger_in_memory"`
}

// BlobConfig selects where uploaded files go.
type BlobConfig struct {
	Driver    string   `yaml:"driver" validate:"oneof=fs s3 memory"`
	FSRoot    string   `yaml:"fs_root" validate:"required_if=Driver fs"`
	FSBaseURL string   `yaml:"fs_base_url"`
	S3        S3Config `yaml:"s3"`
}

// S3Config holds the S3-compatible object store settings.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
	PublicBaseURL   string `yaml:"public_base_url"`
}

// TicketConfig holds ticket defaults.
type TicketConfig struct {
	DefaultUrgency string `yaml:"default_urgency" validate:"oneof=low medium high"`
}

// DeploymentConfig holds deployment-wide policy switches.
type DeploymentConfig struct {
	SingleOwner bool `yaml:"single_owner"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Storage:    StorageConfig{Driver: "sqlite", SQLitePath: "rentcore.db"},
		Blob:       BlobConfig{Driver: "fs", FSRoot: "uploads"},
		Tickets:    TicketConfig{DefaultUrgency: "medium"},
		Deployment: DeploymentConfig{SingleOwner: true},
		Log:        LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration. An empty path skips the file; a path that
// does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator supplied config path
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	strs := map[string]*string{
		"STORAGE_DRIVER":       &cfg.Storage.Driver,
		"SQLITE_PATH":          &cfg.Storage.SQLitePath,
		"POSTGRES_DSN":         &cfg.Storage.PostgresDSN,
		"BADGER_PATH":          &cfg.Storage.BadgerPath,
		"BLOB_DRIVER":          &cfg.Blob.Driver,
		"BLOB_FS_ROOT":         &cfg.Blob.FSRoot,
		"BLOB_FS_BASE_URL":     &cfg.Blob.FSBaseURL,
		"S3_BUCKET":            &cfg.Blob.S3.Bucket,
		"S3_REGION":            &cfg.Blob.S3.Region,
		"S3_ENDPOINT":          &cfg.Blob.S3.Endpoint,
		"S3_ACCESS_KEY_ID":     &cfg.Blob.S3.AccessKeyID,
		"S3_SECRET_ACCESS_KEY": &cfg.Blob.S3.SecretAccessKey,
		"S3_PUBLIC_BASE_URL":   &cfg.Blob.S3.PublicBaseURL,
		"TICKET_URGENCY":       &cfg.Tickets.DefaultUrgency,
		"LOG_LEVEL":            &cfg.Log.Level,
		"LOG_FORMAT":           &cfg.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	bools := map[string]*bool{
		"BADGER_IN_MEMORY": &cfg.Storage.BadgerInMemory,
		"S3_PATH_STYLE":    &cfg.Blob.S3.PathStyle,
		"SINGLE_OWNER":     &cfg.Deployment.SingleOwner,
	}
	for key, dst := range bools {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = b
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("invalid config %s: %q fails %s %s", fe.Namespace(), fe.Value(), fe.Tag(), fe.Param())
	}
	return fmt.Errorf("invalid config: %w", err)
}

// NewLogger builds a slog logger writing to w at the configured level and format.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
