// Package config provides configuration management for snapstream using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort      = 8080
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxIdleTime = 30 * time.Minute
	defaultChunkSize       = 1024 * 1024     // 1MB per open-ended range response
	defaultMaxUploadSize   = 2 * 1024 * 1024 * 1024
	defaultSegmentSeconds  = 10
	defaultThumbnailOffset = time.Second
	defaultProcessTimeout  = 30 * time.Minute
	defaultSweepRetention  = 24 * time.Hour
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	FFmpeg   FFmpegConfig   `mapstructure:"ffmpeg"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// StorageConfig holds media storage configuration.
type StorageConfig struct {
	BaseDir      string `mapstructure:"base_dir"`
	VideoDir     string `mapstructure:"video_dir"`
	HLSDir       string `mapstructure:"hls_dir"`
	ThumbnailDir string `mapstructure:"thumbnail_dir"`
	// ChunkSize bounds the response size for open-ended byte-range requests.
	// Supports human-readable values like "1MB", "512KB", or raw byte counts.
	ChunkSize ByteSize `mapstructure:"chunk_size"`
	// MaxUploadSize is the maximum accepted size for a single video upload.
	MaxUploadSize ByteSize `mapstructure:"max_upload_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// FFmpegConfig holds FFmpeg invocation configuration.
type FFmpegConfig struct {
	// BinaryPath is the path to the ffmpeg binary (empty = resolve from PATH).
	BinaryPath string `mapstructure:"binary_path"`
	// SegmentSeconds is the target HLS segment duration.
	SegmentSeconds int `mapstructure:"segment_seconds"`
	// ThumbnailOffset is the timestamp the thumbnail frame is captured at.
	ThumbnailOffset time.Duration `mapstructure:"thumbnail_offset"`
	// ProcessTimeout bounds a single ffmpeg invocation (0 = unlimited).
	ProcessTimeout time.Duration `mapstructure:"process_timeout"`
}

// CleanupConfig holds scheduled maintenance configuration.
type CleanupConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Cron is a standard 5-field cron expression for the orphan sweep.
	Cron string `mapstructure:"cron"`
	// Retention is the minimum age before an orphaned output dir is removed.
	Retention time.Duration `mapstructure:"retention"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with SNAPSTREAM_ and use underscores
// for nesting. Example: SNAPSTREAM_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/snapstream")
		v.AddConfigPath("$HOME/.snapstream")
	}

	v.SetEnvPrefix("SNAPSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "snapstream.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Storage defaults
	v.SetDefault("storage.base_dir", "./data")
	v.SetDefault("storage.video_dir", "videos")
	v.SetDefault("storage.hls_dir", "hls")
	v.SetDefault("storage.thumbnail_dir", "thumbnails")
	v.SetDefault("storage.chunk_size", defaultChunkSize)
	v.SetDefault("storage.max_upload_size", defaultMaxUploadSize)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// FFmpeg defaults
	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.segment_seconds", defaultSegmentSeconds)
	v.SetDefault("ffmpeg.thumbnail_offset", defaultThumbnailOffset)
	v.SetDefault("ffmpeg.process_timeout", defaultProcessTimeout)

	// Cleanup defaults
	v.SetDefault("cleanup.enabled", true)
	v.SetDefault("cleanup.cron", "0 3 * * *") // daily at 3 AM
	v.SetDefault("cleanup.retention", defaultSweepRetention)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}
	if c.Storage.ChunkSize < 1 {
		return fmt.Errorf("storage.chunk_size must be at least 1 byte")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.FFmpeg.SegmentSeconds < 1 {
		return fmt.Errorf("ffmpeg.segment_seconds must be at least 1")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// VideoPath returns the full path to the raw video directory.
func (c *StorageConfig) VideoPath() string {
	return filepath.Join(c.BaseDir, c.VideoDir)
}

// HLSPath returns the full path to the HLS output directory.
func (c *StorageConfig) HLSPath() string {
	return filepath.Join(c.BaseDir, c.HLSDir)
}

// ThumbnailPath returns the full path to the thumbnail directory.
func (c *StorageConfig) ThumbnailPath() string {
	return filepath.Join(c.BaseDir, c.ThumbnailDir)
}
