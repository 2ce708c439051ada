// Package config provides configuration loading for ChatVault.
// All ceilings and policy thresholds used by the import pipeline live here
// so services receive one Limits value instead of reading globals.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Limits holds every tunable ceiling and threshold of the pipeline.
type Limits struct {
	// MaxFileSize is the input file ceiling in bytes.
	MaxFileSize int64 `mapstructure:"max_file_size"`
	// MaxConversationsPerFile caps conversations extracted from one file.
	MaxConversationsPerFile int `mapstructure:"max_conversations_per_file"`
	// MaxMessagesPerFile caps messages extracted from one file.
	MaxMessagesPerFile int `mapstructure:"max_messages_per_file"`
	// MaxMessagesPerConversation caps messages in a single conversation.
	MaxMessagesPerConversation int `mapstructure:"max_messages_per_conversation"`
	// MaxNodeMapSize caps node-map entries in tree-shaped exports.
	MaxNodeMapSize int `mapstructure:"max_node_map_size"`
	// MaxContentLength caps a single message body in bytes.
	MaxContentLength int `mapstructure:"max_content_length"`
	// MaxDisplayNameLength caps conversation display names.
	MaxDisplayNameLength int `mapstructure:"max_display_name_length"`
	// MaxRenderLength is the render-safety ceiling applied by the sanitizer.
	MaxRenderLength int `mapstructure:"max_render_length"`
	// ControlCharThreshold is the count of dangerous control characters
	// above which content is flagged as an encoding anomaly.
	ControlCharThreshold int `mapstructure:"control_char_threshold"`
	// FallbackConfidenceThreshold is the minimum confidence score accepted
	// when no format passes strict structural validation.
	FallbackConfidenceThreshold int `mapstructure:"fallback_confidence_threshold"`
	// KDFIterations is the PBKDF2 iteration count, floored at 100000.
	KDFIterations int `mapstructure:"kdf_iterations"`
	// ImportWorkers is the number of concurrent per-file import workers.
	ImportWorkers int `mapstructure:"import_workers"`
}

// Config is the top-level application configuration.
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
	Limits   Limits `mapstructure:"limits"`
}

// DefaultLimits returns the built-in ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSize:                 100 * 1024 * 1024,
		MaxConversationsPerFile:     10000,
		MaxMessagesPerFile:          100000,
		MaxMessagesPerConversation:  50000,
		MaxNodeMapSize:              100000,
		MaxContentLength:            1024 * 1024,
		MaxDisplayNameLength:        500,
		MaxRenderLength:             50 * 1024,
		ControlCharThreshold:        10,
		FallbackConfidenceThreshold: 30,
		KDFIterations:               100000,
		ImportWorkers:               4,
	}
}

// Default returns the configuration used when no file or env overrides exist.
func Default() Config {
	return Config{
		DataDir:  "data",
		LogLevel: "info",
		Limits:   DefaultLimits(),
	}
}

// Load reads configuration from an optional chatvault.yaml plus CHATVAULT_*
// environment variables, layered over the defaults. A missing config file is
// not an error.
func Load(configDir string) (Config, error) {
	v := viper.New()
	v.SetConfigName("chatvault")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("chatvault")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The KDF floor is a hard security requirement, not a tunable.
	if c.Limits.KDFIterations < 100000 {
		c.Limits.KDFIterations = 100000
	}
	if c.Limits.ImportWorkers < 1 {
		c.Limits.ImportWorkers = 1
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_json", d.LogJSON)
	v.SetDefault("limits.max_file_size", d.Limits.MaxFileSize)
	v.SetDefault("limits.max_conversations_per_file", d.Limits.MaxConversationsPerFile)
	v.SetDefault("limits.max_messages_per_file", d.Limits.MaxMessagesPerFile)
	v.SetDefault("limits.max_messages_per_conversation", d.Limits.MaxMessagesPerConversation)
	v.SetDefault("limits.max_node_map_size", d.Limits.MaxNodeMapSize)
	v.SetDefault("limits.max_content_length", d.Limits.MaxContentLength)
	v.SetDefault("limits.max_display_name_length", d.Limits.MaxDisplayNameLength)
	v.SetDefault("limits.max_render_length", d.Limits.MaxRenderLength)
	v.SetDefault("limits.control_char_threshold", d.Limits.ControlCharThreshold)
	v.SetDefault("limits.fallback_confidence_threshold", d.Limits.FallbackConfidenceThreshold)
	v.SetDefault("limits.kdf_iterations", d.Limits.KDFIterations)
	v.SetDefault("limits.import_workers", d.Limits.ImportWorkers)
}
