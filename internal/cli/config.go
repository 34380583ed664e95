package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/odakahirokazu/ANLNext/internal/tracing"
)

// EnvPrefix prefixes environment overrides, e.g. ANLNEXT_PARALLEL=4 or
// ANLNEXT_TRACING_EXPORTER=stdout.
const EnvPrefix = "ANLNEXT"

// Config is the merged configuration. Sources, from lowest priority:
// defaults, the anlnext.yaml config file, ANLNEXT_* environment variables,
// command-line flags.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	// DB is the run journal path. Empty disables journaling for run.
	DB string `mapstructure:"db"`

	// DisplayPeriod is the progress period; 0 derives it from the loop count.
	DisplayPeriod int64 `mapstructure:"display_period"`
	Parallel      int   `mapstructure:"parallel"`
	Console       bool  `mapstructure:"console"`

	Tracing tracing.Config `mapstructure:"tracing"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		LogLevel: "info",
		Parallel: 1,
		Tracing:  tracing.DefaultConfig(),
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("db", d.DB)
	v.SetDefault("display_period", d.DisplayPeriod)
	v.SetDefault("parallel", d.Parallel)
	v.SetDefault("console", d.Console)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// loadConfig reads the config file and environment into v and decodes the
// result. With an empty path, anlnext.yaml is looked up in the working
// directory and its absence is not an error.
func loadConfig(v *viper.Viper, path string) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("anlnext")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Parallel < 1 {
		return Config{}, fmt.Errorf("parallel must be at least 1, got %d", cfg.Parallel)
	}
	return cfg, nil
}

// newLogger builds the process logger: text or JSON on w, at Debug with
// verbose and otherwise at the configured level.
func newLogger(w io.Writer, format string, verbose bool, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if verbose {
		lvl = slog.LevelDebug
	} else if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", level, err)
	}
	hopts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	}
	return slog.New(slog.NewTextHandler(w, hopts)), nil
}
