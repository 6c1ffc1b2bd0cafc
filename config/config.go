package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/crosstalk-chat/crosstalk/globals"
)

const (
	defaultShortGraceSeconds    = 20
	defaultLongGraceSeconds     = 300
	defaultSweepSpec            = "@every 30m"
	defaultIdleThresholdMinutes = 60
	defaultAttempts             = 3
	defaultBaseDelayMillis      = 1000
	defaultCacheSize            = 1024
)

// Config is the global configuration object which is filled via the
// configuration file, environment variables and command-line flags.
type Config struct {
	GraceConfig       GraceConfig       `mapstructure:"grace"`
	JanitorConfig     JanitorConfig     `mapstructure:"janitor"`
	TranslationConfig TranslationConfig `mapstructure:"translation"`
	LogLevel          string            `mapstructure:"log_level"`
}

// GraceConfig configures the two reconnection grace windows: the short window
// absorbs transient drops of a single connection, the long window delays
// reclaiming a room that just went empty.
type GraceConfig struct {
	ShortGraceSeconds int `mapstructure:"short_grace_seconds"`
	LongGraceSeconds  int `mapstructure:"long_grace_seconds"`
}

func (g GraceConfig) ShortGrace() time.Duration {
	return time.Duration(g.ShortGraceSeconds) * time.Second
}

func (g GraceConfig) LongGrace() time.Duration {
	return time.Duration(g.LongGraceSeconds) * time.Second
}

// JanitorConfig configures the periodic sweep reclaiming long-idle, empty
// rooms. SweepSpec is a cron/v3 schedule expression.
type JanitorConfig struct {
	SweepSpec            string `mapstructure:"sweep_spec"`
	IdleThresholdMinutes int    `mapstructure:"idle_threshold_minutes"`
}

func (j JanitorConfig) IdleThreshold() time.Duration {
	return time.Duration(j.IdleThresholdMinutes) * time.Minute
}

// TranslationConfig configures the translation gateway: the Google Cloud
// project, the retry budget and the result cache.
type TranslationConfig struct {
	ProjectId       string `mapstructure:"project_id"`
	Attempts        int    `mapstructure:"attempts"`
	BaseDelayMillis int    `mapstructure:"base_delay_ms"`
	CacheSize       int    `mapstructure:"cache_size"`
}

func (t TranslationConfig) BaseDelay() time.Duration {
	return time.Duration(t.BaseDelayMillis) * time.Millisecond
}

func GetFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("configuration", pflag.ContinueOnError)
	flagSet.String("log-level", "INFO", "log level (TRACE, DEBUG, INFO, WARN, ERROR)")
	return flagSet
}

// wordSepNormalizeFunc allows for normalization of the flag names (which use - as a separator)
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	from := "-"
	to := "_"
	name = strings.Replace(name, from, to, -1)
	return pflag.NormalizedName(name)
}

// ReadConfiguration reads and parses the configuration located at configPath,
// which can either point to a single TOML file or to a directory, in which
// case all *.toml files in this directory are concatenated. It returns a
// Config object.
func ReadConfiguration(configPath string, flagSet *pflag.FlagSet) (*Config, error) {
	cfg := Config{}
	flagSet.SetNormalizeFunc(wordSepNormalizeFunc)
	v := viper.New()
	v.SetDefault("log_level", "INFO")
	v.SetDefault("grace.short_grace_seconds", defaultShortGraceSeconds)
	v.SetDefault("grace.long_grace_seconds", defaultLongGraceSeconds)
	v.SetDefault("janitor.sweep_spec", defaultSweepSpec)
	v.SetDefault("janitor.idle_threshold_minutes", defaultIdleThresholdMinutes)
	v.SetDefault("translation.attempts", defaultAttempts)
	v.SetDefault("translation.base_delay_ms", defaultBaseDelayMillis)
	v.SetDefault("translation.cache_size", defaultCacheSize)
	err := v.BindPFlags(flagSet)
	if err != nil {
		globals.AppLogger.Error("could not bind flags (ignored)", "error", err)
	}
	v.SetEnvPrefix("CROSSTALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if configPath != "" {
		fi, err := os.Stat(configPath)
		if err != nil {
			return nil, err
		}
		contents := make([]byte, 0)
		files := []string{configPath}
		if fi.IsDir() {
			files, err = filepath.Glob(filepath.Join(configPath, "*.toml"))
			if err != nil {
				return nil, err
			}
		}
		for _, configFile := range files {
			fileContents, err := os.ReadFile(configFile)
			if err != nil {
				return nil, err
			}
			contents = append(contents, fileContents...)
			contents = append(contents, '\n')
		}
		v.SetConfigType("toml")
		err = v.ReadConfig(bytes.NewBuffer(contents))
		if err != nil {
			globals.AppLogger.Error("could not read config:", "error", err)
		}
	}
	err = v.Unmarshal(&cfg)
	if err != nil {
		globals.AppLogger.Error("could not unmarshal config:", "error", err)
	}

	globals.AppLogger.Debug("config", "cfg", cfg)
	return &cfg, nil
}
