package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/levtrader/internal/logger"
)

const EnvPrefix = "LEVTRADER"

// legacyEnv maps config keys to the unprefixed variables older .env files
// use. The prefixed form wins when both are set.
var legacyEnv = map[string]string{
	"llm.api_key":             "DASHSCOPE_API_KEY",
	"account.initial_capital": "INITIAL_CAPITAL",
	"account.max_leverage":    "MAX_LEVERAGE",
	"cadence.interval":        "DECISION_INTERVAL",
}

// optionalKeys are omitted from the defaults document when empty, so
// AutomaticEnv would not see them.
var optionalKeys = []string{
	"log.file",
	"journal.trades_file",
	"journal.equity_file",
	"journal.db_path",
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Load builds a Config. path may be empty, in which case only defaults and
// the environment apply. A .env file in the working directory is loaded
// first if present; it never overrides variables already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warnf("config: ignoring .env: %v", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	defaults, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("marshal defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("read defaults: %w", err)
	}

	if path = strings.TrimSpace(path); path != "" {
		if err := mergeConfigFile(v, path); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range optionalKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, envName(key), legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	for i, s := range cfg.Trading.Symbols {
		cfg.Trading.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	tmp := viper.New()
	tmp.SetConfigFile(path)
	if err := tmp.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(tmp.AllSettings())
}

// Watch reloads path whenever it changes and hands each valid result to fn.
// Invalid edits are logged and skipped. The watch lasts for the life of
// the process.
func Watch(path string, fn func(*Config)) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		cfg, err := Load(path)
		if err != nil {
			logger.Errorf("config reload failed (%s): %v", evt.Name, err)
			return
		}
		logger.Infof("config reloaded from %s", evt.Name)
		fn(cfg)
	})
	v.WatchConfig()
	return nil
}
