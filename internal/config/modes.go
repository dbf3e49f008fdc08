package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ModesConfig carries operator-tunable knobs for the operational-mode store.
// The peak demand TTL is a product setting, not a constant: peak mode has no
// natural end time, so how long an activation stays live without a manual
// toggle belongs to the deployment, not the code.
type ModesConfig struct {
	PeakDemandTTLMinutes int    `mapstructure:"peakDemandTTLMinutes"`
	Timezone             string `mapstructure:"timezone"`
}

func DefaultModesConfig() ModesConfig {
	return ModesConfig{
		PeakDemandTTLMinutes: 24 * 60,
		Timezone:             "UTC",
	}
}

func (c ModesConfig) PeakDemandTTL() time.Duration {
	return time.Duration(c.PeakDemandTTLMinutes) * time.Minute
}

// Location resolves the configured timezone, falling back to UTC.
func (c ModesConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}

// ModesConfigHolder serves the current ModesConfig and hot-reloads it when
// the backing file changes.
type ModesConfigHolder struct {
	current atomic.Value // holds ModesConfig
}

func NewModesConfigHolder(log *zap.Logger) (*ModesConfigHolder, error) {
	log = log.Named("modes.config")
	v := viper.New()

	v.SetConfigName("modes")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/comanda/config") // Volume-mounted config
	v.AddConfigPath("/etc/comanda")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("COMANDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultModesConfig()
	v.SetDefault("modes.peakDemandTTLMinutes", defaults.PeakDemandTTLMinutes)
	v.SetDefault("modes.timezone", defaults.Timezone)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg ModesConfig
	if err := v.UnmarshalKey("modes", &cfg); err != nil {
		return nil, err
	}
	if err := validateModesConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ModesConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ModesConfig
		if err := v.UnmarshalKey("modes", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateModesConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticModesConfigHolder returns a holder pinned to the given config.
// Used by tests.
func NewStaticModesConfigHolder(cfg ModesConfig) *ModesConfigHolder {
	holder := &ModesConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *ModesConfigHolder) Get() ModesConfig {
	return h.current.Load().(ModesConfig)
}

func validateModesConfig(cfg ModesConfig) error {
	if cfg.PeakDemandTTLMinutes <= 0 {
		return errors.New("modes.peakDemandTTLMinutes must be positive")
	}
	if _, err := time.LoadLocation(strings.TrimSpace(cfg.Timezone)); err != nil {
		return errors.New("modes.timezone is not a valid IANA timezone")
	}
	return nil
}
