package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CarrierConfig describes one carrier's live adapter settings.
type CarrierConfig struct {
	Name         string        `mapstructure:"name"`
	Adapter      string        `mapstructure:"adapter"`
	BaseURL      string        `mapstructure:"baseUrl"`
	APIKey       string        `mapstructure:"apiKey"`
	Enabled      bool          `mapstructure:"enabled"`
	RateLimitRPS float64       `mapstructure:"rateLimitRps"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// SyncConfig controls the periodic carrier sync job.
type SyncConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	WindowDays int           `mapstructure:"windowDays"`
}

type CarriersConfig struct {
	Sync     SyncConfig      `mapstructure:"sync"`
	Carriers []CarrierConfig `mapstructure:"carriers"`
}

func DefaultCarriersConfig() CarriersConfig {
	return CarriersConfig{
		Sync: SyncConfig{
			Interval:   15 * time.Minute,
			WindowDays: 45,
		},
	}
}

// Find returns the config for a carrier by case-insensitive name match.
func (c CarriersConfig) Find(name string) (CarrierConfig, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, carrier := range c.Carriers {
		if strings.ToUpper(strings.TrimSpace(carrier.Name)) == name {
			return carrier, true
		}
	}
	return CarrierConfig{}, false
}

func (c CarriersConfig) Enabled() []CarrierConfig {
	enabled := make([]CarrierConfig, 0, len(c.Carriers))
	for _, carrier := range c.Carriers {
		if carrier.Enabled {
			enabled = append(enabled, carrier)
		}
	}
	return enabled
}

// CarrierConfigHolder serves the current carriers.yml contents and hot-reloads
// on file change so credentials can rotate without a restart.
type CarrierConfigHolder struct {
	current atomic.Value // holds CarriersConfig
}

func NewCarrierConfigHolder(cfg Config) (*CarrierConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("carriers")
	v.SetConfigType("yml")
	if cfg.CarrierConfigPath != "" {
		v.AddConfigPath(cfg.CarrierConfigPath)
	}
	v.AddConfigPath("/var/lib/boxlane/config") // Volume-mounted config
	v.AddConfigPath("/etc/boxlane")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("BOXLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultCarriersConfig()
		v.SetDefault("sync.interval", defaults.Sync.Interval)
		v.SetDefault("sync.windowDays", defaults.Sync.WindowDays)
	}

	var parsed CarriersConfig
	if err := v.Unmarshal(&parsed); err != nil {
		return nil, err
	}
	parsed = withSyncDefaults(parsed)
	if err := validateCarriersConfig(parsed); err != nil {
		return nil, err
	}

	holder := &CarrierConfigHolder{}
	holder.current.Store(parsed)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CarriersConfig
		if err := v.Unmarshal(&updated); err != nil {
			log.Printf("[carrier-config] reload failed: %v", err)
			return
		}
		updated = withSyncDefaults(updated)
		if err := validateCarriersConfig(updated); err != nil {
			log.Printf("[carrier-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[carrier-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticCarrierConfigHolder serves a fixed config with no file watching.
func NewStaticCarrierConfigHolder(cfg CarriersConfig) *CarrierConfigHolder {
	holder := &CarrierConfigHolder{}
	holder.current.Store(withSyncDefaults(cfg))
	return holder
}

func (h *CarrierConfigHolder) Get() CarriersConfig {
	return h.current.Load().(CarriersConfig)
}

func withSyncDefaults(cfg CarriersConfig) CarriersConfig {
	defaults := DefaultCarriersConfig()
	if cfg.Sync.Interval <= 0 {
		cfg.Sync.Interval = defaults.Sync.Interval
	}
	if cfg.Sync.WindowDays <= 0 {
		cfg.Sync.WindowDays = defaults.Sync.WindowDays
	}
	return cfg
}

func validateCarriersConfig(cfg CarriersConfig) error {
	for _, carrier := range cfg.Carriers {
		if strings.TrimSpace(carrier.Name) == "" {
			return errors.New("carriers[].name cannot be empty")
		}
		if strings.TrimSpace(carrier.Adapter) == "" {
			return errors.New("carriers[].adapter cannot be empty")
		}
	}
	return nil
}
