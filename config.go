package toolbind

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// RegistryConfig holds Registry settings loaded from configuration files or the environment.
type RegistryConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	RecoverPanics  bool          `mapstructure:"recover_panics"`
}

// DefaultRegistryConfig returns the settings NewRegistry uses without options.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		Timeout:        5 * time.Second,
		MaxConcurrency: 10,
		RecoverPanics:  true,
	}
}

// LoadRegistryConfig reads the registry section under key from v. Missing keys keep
// their defaults; a nil v falls back to the global viper instance.
func LoadRegistryConfig(v *viper.Viper, key string) (RegistryConfig, error) {
	if v == nil {
		v = viper.GetViper()
	}
	def := DefaultRegistryConfig()
	v.SetDefault(key+".timeout", def.Timeout)
	v.SetDefault(key+".max_concurrency", def.MaxConcurrency)
	v.SetDefault(key+".recover_panics", def.RecoverPanics)

	cfg := def
	if err := v.UnmarshalKey(key, &cfg); err != nil {
		return RegistryConfig{}, fmt.Errorf("load registry config %q: %w", key, err)
	}
	if cfg.Timeout < 0 {
		return RegistryConfig{}, invalidArgumentf("%s.timeout must not be negative, got %v", key, cfg.Timeout)
	}
	return cfg, nil
}

// Options converts the config into registry options, ready for NewRegistry.
func (c RegistryConfig) Options() []RegistryOption {
	return []RegistryOption{
		WithDefaultTimeout(c.Timeout),
		WithMaxConcurrency(c.MaxConcurrency),
		WithRecoverPanics(c.RecoverPanics),
	}
}
