package cfgmng

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

type options struct {
	envPrefix string
	defaults  map[string]any
	optional  bool
}

// Option tunes how a configuration is loaded
type Option func(o *options)

// WithEnvPrefix scopes environment overrides, e.g. UNDELETABLE_DATABASE_DSN
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// WithDefaults registers default values. Only keys known from the file or
// from defaults can be overridden through the environment.
func WithDefaults(defaults map[string]any) Option {
	return func(o *options) {
		o.defaults = defaults
	}
}

// Optional makes a missing config file non-fatal
func Optional() Option {
	return func(o *options) {
		o.optional = true
	}
}

// LoadConfig reads path/filename.yaml into T. Nested keys can be overridden
// from the environment with "." replaced by "_".
func LoadConfig[T any](path string, filename string, opts ...Option) (*T, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(filename)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range o.defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !o.optional || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg T
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
