package undeletable

// Config is the file/env shape of provider settings, loadable with cfgmng
type Config struct {
	// BulkHooks fires delete hooks for every row of a scope level soft
	// delete. The rows are materialised first.
	BulkHooks bool `mapstructure:"bulk_hooks" yaml:"bulk_hooks"`
	// Ordering overrides the default ordering, e.g. ["-modified_at"]
	Ordering []string `mapstructure:"ordering" yaml:"ordering"`
}

func (c Config) Options() []Option {
	opts := []Option{WithBulkHooks(c.BulkHooks)}
	if len(c.Ordering) > 0 {
		opts = append(opts, WithOrdering(c.Ordering...))
	}
	return opts
}
