package admin

import (
	"time"

	"github.com/seb7887/gofw/cfgmng"
	"github.com/seb7887/gofw/undeletable"
)

type Config struct {
	Database struct {
		DSN   string `mapstructure:"dsn"`
		Table string `mapstructure:"table"`
	} `mapstructure:"database"`
	Log struct {
		Level  string `mapstructure:"level"`
		Pretty bool   `mapstructure:"pretty"`
	} `mapstructure:"log"`
	Redis struct {
		Addr   string        `mapstructure:"addr"`
		DB     int           `mapstructure:"db"`
		Prefix string        `mapstructure:"prefix"`
		TTL    time.Duration `mapstructure:"ttl"`
	} `mapstructure:"redis"`
	NATS struct {
		URL   string `mapstructure:"url"`
		Topic string `mapstructure:"topic"`
	} `mapstructure:"nats"`
	Undeletable undeletable.Config `mapstructure:"undeletable"`
}

var defaults = map[string]any{
	"database.dsn":           "postgres://root@localhost:26257/defaultdb?sslmode=disable",
	"database.table":         "records",
	"log.level":              "info",
	"log.pretty":             false,
	"redis.addr":             "",
	"redis.db":               0,
	"redis.prefix":           "undeletable",
	"redis.ttl":              "5m",
	"nats.url":               "",
	"nats.topic":             "undeletable.deleted",
	"undeletable.bulk_hooks": false,
}

// LoadConfig reads dir/undeletable.yaml when present. Every key can be
// overridden with an UNDELETABLE_ prefixed variable, e.g. UNDELETABLE_DATABASE_DSN.
func LoadConfig(dir string) (*Config, error) {
	return cfgmng.LoadConfig[Config](dir, "undeletable",
		cfgmng.WithEnvPrefix("undeletable"),
		cfgmng.WithDefaults(defaults),
		cfgmng.Optional(),
	)
}
