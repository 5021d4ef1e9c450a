package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Collector CollectorConfig `mapstructure:"collector"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Search    SearchConfig    `mapstructure:"search"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// DSN returns the pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	Database      int    `mapstructure:"database"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	MinIdleTime   int    `mapstructure:"min_idle_time"`
	MaxDeliveries int    `mapstructure:"max_deliveries"`
}

type LocaleConfig struct {
	ID   int64  `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// CollectorConfig controls how collection runs are executed
type CollectorConfig struct {
	Locales                   []LocaleConfig `mapstructure:"locales"`
	BatchSize                 int            `mapstructure:"batch_size"`
	Workers                   int            `mapstructure:"workers"`
	DefaultPriceType          string         `mapstructure:"default_price_type"`
	IncludeAncestorCategories bool           `mapstructure:"include_ancestor_categories"`
	MaxRetries                int            `mapstructure:"max_retries"`
}

// StorageConfig controls the key/value document sink
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// SearchConfig controls the search bulk sink
type SearchConfig struct {
	Enabled              bool     `mapstructure:"enabled"`
	Hosts                []string `mapstructure:"hosts"`
	IndexName            string   `mapstructure:"index_name"`
	Timeout              int      `mapstructure:"timeout"`
	MaxRequestsPerSecond int      `mapstructure:"max_requests_per_second"`
	ThrottleDelay        int      `mapstructure:"throttle_delay"`
}

// Load loads config.yaml from the working directory with environment variable overrides
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom loads config.yaml from dir with environment variable overrides
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("config.yaml file not found in %s", dir)
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if len(c.Collector.Locales) == 0 {
		return errors.New("collector.locales must list at least one locale")
	}
	for _, l := range c.Collector.Locales {
		if l.ID <= 0 || l.Name == "" {
			return fmt.Errorf("invalid locale %+v: id and name are required", l)
		}
	}
	if c.Collector.BatchSize <= 0 {
		return fmt.Errorf("collector.batch_size must be positive, got %d", c.Collector.BatchSize)
	}
	if c.Collector.Workers <= 0 {
		return fmt.Errorf("collector.workers must be positive, got %d", c.Collector.Workers)
	}
	if !c.Storage.Enabled && !c.Search.Enabled {
		return errors.New("at least one of storage.enabled or search.enabled must be set")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "DE_development_zed")
	v.SetDefault("database.user", "development")
	v.SetDefault("database.password", "")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.consumer_group", "collector_consumer")
	v.SetDefault("redis.min_idle_time", 120)
	v.SetDefault("redis.max_deliveries", 5)

	v.SetDefault("collector.batch_size", 500)
	v.SetDefault("collector.workers", 4)
	v.SetDefault("collector.default_price_type", "DEFAULT")
	v.SetDefault("collector.include_ancestor_categories", false)
	v.SetDefault("collector.max_retries", 3)

	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.key_prefix", "kv:")

	v.SetDefault("search.enabled", false)
	v.SetDefault("search.hosts", []string{"http://localhost:9200"})
	v.SetDefault("search.index_name", "de_search")
	v.SetDefault("search.timeout", 30)
	v.SetDefault("search.max_requests_per_second", 20)
	v.SetDefault("search.throttle_delay", 60)
}
