package config

import (
	"time"

	"gopkg.in/yaml.v3"
	"os"
)

type Config interface {
}

// ExtractorConfig controls the feed sweep side of the pipeline.
type ExtractorConfig struct {
	FeedRoot     string        `yaml:"feed_root"`
	QueueName    string        `yaml:"queue_name"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ConsumerConfig controls the apply side of the pipeline.
type ConsumerConfig struct {
	QueueName    string        `yaml:"queue_name"`
	DLQName      string        `yaml:"dlq_name"`
	Workers      int           `yaml:"workers"`
	BatchSize    int           `yaml:"batch_size"`
	WriteRate    float64       `yaml:"write_rate"`
	LeaseTimeout time.Duration `yaml:"lease_timeout"`
}

type APIConfig struct {
	Port string `yaml:"port"`
}

type AppConfig struct {
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Consumer  ConsumerConfig  `yaml:"consumer"`
	API       APIConfig       `yaml:"api"`
}

func LoadConfig(filename string) (*AppConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	config := &AppConfig{}
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return config, nil
}

// DefaultConfig is the env-only fallback used when no yaml file is present.
func DefaultConfig() *AppConfig {
	config := &AppConfig{
		Postgres: *GetPostgresConfig(),
		Redis:    *GetRedisConfig(),
	}
	config.applyDefaults()
	return config
}

func (c *AppConfig) applyDefaults() {
	if c.Extractor.FeedRoot == "" {
		c.Extractor.FeedRoot = getEnv("FEED_ROOT", "./data/feeds")
	}
	if c.Extractor.QueueName == "" {
		c.Extractor.QueueName = "price-envelopes"
	}
	if c.Extractor.PollInterval <= 0 {
		c.Extractor.PollInterval = 30 * time.Second
	}
	if c.Consumer.QueueName == "" {
		c.Consumer.QueueName = c.Extractor.QueueName
	}
	if c.Consumer.DLQName == "" {
		c.Consumer.DLQName = c.Consumer.QueueName + "-dlq"
	}
	if c.Consumer.Workers <= 0 {
		c.Consumer.Workers = 4
	}
	if c.Consumer.BatchSize <= 0 {
		c.Consumer.BatchSize = 10
	}
	if c.Consumer.WriteRate <= 0 {
		c.Consumer.WriteRate = 200
	}
	if c.Consumer.LeaseTimeout <= 0 {
		c.Consumer.LeaseTimeout = 2 * time.Minute
	}
	if c.API.Port == "" {
		c.API.Port = getEnv("API_PORT", "8081")
	}
	if c.Postgres.Host == "" {
		c.Postgres = *GetPostgresConfig()
	}
	if c.Redis.Addr == "" {
		c.Redis = *GetRedisConfig()
	}
}
