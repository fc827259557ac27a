package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shopify/sarama"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/vidinfra/docvault/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Store      StoreConfig      `validate:"required"`
	Mongo      MongoConfig
	Kafka      KafkaConfig
	Cache      CacheConfig
	Events     EventsConfig
	Sentry     SentryConfig
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	I18n       I18nConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required,oneof=local api consumer lambda_api lambda_consumer"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type StoreConfig struct {
	Driver types.StoreDriver `validate:"required,oneof=mongo memory"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxRetries     uint64        `mapstructure:"max_retries"`
	// MaxPoolSize of 0 keeps the driver default
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	// Transactions needs a replica set; standalone servers reject them
	Transactions bool `mapstructure:"transactions"`
}

type KafkaConfig struct {
	Brokers       []string             `mapstructure:"brokers"`
	ClientID      string               `mapstructure:"client_id"`
	ConsumerGroup string               `mapstructure:"consumer_group"`
	TLS           bool                 `mapstructure:"tls"`
	UseSASL       bool                 `mapstructure:"use_sasl"`
	SASLMechanism sarama.SASLMechanism `mapstructure:"sasl_mechanism"`
	SASLUser      string               `mapstructure:"sasl_user"`
	SASLPassword  string               `mapstructure:"sasl_password"`
	MaxRetries    uint64               `mapstructure:"max_retries"`
}

type CacheConfig struct {
	Enabled    bool              `mapstructure:"enabled"`
	Driver     types.CacheDriver `mapstructure:"driver"`
	RedisURL   string            `mapstructure:"redis_url"`
	TTL        time.Duration     `mapstructure:"ttl"`
	MaxRetries uint64            `mapstructure:"max_retries"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type I18nConfig struct {
	DefaultLocale string `mapstructure:"default_locale"`
}

func NewConfig() (*Configuration, error) {
	// .env is optional, real deployments pass the environment directly
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/docvault")

	v.SetEnvPrefix("DOCVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults mirrors GetDefaultConfig so env-only deployments still validate
func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()
	v.SetDefault("deployment.mode", d.Deployment.Mode)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("mongo.uri", d.Mongo.URI)
	v.SetDefault("mongo.database", d.Mongo.Database)
	v.SetDefault("mongo.connect_timeout", d.Mongo.ConnectTimeout)
	v.SetDefault("mongo.max_retries", d.Mongo.MaxRetries)
	v.SetDefault("kafka.client_id", d.Kafka.ClientID)
	v.SetDefault("kafka.consumer_group", d.Kafka.ConsumerGroup)
	v.SetDefault("kafka.max_retries", d.Kafka.MaxRetries)
	v.SetDefault("cache.driver", d.Cache.Driver)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.max_retries", d.Cache.MaxRetries)
	v.SetDefault("events.pubsub", d.Events.PubSub)
	v.SetDefault("events.topic", d.Events.Topic)
	v.SetDefault("events.dlq_topic", d.Events.DLQTopic)
	v.SetDefault("events.max_retries", d.Events.MaxRetries)
	v.SetDefault("events.initial_interval", d.Events.InitialInterval)
	v.SetDefault("events.max_interval", d.Events.MaxInterval)
	v.SetDefault("events.multiplier", d.Events.Multiplier)
	v.SetDefault("events.max_elapsed_time", d.Events.MaxElapsedTime)
	v.SetDefault("rate_limit.rps", d.RateLimit.RPS)
	v.SetDefault("rate_limit.burst", d.RateLimit.Burst)
	v.SetDefault("i18n.default_locale", d.I18n.DefaultLocale)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Store.Driver == types.StoreDriverMongo && (c.Mongo.URI == "" || c.Mongo.Database == "") {
		return errors.New("mongo.uri and mongo.database are required for the mongo store driver")
	}
	if c.Cache.Enabled && c.Cache.Driver == types.CacheDriverRedis && c.Cache.RedisURL == "" {
		return errors.New("cache.redis_url is required for the redis cache driver")
	}
	if c.Events.Enabled && c.Events.PubSub == types.KafkaPubSub && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when events are published to kafka")
	}
	return nil
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Store:      StoreConfig{Driver: types.StoreDriverMemory},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "docvault",
			ConnectTimeout: 10 * time.Second,
			MaxRetries:     5,
		},
		Kafka: KafkaConfig{
			ClientID:      "docvault",
			ConsumerGroup: "docvault-audit",
			MaxRetries:    5,
		},
		Cache: CacheConfig{
			Driver:     types.CacheDriverMemory,
			TTL:        30 * time.Minute,
			MaxRetries: 5,
		},
		Events: EventsConfig{
			PubSub:          types.MemoryPubSub,
			Topic:           "audit_events",
			DLQTopic:        "audit_events_dlq",
			MaxRetries:      3,
			InitialInterval: time.Second,
			MaxInterval:     10 * time.Second,
			Multiplier:      2,
			MaxElapsedTime:  time.Minute,
		},
		RateLimit: RateLimitConfig{RPS: 50, Burst: 100},
		I18n:      I18nConfig{DefaultLocale: "en"},
	}
}

// GetSaramaConfig builds the sarama client config shared by the kafka
// publisher and subscriber
func (c KafkaConfig) GetSaramaConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V2_1_0_0
	saramaConfig.ClientID = c.ClientID

	// start from the earliest offset when the group has no committed offset
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = 5 * time.Second
	saramaConfig.Consumer.Offsets.Retry.Max = 3

	if c.TLS {
		saramaConfig.Net.TLS.Enable = true
		saramaConfig.Net.TLS.Config = &tls.Config{}
	}

	if !c.UseSASL {
		return saramaConfig
	}

	saramaConfig.Net.SASL.Enable = true
	saramaConfig.Net.TLS.Enable = true
	saramaConfig.Net.SASL.Mechanism = c.SASLMechanism
	saramaConfig.Net.SASL.User = c.SASLUser
	saramaConfig.Net.SASL.Password = c.SASLPassword

	return saramaConfig
}
