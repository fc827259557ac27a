package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidinfra/docvault/internal/types"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, GetDefaultConfig().Validate())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Configuration)
		wantErr bool
	}{
		{
			name:   "memory store needs no mongo settings",
			mutate: func(c *Configuration) { c.Mongo = MongoConfig{} },
		},
		{
			name: "mongo store without uri",
			mutate: func(c *Configuration) {
				c.Store.Driver = types.StoreDriverMongo
				c.Mongo.URI = ""
			},
			wantErr: true,
		},
		{
			name: "redis cache without url",
			mutate: func(c *Configuration) {
				c.Cache.Enabled = true
				c.Cache.Driver = types.CacheDriverRedis
			},
			wantErr: true,
		},
		{
			name: "kafka events without brokers",
			mutate: func(c *Configuration) {
				c.Events.Enabled = true
				c.Events.PubSub = types.KafkaPubSub
			},
			wantErr: true,
		},
		{
			name: "enabled events without topic",
			mutate: func(c *Configuration) {
				c.Events.Enabled = true
				c.Events.Topic = ""
			},
			wantErr: true,
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Configuration) { c.Deployment.Mode = "batch" },
			wantErr: true,
		},
		{
			name:   "lambda api mode",
			mutate: func(c *Configuration) { c.Deployment.Mode = types.ModeAWSLambdaAPI },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewConfigReadsFileAndEnv(t *testing.T) {
	t.Setenv("DOCVAULT_SERVER_ADDRESS", ":9090")
	t.Setenv("DOCVAULT_EVENTS_MAX_RETRIES", "7")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 7, cfg.Events.MaxRetries)
	assert.Equal(t, "docvault", cfg.Mongo.Database)
	assert.Equal(t, types.StoreDriverMongo, cfg.Store.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "audit_events_dlq", cfg.Events.DLQTopic)
	assert.Equal(t, []string{"localhost:29092"}, cfg.Kafka.Brokers)
}

func TestGetSaramaConfig(t *testing.T) {
	cfg := KafkaConfig{ClientID: "docvault", UseSASL: true, SASLUser: "u", SASLPassword: "p"}
	sc := cfg.GetSaramaConfig()

	assert.Equal(t, "docvault", sc.ClientID)
	assert.True(t, sc.Net.SASL.Enable)
	assert.True(t, sc.Net.TLS.Enable)
	assert.Equal(t, "u", sc.Net.SASL.User)
}
