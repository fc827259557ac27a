package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/kafka"
	"github.com/vidinfra/docvault/internal/logger"
)

// TestKafkaConnection connects with the configured brokers and credentials
// and lists the topics it can see
func TestKafkaConnection() error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	monitor := kafka.NewMonitoringService(cfg, log)
	if err := monitor.Ping(ctx); err != nil {
		return err
	}

	saramaConfig := cfg.Kafka.GetSaramaConfig()
	saramaConfig.Net.DialTimeout = 10 * time.Second
	saramaConfig.Net.ReadTimeout = 10 * time.Second
	saramaConfig.Net.WriteTimeout = 10 * time.Second

	client, err := sarama.NewClient(cfg.Kafka.Brokers, saramaConfig)
	if err != nil {
		return fmt.Errorf("error creating client: %v", err)
	}
	defer client.Close()

	topics, err := client.Topics()
	if err != nil {
		return fmt.Errorf("error listing topics: %v", err)
	}

	fmt.Printf("Successfully connected! Available topics: %v\n", topics)
	for _, topic := range []string{cfg.Events.Topic, cfg.Events.DLQTopic} {
		lag, err := monitor.GetConsumerLag(ctx, topic, cfg.Kafka.ConsumerGroup)
		if err != nil {
			fmt.Printf("  %s: lag unavailable (%v)\n", topic, err)
			continue
		}
		fmt.Printf("  %s: consumer group %s is %d messages behind\n", topic, lag.ConsumerGroup, lag.TotalLag)
	}
	return nil
}
