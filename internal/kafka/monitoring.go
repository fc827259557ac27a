package kafka

import (
	"context"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/logger"
)

// ConsumerLag is how far a consumer group trails the head of a topic
type ConsumerLag struct {
	Topic         string          `json:"topic"`
	ConsumerGroup string          `json:"consumer_group"`
	TotalLag      int64           `json:"total_lag"`
	PartitionLags map[int32]int64 `json:"partition_lags"`
}

// MonitoringService answers broker health and audit consumer lag questions
type MonitoringService struct {
	config *config.Configuration
	logger *logger.Logger
}

func NewMonitoringService(cfg *config.Configuration, log *logger.Logger) *MonitoringService {
	return &MonitoringService{
		config: cfg,
		logger: log,
	}
}

// Ping succeeds when at least one configured broker accepts a connection
func (m *MonitoringService) Ping(ctx context.Context) error {
	client, err := sarama.NewClient(m.config.Kafka.Brokers, m.config.Kafka.GetSaramaConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to kafka: %w", err)
	}
	defer client.Close()

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(client.Brokers()) == 0 {
		return fmt.Errorf("no kafka brokers available")
	}
	return nil
}

// GetConsumerLag sums, per partition, the distance between the newest offset
// and the group's committed offset. Partitions without a committed offset
// count in full.
func (m *MonitoringService) GetConsumerLag(ctx context.Context, topic string, consumerGroup string) (*ConsumerLag, error) {
	saramaConfig := m.config.Kafka.GetSaramaConfig()
	saramaConfig.Consumer.Return.Errors = true

	admin, err := sarama.NewClusterAdmin(m.config.Kafka.Brokers, saramaConfig)
	if err != nil {
		m.logger.Errorw("failed to create kafka admin client",
			"error", err,
			"brokers", m.config.Kafka.Brokers)
		return nil, fmt.Errorf("failed to create kafka admin client: %w", err)
	}
	defer admin.Close()

	client, err := sarama.NewClient(m.config.Kafka.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	defer client.Close()

	partitions, err := client.Partitions(topic)
	if err != nil {
		return nil, fmt.Errorf("failed to get partitions for topic %s: %w", topic, err)
	}

	offsets, err := admin.ListConsumerGroupOffsets(consumerGroup, map[string][]int32{
		topic: partitions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list consumer group offsets: %w", err)
	}

	lag := &ConsumerLag{
		Topic:         topic,
		ConsumerGroup: consumerGroup,
		PartitionLags: make(map[int32]int64, len(partitions)),
	}

	for _, partition := range partitions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		latest, err := client.GetOffset(topic, partition, sarama.OffsetNewest)
		if err != nil {
			m.logger.Warnw("failed to get latest offset for partition",
				"error", err,
				"topic", topic,
				"partition", partition)
			continue
		}

		committed := int64(-1)
		if block := offsets.GetBlock(topic, partition); block != nil {
			committed = block.Offset
		}

		partitionLag := partitionLag(latest, committed)
		lag.PartitionLags[partition] = partitionLag
		lag.TotalLag += partitionLag
	}

	m.logger.Debugw("consumer lag calculated",
		"topic", topic,
		"consumer_group", consumerGroup,
		"total_lag", lag.TotalLag,
		"partitions", len(partitions))

	return lag, nil
}

func partitionLag(latest, committed int64) int64 {
	if committed < 0 {
		committed = 0
	}
	if latest <= committed {
		return 0
	}
	return latest - committed
}
