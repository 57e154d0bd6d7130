package mq

import (
	"context"
	"fmt"
	"os"
	"time"

	"hydra-fanout-sol/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const (
	defaultBatchSize  = 16 * 1024
	defaultLingerMs   = 5
	defaultPartitions = 1
)

type KafkaProducerOption struct {
	Brokers    string // Kafka broker 地址，多个用英文逗号分隔（如 "localhost:9092,localhost:9093"）
	Topic      string // 分账结果 topic
	Partitions int    // topic 不存在时按该分区数创建；已存在时以实际分区数为准
	BatchSize  int    // 批处理大小（单位字节）
	LingerMs   int    // 批处理最大延迟（毫秒）
}

// NewKafkaProducer 创建 Kafka 生产者，topic 不存在时自动创建。
// 第二个返回值是 topic 的实际分区数，消息分区必须在这个范围内
func NewKafkaProducer(cfg KafkaProducerOption) (*kafka.Producer, int, error) {
	partitions, err := ensureTopic(cfg)
	if err != nil {
		return nil, 0, err
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	lingerMs := cfg.LingerMs
	if lingerMs < 0 {
		lingerMs = defaultLingerMs
	}

	host, _ := os.Hostname()
	if host == "" {
		host = "unknown"
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"client.id":         fmt.Sprintf("hydra-fanout-%s", host),

		// 可靠性保障
		"acks":               "all",
		"enable.idempotence": true,

		// 超时与重试（仅 Kafka 投递层面，与链上交易无关）
		"delivery.timeout.ms": 30000,
		"request.timeout.ms":  30000,
		"retries":             5,
		"retry.backoff.ms":    100,

		"batch.size":       batchSize,
		"linger.ms":        lingerMs,
		"compression.type": "none",
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create producer: %w", err)
	}
	return producer, partitions, nil
}

// existingPartitions 返回已存在 topic 的分区数，topic 不存在时 ok 为 false
func existingPartitions(meta *kafka.Metadata, topic string) (n int, ok bool) {
	if meta == nil {
		return 0, false
	}
	tm, ok := meta.Topics[topic]
	if !ok || tm.Error.Code() == kafka.ErrUnknownTopicOrPart || len(tm.Partitions) == 0 {
		return 0, false
	}
	return len(tm.Partitions), true
}

func ensureTopic(cfg KafkaProducerOption) (int, error) {
	adminClient, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create admin client: %w", err)
	}
	defer adminClient.Close()

	meta, err := adminClient.GetMetadata(nil, true, 10000)
	if err != nil {
		return 0, fmt.Errorf("failed to get metadata: %w", err)
	}
	if n, ok := existingPartitions(meta, cfg.Topic); ok {
		if cfg.Partitions > 0 && cfg.Partitions != n {
			logger.Warnf("[mq] topic %s 已存在，实际分区数 %d 与配置 %d 不一致，按实际分区数发送", cfg.Topic, n, cfg.Partitions)
		}
		return n, nil
	}

	// replicationFactor 是 Kafka 主题中每个分区副本的数量
	replicationFactor := 1
	if len(meta.Brokers) > 1 {
		replicationFactor = 2
	}
	partitions := cfg.Partitions
	if partitions <= 0 {
		partitions = defaultPartitions
	}
	logger.Infof("[mq] 创建 topic %s, partitions=%d, replication=%d", cfg.Topic, partitions, replicationFactor)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	results, err := adminClient.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             cfg.Topic,
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
	}})
	if err != nil {
		return 0, fmt.Errorf("failed to create topic %s: %w", cfg.Topic, err)
	}
	for _, result := range results {
		switch code := result.Error.Code(); code {
		case kafka.ErrNoError:
		case kafka.ErrTopicAlreadyExists:
			// 并发创建，重新读取实际分区数
			meta, err = adminClient.GetMetadata(&cfg.Topic, false, 10000)
			if err != nil {
				return 0, fmt.Errorf("failed to get metadata: %w", err)
			}
			if n, ok := existingPartitions(meta, cfg.Topic); ok {
				return n, nil
			}
		default:
			return 0, fmt.Errorf("failed to create topic %s: %w", result.Topic, result.Error)
		}
	}
	return partitions, nil
}
