package report

import (
	"context"
	"fmt"
	"time"

	"hydra-fanout-sol/internal/mq"
	"hydra-fanout-sol/internal/utils"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"google.golang.org/protobuf/types/known/structpb"
)

// EventPayoutOutcome Kafka 消息前 4 字节的事件类型
const EventPayoutOutcome uint32 = 1

const defaultSendTimeout = 5 * time.Second

// KafkaSink 每个条目一条消息，按 voucher 地址分区
type KafkaSink struct {
	producer    *kafka.Producer
	topic       string
	partitions  int
	sendTimeout time.Duration
}

func NewKafkaSink(opt mq.KafkaProducerOption, sendTimeout time.Duration) (*KafkaSink, error) {
	producer, partitions, err := mq.NewKafkaProducer(opt)
	if err != nil {
		return nil, err
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &KafkaSink{
		producer:    producer,
		topic:       opt.Topic,
		partitions:  partitions,
		sendTimeout: sendTimeout,
	}, nil
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Publish(ctx context.Context, s *Summary) error {
	jobs, err := BuildKafkaJobs(s, k.topic, k.partitions)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	_, failed := mq.SendKafkaJobs(ctx, k.producer, jobs, k.sendTimeout)
	if len(failed) > 0 {
		return fmt.Errorf("%d/%d messages failed, first: %w", len(failed), len(jobs), failed[0].Err)
	}
	return nil
}

func (k *KafkaSink) Close() {
	if k.producer != nil {
		k.producer.Close()
	}
}

// BuildKafkaJobs 把 summary 拆成逐条消息：key 为条目主地址，value 为带类型前缀的 protobuf Struct
func BuildKafkaJobs(s *Summary, topic string, partitions int) ([]*mq.KafkaJob, error) {
	jobs := make([]*mq.KafkaJob, 0, len(s.Items))
	for _, it := range s.Items {
		msg, err := itemStruct(s.RunID, it)
		if err != nil {
			return nil, fmt.Errorf("encode item %s: %w", it.Subject(), err)
		}
		value, err := utils.EncodeEvent(EventPayoutOutcome, msg)
		if err != nil {
			return nil, err
		}
		subject := it.Subject()
		jobs = append(jobs, &mq.KafkaJob{
			Topic:     topic,
			Partition: utils.PartitionOf(subject, partitions),
			Key:       []byte(subject.String()),
			Value:     value,
		})
	}
	return jobs, nil
}

func itemStruct(runID string, it ItemResult) (*structpb.Struct, error) {
	provisioned := make([]interface{}, 0, len(it.Provisioned))
	for _, p := range it.Provisioned {
		provisioned = append(provisioned, p.String())
	}
	return structpb.NewStruct(map[string]interface{}{
		"run_id":      runID,
		"level":       string(it.Level),
		"status":      string(it.Status),
		"fanout":      it.Fanout.String(),
		"fanout_mint": it.FanoutMint.String(),
		"mint":        it.Mint.String(),
		"voucher":     it.Voucher.String(),
		"member":      it.Member.String(),
		"reason":      it.Reason,
		"signature":   it.Signature,
		"provisioned": provisioned,
	})
}
