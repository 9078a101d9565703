package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// FlowEvent is one discovery-flow lifecycle record shipped to Kafka for
// offline analysis of acceptance rates and assignment latency.
type FlowEvent struct {
	UniqueKey   string    `json:"unique_key"`
	Kind        string    `json:"kind"` // started, poll, assigned, partial_failure
	OrderID     string    `json:"order_id,omitempty"`
	RiderID     string    `json:"rider_id,omitempty"`
	Acceptances int       `json:"acceptances,omitempty"`
	At          time.Time `json:"at"`
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &KafkaPublisher{writer: w}
}

// PublishFlowEvent is nil-safe so callers can hold an unconfigured publisher.
func (k *KafkaPublisher) PublishFlowEvent(e FlowEvent) error {
	if k == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, _ := json.Marshal(e)
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(e.UniqueKey), Value: b})
}

func (k *KafkaPublisher) Close() error {
	if k == nil || k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
