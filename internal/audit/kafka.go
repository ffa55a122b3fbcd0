package audit

import (
	"context"

	"trustcheck/internal/platform/kafka/producer"
)

// KafkaSink publishes audit events through the shared topic producer.
type KafkaSink struct {
	producer *producer.Producer
}

func NewKafkaSink(p *producer.Producer) *KafkaSink {
	return &KafkaSink{producer: p}
}

func (s *KafkaSink) Publish(ctx context.Context, key, payload []byte, done func(error)) {
	s.producer.Produce(ctx, key, payload, done)
}
