package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// KafkaNotifier publishes alert events to a Kafka topic consumed by the
// messaging transport. Events are keyed by user so one user's alerts stay
// ordered.
type KafkaNotifier struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

func NewKafkaNotifier(brokers []string, topic string, logger *logrus.Logger) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
		BatchTimeout: 10 * time.Millisecond,
	}

	logger.WithField("topic", topic).Info("Kafka alert producer initialized")

	return &KafkaNotifier{
		writer: writer,
		logger: logger,
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Time:  event.At,
	}

	if err := n.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to publish alert event: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"user_id":        event.UserID,
		"coin_id":        event.Symbol,
		"change_percent": event.ChangePercent.String(),
	}).Info("Published price fluctuation alert")
	return nil
}

func (n *KafkaNotifier) Close() error {
	if n.writer != nil {
		n.logger.Info("Closing Kafka alert producer")
		return n.writer.Close()
	}
	return nil
}
