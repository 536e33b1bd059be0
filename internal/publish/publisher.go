// Package publish sends computed vertical profiles to a Kafka topic.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/bmvandoren/vol2bird/internal/profile"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces one message per profile. Messages are keyed by radar
// source so profiles of one radar land on the same partition.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a Kafka producer for topic.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w}, nil
}

// Publish serializes vp and writes it to the topic.
func (p *Publisher) Publish(ctx context.Context, vp *profile.VerticalProfile) error {
	msg, err := serializeToMessage(vp)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish profile: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Message is the JSON value of a published profile.
type Message struct {
	profile.Metadata
	Settings profile.Settings `json:"settings"`
	Summary  profile.Summary  `json:"summary"`
	Layers   []profile.Layer  `json:"layers"`
}

func serializeToMessage(vp *profile.VerticalProfile) (kafkago.Message, error) {
	data, err := json.Marshal(Message{
		Metadata: vp.Metadata,
		Settings: vp.Settings,
		Summary:  vp.Summary(),
		Layers:   vp.Layers(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize profile: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(vp.Metadata.Source),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "volume_date", Value: []byte(vp.Metadata.Date)},
			{Key: "volume_time", Value: []byte(vp.Metadata.Time)},
		},
	}, nil
}
