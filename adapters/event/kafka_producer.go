package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/portfolio-delivery/internal/application/service"
	"github.com/khoahotran/portfolio-delivery/internal/config"
	"github.com/khoahotran/portfolio-delivery/pkg/logger"
)

const (
	TopicResumeEvents  = "resume.events"
	TopicProfileEvents = "profile.events"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducerClient struct {
	ResumeEventsWriter  messageWriter
	ProfileEventsWriter messageWriter
	logger              logger.Logger
}

func NewKafkaProducerClient(cfg config.Config, log logger.Logger) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	// writer 'resume.events'
	resumeWriter := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicResumeEvents,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}

	// writer 'profile.events'
	profileWriter := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicProfileEvents,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}

	log.Info("Initialize Kafka Producers successfully.", zap.Strings("brokers", brokers))

	return &KafkaProducerClient{
		ResumeEventsWriter:  resumeWriter,
		ProfileEventsWriter: profileWriter,
		logger:              log,
	}, nil
}

func (c *KafkaProducerClient) PublishResumeEvent(ctx context.Context, payload service.ResumeEvent) error {
	return c.publish(ctx, c.ResumeEventsWriter, payload.FileID, payload)
}

func (c *KafkaProducerClient) PublishProfileEvent(ctx context.Context, payload service.ProfileEvent) error {
	return c.publish(ctx, c.ProfileEventsWriter, payload.DocumentID, payload)
}

func (c *KafkaProducerClient) publish(ctx context.Context, w messageWriter, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

func (c *KafkaProducerClient) Close() {
	if c.ResumeEventsWriter != nil {
		c.ResumeEventsWriter.Close()
	}
	if c.ProfileEventsWriter != nil {
		c.ProfileEventsWriter.Close()
	}
	c.logger.Info("Closed Kafka Producers")
}

type noopPublisher struct{}

// NewNoopPublisher is used when no brokers are configured.
func NewNoopPublisher() service.EventPublisher {
	return noopPublisher{}
}

func (noopPublisher) PublishResumeEvent(context.Context, service.ResumeEvent) error   { return nil }
func (noopPublisher) PublishProfileEvent(context.Context, service.ProfileEvent) error { return nil }
