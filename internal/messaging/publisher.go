package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"orbitus-api/internal/config"
	"orbitus-api/internal/metrics"
)

const (
	DriverNATS  = "nats"
	DriverKafka = "kafka"
)

// Event is the envelope published for every domain event.
type Event struct {
	Type       string      `json:"type"`
	Key        string      `json:"key"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// New returns the publisher selected by cfg.Driver. An empty driver yields a publisher that drops events.
func New(cfg config.MessagingConfig, logger *slog.Logger) (Publisher, error) {
	switch cfg.Driver {
	case "":
		logger.Info("event publishing disabled")
		return Noop{}, nil
	case DriverNATS:
		return NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject, logger)
	case DriverKafka:
		return NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	default:
		return nil, fmt.Errorf("unknown messaging driver %q", cfg.Driver)
	}
}

// Instrument records publish count, duration and failures of p under driver.
func Instrument(p Publisher, driver string, m *metrics.EventMetrics) Publisher {
	if _, ok := p.(Noop); ok {
		return p
	}
	return &instrumented{next: p, driver: driver, metrics: m}
}

type instrumented struct {
	next    Publisher
	driver  string
	metrics *metrics.EventMetrics
}

func (p *instrumented) Publish(ctx context.Context, event Event) error {
	start := time.Now()
	err := p.next.Publish(ctx, event)
	p.metrics.RecordPublish(ctx, p.driver, event.Type, time.Since(start), err)
	return err
}

func (p *instrumented) Close() error {
	return p.next.Close()
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Close() error { return nil }
