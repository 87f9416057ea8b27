package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/domain/ports/adapter"
)

var _ adapter.EventPublisher = (*RabbitPublisher)(nil)

// RabbitPublisher sends domain events as JSON to a durable topic exchange.
// The routing key is the event type, e.g. listing.state_changed.
type RabbitPublisher struct {
	exchange string
	log      *zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("amqp url must start with amqp:// or amqps://")
	}
	return clean, nil
}

func NewRabbitPublisher(rawURL, exchange string, logger *zerolog.Logger) (*RabbitPublisher, error) {
	clean, err := sanitizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp.Dial(clean)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	l := logger.With().Str("component", "RabbitPublisher").Str("exchange", exchange).Logger()
	return &RabbitPublisher{exchange: exchange, log: &l, conn: conn, ch: ch}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, e adapter.Event) error {
	msg, err := encode(e)
	if err != nil {
		return err
	}
	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return errors.New("publisher closed")
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, e.Type, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	p.log.Debug().Str("event", e.Type).Str("aggregate_id", e.AggregateID).Msg("event published")
	return nil
}

func encode(e adapter.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         e.Type,
		MessageId:    e.Type + ":" + e.AggregateID + ":" + e.OccurredAt.UTC().Format("20060102T150405.000000000"),
		Timestamp:    e.OccurredAt,
		Body:         body,
	}, nil
}

func (p *RabbitPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}
