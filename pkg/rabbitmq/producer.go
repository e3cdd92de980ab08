/**
 * @description
 * This package provides the audit event producer for the ledger-service. Audit
 * events for every transfer state transition and failure are published to a
 * durable topic exchange, routed by event kind. A no-op fallback publisher is
 * used when the broker is unavailable at startup so that audit emission never
 * blocks a transfer.
 *
 * @dependencies
 * - context, encoding/json, time: Standard Go libraries.
 * - github.com/rabbitmq/amqp091-go: The RabbitMQ client library.
 * - internal/domain: Audit event model.
 */
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/finvault/ledger-service/internal/domain"
)

// AuditPublisher is the interface implemented by types that can emit audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event domain.AuditEvent) error
	Close()
}

// AuditProducer holds the RabbitMQ connection and channel for publishing audit events.
type AuditProducer struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

// AuditProducerFallback is a minimal no-op publisher used when RabbitMQ is
// unavailable at startup. Emission is logged and dropped.
type AuditProducerFallback struct{}

func (p *AuditProducerFallback) Emit(ctx context.Context, event domain.AuditEvent) error {
	log.Printf("level=warn component=audit_producer mode=fallback msg=\"audit emit skipped\" kind=%s", event.Kind)
	return nil
}

func (p *AuditProducerFallback) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	// If any stray characters precede the scheme, slice from first occurrence of amqp
	idx := strings.Index(strings.ToLower(clean), "amqp")
	if idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewAuditProducer creates and returns a new AuditProducer bound to an exchange.
func NewAuditProducer(amqpURL, exchange string) (*AuditProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// Use a bounded dial timeout so startup does not hang indefinitely
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if exchange == "" {
		exchange = "ledger.audit"
	}
	return &AuditProducer{conn: conn, channel: ch, exchange: exchange}, nil
}

// Emit publishes one audit event, routed by its kind.
func (p *AuditProducer) Emit(ctx context.Context, event domain.AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := p.channel.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // autoDelete
		false,      // internal
		false,      // noWait
		nil,        // args
	); err != nil {
		log.Printf("level=warn component=audit_producer msg=\"exchange declare failed; reopening channel\" exchange=%s err=%v", p.exchange, err)
		if p.conn == nil {
			return err
		}
		ch, chErr := p.conn.Channel()
		if chErr != nil {
			return chErr
		}
		p.channel = ch
		if err2 := p.channel.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err2 != nil {
			return err2
		}
	}

	jsonBody, err := json.Marshal(event)
	if err != nil {
		log.Printf("level=error component=audit_producer msg=\"json marshal failed\" kind=%s err=%v", event.Kind, err)
		return err
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		event.Kind, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   event.Timestamp,
			Body:        jsonBody,
		},
	)
	if err != nil {
		log.Printf("level=warn component=audit_producer msg=\"publish failed; reopening channel\" kind=%s err=%v", event.Kind, err)
		// One-shot retry: reopen channel and try again
		if p.conn != nil {
			if ch, chErr := p.conn.Channel(); chErr == nil {
				p.channel = ch
				if exErr := p.channel.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); exErr == nil {
					err = p.channel.PublishWithContext(ctx, p.exchange, event.Kind, false, false, amqp091.Publishing{
						ContentType: "application/json",
						Timestamp:   event.Timestamp,
						Body:        jsonBody,
					})
					if err == nil {
						return nil
					}
				}
			}
		}
		return err
	}
	return nil
}

// Close gracefully closes the channel and connection to RabbitMQ.
func (p *AuditProducer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
