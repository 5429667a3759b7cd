package messaging

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/bridgekit/custody-schedule-api/internal/models"
)

// ApprovalPublisher pushes approval records onto a durable RabbitMQ
// queue so downstream consumers (notifications, the family's document
// archive) see every approved change. A circuit breaker keeps broker
// outages from stalling request resolution.
type ApprovalPublisher struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	queueName string
	cb        *gobreaker.CircuitBreaker
	logger    *zap.Logger
}

// NewApprovalPublisher dials the broker and declares the queue.
func NewApprovalPublisher(amqpURL, queueName string, logger *zap.Logger) (*ApprovalPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	// Idempotent declare.
	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "approval-publisher",
		MaxRequests: 3,
		Interval:    time.Second * 10,
		Timeout:     time.Second * 30,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &ApprovalPublisher{
		conn:      conn,
		ch:        ch,
		queueName: queueName,
		cb:        cb,
		logger:    logger,
	}, nil
}

// OnApproved publishes the approval record as a persistent JSON message.
func (p *ApprovalPublisher) OnApproved(ctx context.Context, record models.ApprovalRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) <= 0 {
			return ctx.Err()
		}
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		err := p.ch.PublishWithContext(
			ctx,
			"",          // default exchange
			p.queueName, // routing key == queue name
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
			},
		)
		return nil, err
	})
	return err
}

// Close releases the channel and connection.
func (p *ApprovalPublisher) Close() error {
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			return err
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
