package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

var (
	// ErrChannelClosed is returned by Consume when the broker closes the delivery channel.
	ErrChannelClosed = errors.New("message channel closed")
	// ErrPermanent marks handler failures that will not succeed on a redelivery.
	ErrPermanent = errors.New("permanent delivery failure")
)

// Queue is a RabbitMQ connection with a durable direct exchange bound to one queue.
type Queue struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

// NewQueue dials RabbitMQ and declares the exchange and the queue.
func NewQueue(url, exchangeName, queueName string) (*Queue, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q := &Queue{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := q.setup(); err != nil {
		q.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return q, nil
}

func (q *Queue) setup() error {
	err := q.channel.ExchangeDeclare(
		q.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = q.channel.QueueDeclare(
		q.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// The queue name doubles as the routing key.
	err = q.channel.QueueBind(q.queueName, q.queueName, q.exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// SendOTP publishes the OTP message for the mail worker.
func (q *Queue) SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	l := zerolog.Ctx(ctx)

	body, err := NewOTPMessage(email, code, expiresAt).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = q.channel.PublishWithContext(
		ctx,
		q.exchangeName, // exchange
		q.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	l.Info().Str("email", email).Str("queue", q.queueName).Msg("otp message published")

	return nil
}

// Handler processes one OTP message.
//
// A returned error requeues the message once, unless it wraps ErrPermanent.
type Handler func(ctx context.Context, msg *OTPMessage) error

// Consume delivers queued messages to handler until ctx is done.
func (q *Queue) Consume(ctx context.Context, handler Handler) error {
	l := zerolog.Ctx(ctx)

	msgs, err := q.channel.Consume(
		q.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	l.Info().Str("queue", q.queueName).Msg("started consuming otp messages")

	for {
		select {
		case <-ctx.Done():
			l.Info().Err(ctx.Err()).Msg("stopping message consumption")
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return ErrChannelClosed
			}

			handleDelivery(ctx, delivery, handler)
		}
	}
}

// handleDelivery acks processed messages and drops malformed ones. A failed message
// is requeued only on its first delivery and only when the failure is not permanent.
func handleDelivery(ctx context.Context, d amqp091.Delivery, handler Handler) {
	l := zerolog.Ctx(ctx)

	msg, err := OTPMessageFromJSON(d.Body)
	if err != nil {
		l.Error().Err(err).Msg("failed to unmarshal otp message")

		if err := d.Nack(false, false); err != nil {
			l.Error().Err(err).Send()
		}

		return
	}

	if err := handler(ctx, msg); err != nil {
		requeue := !d.Redelivered && !errors.Is(err, ErrPermanent)

		l.Error().Err(err).Str("email", msg.Email).Bool("requeue", requeue).Msg("failed to handle otp message")

		if err := d.Nack(false, requeue); err != nil {
			l.Error().Err(err).Send()
		}

		return
	}

	if err := d.Ack(false); err != nil {
		l.Error().Err(err).Send()
	}
}

// Close closes the channel and the connection.
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}

	if q.conn != nil {
		return q.conn.Close()
	}

	return nil
}
