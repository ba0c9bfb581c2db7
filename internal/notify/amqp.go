package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hitoshi/aircnc/internal/metrics"
)

const publishTimeout = 5 * time.Second

// AMQPConn はRabbitMQの接続と、通知キューを宣言済みのチャネルをまとめたもの。
type AMQPConn struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Queue   string
}

// DialAMQP はRabbitMQに接続し、永続キューを宣言する。
func DialAMQP(url, queue string) (*AMQPConn, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &AMQPConn{Conn: conn, Channel: ch, Queue: queue}, nil
}

// Close はチャネルと接続を閉じる。
func (c *AMQPConn) Close() error {
	if err := c.Channel.Close(); err != nil && err != amqp.ErrClosed {
		c.Conn.Close()
		return fmt.Errorf("failed to close channel: %w", err)
	}
	if err := c.Conn.Close(); err != nil && err != amqp.ErrClosed {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// Publisher はAMQPチャネルのうち発行に使う部分。
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher は通知をJSONとしてRabbitMQの永続キューに発行するDispatcher実装。
// 実際の送信はワーカープロセスのコンシューマが行う。
type AMQPPublisher struct {
	ch      Publisher
	queue   string
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewAMQPPublisher はAMQPPublisherを生成する。
func NewAMQPPublisher(ch Publisher, queue string, logger *slog.Logger, m metrics.MetricsCollector) *AMQPPublisher {
	if m == nil {
		m = metrics.Nop{}
	}
	return &AMQPPublisher{ch: ch, queue: queue, logger: logger, metrics: m}
}

// Dispatch は通知をキューに発行する。失敗はログに記録して握りつぶす。
func (p *AMQPPublisher) Dispatch(ctx context.Context, n Notification) {
	body, err := json.Marshal(n)
	if err != nil {
		p.fail(n, err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		p.fail(n, err)
		return
	}

	p.metrics.RecordNotification(metrics.NotificationPublished)
	p.logger.Debug("通知をキューに発行しました",
		slog.String("to", n.To),
		slog.String("queue", p.queue),
	)
}

func (p *AMQPPublisher) fail(n Notification, err error) {
	p.metrics.RecordNotification(metrics.NotificationFailed)
	p.logger.Error("通知の発行に失敗しました",
		slog.String("to", n.To),
		slog.String("queue", p.queue),
		slog.String("error", err.Error()),
	)
}

// DecodeNotification はキューのメッセージ本文を通知に復元する。
func DecodeNotification(body []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return Notification{}, fmt.Errorf("failed to decode notification: %w", err)
	}
	return n, nil
}

// compile-time interface check
var (
	_ Dispatcher = (*AMQPPublisher)(nil)
	_ Publisher  = (*amqp.Channel)(nil)
)
