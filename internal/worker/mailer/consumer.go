// Package mailer はRabbitMQの通知キューを購読してメールを送信するワーカーを提供する。
// 各メッセージは1回だけ送信を試み、成否にかかわらずackする。
package mailer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hitoshi/aircnc/internal/metrics"
	"github.com/hitoshi/aircnc/internal/notify"
)

const (
	defaultConcurrency = 4
	sendTimeout        = 30 * time.Second
	consumerTag        = "aircnc-mailer"
)

// ErrDeliveriesClosed はブローカー側でデリバリーチャネルが閉じられた場合に返される。
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// DeliverySource はキューからのデリバリー取得を抽象化するインターフェース。
// *amqp.Channel が満たす。
type DeliverySource interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Consumer は通知キューのコンシューマ。
// semaphoreパターンで同時送信数を制御する。
type Consumer struct {
	source         DeliverySource
	queue          string
	sender         notify.Sender
	logger         *slog.Logger
	metrics        metrics.MetricsCollector
	maxConcurrency int
}

// NewConsumer はConsumerを生成する。
// maxConcurrencyが0以下の場合はデフォルト値4を使用する。
func NewConsumer(
	source DeliverySource,
	queue string,
	sender notify.Sender,
	logger *slog.Logger,
	m metrics.MetricsCollector,
	maxConcurrency int,
) *Consumer {
	if maxConcurrency <= 0 {
		maxConcurrency = defaultConcurrency
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &Consumer{
		source:         source,
		queue:          queue,
		sender:         sender,
		logger:         logger,
		metrics:        m,
		maxConcurrency: maxConcurrency,
	}
}

// Run はキューの購読を開始し、コンテキストがキャンセルされるまで処理を続ける。
// 戻る前に処理中の送信の完了を待つ。
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.source.Consume(
		c.queue,     // queue
		consumerTag, // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return err
	}

	c.logger.Info("通知キューの購読を開始しました",
		slog.String("queue", c.queue),
		slog.Int("max_concurrency", c.maxConcurrency),
	)

	return c.consume(ctx, deliveries)
}

func (c *Consumer) consume(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	sem := make(chan struct{}, c.maxConcurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("通知キューの購読を停止しました")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}

			wg.Add(1)
			sem <- struct{}{}

			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()

				c.handle(ctx, d)
			}(d)
		}
	}
}

// handle は1件のデリバリーを送信してackする。再送はしない。
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	defer func() {
		if err := d.Ack(false); err != nil {
			c.logger.Error("メッセージのackに失敗しました",
				slog.String("message_id", d.MessageId),
				slog.String("error", err.Error()),
			)
		}
	}()

	n, err := notify.DecodeNotification(d.Body)
	if err != nil {
		c.metrics.RecordNotification(metrics.NotificationDropped)
		c.logger.Error("不正な通知メッセージを破棄しました",
			slog.String("message_id", d.MessageId),
			slog.String("error", err.Error()),
		)
		return
	}

	// 停止中でも処理中の送信は完了させる
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	if err := c.sender.Send(sendCtx, n); err != nil {
		c.metrics.RecordNotification(metrics.NotificationFailed)
		c.logger.Error("通知の送信に失敗しました",
			slog.String("message_id", d.MessageId),
			slog.String("to", n.To),
			slog.String("error", err.Error()),
		)
		return
	}

	c.metrics.RecordNotification(metrics.NotificationSent)
	c.logger.Info("通知を送信しました",
		slog.String("message_id", d.MessageId),
		slog.String("to", n.To),
		slog.String("subject", n.Subject),
	)
}

// compile-time interface check
var _ DeliverySource = (*amqp.Channel)(nil)
