package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/aircnc/internal/metrics"
)

const (
	defaultWorkers     = 4
	defaultQueueSize   = 256
	defaultSendTimeout = 30 * time.Second
)

type job struct {
	ctx context.Context
	n   Notification
}

// QueueDispatcher はプロセス内のバッファ付きキューとワーカーgoroutineで通知を送信する。
// キューが満杯の場合は通知を破棄して警告ログを出力する。
type QueueDispatcher struct {
	sender      Sender
	logger      *slog.Logger
	metrics     metrics.MetricsCollector
	sendTimeout time.Duration

	queue  chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewQueueDispatcher はQueueDispatcherを生成し、ワーカーを起動する。
// workers、queueSizeが0以下の場合はデフォルト値（4、256）を使用する。
func NewQueueDispatcher(sender Sender, logger *slog.Logger, m metrics.MetricsCollector, workers, queueSize int) *QueueDispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if m == nil {
		m = metrics.Nop{}
	}

	d := &QueueDispatcher{
		sender:      sender,
		logger:      logger,
		metrics:     m,
		sendTimeout: defaultSendTimeout,
		queue:       make(chan job, queueSize),
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}

	d.logger.Info("通知ディスパッチャを開始しました",
		slog.Int("workers", workers),
		slog.Int("queue_size", queueSize),
	)
	return d
}

// Dispatch は通知をキューに積む。ブロックしない。
func (d *QueueDispatcher) Dispatch(ctx context.Context, n Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(n, "dispatcher closed")
		return
	}

	select {
	case d.queue <- job{ctx: ctx, n: n}:
	default:
		d.drop(n, "queue full")
	}
}

// Close は新規の受け付けを停止し、キューに残った通知の送信完了を待つ。
func (d *QueueDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("通知ディスパッチャを停止しました")
}

func (d *QueueDispatcher) worker() {
	defer d.wg.Done()

	for j := range d.queue {
		d.send(j)
	}
}

func (d *QueueDispatcher) send(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, j.n); err != nil {
		d.metrics.RecordNotification(metrics.NotificationFailed)
		d.logger.Error("通知の送信に失敗しました",
			slog.String("to", j.n.To),
			slog.String("subject", j.n.Subject),
			slog.String("error", err.Error()),
		)
		return
	}

	d.metrics.RecordNotification(metrics.NotificationSent)
	d.logger.Info("通知を送信しました",
		slog.String("to", j.n.To),
		slog.String("subject", j.n.Subject),
	)
}

func (d *QueueDispatcher) drop(n Notification, reason string) {
	d.metrics.RecordNotification(metrics.NotificationDropped)
	d.logger.Warn("通知を破棄しました",
		slog.String("to", n.To),
		slog.String("reason", reason),
	)
}

// compile-time interface check
var _ Dispatcher = (*QueueDispatcher)(nil)
