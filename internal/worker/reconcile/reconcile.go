// Package reconcile は部屋の予約状態を予約レコードに合わせる定期ジョブを提供する。
// 予約が存在するのに空き状態のままの部屋を予約済みに更新する。
// 予約済みの部屋を空きに戻すことはしない。
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/aircnc/internal/metrics"
)

// DefaultInterval は整合ジョブのデフォルト実行間隔。
const DefaultInterval = 10 * time.Minute

// RoomMarker は予約が存在する空き部屋を予約済みにするインターフェース。
// repository.RoomRepository が満たす。
type RoomMarker interface {
	MarkBookedWithBookings(ctx context.Context) (int64, error)
}

// Job は部屋の予約状態の整合ジョブ。
// 冪等であり、何度実行しても結果は変わらない。
type Job struct {
	rooms   RoomMarker
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewJob は新しいJobを生成する。
func NewJob(rooms RoomMarker, logger *slog.Logger, m metrics.MetricsCollector) *Job {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Job{
		rooms:   rooms,
		logger:  logger,
		metrics: m,
	}
}

// Run は予約が存在する空き部屋を予約済みにする。
// 対象がない場合でもエラーにならない。
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()

	count, err := j.rooms.MarkBookedWithBookings(ctx)
	if err != nil {
		j.logger.Error("予約状態の整合ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("予約状態の整合に失敗: %w", err)
	}

	j.metrics.RecordRoomsReconciled(count)

	duration := time.Since(start)
	j.logger.Info("予約状態の整合ジョブが完了しました",
		slog.Int64("reconciled_count", count),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回実行し、その後intervalごとにRunを実行する。
// コンテキストがキャンセルされるまで実行を継続する。
// intervalが0以下の場合はDefaultIntervalを使う。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("予約状態の整合ジョブを開始しました",
		slog.Duration("interval", interval),
	)

	// エラーはRun内でログ出力済み
	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("予約状態の整合ジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
