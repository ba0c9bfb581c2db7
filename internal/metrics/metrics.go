// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 予約作成の経路
const (
	BookingPathLegacy   = "legacy"
	BookingPathCheckout = "checkout"
)

// 通知の処理結果
const (
	NotificationSent      = "sent"
	NotificationFailed    = "failed"
	NotificationDropped   = "dropped"
	NotificationPublished = "published"
)

// 決済インテント作成の結果
const (
	PaymentCreated = "created"
	PaymentSkipped = "skipped"
	PaymentFailed  = "failed"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordBookingCreated(path string)
	RecordReservationConflict()
	RecordRoomStatusChange(booked bool)
	RecordNotification(outcome string)
	RecordPaymentIntent(outcome string)
	RecordPaymentLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordRoomsReconciled(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	bookingsCreated      *prometheus.CounterVec
	reservationConflicts prometheus.Counter
	roomStatusChanges    *prometheus.CounterVec
	notifications        *prometheus.CounterVec
	paymentIntents       *prometheus.CounterVec
	paymentLatency       prometheus.Histogram
	httpStatus           *prometheus.CounterVec
	roomsReconciled      prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		bookingsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aircnc_bookings_created_total",
			Help: "作成された予約の合計数（経路別）",
		}, []string{"path"}),
		reservationConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aircnc_reservation_conflicts_total",
			Help: "予約済みの部屋に対する確保要求の合計数",
		}),
		roomStatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aircnc_room_status_changes_total",
			Help: "部屋の予約状態更新の合計数",
		}, []string{"booked"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aircnc_notifications_total",
			Help: "通知の処理結果別の合計数",
		}, []string{"outcome"}),
		paymentIntents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aircnc_payment_intents_total",
			Help: "決済インテント作成の結果別の合計数",
		}, []string{"outcome"}),
		paymentLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aircnc_payment_latency_seconds",
			Help:    "決済プロバイダ呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aircnc_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		roomsReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aircnc_rooms_reconciled_total",
			Help: "整合性ジョブで予約済みに補正された部屋の合計数",
		}),
	}

	reg.MustRegister(
		c.bookingsCreated,
		c.reservationConflicts,
		c.roomStatusChanges,
		c.notifications,
		c.paymentIntents,
		c.paymentLatency,
		c.httpStatus,
		c.roomsReconciled,
	)

	return c
}

// RecordBookingCreated は予約作成を記録する。
func (c *Collector) RecordBookingCreated(path string) {
	c.bookingsCreated.WithLabelValues(path).Inc()
}

// RecordReservationConflict は予約済みの部屋への確保要求を記録する。
func (c *Collector) RecordReservationConflict() {
	c.reservationConflicts.Inc()
}

// RecordRoomStatusChange は部屋の予約状態更新を記録する。
func (c *Collector) RecordRoomStatusChange(booked bool) {
	c.roomStatusChanges.WithLabelValues(strconv.FormatBool(booked)).Inc()
}

// RecordNotification は通知の処理結果を記録する。
func (c *Collector) RecordNotification(outcome string) {
	c.notifications.WithLabelValues(outcome).Inc()
}

// RecordPaymentIntent は決済インテント作成の結果を記録する。
func (c *Collector) RecordPaymentIntent(outcome string) {
	c.paymentIntents.WithLabelValues(outcome).Inc()
}

// RecordPaymentLatency は決済プロバイダ呼び出しのレイテンシを記録する。
func (c *Collector) RecordPaymentLatency(duration time.Duration) {
	c.paymentLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRoomsReconciled は整合性ジョブで補正された部屋数を記録する。
func (c *Collector) RecordRoomsReconciled(count int64) {
	c.roomsReconciled.Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordBookingCreated(string) {}
func (Nop) RecordReservationConflict() {}
func (Nop) RecordRoomStatusChange(bool) {}
func (Nop) RecordNotification(string) {}
func (Nop) RecordPaymentIntent(string) {}
func (Nop) RecordPaymentLatency(time.Duration) {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordRoomsReconciled(int64) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
