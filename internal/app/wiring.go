package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/aircnc/internal/config"
	"github.com/hitoshi/aircnc/internal/database"
	"github.com/hitoshi/aircnc/internal/handler"
	"github.com/hitoshi/aircnc/internal/metrics"
	"github.com/hitoshi/aircnc/internal/notify"
	"github.com/hitoshi/aircnc/internal/repository"
)

// pingFunc は関数をhandler.Pingerとして扱うためのアダプタ。
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// newMetricsRegistry はGoランタイムとプロセスのコレクタを登録したレジストリを返す。
func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newWorkerRouter はワーカーが公開する /health と /metrics のルーターを返す。
func newWorkerRouter(gatherer prometheus.Gatherer, pinger handler.Pinger) http.Handler {
	health := handler.NewHealthHandler(pinger)

	r := chi.NewRouter()
	r.Get("/health", health.Health)
	r.Handle("/metrics", metrics.Handler(gatherer))
	return r
}

// storage は選択されたドライバのリポジトリ群と後始末をまとめたもの。
type storage struct {
	rooms    repository.RoomRepository
	bookings repository.BookingRepository
	users    repository.UserRepository
	ping     pingFunc
	close    func()
}

// openStorage はSTORAGE_DRIVERに応じてPostgreSQLまたはMongoDBに接続する。
func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDatabase)

		slog.Info("mongo connection established", slog.String("database", cfg.MongoDatabase))

		return &storage{
			rooms:    repository.NewMongoRoomRepo(db),
			bookings: repository.NewMongoBookingRepo(db),
			users:    repository.NewMongoUserRepo(db),
			ping: func(ctx context.Context) error {
				return client.Ping(ctx, nil)
			},
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					slog.Error("failed to disconnect mongo", slog.String("error", err.Error()))
				}
			},
		}, nil

	default:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		slog.Info("database connection established")

		dbx := database.NewSQLX(db)
		return &storage{
			rooms:    repository.NewPostgresRoomRepo(dbx),
			bookings: repository.NewPostgresBookingRepo(dbx),
			users:    repository.NewPostgresUserRepo(dbx),
			ping:     db.PingContext,
			close: func() {
				if err := db.Close(); err != nil {
					slog.Error("failed to close database", slog.String("error", err.Error()))
				}
			},
		}, nil
	}
}

// newSender はメール認証情報が揃っていればSMTP送信、なければログ出力のSenderを返す。
func newSender(cfg *config.Config) (notify.Sender, error) {
	if !cfg.MailEnabled() {
		slog.Warn("EMAIL_NAME/EMAIL_PASS are not set; notifications will only be logged")
		return notify.NewLogSender(slog.Default()), nil
	}

	sender, err := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.MailHost,
		Port:     cfg.MailPort,
		Username: cfg.EmailName,
		Password: cfg.EmailPass,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp sender: %w", err)
	}
	return sender, nil
}

// newDispatcher は通知ディスパッチャを構築する。
// AMQP_URLが設定されている場合はキューに発行し、送信はワーカーが行う。
// 未設定の場合はプロセス内のワーカープールで送信する。
// 返されるclose関数はシャットダウン時に1回呼び出す。
func newDispatcher(cfg *config.Config, m metrics.MetricsCollector) (notify.Dispatcher, func(), error) {
	if cfg.AMQPURL != "" {
		conn, err := notify.DialAMQP(cfg.AMQPURL, cfg.NotifyQueue)
		if err != nil {
			return nil, nil, err
		}

		slog.Info("notifications will be published to queue", slog.String("queue", cfg.NotifyQueue))

		pub := notify.NewAMQPPublisher(conn.Channel, conn.Queue, slog.Default(), m)
		return pub, func() {
			if err := conn.Close(); err != nil {
				slog.Error("failed to close amqp connection", slog.String("error", err.Error()))
			}
		}, nil
	}

	sender, err := newSender(cfg)
	if err != nil {
		return nil, nil, err
	}

	d := notify.NewQueueDispatcher(sender, slog.Default(), m, cfg.NotifyWorkers, cfg.NotifyQueueSize)
	return d, d.Close, nil
}
