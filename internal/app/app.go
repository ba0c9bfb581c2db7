// Package app はプロセスの起動モードごとに依存関係を組み立てて実行する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/aircnc/internal/auth"
	"github.com/hitoshi/aircnc/internal/booking"
	"github.com/hitoshi/aircnc/internal/config"
	"github.com/hitoshi/aircnc/internal/database"
	"github.com/hitoshi/aircnc/internal/handler"
	"github.com/hitoshi/aircnc/internal/logger"
	"github.com/hitoshi/aircnc/internal/metrics"
	"github.com/hitoshi/aircnc/internal/middleware"
	"github.com/hitoshi/aircnc/internal/notify"
	"github.com/hitoshi/aircnc/internal/payment"
	"github.com/hitoshi/aircnc/internal/room"
	"github.com/hitoshi/aircnc/internal/user"
	"github.com/hitoshi/aircnc/internal/worker/mailer"
	"github.com/hitoshi/aircnc/internal/worker/reconcile"
)

const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVELを反映
	logger.SetupDefaultWithLevel(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		return runHealthcheck(healthcheckPort())
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("storage", cfg.StorageDriver),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// ストレージに接続し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. ストレージ接続
	store, err := openStorage(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer store.close()

	// 2. メトリクス
	reg := newMetricsRegistry()
	collector := metrics.NewCollector(reg)

	// 3. 通知ディスパッチャ
	dispatcher, closeDispatcher, err := newDispatcher(cfg, collector)
	if err != nil {
		return err
	}

	// 4. ドメインサービスの初期化
	tokens := auth.NewTokenService(cfg.AccessToken, cfg.TokenTTL)
	roomService := room.NewService(store.rooms, collector)
	bookingService := booking.NewService(store.bookings, dispatcher, collector)
	userService := user.NewService(store.users)
	paymentService := payment.NewService(payment.NewStripeProvider(cfg.PaymentSecretKey), collector)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitPayment),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		Metrics:           collector,
		TokenVerifier:     tokens,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		TokenIssuer:    tokens,
		RoomService:    roomService,
		BookingService: bookingService,
		UserService:    userService,
		PaymentService: paymentService,
		Pinger:         store.ping,

		MetricsHandler: metrics.Handler(reg),
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		closeDispatcher()
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		closeDispatcher()
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// 処理中のリクエストが積んだ通知を送り切ってから終了する
	closeDispatcher()

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 予約状態の整合ジョブを定期実行し、AMQP_URLが設定されていれば通知キューを購読する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. ストレージ接続
	store, err := openStorage(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer store.close()

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("reconcile_interval", cfg.ReconcileInterval),
		slog.Bool("queue_consumer", cfg.AMQPURL != ""),
	)

	// 2. メトリクスとヘルスチェックの公開
	reg := newMetricsRegistry()
	collector := metrics.NewCollector(reg)

	monitor := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      newWorkerRouter(reg, store.ping),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		slog.Info("worker monitor starting", slog.String("addr", monitor.Addr))
		if err := monitor.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker monitor stopped", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := monitor.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shut down worker monitor", slog.String("error", err.Error()))
		}
	}()

	// 3. 予約状態の整合ジョブ
	job := reconcile.NewJob(store.rooms, slog.Default(), collector)

	if cfg.AMQPURL == "" {
		// 購読するキューがない場合は整合ジョブをメインgoroutineで実行（ブロッキング）
		job.Start(ctx, cfg.ReconcileInterval)
		slog.Info("worker stopped gracefully")
		return nil
	}

	go job.Start(ctx, cfg.ReconcileInterval)

	// 4. 通知キューのコンシューマ
	sender, err := newSender(cfg)
	if err != nil {
		return err
	}

	conn, err := notify.DialAMQP(cfg.AMQPURL, cfg.NotifyQueue)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Channel.Qos(cfg.NotifyWorkers, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	consumer := mailer.NewConsumer(conn.Channel, conn.Queue, sender, slog.Default(), collector, cfg.NotifyWorkers)
	if err := consumer.Run(ctx); err != nil {
		return fmt.Errorf("notification consumer stopped: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
// MongoDBはスキーマを持たないため何もしない。
func runMigrate(cfg *config.Config) error {
	if cfg.StorageDriver == config.StorageDriverMongo {
		slog.Info("storage driver is mongo; no migrations to run")
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// healthcheckPort はヘルスチェック先のポートを環境変数から決める。
func healthcheckPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		return port
	}
	return "5000"
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
