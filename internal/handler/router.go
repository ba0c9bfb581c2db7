package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/aircnc/internal/auth"
	"github.com/hitoshi/aircnc/internal/metrics"
	"github.com/hitoshi/aircnc/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	TokenVerifier     auth.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// ハンドラー依存
	TokenIssuer    TokenIssuerInterface
	RoomService    RoomServiceInterface
	BookingService BookingServiceInterface
	UserService    UserServiceInterface
	PaymentService PaymentServiceInterface
	Pinger         Pinger

	// MetricsHandler が設定されている場合は GET /metrics で公開する
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → RateLimit(General)
//
// 保護されたルートにはBearerAuthを追加し、決済ルートにはさらにPaymentレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.Nop{}
	}
	rl := deps.RateLimiter
	if rl == nil {
		rl = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(m))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(rl.GeneralMiddleware())

	healthHandler := NewHealthHandler(deps.Pinger)
	authHandler := NewAuthHandler(deps.TokenIssuer)
	roomHandler := NewRoomHandler(deps.RoomService)
	bookingHandler := NewBookingHandler(deps.BookingService)
	userHandler := NewUserHandler(deps.UserService)
	paymentHandler := NewPaymentHandler(deps.PaymentService)

	bearer := middleware.NewBearerAuthMiddleware(deps.TokenVerifier)

	// --- 認証不要のルート ---
	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Post("/jwt", authHandler.IssueToken)

	r.Route("/users/{email}", func(r chi.Router) {
		r.Put("/", userHandler.SaveUser)
		r.Get("/", userHandler.GetUser)
	})

	r.Get("/room/{id}", roomHandler.GetRoom)

	r.Route("/rooms", func(r chi.Router) {
		r.Get("/", roomHandler.ListRooms)
		r.Post("/", roomHandler.CreateRoom)
		r.Patch("/status/{id}", roomHandler.UpdateStatus)
		r.Delete("/{id}", roomHandler.DeleteRoom)

		// 認証が必要
		r.Group(func(r chi.Router) {
			r.Use(bearer)
			r.Get("/{email}", roomHandler.ListHostRooms)
			r.Put("/{id}", roomHandler.ReplaceRoom)
			r.Post("/{id}/reserve", roomHandler.ReserveRoom)
		})
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Get("/", bookingHandler.ListGuestBookings)
		r.Post("/", bookingHandler.CreateBooking)
		r.Get("/host", bookingHandler.ListHostBookings)
		r.Delete("/{id}", bookingHandler.DeleteBooking)

		r.With(bearer).Post("/checkout", bookingHandler.Checkout)
	})

	// 決済（決済専用レート制限はトークンのメールアドレス単位）
	r.With(bearer, rl.PaymentMiddleware()).Post("/create-payment-intent", paymentHandler.CreatePaymentIntent)

	return r
}
