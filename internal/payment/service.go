// Package payment は決済インテントの作成を提供する。
package payment

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/aircnc/internal/metrics"
	"github.com/hitoshi/aircnc/internal/model"
)

// 決済インテントの通貨と支払い方法
const (
	Currency          = "usd"
	PaymentMethodCard = "card"
)

// Provider は決済事業者のインテント作成APIを抽象化する。
// amountは通貨の最小単位（セント）。戻り値はクライアントシークレット。
type Provider interface {
	CreateIntent(ctx context.Context, amount int64, currency string, methods []string) (string, error)
}

// Service は価格から決済インテントを作成するサービス。
type Service struct {
	provider Provider
	metrics  metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(provider Provider, m metrics.MetricsCollector) *Service {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Service{provider: provider, metrics: m}
}

// CreateIntent は価格に対応する決済インテントを作成し、クライアントシークレットを返す。
// 価格が未指定、0以下、または最小単位に丸めて0になる場合は決済事業者を呼び出さずに空文字を返す。
func (s *Service) CreateIntent(ctx context.Context, price *decimal.Decimal) (string, error) {
	if price == nil || !price.IsPositive() {
		s.metrics.RecordPaymentIntent(metrics.PaymentSkipped)
		return "", nil
	}

	amount := ToMinorUnits(*price)
	if amount <= 0 {
		s.metrics.RecordPaymentIntent(metrics.PaymentSkipped)
		return "", nil
	}

	start := time.Now()
	secret, err := s.provider.CreateIntent(ctx, amount, Currency, []string{PaymentMethodCard})
	s.metrics.RecordPaymentLatency(time.Since(start))
	if err != nil {
		s.metrics.RecordPaymentIntent(metrics.PaymentFailed)
		slog.Error("決済インテントの作成に失敗しました",
			slog.Int64("amount", amount),
			slog.String("error", err.Error()),
		)
		return "", model.NewPaymentProviderError()
	}

	s.metrics.RecordPaymentIntent(metrics.PaymentCreated)
	return secret, nil
}

// ToMinorUnits は価格を通貨の最小単位に変換する（100.00 → 10000）。
func ToMinorUnits(price decimal.Decimal) int64 {
	return price.Shift(2).Round(0).IntPart()
}
