package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProvider はStripe PaymentIntents APIを使用するProvider実装。
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider はシークレットキーからStripeProviderを生成する。
// クライアントはプロセス全体で共有する。
func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{api: client.New(secretKey, nil)}
}

// CreateIntent はPaymentIntentを作成し、クライアントシークレットを返す。
func (p *StripeProvider) CreateIntent(ctx context.Context, amount int64, currency string, methods []string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice(methods),
	}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create payment intent: %w", err)
	}

	return pi.ClientSecret, nil
}

// compile-time interface check
var _ Provider = (*StripeProvider)(nil)
