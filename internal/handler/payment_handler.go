package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

// PaymentServiceInterface は決済ハンドラーが必要とするサービスインターフェース。
type PaymentServiceInterface interface {
	// CreateIntent は価格に対応する決済インテントを作成する。
	// 価格が未指定または0以下の場合は空文字を返す。
	CreateIntent(ctx context.Context, price *decimal.Decimal) (string, error)
}

// PaymentHandler は決済インテント作成のHTTPハンドラー。
type PaymentHandler struct {
	service PaymentServiceInterface
}

// NewPaymentHandler はPaymentHandlerを生成する。
func NewPaymentHandler(service PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{service: service}
}

type paymentIntentRequest struct {
	Price *decimal.Decimal `json:"price"`
}

type paymentIntentResponse struct {
	ClientSecret string `json:"clientSecret,omitempty"`
}

// CreatePaymentIntent は決済インテントを作成し、クライアントシークレットを返す。
// POST /create-payment-intent
func (h *PaymentHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req paymentIntentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	secret, err := h.service.CreateIntent(r.Context(), req.Price)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paymentIntentResponse{ClientSecret: secret})
}
