package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/aircnc/internal/middleware"
	"github.com/hitoshi/aircnc/internal/model"
)

// BookingServiceInterface は予約ハンドラーが必要とするサービスインターフェース。
type BookingServiceInterface interface {
	// Create は予約を保存し、確定通知を送る。部屋の状態は変更しない。
	Create(ctx context.Context, b *model.Booking) (*model.InsertResult, error)
	// Checkout は部屋の確保と予約の保存を一括で行う。
	Checkout(ctx context.Context, b *model.Booking, requesterEmail string) (*model.InsertResult, error)
	ListByGuest(ctx context.Context, email string) ([]*model.Booking, error)
	ListByHost(ctx context.Context, email string) ([]*model.Booking, error)
	Delete(ctx context.Context, id string) (*model.DeleteResult, error)
}

// BookingHandler は予約のHTTPハンドラー。
type BookingHandler struct {
	service BookingServiceInterface
}

// NewBookingHandler はBookingHandlerを生成する。
func NewBookingHandler(service BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: service}
}

// CreateBooking は予約を作成する。
// POST /bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	b, ok := decodeBooking(w, r)
	if !ok {
		return
	}

	result, err := h.service.Create(r.Context(), b)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Checkout は部屋を確保して予約を確定する。
// POST /bookings/checkout
func (h *BookingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	requester, err := middleware.EmailFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError("token has no email"))
		return
	}

	b, ok := decodeBooking(w, r)
	if !ok {
		return
	}

	result, err := h.service.Checkout(r.Context(), b, requester)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListGuestBookings はゲストの予約一覧を返す。emailがない場合は空配列を返す。
// GET /bookings?email=
func (h *BookingHandler) ListGuestBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.ListByGuest(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bookings)
}

// ListHostBookings はホストの予約一覧を返す。emailがない場合は空配列を返す。
// GET /bookings/host?email=
func (h *BookingHandler) ListHostBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.ListByHost(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bookings)
}

// DeleteBooking は予約を削除する。
// DELETE /bookings/:id
func (h *BookingHandler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// decodeBooking はリクエストボディから予約を読み取る。IDと作成日時はサーバー側で割り当てる。
func decodeBooking(w http.ResponseWriter, r *http.Request) (*model.Booking, bool) {
	var b model.Booking
	if !decodeJSON(w, r, &b) {
		return nil, false
	}
	b.ID = ""
	return &b, true
}
