// Package booking は予約の作成と確定通知の振り分けを行う。
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/aircnc/internal/metrics"
	"github.com/hitoshi/aircnc/internal/model"
	"github.com/hitoshi/aircnc/internal/notify"
	"github.com/hitoshi/aircnc/internal/repository"
)

// Service は予約のサービス層。
type Service struct {
	bookingRepo repository.BookingRepository
	dispatcher  notify.Dispatcher
	metrics     metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(bookingRepo repository.BookingRepository, dispatcher notify.Dispatcher, m metrics.MetricsCollector) *Service {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Service{
		bookingRepo: bookingRepo,
		dispatcher:  dispatcher,
		metrics:     m,
	}
}

// Create は予約を保存し、ゲストとホストに確定通知を送る。
// 部屋の予約状態は変更しない。通知の成否は結果に影響しない。
func (s *Service) Create(ctx context.Context, b *model.Booking) (*model.InsertResult, error) {
	result, err := s.bookingRepo.Create(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("予約の保存に失敗しました: %w", err)
	}

	s.metrics.RecordBookingCreated(metrics.BookingPathLegacy)
	slog.Info("予約を作成しました",
		slog.String("booking_id", result.InsertedID),
		slog.String("room_id", b.RoomID),
	)

	s.notifyParties(ctx, result.InsertedID, b)
	return result, nil
}

// Checkout は部屋の確保と予約の保存を一括で行い、確定通知を送る。
// ゲストのメールアドレスは要求者本人である必要がある。
func (s *Service) Checkout(ctx context.Context, b *model.Booking, requesterEmail string) (*model.InsertResult, error) {
	if b.RoomID == "" {
		return nil, model.NewInvalidRequestError("roomId is required")
	}
	if b.TransactionID == "" {
		return nil, model.NewInvalidRequestError("transactionId is required")
	}
	if b.Guest.Email != requesterEmail {
		return nil, model.NewForbiddenError("guest email does not match token")
	}

	result, err := s.bookingRepo.CreateWithReservation(ctx, b)
	switch {
	case errors.Is(err, repository.ErrRoomAlreadyBooked):
		s.metrics.RecordReservationConflict()
		return nil, model.NewConflictError(b.RoomID)
	case errors.Is(err, repository.ErrRoomNotFound):
		return nil, model.NewRoomNotFoundError(b.RoomID)
	case err != nil:
		return nil, fmt.Errorf("予約の確定に失敗しました: %w", err)
	}

	s.metrics.RecordBookingCreated(metrics.BookingPathCheckout)
	s.metrics.RecordRoomStatusChange(true)
	slog.Info("部屋を確保して予約を確定しました",
		slog.String("booking_id", result.InsertedID),
		slog.String("room_id", b.RoomID),
	)

	s.notifyParties(ctx, result.InsertedID, b)
	return result, nil
}

// ListByGuest はゲストの予約一覧を返す。メールアドレスが空の場合は問い合わせずに空を返す。
func (s *Service) ListByGuest(ctx context.Context, email string) ([]*model.Booking, error) {
	if email == "" {
		return []*model.Booking{}, nil
	}
	bookings, err := s.bookingRepo.ListByGuestEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ゲストの予約一覧の取得に失敗しました: %w", err)
	}
	return nonNil(bookings), nil
}

// ListByHost はホストの予約一覧を返す。メールアドレスが空の場合は問い合わせずに空を返す。
func (s *Service) ListByHost(ctx context.Context, email string) ([]*model.Booking, error) {
	if email == "" {
		return []*model.Booking{}, nil
	}
	bookings, err := s.bookingRepo.ListByHostEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ホストの予約一覧の取得に失敗しました: %w", err)
	}
	return nonNil(bookings), nil
}

// Delete は指定IDの予約を削除する。
func (s *Service) Delete(ctx context.Context, id string) (*model.DeleteResult, error) {
	result, err := s.bookingRepo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("予約の削除に失敗しました: %w", err)
	}
	return result, nil
}

// notifyParties はゲストとホストにそれぞれ確定通知を渡す。
// リクエストのキャンセルに影響されないコンテキストを使う。
func (s *Service) notifyParties(ctx context.Context, bookingID string, b *model.Booking) {
	dctx := context.WithoutCancel(ctx)
	message := model.ConfirmationMessage(bookingID, b.TransactionID)

	for _, p := range []struct {
		role string
		to   string
	}{
		{role: "guest", to: b.Guest.Email},
		{role: "host", to: b.Host.Email},
	} {
		if p.to == "" {
			slog.Warn("宛先が空のため通知をスキップしました",
				slog.String("booking_id", bookingID),
				slog.String("recipient", p.role),
			)
			continue
		}
		s.dispatcher.Dispatch(dctx, notify.Notification{
			To:      p.to,
			Subject: model.BookingConfirmationSubject,
			Message: message,
		})
	}
}

func nonNil(bookings []*model.Booking) []*model.Booking {
	if bookings == nil {
		return []*model.Booking{}
	}
	return bookings
}
