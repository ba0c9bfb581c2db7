// Package room は部屋の掲載と空き状態管理のドメインロジックを提供する。
package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/aircnc/internal/metrics"
	"github.com/hitoshi/aircnc/internal/model"
	"github.com/hitoshi/aircnc/internal/repository"
)

// Service は部屋管理のサービス層。
type Service struct {
	roomRepo repository.RoomRepository
	metrics  metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(roomRepo repository.RoomRepository, m metrics.MetricsCollector) *Service {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Service{roomRepo: roomRepo, metrics: m}
}

// Create は部屋を登録する。
func (s *Service) Create(ctx context.Context, room *model.Room) (*model.InsertResult, error) {
	result, err := s.roomRepo.Create(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("部屋の登録に失敗しました: %w", err)
	}

	slog.Info("部屋を登録しました",
		slog.String("room_id", result.InsertedID),
		slog.String("host_email", room.Host.Email),
	)
	return result, nil
}

// List は全部屋を返す。
func (s *Service) List(ctx context.Context) ([]*model.Room, error) {
	rooms, err := s.roomRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("部屋一覧の取得に失敗しました: %w", err)
	}
	if rooms == nil {
		rooms = []*model.Room{}
	}
	return rooms, nil
}

// Get は指定IDの部屋を返す。見つからない場合はnilを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("部屋の取得に失敗しました: %w", err)
	}
	return room, nil
}

// ListByHostEmail はホスト本人の部屋一覧を返す。
// 要求者のメールアドレスと一致しない場合は問い合わせずにFORBIDDENを返す。
func (s *Service) ListByHostEmail(ctx context.Context, email, requesterEmail string) ([]*model.Room, error) {
	if email != requesterEmail {
		slog.Warn("他ユーザーの部屋一覧へのアクセスを拒否しました",
			slog.String("email", email),
			slog.String("requester_email", requesterEmail),
		)
		return nil, model.NewForbiddenError("token email does not match requested host")
	}

	rooms, err := s.roomRepo.ListByHostEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ホストの部屋一覧の取得に失敗しました: %w", err)
	}
	if rooms == nil {
		rooms = []*model.Room{}
	}
	return rooms, nil
}

// Replace は部屋を置換する。存在しない場合は作成する。
func (s *Service) Replace(ctx context.Context, id string, in model.RoomInput) (*model.UpdateResult, error) {
	result, err := s.roomRepo.Replace(ctx, id, in)
	if errors.Is(err, repository.ErrInvalidID) {
		return nil, model.NewInvalidIDError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("部屋の更新に失敗しました: %w", err)
	}
	return result, nil
}

// SetBookedStatus は予約状態を無条件に書き込む。
// 該当する部屋がない場合も成功として扱う。
func (s *Service) SetBookedStatus(ctx context.Context, id string, booked bool) (*model.UpdateResult, error) {
	result, err := s.roomRepo.SetBooked(ctx, id, booked)
	if err != nil {
		return nil, fmt.Errorf("部屋の予約状態の更新に失敗しました: %w", err)
	}

	if result.ModifiedCount > 0 {
		s.metrics.RecordRoomStatusChange(booked)
	}
	return result, nil
}

// Reserve は空き状態の部屋を予約済みにする。
// 既に予約済みの場合はCONFLICTを返す。
func (s *Service) Reserve(ctx context.Context, id string) (*model.UpdateResult, error) {
	result, err := s.roomRepo.Reserve(ctx, id)
	if errors.Is(err, repository.ErrRoomAlreadyBooked) {
		s.metrics.RecordReservationConflict()
		return nil, model.NewConflictError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("部屋の確保に失敗しました: %w", err)
	}

	if result.ModifiedCount > 0 {
		s.metrics.RecordRoomStatusChange(true)
	}
	return result, nil
}

// Delete は指定IDの部屋を削除する。予約は削除しない。
func (s *Service) Delete(ctx context.Context, id string) (*model.DeleteResult, error) {
	result, err := s.roomRepo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("部屋の削除に失敗しました: %w", err)
	}
	return result, nil
}
