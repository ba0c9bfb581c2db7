// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/aircnc/internal/model"
)

var (
	// ErrInvalidID はIDの形式がストレージの識別子として解釈できない場合に返される。
	ErrInvalidID = errors.New("invalid id")
	// ErrRoomAlreadyBooked は予約済みの部屋を確保しようとした場合に返される。
	ErrRoomAlreadyBooked = errors.New("room already booked")
	// ErrRoomNotFound は予約確定時に対象の部屋が存在しない場合に返される。
	ErrRoomNotFound = errors.New("room not found")
)

// UserRepository はユーザープロフィールの永続化インターフェース。
type UserRepository interface {
	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Upsert はメールアドレスをキーにユーザーを作成または更新する。
	// 空文字のフィールドは既存の値を維持する。
	Upsert(ctx context.Context, email string, in model.UserInput) (*model.UpdateResult, error)
}

// RoomRepository は部屋データの永続化インターフェース。
// 不正な形式のIDは「該当なし」として扱う（Replaceを除く）。
type RoomRepository interface {
	// Create は部屋を作成し、IDとタイムスタンプを設定する。
	Create(ctx context.Context, room *model.Room) (*model.InsertResult, error)

	// List は全部屋を返す。該当がない場合は空スライスを返す。
	List(ctx context.Context) ([]*model.Room, error)

	// FindByID は指定IDの部屋を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Room, error)

	// ListByHostEmail はホストのメールアドレスに一致する部屋を返す。
	ListByHostEmail(ctx context.Context, email string) ([]*model.Room, error)

	// Replace は指定IDの部屋を置換する。存在しない場合は作成する。
	// in.Bookedがnilの場合は既存の予約状態を維持する。
	// IDの形式が不正な場合はErrInvalidIDを返す。
	Replace(ctx context.Context, id string, in model.RoomInput) (*model.UpdateResult, error)

	// SetBooked は予約状態を無条件に書き込む（後勝ち）。
	SetBooked(ctx context.Context, id string, booked bool) (*model.UpdateResult, error)

	// Reserve は予約状態をfalseからtrueへ比較交換する。
	// 部屋が存在し既に予約済みの場合はErrRoomAlreadyBookedを返す。
	Reserve(ctx context.Context, id string) (*model.UpdateResult, error)

	// Delete は指定IDの部屋を削除する。予約はカスケード削除されない。
	Delete(ctx context.Context, id string) (*model.DeleteResult, error)

	// MarkBookedWithBookings は予約が存在するのに空き状態のままの部屋を予約済みにし、
	// 更新件数を返す。
	MarkBookedWithBookings(ctx context.Context) (int64, error)
}

// BookingRepository は予約データの永続化インターフェース。
type BookingRepository interface {
	// Create は予約を作成し、IDと作成日時を設定する。
	Create(ctx context.Context, booking *model.Booking) (*model.InsertResult, error)

	// ListByGuestEmail はゲストのメールアドレスに一致する予約を返す。
	ListByGuestEmail(ctx context.Context, email string) ([]*model.Booking, error)

	// ListByHostEmail はホストのメールアドレスに一致する予約を返す。
	ListByHostEmail(ctx context.Context, email string) ([]*model.Booking, error)

	// Delete は指定IDの予約を削除する。
	Delete(ctx context.Context, id string) (*model.DeleteResult, error)

	// CreateWithReservation はbooking.RoomIDの部屋を確保し、予約を作成する。
	// 部屋が予約済みの場合はErrRoomAlreadyBooked、存在しない場合はErrRoomNotFoundを返す。
	// いずれの場合も予約は作成されない。
	CreateWithReservation(ctx context.Context, booking *model.Booking) (*model.InsertResult, error)
}
