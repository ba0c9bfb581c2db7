package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/aircnc/internal/model"
)

const bookingColumns = `id, room_id, title, location, image, price, from_date, to_date, booking_date,
	guest_name, guest_email, guest_image, host_name, host_email, host_image, transaction_id, created_at`

const insertBookingSQL = `INSERT INTO bookings (` + bookingColumns + `)
	VALUES (:id, :room_id, :title, :location, :image, :price, :from_date, :to_date, :booking_date,
		:guest_name, :guest_email, :guest_image, :host_name, :host_email, :host_image, :transaction_id, :created_at)`

// bookingRow はbookingsテーブルの1行を表す。
type bookingRow struct {
	ID            string    `db:"id"`
	RoomID        string    `db:"room_id"`
	Title         string    `db:"title"`
	Location      string    `db:"location"`
	Image         string    `db:"image"`
	Price         float64   `db:"price"`
	FromDate      string    `db:"from_date"`
	ToDate        string    `db:"to_date"`
	BookingDate   string    `db:"booking_date"`
	GuestName     string    `db:"guest_name"`
	GuestEmail    string    `db:"guest_email"`
	GuestImage    string    `db:"guest_image"`
	HostName      string    `db:"host_name"`
	HostEmail     string    `db:"host_email"`
	HostImage     string    `db:"host_image"`
	TransactionID string    `db:"transaction_id"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r bookingRow) toModel() *model.Booking {
	return &model.Booking{
		ID:            r.ID,
		RoomID:        r.RoomID,
		Title:         r.Title,
		Location:      r.Location,
		Image:         r.Image,
		Price:         r.Price,
		From:          r.FromDate,
		To:            r.ToDate,
		Date:          r.BookingDate,
		Guest:         model.Party{Name: r.GuestName, Email: r.GuestEmail, Image: r.GuestImage},
		Host:          model.Party{Name: r.HostName, Email: r.HostEmail, Image: r.HostImage},
		TransactionID: r.TransactionID,
		CreatedAt:     r.CreatedAt,
	}
}

func bookingRowFromModel(b *model.Booking) bookingRow {
	return bookingRow{
		ID:            b.ID,
		RoomID:        b.RoomID,
		Title:         b.Title,
		Location:      b.Location,
		Image:         b.Image,
		Price:         b.Price,
		FromDate:      b.From,
		ToDate:        b.To,
		BookingDate:   b.Date,
		GuestName:     b.Guest.Name,
		GuestEmail:    b.Guest.Email,
		GuestImage:    b.Guest.Image,
		HostName:      b.Host.Name,
		HostEmail:     b.Host.Email,
		HostImage:     b.Host.Image,
		TransactionID: b.TransactionID,
		CreatedAt:     b.CreatedAt,
	}
}

// PostgresBookingRepo はPostgreSQLを使用した予約リポジトリ。
type PostgresBookingRepo struct {
	db *sqlx.DB
}

// NewPostgresBookingRepo はPostgresBookingRepoを生成する。
func NewPostgresBookingRepo(db *sqlx.DB) *PostgresBookingRepo {
	return &PostgresBookingRepo{db: db}
}

// Create は予約を作成する。部屋の状態は変更しない。
func (r *PostgresBookingRepo) Create(ctx context.Context, booking *model.Booking) (*model.InsertResult, error) {
	assignBookingIdentity(booking)

	if _, err := r.db.NamedExecContext(ctx, insertBookingSQL, bookingRowFromModel(booking)); err != nil {
		return nil, fmt.Errorf("failed to insert booking: %w", err)
	}

	return model.NewInsertResult(booking.ID), nil
}

// ListByGuestEmail はゲストのメールアドレスに一致する予約を返す。
func (r *PostgresBookingRepo) ListByGuestEmail(ctx context.Context, email string) ([]*model.Booking, error) {
	return r.listBy(ctx, "guest_email", email)
}

// ListByHostEmail はホストのメールアドレスに一致する予約を返す。
func (r *PostgresBookingRepo) ListByHostEmail(ctx context.Context, email string) ([]*model.Booking, error) {
	return r.listBy(ctx, "host_email", email)
}

func (r *PostgresBookingRepo) listBy(ctx context.Context, column, email string) ([]*model.Booking, error) {
	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT `+bookingColumns+` FROM bookings WHERE `+column+` = $1 ORDER BY created_at DESC`,
		email,
	); err != nil {
		return nil, fmt.Errorf("failed to list bookings by %s: %w", column, err)
	}

	bookings := make([]*model.Booking, 0, len(rows))
	for _, row := range rows {
		bookings = append(bookings, row.toModel())
	}
	return bookings, nil
}

// Delete は指定IDの予約を削除する。部屋の状態は変更しない。
func (r *PostgresBookingRepo) Delete(ctx context.Context, id string) (*model.DeleteResult, error) {
	if !isUUID(id) {
		return model.NewDeleteResult(0), nil
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete booking: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return model.NewDeleteResult(rowsAffected), nil
}

// CreateWithReservation は部屋の確保と予約の作成を同一トランザクションで行う。
func (r *PostgresBookingRepo) CreateWithReservation(ctx context.Context, booking *model.Booking) (*model.InsertResult, error) {
	if !isUUID(booking.RoomID) {
		return nil, ErrRoomNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	reserved, err := reserveRoom(ctx, tx, booking.RoomID)
	if err != nil {
		return nil, err
	}
	if !reserved.Found() {
		return nil, ErrRoomNotFound
	}

	assignBookingIdentity(booking)
	if _, err := tx.NamedExecContext(ctx, insertBookingSQL, bookingRowFromModel(booking)); err != nil {
		return nil, fmt.Errorf("failed to insert booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return model.NewInsertResult(booking.ID), nil
}

func assignBookingIdentity(booking *model.Booking) {
	booking.ID = uuid.New().String()
	booking.CreatedAt = time.Now().UTC()
}

// compile-time interface check
var _ BookingRepository = (*PostgresBookingRepo)(nil)
