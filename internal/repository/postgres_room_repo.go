package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/aircnc/internal/model"
)

const roomColumns = `id, title, location, category, description, image, price, guests, bedrooms, bathrooms,
	from_date, to_date, host_name, host_email, host_image, booked, created_at, updated_at`

// roomRow はroomsテーブルの1行を表す。
type roomRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Location    string    `db:"location"`
	Category    string    `db:"category"`
	Description string    `db:"description"`
	Image       string    `db:"image"`
	Price       float64   `db:"price"`
	Guests      int       `db:"guests"`
	Bedrooms    int       `db:"bedrooms"`
	Bathrooms   int       `db:"bathrooms"`
	FromDate    string    `db:"from_date"`
	ToDate      string    `db:"to_date"`
	HostName    string    `db:"host_name"`
	HostEmail   string    `db:"host_email"`
	HostImage   string    `db:"host_image"`
	Booked      bool      `db:"booked"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r roomRow) toModel() *model.Room {
	return &model.Room{
		ID:          r.ID,
		Title:       r.Title,
		Location:    r.Location,
		Category:    r.Category,
		Description: r.Description,
		Image:       r.Image,
		Price:       r.Price,
		Guests:      r.Guests,
		Bedrooms:    r.Bedrooms,
		Bathrooms:   r.Bathrooms,
		From:        r.FromDate,
		To:          r.ToDate,
		Host:        model.Party{Name: r.HostName, Email: r.HostEmail, Image: r.HostImage},
		Booked:      r.Booked,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func roomRowFromModel(room *model.Room) roomRow {
	return roomRow{
		ID:          room.ID,
		Title:       room.Title,
		Location:    room.Location,
		Category:    room.Category,
		Description: room.Description,
		Image:       room.Image,
		Price:       room.Price,
		Guests:      room.Guests,
		Bedrooms:    room.Bedrooms,
		Bathrooms:   room.Bathrooms,
		FromDate:    room.From,
		ToDate:      room.To,
		HostName:    room.Host.Name,
		HostEmail:   room.Host.Email,
		HostImage:   room.Host.Image,
		Booked:      room.Booked,
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}
}

// PostgresRoomRepo はPostgreSQLを使用した部屋リポジトリ。
type PostgresRoomRepo struct {
	db *sqlx.DB
}

// NewPostgresRoomRepo はPostgresRoomRepoを生成する。
func NewPostgresRoomRepo(db *sqlx.DB) *PostgresRoomRepo {
	return &PostgresRoomRepo{db: db}
}

// Create は部屋を作成する。
func (r *PostgresRoomRepo) Create(ctx context.Context, room *model.Room) (*model.InsertResult, error) {
	now := time.Now().UTC()
	room.ID = uuid.New().String()
	room.CreatedAt = now
	room.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO rooms (`+roomColumns+`)
		 VALUES (:id, :title, :location, :category, :description, :image, :price, :guests, :bedrooms, :bathrooms,
		 	:from_date, :to_date, :host_name, :host_email, :host_image, :booked, :created_at, :updated_at)`,
		roomRowFromModel(room),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert room: %w", err)
	}

	return model.NewInsertResult(room.ID), nil
}

// List は全部屋を作成日時の降順で返す。
func (r *PostgresRoomRepo) List(ctx context.Context) ([]*model.Room, error) {
	var rows []roomRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT `+roomColumns+` FROM rooms ORDER BY created_at DESC`,
	); err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return toRoomModels(rows), nil
}

// FindByID は指定IDの部屋を取得する。見つからない場合はnilを返す。
func (r *PostgresRoomRepo) FindByID(ctx context.Context, id string) (*model.Room, error) {
	if !isUUID(id) {
		return nil, nil
	}

	var row roomRow
	err := r.db.GetContext(ctx, &row, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find room by ID: %w", err)
	}

	return row.toModel(), nil
}

// ListByHostEmail はホストのメールアドレスに一致する部屋を返す。
func (r *PostgresRoomRepo) ListByHostEmail(ctx context.Context, email string) ([]*model.Room, error) {
	var rows []roomRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT `+roomColumns+` FROM rooms WHERE host_email = $1 ORDER BY created_at DESC`,
		email,
	); err != nil {
		return nil, fmt.Errorf("failed to list rooms by host: %w", err)
	}
	return toRoomModels(rows), nil
}

// Replace は部屋を置換する。存在しない場合は作成する。
// xmax = 0 で挿入か更新かを判別する。
func (r *PostgresRoomRepo) Replace(ctx context.Context, id string, in model.RoomInput) (*model.UpdateResult, error) {
	if !isUUID(id) {
		return nil, ErrInvalidID
	}

	var inserted bool
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO rooms (`+roomColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		 	COALESCE($16::boolean, false), now(), now())
		 ON CONFLICT (id) DO UPDATE SET
		 	title = EXCLUDED.title,
		 	location = EXCLUDED.location,
		 	category = EXCLUDED.category,
		 	description = EXCLUDED.description,
		 	image = EXCLUDED.image,
		 	price = EXCLUDED.price,
		 	guests = EXCLUDED.guests,
		 	bedrooms = EXCLUDED.bedrooms,
		 	bathrooms = EXCLUDED.bathrooms,
		 	from_date = EXCLUDED.from_date,
		 	to_date = EXCLUDED.to_date,
		 	host_name = EXCLUDED.host_name,
		 	host_email = EXCLUDED.host_email,
		 	host_image = EXCLUDED.host_image,
		 	booked = COALESCE($16::boolean, rooms.booked),
		 	updated_at = now()
		 RETURNING (xmax = 0) AS inserted`,
		id, in.Title, in.Location, in.Category, in.Description, in.Image, in.Price,
		in.Guests, in.Bedrooms, in.Bathrooms, in.From, in.To,
		in.Host.Name, in.Host.Email, in.Host.Image, in.Booked,
	).Scan(&inserted)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert room: %w", err)
	}

	if inserted {
		return model.NewUpsertedResult(id), nil
	}
	return model.NewUpdateResult(1, 1), nil
}

// SetBooked は予約状態を無条件に書き込む。
// 対象行をFOR UPDATEでロックし、一致件数と実際に値が変わった件数を1文で返す。
func (r *PostgresRoomRepo) SetBooked(ctx context.Context, id string, booked bool) (*model.UpdateResult, error) {
	if !isUUID(id) {
		return model.NewUpdateResult(0, 0), nil
	}

	var matched, modified int64
	err := r.db.QueryRowxContext(ctx,
		`WITH target AS (
			SELECT id, booked FROM rooms WHERE id = $1 FOR UPDATE
		), updated AS (
			UPDATE rooms r SET booked = $2::boolean, updated_at = now()
			FROM target t
			WHERE r.id = t.id AND t.booked IS DISTINCT FROM $2::boolean
			RETURNING r.id
		)
		SELECT (SELECT count(*) FROM target), (SELECT count(*) FROM updated)`,
		id, booked,
	).Scan(&matched, &modified)
	if err != nil {
		return nil, fmt.Errorf("failed to set room booked status: %w", err)
	}

	return model.NewUpdateResult(matched, modified), nil
}

// Reserve は空き状態の部屋を予約済みにする。
func (r *PostgresRoomRepo) Reserve(ctx context.Context, id string) (*model.UpdateResult, error) {
	if !isUUID(id) {
		return model.NewUpdateResult(0, 0), nil
	}
	return reserveRoom(ctx, r.db, id)
}

// Delete は指定IDの部屋を削除する。
func (r *PostgresRoomRepo) Delete(ctx context.Context, id string) (*model.DeleteResult, error) {
	if !isUUID(id) {
		return model.NewDeleteResult(0), nil
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete room: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return model.NewDeleteResult(rowsAffected), nil
}

// MarkBookedWithBookings は予約が存在する空き部屋を予約済みにする。
func (r *PostgresRoomRepo) MarkBookedWithBookings(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET booked = true, updated_at = now()
		 WHERE booked = false
		   AND id::text IN (SELECT room_id FROM bookings WHERE room_id <> '')`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile booked rooms: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// reserveRoom はdb（トランザクションを含む）上で部屋の比較交換を行う。
func reserveRoom(ctx context.Context, db sqlx.ExtContext, id string) (*model.UpdateResult, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE rooms SET booked = true, updated_at = now() WHERE id = $1 AND booked = false`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve room: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return model.NewUpdateResult(rowsAffected, rowsAffected), nil
	}

	var exists bool
	if err := sqlx.GetContext(ctx, db, &exists, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, id); err != nil {
		return nil, fmt.Errorf("failed to check room existence: %w", err)
	}
	if exists {
		return nil, ErrRoomAlreadyBooked
	}
	return model.NewUpdateResult(0, 0), nil
}

func toRoomModels(rows []roomRow) []*model.Room {
	rooms := make([]*model.Room, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, row.toModel())
	}
	return rooms
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// compile-time interface check
var _ RoomRepository = (*PostgresRoomRepo)(nil)
