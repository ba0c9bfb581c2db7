package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/aircnc/internal/model"
)

// partyValue はbookingsコレクションのguest/hostフィールド。
// 旧データはhostをメールアドレス文字列で保存しているため、文字列も受け付ける。
type partyValue model.Party

// UnmarshalBSONValue はドキュメント形式と文字列形式の両方をデコードする。
func (p *partyValue) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		email, ok := raw.StringValueOK()
		if !ok {
			return errors.New("invalid string party value")
		}
		*p = partyValue{Email: email}
		return nil
	case bsontype.Null, bsontype.Undefined:
		*p = partyValue{}
		return nil
	case bsontype.EmbeddedDocument:
		var v model.Party
		if err := raw.Unmarshal(&v); err != nil {
			return fmt.Errorf("failed to decode party: %w", err)
		}
		*p = partyValue(v)
		return nil
	default:
		return fmt.Errorf("cannot decode %s into party", t)
	}
}

// bookingDoc はbookingsコレクションのドキュメント。
type bookingDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	RoomID        string             `bson:"roomId,omitempty"`
	Title         string             `bson:"title,omitempty"`
	Location      string             `bson:"location,omitempty"`
	Image         string             `bson:"image,omitempty"`
	Price         float64            `bson:"price,omitempty"`
	From          string             `bson:"from,omitempty"`
	To            string             `bson:"to,omitempty"`
	Date          string             `bson:"date,omitempty"`
	Guest         partyValue         `bson:"guest"`
	Host          partyValue         `bson:"host"`
	TransactionID string             `bson:"transactionId"`
	CreatedAt     time.Time          `bson:"createdAt"`
}

func bookingDocFromModel(b *model.Booking) bookingDoc {
	return bookingDoc{
		ID:            primitive.NewObjectID(),
		RoomID:        b.RoomID,
		Title:         b.Title,
		Location:      b.Location,
		Image:         b.Image,
		Price:         b.Price,
		From:          b.From,
		To:            b.To,
		Date:          b.Date,
		Guest:         partyValue(b.Guest),
		Host:          partyValue(b.Host),
		TransactionID: b.TransactionID,
		CreatedAt:     time.Now().UTC(),
	}
}

func (d bookingDoc) toModel() *model.Booking {
	return &model.Booking{
		ID:            d.ID.Hex(),
		RoomID:        d.RoomID,
		Title:         d.Title,
		Location:      d.Location,
		Image:         d.Image,
		Price:         d.Price,
		From:          d.From,
		To:            d.To,
		Date:          d.Date,
		Guest:         model.Party(d.Guest),
		Host:          model.Party(d.Host),
		TransactionID: d.TransactionID,
		CreatedAt:     d.CreatedAt,
	}
}

// MongoBookingRepo はMongoDBを使用した予約リポジトリ。
// MongoDBではトランザクションにレプリカセットが必要なため、
// CreateWithReservationは比較交換と補償処理で実装する。
type MongoBookingRepo struct {
	bookings *mongo.Collection
	rooms    *MongoRoomRepo
}

// NewMongoBookingRepo はMongoBookingRepoを生成する。
func NewMongoBookingRepo(db *mongo.Database) *MongoBookingRepo {
	return &MongoBookingRepo{
		bookings: db.Collection(bookingsCollection),
		rooms:    NewMongoRoomRepo(db),
	}
}

// Create は予約を作成する。部屋の状態は変更しない。
func (r *MongoBookingRepo) Create(ctx context.Context, booking *model.Booking) (*model.InsertResult, error) {
	doc := bookingDocFromModel(booking)
	if _, err := r.bookings.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert booking: %w", err)
	}

	booking.ID = doc.ID.Hex()
	booking.CreatedAt = doc.CreatedAt
	return model.NewInsertResult(booking.ID), nil
}

// ListByGuestEmail はゲストのメールアドレスに一致する予約を返す。
func (r *MongoBookingRepo) ListByGuestEmail(ctx context.Context, email string) ([]*model.Booking, error) {
	return r.find(ctx, bson.D{{Key: "guest.email", Value: email}})
}

// ListByHostEmail はホストのメールアドレスに一致する予約を返す。
// hostが文字列で保存された旧データも対象にする。
func (r *MongoBookingRepo) ListByHostEmail(ctx context.Context, email string) ([]*model.Booking, error) {
	return r.find(ctx, hostEmailFilter(email))
}

// Delete は指定IDの予約を削除する。
func (r *MongoBookingRepo) Delete(ctx context.Context, id string) (*model.DeleteResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.NewDeleteResult(0), nil
	}

	res, err := r.bookings.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return nil, fmt.Errorf("failed to delete booking: %w", err)
	}

	return model.NewDeleteResult(res.DeletedCount), nil
}

// CreateWithReservation は部屋を比較交換で確保してから予約を挿入する。
// 挿入に失敗した場合は部屋を空き状態に戻す。
func (r *MongoBookingRepo) CreateWithReservation(ctx context.Context, booking *model.Booking) (*model.InsertResult, error) {
	oid, err := primitive.ObjectIDFromHex(booking.RoomID)
	if err != nil {
		return nil, ErrRoomNotFound
	}

	reserved, err := r.rooms.reserve(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !reserved.Found() {
		return nil, ErrRoomNotFound
	}

	result, err := r.Create(ctx, booking)
	if err != nil {
		if releaseErr := r.rooms.release(context.WithoutCancel(ctx), oid); releaseErr != nil {
			slog.Error("部屋の予約状態の巻き戻しに失敗しました",
				slog.String("room_id", booking.RoomID),
				slog.String("error", releaseErr.Error()),
			)
		}
		return nil, err
	}

	return result, nil
}

func hostEmailFilter(email string) bson.D {
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "host.email", Value: email}},
		bson.D{{Key: "host", Value: email}},
	}}}
}

func (r *MongoBookingRepo) find(ctx context.Context, filter bson.D) ([]*model.Booking, error) {
	cur, err := r.bookings.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer cur.Close(ctx)

	var docs []bookingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	bookings := make([]*model.Booking, 0, len(docs))
	for _, doc := range docs {
		bookings = append(bookings, doc.toModel())
	}
	return bookings, nil
}

// compile-time interface check
var _ BookingRepository = (*MongoBookingRepo)(nil)
