package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/aircnc/internal/model"
)

// MongoDBのコレクション名
const (
	roomsCollection    = "rooms"
	bookingsCollection = "bookings"
	usersCollection    = "users"
)

// roomDoc はroomsコレクションのドキュメント。
type roomDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Location    string             `bson:"location"`
	Category    string             `bson:"category,omitempty"`
	Description string             `bson:"description,omitempty"`
	Image       string             `bson:"image,omitempty"`
	Price       float64            `bson:"price"`
	Guests      int                `bson:"guests,omitempty"`
	Bedrooms    int                `bson:"bedrooms,omitempty"`
	Bathrooms   int                `bson:"bathrooms,omitempty"`
	From        string             `bson:"from,omitempty"`
	To          string             `bson:"to,omitempty"`
	Host        model.Party        `bson:"host"`
	Booked      bool               `bson:"booked"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d roomDoc) toModel() *model.Room {
	return &model.Room{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Location:    d.Location,
		Category:    d.Category,
		Description: d.Description,
		Image:       d.Image,
		Price:       d.Price,
		Guests:      d.Guests,
		Bedrooms:    d.Bedrooms,
		Bathrooms:   d.Bathrooms,
		From:        d.From,
		To:          d.To,
		Host:        d.Host,
		Booked:      d.Booked,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MongoRoomRepo はMongoDBを使用した部屋リポジトリ。
type MongoRoomRepo struct {
	rooms    *mongo.Collection
	bookings *mongo.Collection
}

// NewMongoRoomRepo はMongoRoomRepoを生成する。
func NewMongoRoomRepo(db *mongo.Database) *MongoRoomRepo {
	return &MongoRoomRepo{
		rooms:    db.Collection(roomsCollection),
		bookings: db.Collection(bookingsCollection),
	}
}

// Create は部屋を作成する。
func (r *MongoRoomRepo) Create(ctx context.Context, room *model.Room) (*model.InsertResult, error) {
	now := time.Now().UTC()
	doc := roomDoc{
		ID:          primitive.NewObjectID(),
		Title:       room.Title,
		Location:    room.Location,
		Category:    room.Category,
		Description: room.Description,
		Image:       room.Image,
		Price:       room.Price,
		Guests:      room.Guests,
		Bedrooms:    room.Bedrooms,
		Bathrooms:   room.Bathrooms,
		From:        room.From,
		To:          room.To,
		Host:        room.Host,
		Booked:      room.Booked,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := r.rooms.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert room: %w", err)
	}

	room.ID = doc.ID.Hex()
	room.CreatedAt = now
	room.UpdatedAt = now
	return model.NewInsertResult(room.ID), nil
}

// List は全部屋を作成日時の降順で返す。
func (r *MongoRoomRepo) List(ctx context.Context) ([]*model.Room, error) {
	return r.find(ctx, bson.D{})
}

// FindByID は指定IDの部屋を取得する。見つからない場合はnilを返す。
func (r *MongoRoomRepo) FindByID(ctx context.Context, id string) (*model.Room, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc roomDoc
	err = r.rooms.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find room by ID: %w", err)
	}

	return doc.toModel(), nil
}

// ListByHostEmail はホストのメールアドレスに一致する部屋を返す。
func (r *MongoRoomRepo) ListByHostEmail(ctx context.Context, email string) ([]*model.Room, error) {
	return r.find(ctx, bson.D{{Key: "host.email", Value: email}})
}

// Replace は部屋を置換する。存在しない場合は作成する。
func (r *MongoRoomRepo) Replace(ctx context.Context, id string, in model.RoomInput) (*model.UpdateResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	now := time.Now().UTC()
	set := bson.D{
		{Key: "title", Value: in.Title},
		{Key: "location", Value: in.Location},
		{Key: "category", Value: in.Category},
		{Key: "description", Value: in.Description},
		{Key: "image", Value: in.Image},
		{Key: "price", Value: in.Price},
		{Key: "guests", Value: in.Guests},
		{Key: "bedrooms", Value: in.Bedrooms},
		{Key: "bathrooms", Value: in.Bathrooms},
		{Key: "from", Value: in.From},
		{Key: "to", Value: in.To},
		{Key: "host", Value: in.Host},
		{Key: "updatedAt", Value: now},
	}
	setOnInsert := bson.D{{Key: "createdAt", Value: now}}
	if in.Booked != nil {
		set = append(set, bson.E{Key: "booked", Value: *in.Booked})
	} else {
		setOnInsert = append(setOnInsert, bson.E{Key: "booked", Value: false})
	}

	res, err := r.rooms.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: set}, {Key: "$setOnInsert", Value: setOnInsert}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert room: %w", err)
	}

	if res.UpsertedCount > 0 {
		return model.NewUpsertedResult(oid.Hex()), nil
	}
	return model.NewUpdateResult(res.MatchedCount, res.ModifiedCount), nil
}

// SetBooked は予約状態を無条件に書き込む。
// 同じ値を書き込んだ場合、ModifiedCountは0になる。
func (r *MongoRoomRepo) SetBooked(ctx context.Context, id string, booked bool) (*model.UpdateResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.NewUpdateResult(0, 0), nil
	}

	res, err := r.rooms.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "booked", Value: booked}}}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set room booked status: %w", err)
	}

	return model.NewUpdateResult(res.MatchedCount, res.ModifiedCount), nil
}

// Reserve は空き状態の部屋を予約済みにする。
func (r *MongoRoomRepo) Reserve(ctx context.Context, id string) (*model.UpdateResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.NewUpdateResult(0, 0), nil
	}
	return r.reserve(ctx, oid)
}

func (r *MongoRoomRepo) reserve(ctx context.Context, oid primitive.ObjectID) (*model.UpdateResult, error) {
	res, err := r.rooms.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}, {Key: "booked", Value: false}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "booked", Value: true},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve room: %w", err)
	}
	if res.MatchedCount > 0 {
		return model.NewUpdateResult(res.MatchedCount, res.ModifiedCount), nil
	}

	count, err := r.rooms.CountDocuments(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return nil, fmt.Errorf("failed to check room existence: %w", err)
	}
	if count > 0 {
		return nil, ErrRoomAlreadyBooked
	}
	return model.NewUpdateResult(0, 0), nil
}

// release は確保した部屋を空き状態に戻す。予約の挿入失敗時の補償処理に使う。
func (r *MongoRoomRepo) release(ctx context.Context, oid primitive.ObjectID) error {
	_, err := r.rooms.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}, {Key: "booked", Value: true}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "booked", Value: false}}}},
	)
	if err != nil {
		return fmt.Errorf("failed to release room: %w", err)
	}
	return nil
}

// Delete は指定IDの部屋を削除する。
func (r *MongoRoomRepo) Delete(ctx context.Context, id string) (*model.DeleteResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.NewDeleteResult(0), nil
	}

	res, err := r.rooms.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return nil, fmt.Errorf("failed to delete room: %w", err)
	}

	return model.NewDeleteResult(res.DeletedCount), nil
}

// MarkBookedWithBookings は予約が存在する空き部屋を予約済みにする。
func (r *MongoRoomRepo) MarkBookedWithBookings(ctx context.Context) (int64, error) {
	values, err := r.bookings.Distinct(ctx, "roomId", bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to list booked room IDs: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		oid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			continue
		}
		ids = append(ids, oid)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := r.rooms.UpdateMany(ctx,
		bson.D{
			{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}},
			{Key: "booked", Value: false},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "booked", Value: true},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile booked rooms: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *MongoRoomRepo) find(ctx context.Context, filter bson.D) ([]*model.Room, error) {
	cur, err := r.rooms.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer cur.Close(ctx)

	rooms := make([]*model.Room, 0)
	for cur.Next(ctx) {
		var doc roomDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode room: %w", err)
		}
		rooms = append(rooms, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}

	return rooms, nil
}

// compile-time interface check
var _ RoomRepository = (*MongoRoomRepo)(nil)
