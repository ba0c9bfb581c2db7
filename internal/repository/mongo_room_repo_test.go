package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hitoshi/aircnc/internal/model"
)

func TestMongoRepos_ImplementInterfaces(t *testing.T) {
	var _ RoomRepository = (*MongoRoomRepo)(nil)
	var _ BookingRepository = (*MongoBookingRepo)(nil)
}

// 不正なObjectIDはDBに問い合わせず「該当なし」として扱われることを検証
func TestMongoRoomRepo_InvalidObjectID_TreatedAsNoMatch(t *testing.T) {
	repo := &MongoRoomRepo{}
	ctx := context.Background()

	room, err := repo.FindByID(ctx, "zzz")
	if err != nil || room != nil {
		t.Errorf("FindByID = (%v, %v), want (nil, nil)", room, err)
	}

	upd, err := repo.SetBooked(ctx, "zzz", false)
	if err != nil {
		t.Fatalf("SetBooked returned error: %v", err)
	}
	if upd.Found() {
		t.Errorf("SetBooked = %+v, want zero match", upd)
	}

	del, err := repo.Delete(ctx, "zzz")
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if del.Found() {
		t.Errorf("Delete = %+v, want zero deleted", del)
	}

	if _, err := repo.Replace(ctx, "zzz", model.RoomInput{}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Replace error = %v, want ErrInvalidID", err)
	}
}

func TestMongoBookingRepo_InvalidIDs(t *testing.T) {
	repo := &MongoBookingRepo{rooms: &MongoRoomRepo{}}
	ctx := context.Background()

	del, err := repo.Delete(ctx, "zzz")
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if del.DeletedCount != 0 {
		t.Errorf("DeletedCount = %d, want 0", del.DeletedCount)
	}

	_, err = repo.CreateWithReservation(ctx, &model.Booking{RoomID: "zzz"})
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("CreateWithReservation error = %v, want ErrRoomNotFound", err)
	}
}

func TestRoomDoc_ToModel(t *testing.T) {
	oid := primitive.NewObjectID()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := roomDoc{
		ID:        oid,
		Title:     "Hill Cabin",
		Price:     80,
		Host:      model.Party{Email: "host@example.com"},
		Booked:    true,
		CreatedAt: now,
	}

	got := doc.toModel()
	if got.ID != oid.Hex() {
		t.Errorf("ID = %q, want %q", got.ID, oid.Hex())
	}
	if got.Title != "Hill Cabin" || got.Price != 80 || !got.Booked || got.Host.Email != "host@example.com" {
		t.Errorf("unexpected room: %+v", got)
	}
}

func TestBookingDocFromModel_AssignsIDAndCreatedAt(t *testing.T) {
	b := &model.Booking{RoomID: "64f1a2b3c4d5e6f708192a3b", TransactionID: "pi_1"}

	doc := bookingDocFromModel(b)
	if doc.ID.IsZero() {
		t.Error("expected ObjectID to be assigned")
	}
	if doc.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be assigned")
	}
	if doc.toModel().TransactionID != "pi_1" {
		t.Errorf("TransactionID = %q, want %q", doc.toModel().TransactionID, "pi_1")
	}
}

// 旧データのhostはメールアドレス文字列で保存されている
func TestBookingDoc_DecodesLegacyStringHost(t *testing.T) {
	raw, err := bson.Marshal(bson.D{
		{Key: "guest", Value: bson.D{{Key: "email", Value: "g@example.com"}, {Key: "name", Value: "Guest"}}},
		{Key: "host", Value: "h@example.com"},
		{Key: "transactionId", Value: "t1"},
	})
	if err != nil {
		t.Fatalf("bson.Marshal returned error: %v", err)
	}

	var doc bookingDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("bson.Unmarshal returned error: %v", err)
	}

	got := doc.toModel()
	if got.Host != (model.Party{Email: "h@example.com"}) {
		t.Errorf("Host = %+v, want email-only party", got.Host)
	}
	if got.Guest.Email != "g@example.com" || got.Guest.Name != "Guest" {
		t.Errorf("Guest = %+v", got.Guest)
	}
}

func TestBookingDoc_PartyRoundTripsAsDocument(t *testing.T) {
	doc := bookingDocFromModel(&model.Booking{
		Host:  model.Party{Name: "Host", Email: "h@example.com"},
		Guest: model.Party{Email: "g@example.com"},
	})

	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("bson.Marshal returned error: %v", err)
	}
	if host := bson.Raw(raw).Lookup("host"); host.Type != bsontype.EmbeddedDocument {
		t.Errorf("host stored as %s, want embedded document", host.Type)
	}

	var decoded bookingDoc
	if err := bson.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("bson.Unmarshal returned error: %v", err)
	}
	if decoded.toModel().Host != (model.Party{Name: "Host", Email: "h@example.com"}) {
		t.Errorf("Host = %+v", decoded.Host)
	}
}

func TestBookingDoc_RejectsUnexpectedHostType(t *testing.T) {
	raw, err := bson.Marshal(bson.D{{Key: "host", Value: int32(7)}})
	if err != nil {
		t.Fatalf("bson.Marshal returned error: %v", err)
	}

	var doc bookingDoc
	if err := bson.Unmarshal(raw, &doc); err == nil {
		t.Error("expected error for numeric host, got nil")
	}
}

func TestHostEmailFilter_MatchesBothShapes(t *testing.T) {
	filter := hostEmailFilter("h@example.com")
	if len(filter) != 1 || filter[0].Key != "$or" {
		t.Fatalf("filter = %v, want single $or", filter)
	}
	clauses, ok := filter[0].Value.(bson.A)
	if !ok || len(clauses) != 2 {
		t.Fatalf("$or clauses = %v", filter[0].Value)
	}
	want := []string{"host.email", "host"}
	for i, c := range clauses {
		d := c.(bson.D)
		if d[0].Key != want[i] || d[0].Value != "h@example.com" {
			t.Errorf("clause[%d] = %v, want %s = h@example.com", i, d, want[i])
		}
	}
}
