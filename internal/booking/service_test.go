package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/aircnc/internal/metrics"
	"github.com/hitoshi/aircnc/internal/model"
	"github.com/hitoshi/aircnc/internal/notify"
	"github.com/hitoshi/aircnc/internal/repository"
)

// --- モック ---

type mockBookingRepo struct {
	createFn                func(ctx context.Context, b *model.Booking) (*model.InsertResult, error)
	listByGuestEmailFn      func(ctx context.Context, email string) ([]*model.Booking, error)
	listByHostEmailFn       func(ctx context.Context, email string) ([]*model.Booking, error)
	deleteFn                func(ctx context.Context, id string) (*model.DeleteResult, error)
	createWithReservationFn func(ctx context.Context, b *model.Booking) (*model.InsertResult, error)
}

func (m *mockBookingRepo) Create(ctx context.Context, b *model.Booking) (*model.InsertResult, error) {
	return m.createFn(ctx, b)
}
func (m *mockBookingRepo) ListByGuestEmail(ctx context.Context, email string) ([]*model.Booking, error) {
	return m.listByGuestEmailFn(ctx, email)
}
func (m *mockBookingRepo) ListByHostEmail(ctx context.Context, email string) ([]*model.Booking, error) {
	return m.listByHostEmailFn(ctx, email)
}
func (m *mockBookingRepo) Delete(ctx context.Context, id string) (*model.DeleteResult, error) {
	return m.deleteFn(ctx, id)
}
func (m *mockBookingRepo) CreateWithReservation(ctx context.Context, b *model.Booking) (*model.InsertResult, error) {
	return m.createWithReservationFn(ctx, b)
}

// recordingDispatcher は受け付けた通知を記録するDispatcher。
type recordingDispatcher struct {
	mu       sync.Mutex
	received []notify.Notification
	ctxs     []context.Context
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, n notify.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.received = append(d.received, n)
	d.ctxs = append(d.ctxs, ctx)
}

type spyMetrics struct {
	metrics.Nop
	paths     []string
	conflicts int
}

func (s *spyMetrics) RecordBookingCreated(path string) { s.paths = append(s.paths, path) }
func (s *spyMetrics) RecordReservationConflict()       { s.conflicts++ }

func newBooking() *model.Booking {
	return &model.Booking{
		RoomID:        "room-1",
		Title:         "Lake House",
		Price:         120,
		Guest:         model.Party{Name: "Guest", Email: "guest@example.com"},
		Host:          model.Party{Email: "host@example.com"},
		TransactionID: "pi_123",
	}
}

func insertOK(id string) func(ctx context.Context, b *model.Booking) (*model.InsertResult, error) {
	return func(ctx context.Context, b *model.Booking) (*model.InsertResult, error) {
		b.ID = id
		return model.NewInsertResult(id), nil
	}
}

// --- Create ---

// TestService_Create_DispatchesGuestAndHost は予約作成時にゲストとホストへ通知されることを検証する。
func TestService_Create_DispatchesGuestAndHost(t *testing.T) {
	repo := &mockBookingRepo{createFn: insertOK("bk-1")}
	disp := &recordingDispatcher{}
	spy := &spyMetrics{}
	svc := NewService(repo, disp, spy)

	result, err := svc.Create(context.Background(), newBooking())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.InsertedID != "bk-1" {
		t.Errorf("InsertedID = %q, want bk-1", result.InsertedID)
	}

	if len(disp.received) != 2 {
		t.Fatalf("dispatched %d notifications, want 2", len(disp.received))
	}
	if disp.received[0].To != "guest@example.com" || disp.received[1].To != "host@example.com" {
		t.Errorf("recipients = %q, %q", disp.received[0].To, disp.received[1].To)
	}
	for _, n := range disp.received {
		if n.Subject != "Booking Successfully" {
			t.Errorf("Subject = %q", n.Subject)
		}
		if !strings.Contains(n.Message, "bk-1") || !strings.Contains(n.Message, "pi_123") {
			t.Errorf("Message = %q, want booking id and transaction id", n.Message)
		}
	}
	if len(spy.paths) != 1 || spy.paths[0] != metrics.BookingPathLegacy {
		t.Errorf("paths = %v, want [legacy]", spy.paths)
	}
}

func TestService_Create_DispatchContextOutlivesRequest(t *testing.T) {
	repo := &mockBookingRepo{createFn: insertOK("bk-1")}
	disp := &recordingDispatcher{}
	svc := NewService(repo, disp, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if _, err := svc.Create(ctx, newBooking()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()

	for _, c := range disp.ctxs {
		if c.Err() != nil {
			t.Error("通知のコンテキストはリクエストのキャンセルに影響されないこと")
		}
		if _, ok := c.Deadline(); ok {
			t.Error("通知のコンテキストはリクエストの期限を引き継がないこと")
		}
	}
}

func TestService_Create_EmptyRecipientIsSkipped(t *testing.T) {
	repo := &mockBookingRepo{createFn: insertOK("bk-2")}
	disp := &recordingDispatcher{}
	svc := NewService(repo, disp, nil)

	b := newBooking()
	b.Host = model.Party{}
	if _, err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(disp.received) != 1 || disp.received[0].To != "guest@example.com" {
		t.Errorf("received = %+v, want guest only", disp.received)
	}
}

func TestService_Create_RepoErrorDispatchesNothing(t *testing.T) {
	repo := &mockBookingRepo{
		createFn: func(ctx context.Context, b *model.Booking) (*model.InsertResult, error) {
			return nil, errors.New("insert failed")
		},
	}
	disp := &recordingDispatcher{}
	svc := NewService(repo, disp, nil)

	if _, err := svc.Create(context.Background(), newBooking()); err == nil {
		t.Fatal("expected error")
	}
	if len(disp.received) != 0 {
		t.Errorf("dispatched %d notifications, want 0", len(disp.received))
	}
}

// --- Checkout ---

func TestService_Checkout_Success(t *testing.T) {
	var reserved string
	repo := &mockBookingRepo{
		createWithReservationFn: func(ctx context.Context, b *model.Booking) (*model.InsertResult, error) {
			reserved = b.RoomID
			return insertOK("bk-3")(ctx, b)
		},
	}
	disp := &recordingDispatcher{}
	spy := &spyMetrics{}
	svc := NewService(repo, disp, spy)

	result, err := svc.Checkout(context.Background(), newBooking(), "guest@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.InsertedID != "bk-3" || reserved != "room-1" {
		t.Errorf("result = %+v, reserved = %q", result, reserved)
	}
	if len(disp.received) != 2 {
		t.Errorf("dispatched %d notifications, want 2", len(disp.received))
	}
	if len(spy.paths) != 1 || spy.paths[0] != metrics.BookingPathCheckout {
		t.Errorf("paths = %v, want [checkout]", spy.paths)
	}
}

func TestService_Checkout_Errors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(b *model.Booking)
		requester string
		repoErr   error
		wantCode  string
	}{
		{
			name:      "roomIdなし",
			mutate:    func(b *model.Booking) { b.RoomID = "" },
			requester: "guest@example.com",
			wantCode:  model.ErrCodeInvalidRequest,
		},
		{
			name:      "transactionIdなし",
			mutate:    func(b *model.Booking) { b.TransactionID = "" },
			requester: "guest@example.com",
			wantCode:  model.ErrCodeInvalidRequest,
		},
		{
			name:      "トークンとゲストの不一致",
			mutate:    func(b *model.Booking) {},
			requester: "someone@example.com",
			wantCode:  model.ErrCodeForbidden,
		},
		{
			name:      "予約済み",
			mutate:    func(b *model.Booking) {},
			requester: "guest@example.com",
			repoErr:   repository.ErrRoomAlreadyBooked,
			wantCode:  model.ErrCodeConflict,
		},
		{
			name:      "部屋なし",
			mutate:    func(b *model.Booking) {},
			requester: "guest@example.com",
			repoErr:   repository.ErrRoomNotFound,
			wantCode:  model.ErrCodeRoomNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			repo := &mockBookingRepo{
				createWithReservationFn: func(ctx context.Context, b *model.Booking) (*model.InsertResult, error) {
					called = true
					return nil, tt.repoErr
				},
			}
			disp := &recordingDispatcher{}
			svc := NewService(repo, disp, nil)

			b := newBooking()
			tt.mutate(b)
			_, err := svc.Checkout(context.Background(), b, tt.requester)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != tt.wantCode {
				t.Fatalf("err = %v, want %s", err, tt.wantCode)
			}
			if tt.repoErr == nil && called {
				t.Error("検証エラーの場合はリポジトリを呼び出さないこと")
			}
			if len(disp.received) != 0 {
				t.Error("失敗時は通知しないこと")
			}
		})
	}
}

func TestService_Checkout_ConflictRecordsMetric(t *testing.T) {
	repo := &mockBookingRepo{
		createWithReservationFn: func(ctx context.Context, b *model.Booking) (*model.InsertResult, error) {
			return nil, repository.ErrRoomAlreadyBooked
		},
	}
	spy := &spyMetrics{}
	svc := NewService(repo, &recordingDispatcher{}, spy)

	_, _ = svc.Checkout(context.Background(), newBooking(), "guest@example.com")

	if spy.conflicts != 1 {
		t.Errorf("conflicts = %d, want 1", spy.conflicts)
	}
}

// --- List / Delete ---

func TestService_ListByGuest_EmptyEmailSkipsQuery(t *testing.T) {
	repo := &mockBookingRepo{
		listByGuestEmailFn: func(ctx context.Context, email string) ([]*model.Booking, error) {
			t.Fatal("リポジトリを呼び出さないこと")
			return nil, nil
		},
		listByHostEmailFn: func(ctx context.Context, email string) ([]*model.Booking, error) {
			t.Fatal("リポジトリを呼び出さないこと")
			return nil, nil
		},
	}
	svc := NewService(repo, &recordingDispatcher{}, nil)

	guest, err := svc.ListByGuest(context.Background(), "")
	if err != nil || guest == nil || len(guest) != 0 {
		t.Errorf("ListByGuest = (%v, %v), want ([], nil)", guest, err)
	}
	host, err := svc.ListByHost(context.Background(), "")
	if err != nil || host == nil || len(host) != 0 {
		t.Errorf("ListByHost = (%v, %v), want ([], nil)", host, err)
	}
}

func TestService_ListByHost_ReturnsBookings(t *testing.T) {
	repo := &mockBookingRepo{
		listByHostEmailFn: func(ctx context.Context, email string) ([]*model.Booking, error) {
			return []*model.Booking{{ID: "bk-1", Host: model.Party{Email: email}}}, nil
		},
	}
	svc := NewService(repo, &recordingDispatcher{}, nil)

	got, err := svc.ListByHost(context.Background(), "host@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "bk-1" {
		t.Errorf("got = %v, want [bk-1]", got)
	}
}

func TestService_ListByGuest_NilBecomesEmpty(t *testing.T) {
	repo := &mockBookingRepo{
		listByGuestEmailFn: func(ctx context.Context, email string) ([]*model.Booking, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, &recordingDispatcher{}, nil)

	got, err := svc.ListByGuest(context.Background(), "guest@example.com")
	if err != nil || got == nil {
		t.Errorf("ListByGuest = (%v, %v), want ([], nil)", got, err)
	}
}

func TestService_Delete(t *testing.T) {
	repo := &mockBookingRepo{
		deleteFn: func(ctx context.Context, id string) (*model.DeleteResult, error) {
			if id == "bk-1" {
				return model.NewDeleteResult(1), nil
			}
			return model.NewDeleteResult(0), nil
		},
	}
	svc := NewService(repo, &recordingDispatcher{}, nil)

	res, err := svc.Delete(context.Background(), "bk-1")
	if err != nil || res.DeletedCount != 1 {
		t.Errorf("Delete = (%+v, %v), want 1 deleted", res, err)
	}
	res, err = svc.Delete(context.Background(), "bk-1-again")
	if err != nil || res.Found() {
		t.Errorf("Delete = (%+v, %v), want zero deleted", res, err)
	}
}
