package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/aircnc/internal/middleware"
	"github.com/hitoshi/aircnc/internal/model"
)

// RoomServiceInterface は部屋ハンドラーが必要とするサービスインターフェース。
type RoomServiceInterface interface {
	Create(ctx context.Context, room *model.Room) (*model.InsertResult, error)
	List(ctx context.Context) ([]*model.Room, error)
	Get(ctx context.Context, id string) (*model.Room, error)
	// ListByHostEmail は要求者本人の部屋一覧を返す。本人でない場合はFORBIDDEN。
	ListByHostEmail(ctx context.Context, email, requesterEmail string) ([]*model.Room, error)
	Replace(ctx context.Context, id string, in model.RoomInput) (*model.UpdateResult, error)
	SetBookedStatus(ctx context.Context, id string, booked bool) (*model.UpdateResult, error)
	Reserve(ctx context.Context, id string) (*model.UpdateResult, error)
	Delete(ctx context.Context, id string) (*model.DeleteResult, error)
}

// RoomHandler は部屋管理のHTTPハンドラー。
type RoomHandler struct {
	service RoomServiceInterface
}

// NewRoomHandler はRoomHandlerを生成する。
func NewRoomHandler(service RoomServiceInterface) *RoomHandler {
	return &RoomHandler{service: service}
}

// statusRequest は予約状態更新リクエストのボディ。
type statusRequest struct {
	Status *bool `json:"status"`
}

// CreateRoom は部屋を登録する。
// POST /rooms
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var in model.RoomInput
	if !decodeJSON(w, r, &in) {
		return
	}

	room := in.ToRoom()
	result, err := h.service.Create(r.Context(), &room)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListRooms は全部屋を返す。
// GET /rooms
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rooms)
}

// GetRoom は部屋を1件返す。存在しない場合はnullを返す。
// GET /room/:id
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// ListHostRooms はトークン本人がホストの部屋一覧を返す。
// GET /rooms/:email
func (h *RoomHandler) ListHostRooms(w http.ResponseWriter, r *http.Request) {
	requester, err := middleware.EmailFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError("token has no email"))
		return
	}

	rooms, err := h.service.ListByHostEmail(r.Context(), chi.URLParam(r, "email"), requester)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rooms)
}

// ReplaceRoom は部屋を置換する。存在しない場合は作成する。
// PUT /rooms/:id
func (h *RoomHandler) ReplaceRoom(w http.ResponseWriter, r *http.Request) {
	var in model.RoomInput
	if !decodeJSON(w, r, &in) {
		return
	}

	result, err := h.service.Replace(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// UpdateStatus は部屋の予約状態を書き込む。
// PATCH /rooms/status/:id
func (h *RoomHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("status must be a boolean"))
		return
	}

	result, err := h.service.SetBookedStatus(r.Context(), chi.URLParam(r, "id"), *req.Status)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ReserveRoom は空き状態の部屋を予約済みにする。予約済みの場合は409。
// POST /rooms/:id/reserve
func (h *RoomHandler) ReserveRoom(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Reserve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// DeleteRoom は部屋を削除する。
// DELETE /rooms/:id
func (h *RoomHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
