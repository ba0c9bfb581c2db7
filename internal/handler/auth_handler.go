// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/aircnc/internal/model"
)

// TokenIssuerInterface はトークン発行ハンドラーが必要とするインターフェース。
type TokenIssuerInterface interface {
	// Issue は呼び出し元のクレームに署名したトークンを返す。
	Issue(claims map[string]any) (string, error)
}

// AuthHandler はアクセストークン発行のHTTPハンドラー。
type AuthHandler struct {
	issuer TokenIssuerInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(issuer TokenIssuerInterface) *AuthHandler {
	return &AuthHandler{issuer: issuer}
}

type tokenResponse struct {
	Token string `json:"token"`
}

// IssueToken はリクエストボディのJSONオブジェクトをクレームとしてトークンを発行する。
// POST /jwt
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var claims map[string]any
	if err := json.NewDecoder(r.Body).Decode(&claims); err != nil || claims == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("claims must be a JSON object"))
		return
	}

	token, err := h.issuer.Issue(claims)
	if err != nil {
		slog.Error("failed to issue token", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}
