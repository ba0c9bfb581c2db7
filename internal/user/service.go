// Package user はユーザープロフィール管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/aircnc/internal/model"
	"github.com/hitoshi/aircnc/internal/repository"
)

// Service はユーザープロフィールのサービス層。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// Upsert はメールアドレスをキーにプロフィールを作成または更新する。
func (s *Service) Upsert(ctx context.Context, email string, in model.UserInput) (*model.UpdateResult, error) {
	if email == "" {
		return nil, model.NewInvalidRequestError("email is required")
	}

	result, err := s.userRepo.Upsert(ctx, email, in)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの保存に失敗しました: %w", err)
	}

	if result.UpsertedCount > 0 {
		slog.Info("ユーザーを登録しました", slog.String("email", email))
	}
	return result, nil
}

// Get は指定メールアドレスのユーザーを返す。見つからない場合はnilを返す。
func (s *Service) Get(ctx context.Context, email string) (*model.User, error) {
	u, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return u, nil
}
