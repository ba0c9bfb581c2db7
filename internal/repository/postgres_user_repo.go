package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/aircnc/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sqlx.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sqlx.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowxContext(ctx,
		`SELECT email, name, image, role, created_at, updated_at FROM users WHERE email = $1`,
		email,
	).Scan(&user.Email, &user.Name, &user.Image, &user.Role, &user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return user, nil
}

// Upsert はユーザーを作成または更新する。空文字のフィールドは既存の値を維持する。
func (r *PostgresUserRepo) Upsert(ctx context.Context, email string, in model.UserInput) (*model.UpdateResult, error) {
	var inserted bool
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (email, name, image, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now())
		 ON CONFLICT (email) DO UPDATE SET
		 	name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
		 	image = COALESCE(NULLIF(EXCLUDED.image, ''), users.image),
		 	role = COALESCE(NULLIF(EXCLUDED.role, ''), users.role),
		 	updated_at = now()
		 RETURNING (xmax = 0) AS inserted`,
		email, in.Name, in.Image, in.Role,
	).Scan(&inserted)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	if inserted {
		return model.NewUpsertedResult(email), nil
	}
	return model.NewUpdateResult(1, 1), nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
