package model

import "time"

// User はメールアドレスをキーとするユーザープロフィールを表す。
type User struct {
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Image     string    `json:"image,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserInput はユーザーのアップサートリクエストの入力。
// 空文字のフィールドは既存の値を維持する。
type UserInput struct {
	Name  string `json:"name"`
	Image string `json:"image"`
	Role  string `json:"role"`
}
