// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Party はホストまたはゲストの非正規化コピーを表す。
// 外部キーは持たず、メールアドレスで識別する。
type Party struct {
	Name  string `json:"name,omitempty" bson:"name,omitempty" db:"name"`
	Email string `json:"email" bson:"email" db:"email"`
	Image string `json:"image,omitempty" bson:"image,omitempty" db:"image"`
}

// UnmarshalJSON はオブジェクト形式に加え、文字列形式（メールアドレスのみ）も受け付ける。
// 旧クライアントは予約のhostをメールアドレス文字列で送信していた。
func (p *Party) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*p = Party{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var email string
		if err := json.Unmarshal(trimmed, &email); err != nil {
			return err
		}
		*p = Party{Email: email}
		return nil
	}

	type party Party
	var v party
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	*p = Party(v)
	return nil
}

// Room はホストが掲載する部屋を表す。
// Bookedが唯一の空き状況シグナルであり、他のフィールドと矛盾してはならない。
type Room struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	Price       float64   `json:"price"`
	Guests      int       `json:"guests,omitempty"`
	Bedrooms    int       `json:"bedrooms,omitempty"`
	Bathrooms   int       `json:"bathrooms,omitempty"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	Host        Party     `json:"host"`
	Booked      bool      `json:"booked"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RoomInput は部屋の作成・置換リクエストの入力。
// Bookedがnilの場合、作成時はfalse、置換時は既存の値を維持する。
type RoomInput struct {
	Title       string  `json:"title"`
	Location    string  `json:"location"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
	Guests      int     `json:"guests"`
	Bedrooms    int     `json:"bedrooms"`
	Bathrooms   int     `json:"bathrooms"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Host        Party   `json:"host"`
	Booked      *bool   `json:"booked"`
}

// ToRoom は入力から新規作成用のRoomを組み立てる。IDとタイムスタンプは設定しない。
func (in RoomInput) ToRoom() Room {
	r := Room{
		Title:       in.Title,
		Location:    in.Location,
		Category:    in.Category,
		Description: in.Description,
		Image:       in.Image,
		Price:       in.Price,
		Guests:      in.Guests,
		Bedrooms:    in.Bedrooms,
		Bathrooms:   in.Bathrooms,
		From:        in.From,
		To:          in.To,
		Host:        in.Host,
	}
	if in.Booked != nil {
		r.Booked = *in.Booked
	}
	return r
}
