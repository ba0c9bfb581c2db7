package model

import (
	"fmt"
	"time"
)

// BookingConfirmationSubject は予約確定通知メールの件名。
const BookingConfirmationSubject = "Booking Successfully"

// Booking はゲストによる予約レコードを表す。
// 部屋の情報は予約時点のコピーであり、部屋の削除はカスケードしない。
// 作成後は削除以外で変更されない。
type Booking struct {
	ID            string    `json:"_id"`
	RoomID        string    `json:"roomId,omitempty"`
	Title         string    `json:"title,omitempty"`
	Location      string    `json:"location,omitempty"`
	Image         string    `json:"image,omitempty"`
	Price         float64   `json:"price,omitempty"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to,omitempty"`
	Date          string    `json:"date,omitempty"`
	Guest         Party     `json:"guest"`
	Host          Party     `json:"host"`
	TransactionID string    `json:"transactionId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ConfirmationMessage は予約確定通知の本文を返す。
// 割り当て済みの予約IDと決済トランザクションIDを含む。
func ConfirmationMessage(bookingID, transactionID string) string {
	return fmt.Sprintf("Booking Id: %s, TransactionId: %s", bookingID, transactionID)
}
