// Package notify は予約確定通知の配送を提供する。
//
// Dispatcherは呼び出し元をブロックせずに通知を受け付け、失敗はログに記録して握りつぶす。
// 再送やデッドレターは行わない。
package notify

import (
	"context"
	"errors"
)

// ErrInvalidNotification は宛先が空の通知を表す。
var ErrInvalidNotification = errors.New("notification has no recipient")

// Notification は1通の通知メッセージ。
type Notification struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Validate は通知が送信可能かを検証する。
func (n Notification) Validate() error {
	if n.To == "" {
		return ErrInvalidNotification
	}
	return nil
}

// Sender は通知を1通送信する。
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Dispatcher は通知の配送を受け付ける。
// 実装は呼び出し元を長時間ブロックせず、エラーを返さない。
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification)
}
