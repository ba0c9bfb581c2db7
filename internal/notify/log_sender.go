package notify

import (
	"context"
	"log/slog"
)

// LogSender はメール認証情報が未設定の環境で使うSender実装。
// 通知を送信せずログに記録する。
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender はLogSenderを生成する。
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send は通知の内容をログに記録する。宛先が空の場合はErrInvalidNotificationを返す。
func (s *LogSender) Send(ctx context.Context, n Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "メール送信が無効のため通知をログに記録しました",
		slog.String("to", n.To),
		slog.String("subject", n.Subject),
		slog.String("message", n.Message),
	)
	return nil
}

// compile-time interface check
var _ Sender = (*LogSender)(nil)
