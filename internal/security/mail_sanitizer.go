// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MailSanitizer は通知メール本文に埋め込むテキストからHTMLタグを除去し、
// 予約データ経由のHTMLインジェクションを防ぐ。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// MailSanitizer は通知メールの本文を組み立てる。
// bluemondayのポリシーはスレッドセーフなので複数goroutineから共有できる。
type MailSanitizer struct {
	policy *bluemonday.Policy
}

// NewMailSanitizer はタグを一切許可しないポリシーでMailSanitizerを生成する。
func NewMailSanitizer() *MailSanitizer {
	return &MailSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Text はテキストから全てのHTMLタグを除去し、特殊文字をエスケープして返す。
func (s *MailSanitizer) Text(raw string) string {
	return s.policy.Sanitize(raw)
}

// Paragraph はテキストをサニタイズして<p>要素で囲んだHTML本文を返す。
func (s *MailSanitizer) Paragraph(raw string) string {
	return "<p>" + s.Text(raw) + "</p>"
}
