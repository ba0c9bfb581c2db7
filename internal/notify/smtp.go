package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/hitoshi/aircnc/internal/security"
)

// SMTPConfig はSMTP送信の設定。
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// mailClient はgo-mailのクライアントのうち送信に使う部分。
type mailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPSender はgo-mailを使用してHTMLメールを送信するSender実装。
type SMTPSender struct {
	client    mailClient
	from      string
	sanitizer *security.MailSanitizer
}

// NewSMTPSender はSMTPSenderを生成する。クライアントは送信ごとに接続する。
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}

	return &SMTPSender{
		client:    client,
		from:      from,
		sanitizer: security.NewMailSanitizer(),
	}, nil
}

// Send は通知を<p>要素で囲んだHTMLメールとして送信する。
func (s *SMTPSender) Send(ctx context.Context, n Notification) error {
	msg, err := s.buildMessage(n)
	if err != nil {
		return err
	}

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

func (s *SMTPSender) buildMessage(n Notification) (*mail.Msg, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(n.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(n.Subject)
	msg.SetBodyString(mail.TypeTextHTML, s.sanitizer.Paragraph(n.Message))

	return msg, nil
}

// compile-time interface check
var _ Sender = (*SMTPSender)(nil)
