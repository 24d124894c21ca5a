package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	gomail "github.com/wneessen/go-mail"
)

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	BaseURL  string
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPMailer sends HTML email through an SMTP relay.
type SMTPMailer struct {
	cfg    Config
	client sender
}

// NewSMTPMailer dials nothing; the connection is opened per message.
func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthAutoDiscover),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	c, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{cfg: cfg, client: c}, nil
}

var resetBody = template.Must(template.New("reset").Parse(`<html>
<body>
<h2>Password Reset Request</h2>
<p>Dear {{.Name}},</p>
<p>You have requested to reset your password. Please click the link below to reset your password:</p>
<p><a href="{{.Link}}" style="background-color: #007bff; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Reset Password</a></p>
<p>This link will expire in 1 hour.</p>
<p>If you did not request a password reset, please ignore this email.</p>
</body>
</html>`))

func (m *SMTPMailer) buildMessage(to, displayName, token string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if m.cfg.FromName != "" {
		if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}
	} else if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	msg.Subject("Password Reset Request")
	msg.SetDate()
	msg.SetMessageID()

	var body bytes.Buffer
	err := resetBody.Execute(&body, struct{ Name, Link string }{displayName, ResetLink(m.cfg.BaseURL, token, to)})
	if err != nil {
		return nil, err
	}
	msg.SetBodyString(gomail.TypeTextHTML, body.String())
	return msg, nil
}

// SendPasswordReset sends the reset link to one recipient.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, displayName, token string) error {
	msg, err := m.buildMessage(to, displayName, token)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
