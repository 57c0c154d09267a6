package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

type mailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
	DialWithContext(ctx context.Context) error
	Close() error
}

// Email sends the digest to the mail account itself over SMTP with implicit TLS.
type Email struct {
	user      string
	newClient func() (mailClient, error)
}

// NewEmail creates an Email notifier authenticating as user with an app password.
func NewEmail(host string, port int, user, password string) *Email {
	return &Email{
		user: user,
		newClient: func() (mailClient, error) {
			return mail.NewClient(host,
				mail.WithPort(port),
				mail.WithSSL(),
				mail.WithSMTPAuth(mail.SMTPAuthPlain),
				mail.WithUsername(user),
				mail.WithPassword(password),
				mail.WithTimeout(30*time.Second),
			)
		},
	}
}

// Notify sends subject and body as a plain-text message from and to the account.
func (e *Email) Notify(ctx context.Context, subject, body string) error {
	msg, err := e.message(subject, body)
	if err != nil {
		return err
	}
	c, err := e.newClient()
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// Check logs in to the SMTP server and disconnects without sending.
func (e *Email) Check(ctx context.Context) error {
	c, err := e.newClient()
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := c.DialWithContext(ctx); err != nil {
		return fmt.Errorf("smtp login: %w", err)
	}
	return c.Close()
}

func (e *Email) message(subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(e.user); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(e.user); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
