package email

import (
	"context"
	"fmt"

	"github.com/inbucket/html2text"
	mail "github.com/wneessen/go-mail"
)

// SMTPConfig is embedded into the application config (squashed).
type SMTPConfig struct {
	Host     string `mapstructure:"email_host"`
	Port     int    `mapstructure:"email_port"`
	Username string `mapstructure:"email_username"`
	Password string `mapstructure:"email_password"`
	From     string `mapstructure:"email_from"`
}

// Message represents an outgoing email.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string // optional, will be auto-generated from HTML if empty
}

// Sender delivers messages. The reminder job only needs this much.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Client sends mail over SMTP.
type Client struct {
	cfg SMTPConfig
}

func NewClient(cfg SMTPConfig) *Client {
	return &Client{cfg: cfg}
}

// Send delivers a message as multipart/alternative (text + HTML).
func (c *Client) Send(ctx context.Context, msg *Message) error {
	if msg.Text == "" {
		text, err := htmlToText(msg.HTML)
		if err != nil {
			return fmt.Errorf("failed to convert HTML to text: %w", err)
		}
		msg.Text = text
	}

	m := mail.NewMsg()
	if err := m.From(c.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)

	opts := []mail.Option{
		mail.WithPort(c.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if c.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(c.cfg.Username),
			mail.WithPassword(c.cfg.Password),
		)
	}

	client, err := mail.NewClient(c.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	return client.DialAndSendWithContext(ctx, m)
}

// htmlToText converts HTML to plain text
func htmlToText(htmlContent string) (string, error) {
	text, err := html2text.FromString(htmlContent, html2text.Options{
		PrettyTables: false,
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
