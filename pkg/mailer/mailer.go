package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/threadhouse-backend/pkg/config"
)

// SendFunc matches smtp.SendMail so tests can capture outgoing mail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Message is one rendered email.
type Message struct {
	To       []string
	Subject  string
	HTMLBody string
}

// Sender delivers messages through an SMTP relay.
type Sender struct {
	cfg  config.SMTPConfig
	auth smtp.Auth
	send SendFunc
	now  func() time.Time
}

// Option customizes a Sender.
type Option func(*Sender)

// WithSendFunc swaps the transport.
func WithSendFunc(fn SendFunc) Option {
	return func(s *Sender) {
		if fn != nil {
			s.send = fn
		}
	}
}

// WithClock overrides the Date header source.
func WithClock(now func() time.Time) Option {
	return func(s *Sender) {
		if now != nil {
			s.now = now
		}
	}
}

// New validates cfg and returns a Sender.
func New(cfg config.SMTPConfig, opts ...Option) (*Sender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("smtp from address: %w", err)
	}
	s := &Sender{cfg: cfg, send: smtp.SendMail, now: time.Now}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AdminRecipient returns the configured operator inbox, if any.
func (s *Sender) AdminRecipient() string {
	return strings.TrimSpace(s.cfg.AdminTo)
}

// Send delivers msg to each recipient separately so one bad address does
// not block the others. Failures are combined into one error.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	recipients := cleanRecipients(msg.To)
	if len(recipients) == 0 {
		return errors.New("mail has no recipients")
	}

	var errs error
	for _, to := range recipients {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		body := buildMessage(s.cfg.From, to, msg.Subject, msg.HTMLBody, s.now())
		if err := s.send(s.cfg.Addr(), s.auth, s.cfg.From, []string{to}, body); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("send to %s: %w", to, err))
		}
	}
	return errs
}

func cleanRecipients(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		addr := strings.TrimSpace(raw)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}

func buildMessage(from, to, subject, html string, date time.Time) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", date.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(html)
	return buf.Bytes()
}
