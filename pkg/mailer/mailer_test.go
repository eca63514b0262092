package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/threadhouse-backend/pkg/config"
)

type sentMail struct {
	addr string
	from string
	to   []string
	body string
}

func testConfig() config.SMTPConfig {
	return config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "orders@threadhouse.local", Username: "u", Password: "p"}
}

func TestSendFansOutPerRecipient(t *testing.T) {
	var sent []sentMail
	sender, err := New(testConfig(),
		WithSendFunc(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			sent = append(sent, sentMail{addr: addr, from: from, to: to, body: string(msg)})
			return nil
		}),
		WithClock(func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{
		To:       []string{"a@example.com", " ", "A@example.com", "b@example.com"},
		Subject:  "Order placed",
		HTMLBody: "<p>thanks</p>",
	})
	require.NoError(t, err)
	require.Len(t, sent, 2)
	assert.Equal(t, "smtp.example.com:587", sent[0].addr)
	assert.Equal(t, []string{"a@example.com"}, sent[0].to)
	assert.Contains(t, sent[0].body, "Subject: Order placed\r\n")
	assert.Contains(t, sent[0].body, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(sent[1].body, "<p>thanks</p>"))
}

func TestSendCombinesFailures(t *testing.T) {
	sender, err := New(testConfig(), WithSendFunc(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		if to[0] == "ok@example.com" {
			return nil
		}
		return errors.New("mailbox unavailable")
	}))
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{To: []string{"bad1@example.com", "ok@example.com", "bad2@example.com"}, Subject: "x"})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Contains(t, err.Error(), "bad2@example.com")
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(config.SMTPConfig{From: "a@b.c"})
	assert.Error(t, err)

	cfg := testConfig()
	cfg.From = "not an address"
	_, err = New(cfg)
	assert.Error(t, err)

	sender, err := New(testConfig())
	require.NoError(t, err)
	assert.Error(t, sender.Send(context.Background(), Message{To: []string{" "}}))
}
