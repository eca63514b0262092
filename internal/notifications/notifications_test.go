package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	"github.com/angelmondragon/threadhouse-backend/pkg/logger"
	"github.com/angelmondragon/threadhouse-backend/pkg/mailer"
)

type captureSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (s *captureSender) Send(ctx context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type capturePublisher struct {
	data  []byte
	attrs map[string]string
	err   error
}

func (p *capturePublisher) Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.data, p.attrs = data, attrs
	return "msg-1", nil
}

type memoryGuard struct {
	seen    map[string]bool
	deleted []string
	err     error
}

func newMemoryGuard() *memoryGuard { return &memoryGuard{seen: map[string]bool{}} }

func (g *memoryGuard) CheckAndMark(ctx context.Context, id string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.seen[id] {
		return true, nil
	}
	g.seen[id] = true
	return false, nil
}

func (g *memoryGuard) Delete(ctx context.Context, id string) error {
	delete(g.seen, id)
	g.deleted = append(g.deleted, id)
	return nil
}

type countingMetrics struct {
	success, failure map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{success: map[string]int{}, failure: map[string]int{}}
}

func (m *countingMetrics) ObserveDuration(string, time.Duration) {}
func (m *countingMetrics) IncSuccess(job string)                 { m.success[job]++ }
func (m *countingMetrics) IncFailure(job string)                 { m.failure[job]++ }

func sampleSummary() OrderSummary {
	return OrderSummary{
		OrderID:       uuid.New(),
		CustomerName:  "Ada Lovelace",
		Email:         "ada@example.com",
		Status:        enums.OrderStatusPending,
		PaymentMethod: enums.PaymentMethodCOD,
		Subtotal:      decimal.NewFromInt(1999),
		Discount:      decimal.NewFromInt(501),
		Shipping:      decimal.NewFromInt(50),
		Taxes:         decimal.Zero,
		Total:         decimal.NewFromInt(1548),
		Lines: []Line{
			{Name: "Boxy Tee <Black>", Size: "M", Color: "Black", Quantity: 1, GiftWrapping: true, LineTotal: "530.00"},
		},
		PlacedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRenderOrderPlaced(t *testing.T) {
	job := OrderPlacedJob(sampleSummary(), "shop@threadhouse.local")
	require.NoError(t, job.Validate())
	assert.Equal(t, []string{"ada@example.com", "shop@threadhouse.local"}, job.To)

	msg, err := Render(job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg.Subject, "Order "))
	assert.Contains(t, msg.HTMLBody, "Total: 1548.00")
	assert.Contains(t, msg.HTMLBody, "Discount: 501.00")
	assert.Contains(t, msg.HTMLBody, "(gift wrapped)")
	assert.Contains(t, msg.HTMLBody, "Boxy Tee &lt;Black&gt;")
}

func TestRenderEveryKind(t *testing.T) {
	jobs := []Job{
		OrderPlacedJob(sampleSummary(), ""),
		OrderStatusJob(sampleSummary()),
		OrderPaidJob(sampleSummary()),
		PasswordResetJob("ada@example.com", "Ada", "Tmp12345"),
		CustomStyleReceivedJob("ada@example.com", "Ada", "Hoodie", uuid.New()),
	}
	for _, job := range jobs {
		msg, err := Render(job)
		require.NoError(t, err, job.Kind)
		assert.NotEmpty(t, msg.Subject, job.Kind)
		assert.NotEmpty(t, msg.HTMLBody, job.Kind)
	}

	reset, err := Render(jobs[3])
	require.NoError(t, err)
	assert.Contains(t, reset.HTMLBody, "Tmp12345")

	_, err = Render(Job{ID: uuid.New(), Kind: "unknown", To: []string{"a@b.c"}})
	assert.Error(t, err)
}

func TestJobValidate(t *testing.T) {
	job := PasswordResetJob(" ", "Ada", "x")
	assert.Error(t, job.Validate())
	job.To = []string{"ada@example.com"}
	assert.NoError(t, job.Validate())
	job.ID = uuid.Nil
	assert.Error(t, job.Validate())
}

func TestQueueDispatcherPublishesJSON(t *testing.T) {
	pub := &capturePublisher{}
	d, err := NewQueueDispatcher(pub, logger.Nop())
	require.NoError(t, err)

	job := OrderStatusJob(sampleSummary())
	require.NoError(t, d.Dispatch(context.Background(), job))
	assert.Equal(t, string(enums.EmailKindOrderStatus), pub.attrs["kind"])

	var decoded Job
	require.NoError(t, json.Unmarshal(pub.data, &decoded))
	assert.Equal(t, job.ID, decoded.ID)
	assert.Equal(t, job.Vars["total"], decoded.Vars["total"])

	pub.err = errors.New("unavailable")
	assert.Error(t, d.Dispatch(context.Background(), job))
}

func TestDirectDispatcherSends(t *testing.T) {
	s := &captureSender{}
	d, err := NewDirectDispatcher(s, nil)
	require.NoError(t, err)
	require.NoError(t, d.Dispatch(context.Background(), PasswordResetJob("ada@example.com", "Ada", "pw")))
	require.Len(t, s.sent, 1)
	assert.Equal(t, []string{"ada@example.com"}, s.sent[0].To)
}

func newTestConsumer(s *captureSender, g *memoryGuard, m *countingMetrics) *Consumer {
	return &Consumer{sender: s, guard: g, metrics: m, logg: logger.Nop()}
}

func TestConsumerDeliversOnce(t *testing.T) {
	s, g, m := &captureSender{}, newMemoryGuard(), newCountingMetrics()
	c := newTestConsumer(s, g, m)
	data, err := json.Marshal(OrderPlacedJob(sampleSummary(), ""))
	require.NoError(t, err)

	assert.Equal(t, processResult{ack: true}, c.process(context.Background(), data))
	assert.Equal(t, processResult{ack: true}, c.process(context.Background(), data))
	assert.Len(t, s.sent, 1)
	assert.Equal(t, 1, m.success[string(enums.EmailKindOrderPlaced)])
}

func TestConsumerNacksAndReleasesOnSendFailure(t *testing.T) {
	s, g, m := &captureSender{err: errors.New("relay down")}, newMemoryGuard(), newCountingMetrics()
	c := newTestConsumer(s, g, m)
	job := PasswordResetJob("ada@example.com", "Ada", "pw")
	data, err := json.Marshal(job)
	require.NoError(t, err)

	assert.Equal(t, processResult{nack: true}, c.process(context.Background(), data))
	assert.Equal(t, []string{job.ID.String()}, g.deleted)
	assert.Equal(t, 1, m.failure[string(enums.EmailKindPasswordReset)])
}

func TestConsumerAcksPoisonMessages(t *testing.T) {
	s, g, m := &captureSender{}, newMemoryGuard(), newCountingMetrics()
	c := newTestConsumer(s, g, m)

	assert.Equal(t, processResult{ack: true}, c.process(context.Background(), []byte("{not json")))
	invalid, err := json.Marshal(Job{ID: uuid.New(), Kind: "bogus", To: []string{"a@b.c"}})
	require.NoError(t, err)
	assert.Equal(t, processResult{ack: true}, c.process(context.Background(), invalid))
	assert.Empty(t, s.sent)
	assert.Equal(t, 1, m.failure[""])
	assert.Equal(t, 1, m.failure["bogus"])
}

func TestConsumerNacksWhenGuardUnavailable(t *testing.T) {
	g := newMemoryGuard()
	g.err = errors.New("redis down")
	c := newTestConsumer(&captureSender{}, g, newCountingMetrics())
	data, err := json.Marshal(PasswordResetJob("ada@example.com", "Ada", "pw"))
	require.NoError(t, err)
	assert.Equal(t, processResult{nack: true}, c.process(context.Background(), data))
}
