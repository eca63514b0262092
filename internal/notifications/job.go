package notifications

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
)

// Job is one queued transactional email. It travels as JSON on the email topic.
type Job struct {
	ID        uuid.UUID         `json:"id"`
	Kind      enums.EmailKind   `json:"kind"`
	To        []string          `json:"to"`
	Vars      map[string]string `json:"vars,omitempty"`
	Lines     []Line            `json:"lines,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Line is an order line rendered in order emails.
type Line struct {
	Name         string `json:"name"`
	Size         string `json:"size"`
	Color        string `json:"color,omitempty"`
	Quantity     int    `json:"quantity"`
	GiftWrapping bool   `json:"giftWrapping"`
	LineTotal    string `json:"lineTotal"`
}

// Validate rejects jobs that could never be delivered.
func (j Job) Validate() error {
	if j.ID == uuid.Nil {
		return errors.New("job id is required")
	}
	if !j.Kind.IsValid() {
		return fmt.Errorf("invalid email kind %q", j.Kind)
	}
	for _, to := range j.To {
		if strings.TrimSpace(to) != "" {
			return nil
		}
	}
	return errors.New("job has no recipients")
}

// OrderSummary is the order data order emails need.
type OrderSummary struct {
	OrderID       uuid.UUID
	CustomerName  string
	Email         string
	Status        enums.OrderStatus
	PaymentMethod enums.PaymentMethod
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Shipping      decimal.Decimal
	Taxes         decimal.Decimal
	Total         decimal.Decimal
	Lines         []Line
	PlacedAt      time.Time
}

func newJob(kind enums.EmailKind, to []string, vars map[string]string) Job {
	return Job{
		ID:        uuid.New(),
		Kind:      kind,
		To:        to,
		Vars:      vars,
		CreatedAt: time.Now().UTC(),
	}
}

func (s OrderSummary) vars() map[string]string {
	return map[string]string{
		"order_id":       s.OrderID.String(),
		"customer_name":  s.CustomerName,
		"status":         s.Status.String(),
		"payment_method": string(s.PaymentMethod),
		"subtotal":       s.Subtotal.StringFixed(2),
		"discount":       s.Discount.StringFixed(2),
		"shipping":       s.Shipping.StringFixed(2),
		"taxes":          s.Taxes.StringFixed(2),
		"total":          s.Total.StringFixed(2),
		"placed_at":      s.PlacedAt.UTC().Format("02 Jan 2006 15:04 MST"),
	}
}

// OrderPlacedJob confirms a new order to the buyer, copying the shop inbox when set.
func OrderPlacedJob(s OrderSummary, adminTo string) Job {
	to := []string{s.Email}
	if adminTo = strings.TrimSpace(adminTo); adminTo != "" {
		to = append(to, adminTo)
	}
	job := newJob(enums.EmailKindOrderPlaced, to, s.vars())
	job.Lines = s.Lines
	return job
}

// OrderStatusJob tells the buyer their order moved to a new status.
func OrderStatusJob(s OrderSummary) Job {
	job := newJob(enums.EmailKindOrderStatus, []string{s.Email}, s.vars())
	job.Lines = s.Lines
	return job
}

// OrderPaidJob confirms a captured card payment.
func OrderPaidJob(s OrderSummary) Job {
	return newJob(enums.EmailKindOrderPaid, []string{s.Email}, s.vars())
}

// PasswordResetJob delivers a generated temporary password.
func PasswordResetJob(email, firstName, tempPassword string) Job {
	return newJob(enums.EmailKindPasswordReset, []string{email}, map[string]string{
		"first_name":    firstName,
		"temp_password": tempPassword,
	})
}

// CustomStyleReceivedJob acknowledges a custom design submission.
func CustomStyleReceivedJob(email, firstName, productName string, requestID uuid.UUID) Job {
	return newJob(enums.EmailKindCustomStyle, []string{email}, map[string]string{
		"first_name":   firstName,
		"product_name": productName,
		"request_id":   requestID.String(),
	})
}
