package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
	"github.com/angelmondragon/threadhouse-backend/pkg/logger"
)

type paymentEvents interface {
	HandleIntentSucceeded(ctx context.Context, intent *stripe.PaymentIntent) error
	HandleIntentFailed(ctx context.Context, intent *stripe.PaymentIntent) error
}

type ServiceParams struct {
	Payments paymentEvents
	Logger   *logger.Logger
}

type Service struct {
	payments paymentEvents
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment service required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{payments: params.Payments, logg: logg}, nil
}

// HandleEvent routes verified Stripe events. Unhandled types are acknowledged.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		if event.Type == stripe.EventTypePaymentIntentSucceeded {
			return s.payments.HandleIntentSucceeded(ctx, &intent)
		}
		return s.payments.HandleIntentFailed(ctx, &intent)
	default:
		s.logg.Info(s.logg.WithField(ctx, "event_type", string(event.Type)), "stripe.event_ignored")
		return nil
	}
}
