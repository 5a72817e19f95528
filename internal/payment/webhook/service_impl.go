package webhook

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/pgstay/internal/clock"
	"github.com/smallbiznis/pgstay/internal/config"
	"github.com/smallbiznis/pgstay/internal/errs"
	"github.com/smallbiznis/pgstay/internal/notification"
	"github.com/smallbiznis/pgstay/internal/observability/metrics"
	"github.com/smallbiznis/pgstay/internal/observability/tracing"
	"github.com/smallbiznis/pgstay/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/pgstay/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/pgstay/internal/subscription/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

type Params struct {
	fx.In

	Adapters      *adapters.Registry
	Subscriptions subscriptiondomain.Service
	Notifier      notification.Notifier
	Metrics       *metrics.Metrics `optional:"true"`
	Cfg           config.Config
	Clock         clock.Clock
	Log           *zap.Logger
}

type Service struct {
	adapters      *adapters.Registry
	subscriptions subscriptiondomain.Service
	notifier      notification.Notifier
	metrics       *metrics.Metrics
	payment       config.PaymentConfig
	clock         clock.Clock
	log           *zap.Logger
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		adapters:      p.Adapters,
		subscriptions: p.Subscriptions,
		notifier:      p.Notifier,
		metrics:       p.Metrics,
		payment:       p.Cfg.Payment,
		clock:         p.Clock,
		log:           p.Log.Named("payment.webhook"),
	}
}

// HandlePaymentCaptured verifies a gateway delivery and applies the captured
// payment to its account at most once per gateway payment id.
func (s *Service) HandlePaymentCaptured(ctx context.Context, provider string, payload []byte, headers http.Header) (outcome paymentdomain.Outcome, err error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	ctx, span := tracing.Tracer("payment.webhook").Start(ctx, "webhook.payment_captured",
		trace.WithAttributes(attribute.String("payment.provider", provider)))
	defer func() {
		span.SetAttributes(attribute.String("payment.outcome", string(outcome)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, errs.CodeOf(err))
		}
		span.End()
		s.metrics.RecordWebhookOutcome(ctx, provider, string(outcome))
	}()

	if provider == "" {
		return paymentdomain.OutcomeRejected, paymentdomain.ErrInvalidProvider
	}
	if s.adapters == nil || !s.adapters.ProviderExists(provider) {
		return paymentdomain.OutcomeRejected, paymentdomain.ErrProviderNotFound
	}
	adapter, err := s.adapters.NewAdapter(paymentdomain.AdapterConfig{
		Provider:      provider,
		WebhookSecret: s.payment.SecretFor(provider),
	})
	if err != nil {
		s.log.Error("payment adapter unavailable", zap.String("provider", provider), zap.Error(err))
		return paymentdomain.OutcomeFailed, err
	}

	timeout := s.payment.WebhookTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("payment webhook signature rejected", zap.String("provider", provider), zap.Error(err))
		return paymentdomain.OutcomeRejected, paymentdomain.ErrInvalidSignature
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return paymentdomain.OutcomeIgnored, nil
		}
		s.log.Warn("payment webhook payload rejected", zap.String("provider", provider), zap.Error(err))
		return paymentdomain.OutcomeRejected, err
	}

	log := s.log.With(
		zap.String("provider", provider),
		zap.String("account_id", event.AccountID),
		zap.String("gateway_payment_id", event.PaymentID),
	)

	result, err := s.subscriptions.ApplyCapturedPayment(ctx, capturedPayment(event))
	if err != nil {
		if ctx.Err() != nil {
			log.Error("payment webhook timed out", zap.Duration("timeout", timeout), zap.Error(err))
			return paymentdomain.OutcomeFailed, paymentdomain.ErrWebhookTimeout
		}
		switch errs.KindOf(err) {
		case errs.Validation, errs.NotFound:
			log.Warn("captured payment rejected", zap.Error(err))
			return paymentdomain.OutcomeRejected, err
		default:
			log.Error("apply captured payment failed", zap.Error(err))
			return paymentdomain.OutcomeFailed, err
		}
	}
	if !result.Applied {
		log.Info("duplicate captured payment ignored")
		return paymentdomain.OutcomeDuplicate, nil
	}

	log.Info("captured payment applied", zap.String("status", string(result.Snapshot.Status)))
	s.notify(ctx, event.AccountID, result.Snapshot)
	return paymentdomain.OutcomeApplied, nil
}

func (s *Service) notify(ctx context.Context, accountID string, snapshot subscriptiondomain.Snapshot) {
	if s.notifier == nil {
		return
	}
	n, err := notification.New(notification.TopicSubscriptionUpdated, accountID, snapshot, s.clock.Now())
	if err == nil {
		err = s.notifier.Publish(context.WithoutCancel(ctx), n)
	}
	if err != nil {
		s.log.Warn("subscription notification failed", zap.String("account_id", accountID), zap.Error(err))
	}
}

func capturedPayment(event *paymentdomain.CapturedEvent) subscriptiondomain.CapturedPayment {
	return subscriptiondomain.CapturedPayment{
		AccountID:     event.AccountID,
		PlanID:        event.PlanID,
		BillingCycle:  event.BillingCycle,
		TotalBeds:     event.BedCount,
		TotalBranches: event.BranchCount,
		Record: subscriptiondomain.PaymentRecord{
			GatewayPaymentID: event.PaymentID,
			GatewayOrderID:   event.OrderID,
			Amount:           event.Amount,
			Currency:         event.Currency,
			Status:           string(subscriptiondomain.PaymentStatusCompleted),
			Method:           event.Method,
			Plan: subscriptiondomain.PlanSnapshot{
				PlanName:    event.PlanName,
				BedCount:    event.BedCount,
				BranchCount: event.BranchCount,
			},
			PaidAt: event.CapturedAt,
		},
	}
}
