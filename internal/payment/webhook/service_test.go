package webhook

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/pgstay/internal/clock"
	"github.com/smallbiznis/pgstay/internal/config"
	"github.com/smallbiznis/pgstay/internal/errs"
	"github.com/smallbiznis/pgstay/internal/notification"
	"github.com/smallbiznis/pgstay/internal/observability/metrics"
	"github.com/smallbiznis/pgstay/internal/payment/adapters"
	"github.com/smallbiznis/pgstay/internal/payment/adapters/razorpay"
	paymentdomain "github.com/smallbiznis/pgstay/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/pgstay/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "rzp_whsec"

const captured = `{"event":"payment.captured","payload":{"payment":{"entity":{
"id":"pay_1","order_id":"order_1","amount":130000,"currency":"INR","status":"captured","method":"upi","created_at":1767949990,
"notes":{"accountId":"42","planId":"7001","bedCount":20,"branchCount":1,"billingCycle":"monthly","planName":"Basic"}}}}}`

type fakeSubscriptions struct {
	subscriptiondomain.Service

	mu       sync.Mutex
	seen     map[string]bool
	payments []subscriptiondomain.CapturedPayment
	err      error
	block    bool
}

func (f *fakeSubscriptions) ApplyCapturedPayment(ctx context.Context, payment subscriptiondomain.CapturedPayment) (subscriptiondomain.ApplyResult, error) {
	if f.block {
		<-ctx.Done()
		return subscriptiondomain.ApplyResult{}, errs.Wrap(errs.Transient, ctx.Err())
	}
	if f.err != nil {
		return subscriptiondomain.ApplyResult{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[payment.Record.GatewayPaymentID] {
		return subscriptiondomain.ApplyResult{Applied: false}, nil
	}
	f.seen[payment.Record.GatewayPaymentID] = true
	f.payments = append(f.payments, payment)
	return subscriptiondomain.ApplyResult{
		Applied:  true,
		Snapshot: subscriptiondomain.Snapshot{AccountID: payment.AccountID, Status: subscriptiondomain.StatusActive},
	}, nil
}

type recordingNotifier struct {
	sent []notification.Notification
	err  error
}

func (n *recordingNotifier) Publish(_ context.Context, msg notification.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func newService(subs subscriptiondomain.Service, notifier notification.Notifier, timeout time.Duration) paymentdomain.Service {
	cfg := config.Config{Payment: config.PaymentConfig{
		Gateway:        "razorpay",
		WebhookSecret:  secret,
		WebhookTimeout: timeout,
	}}
	return NewService(Params{
		Adapters:      adapters.NewRegistry(razorpay.NewFactory()),
		Subscriptions: subs,
		Notifier:      notifier,
		Metrics:       metrics.NewNoop(),
		Cfg:           cfg,
		Clock:         clock.NewFakeClock(time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)),
		Log:           zap.NewNop(),
	})
}

func signed(payload string) http.Header {
	headers := http.Header{}
	headers.Set("X-Razorpay-Signature", razorpay.Sign(secret, []byte(payload)))
	return headers
}

func TestCapturedPaymentAppliedOnceAndNotified(t *testing.T) {
	subs := &fakeSubscriptions{}
	notifier := &recordingNotifier{}
	svc := newService(subs, notifier, time.Second)

	outcome, err := svc.HandlePaymentCaptured(context.Background(), "Razorpay", []byte(captured), signed(captured))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.OutcomeApplied, outcome)

	require.Len(t, subs.payments, 1)
	payment := subs.payments[0]
	assert.Equal(t, "42", payment.AccountID)
	assert.Equal(t, "7001", payment.PlanID)
	assert.Equal(t, 20, payment.TotalBeds)
	assert.Equal(t, "pay_1", payment.Record.GatewayPaymentID)
	assert.Equal(t, int64(130000), payment.Record.Amount)
	assert.Equal(t, "completed", payment.Record.Status)
	assert.Equal(t, "Basic", payment.Record.Plan.PlanName)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, notification.TopicSubscriptionUpdated, notifier.sent[0].Topic)
	assert.Equal(t, "42", notifier.sent[0].AccountID)

	outcome, err = svc.HandlePaymentCaptured(context.Background(), "razorpay", []byte(captured), signed(captured))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.OutcomeDuplicate, outcome)
	assert.Len(t, subs.payments, 1)
	assert.Len(t, notifier.sent, 1)
}

func TestInvalidSignatureChangesNothing(t *testing.T) {
	subs := &fakeSubscriptions{}
	svc := newService(subs, &recordingNotifier{}, time.Second)

	headers := http.Header{}
	headers.Set("X-Razorpay-Signature", razorpay.Sign("forged", []byte(captured)))
	outcome, err := svc.HandlePaymentCaptured(context.Background(), "razorpay", []byte(captured), headers)

	assert.Equal(t, paymentdomain.OutcomeRejected, outcome)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)
	assert.ErrorIs(t, err, errs.Authentication)
	assert.Empty(t, subs.payments)
}

func TestOtherEventsIgnored(t *testing.T) {
	payload := `{"event":"payment.failed","payload":{}}`
	outcome, err := newService(&fakeSubscriptions{}, nil, time.Second).
		HandlePaymentCaptured(context.Background(), "razorpay", []byte(payload), signed(payload))

	require.NoError(t, err)
	assert.Equal(t, paymentdomain.OutcomeIgnored, outcome)
}

func TestUnknownProviderRejected(t *testing.T) {
	outcome, err := newService(&fakeSubscriptions{}, nil, time.Second).
		HandlePaymentCaptured(context.Background(), "paypal", []byte(captured), signed(captured))

	assert.Equal(t, paymentdomain.OutcomeRejected, outcome)
	assert.ErrorIs(t, err, paymentdomain.ErrProviderNotFound)
}

func TestMissingSecretFails(t *testing.T) {
	svc := NewService(Params{
		Adapters:      adapters.NewRegistry(razorpay.NewFactory()),
		Subscriptions: &fakeSubscriptions{},
		Cfg:           config.Config{Payment: config.PaymentConfig{Gateway: "razorpay"}},
		Clock:         clock.SystemClock{},
		Log:           zap.NewNop(),
	})

	outcome, err := svc.HandlePaymentCaptured(context.Background(), "razorpay", []byte(captured), signed(captured))
	assert.Equal(t, paymentdomain.OutcomeFailed, outcome)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidConfig)
}

func TestApplyFailuresPropagate(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome paymentdomain.Outcome
	}{
		{name: "unknown plan", err: errs.New(errs.NotFound, "plan_not_found"), outcome: paymentdomain.OutcomeRejected},
		{name: "store down", err: errs.Wrap(errs.Transient, errors.New("connection refused")), outcome: paymentdomain.OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			outcome, err := newService(&fakeSubscriptions{err: tt.err}, notifier, time.Second).
				HandlePaymentCaptured(context.Background(), "razorpay", []byte(captured), signed(captured))

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.outcome, outcome)
			assert.Empty(t, notifier.sent)
		})
	}
}

func TestNotificationFailureDoesNotFailDelivery(t *testing.T) {
	subs := &fakeSubscriptions{}
	outcome, err := newService(subs, &recordingNotifier{err: errors.New("redis down")}, time.Second).
		HandlePaymentCaptured(context.Background(), "razorpay", []byte(captured), signed(captured))

	require.NoError(t, err)
	assert.Equal(t, paymentdomain.OutcomeApplied, outcome)
	assert.Len(t, subs.payments, 1)
}

func TestTimeoutIsTransient(t *testing.T) {
	outcome, err := newService(&fakeSubscriptions{block: true}, nil, 20*time.Millisecond).
		HandlePaymentCaptured(context.Background(), "razorpay", []byte(captured), signed(captured))

	assert.Equal(t, paymentdomain.OutcomeFailed, outcome)
	assert.ErrorIs(t, err, paymentdomain.ErrWebhookTimeout)
	assert.ErrorIs(t, err, errs.Transient)
}
