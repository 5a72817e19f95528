package payment

import (
	"github.com/smallbiznis/pgstay/internal/payment/adapters"
	"github.com/smallbiznis/pgstay/internal/payment/adapters/razorpay"
	"github.com/smallbiznis/pgstay/internal/payment/adapters/stripe"
	"github.com/smallbiznis/pgstay/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			razorpay.NewFactory(),
			stripe.NewFactory(),
		)
	}),
	fx.Provide(webhook.NewService),
)
