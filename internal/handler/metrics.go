package handler

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/HanaFlU/TechZone-sub001/internal/repository"
)

var (
	checkoutRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_requests_total",
		Help: "Количество попыток оформления заказа по результату.",
	}, []string{"outcome"})

	checkoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Длительность оформления заказа.",
		Buckets: prometheus.DefBuckets,
	})

	paymentCallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Количество обработанных уведомлений платёжной системы по результату.",
	}, []string{"outcome"})
)

func callbackOutcome(err error) string {
	switch {
	case errors.Is(err, repository.ErrDuplicateCallback):
		return "duplicate"
	case errors.Is(err, repository.ErrNoMatchingOrder):
		return "no_order"
	default:
		return "error"
	}
}

func checkoutOutcome(err error) string {
	var stockErr *repository.StockError
	switch {
	case errors.As(err, &stockErr):
		return "out_of_stock"
	case errors.Is(err, repository.ErrCartEmpty):
		return "empty_cart"
	case isVoucherError(err):
		return "voucher_rejected"
	default:
		return "error"
	}
}
