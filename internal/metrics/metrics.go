package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ReasonEmptyCart          = "empty_cart"
	ReasonDuplicateNumber    = "duplicate_order_number"
	ReasonProductUnavailable = "product_unavailable"
	ReasonInternal           = "internal"
)

// Metrics holds the storefront counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ordersPlaced          prometheus.Counter
	orderFailures         *prometheus.CounterVec
	orderNumberRetries    prometheus.Counter
	cartOperations        *prometheus.CounterVec
	confirmationsPrepared prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Orders committed by the order assembler.",
		}),
		orderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_order_failures_total",
			Help: "Order placements that did not commit, by reason.",
		}, []string{"reason"}),
		orderNumberRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_order_number_retries_total",
			Help: "Order placements retried after an order number conflict.",
		}),
		cartOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "Cart mutations by operation and result.",
		}, []string{"op", "result"}),
		confirmationsPrepared: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_confirmations_prepared_total",
			Help: "Order confirmation messages handed to the dispatcher.",
		}),
	}
	reg.MustRegister(m.ordersPlaced, m.orderFailures, m.orderNumberRetries, m.cartOperations, m.confirmationsPrepared)
	return m
}

func (m *Metrics) OrderPlaced() {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
}

func (m *Metrics) OrderFailed(reason string) {
	if m == nil {
		return
	}
	m.orderFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) OrderNumberRetry() {
	if m == nil {
		return
	}
	m.orderNumberRetries.Inc()
}

func (m *Metrics) CartOperation(op, result string) {
	if m == nil {
		return
	}
	m.cartOperations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) ConfirmationPrepared() {
	if m == nil {
		return
	}
	m.confirmationsPrepared.Inc()
}
