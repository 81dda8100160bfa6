package obs

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DomainMetrics holds pricing and checkout collectors. A nil *DomainMetrics
// is valid and records nothing.
type DomainMetrics struct {
	QuotesTotal     *prometheus.CounterVec
	CouponOutcomes  *prometheus.CounterVec
	ConfigDefaulted *prometheus.CounterVec
	PointsRedeemed  prometheus.Counter
	OrdersSubmitted *prometheus.CounterVec
	grandTotalMinor metric.Int64Histogram
}

// NewDomainMetrics registers domain collectors on reg (DefaultRegisterer when nil).
func NewDomainMetrics(namespace string, reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &DomainMetrics{
		QuotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quotes_total",
			Help:      "Priced quotes by whether a coupon and points were applied.",
		}, []string{"coupon", "points"}),
		CouponOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_validation_total",
			Help:      "Coupon validation outcomes.",
		}, []string{"result"}),
		ConfigDefaulted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_config_default_total",
			Help:      "Pricing settings that fell back to their default value.",
		}, []string{"key"}),
		PointsRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loyalty_points_redeemed_total",
			Help:      "Loyalty points consumed by submitted orders.",
		}),
		OrdersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Checkout submissions by outcome.",
		}, []string{"result"}),
	}
	m.QuotesTotal = register(reg, m.QuotesTotal)
	m.CouponOutcomes = register(reg, m.CouponOutcomes)
	m.ConfigDefaulted = register(reg, m.ConfigDefaulted)
	m.PointsRedeemed = register(reg, m.PointsRedeemed)
	m.OrdersSubmitted = register(reg, m.OrdersSubmitted)

	hist, err := otel.Meter("toko-pricing/checkout").Int64Histogram(
		"checkout.quote.grand_total",
		metric.WithUnit("{paise}"),
		metric.WithDescription("Grand totals of priced quotes in minor currency units."),
	)
	if err == nil {
		m.grandTotalMinor = hist
	}
	return m
}

// ObserveQuote records a priced quote.
func (m *DomainMetrics) ObserveQuote(ctx context.Context, couponApplied, pointsApplied bool, grandTotalMinor int64) {
	if m == nil {
		return
	}
	m.QuotesTotal.WithLabelValues(yesNo(couponApplied), yesNo(pointsApplied)).Inc()
	if m.grandTotalMinor != nil {
		m.grandTotalMinor.Record(ctx, grandTotalMinor, metric.WithAttributes(attribute.Bool("coupon", couponApplied)))
	}
}

// ObserveCoupon records a coupon validation outcome label.
func (m *DomainMetrics) ObserveCoupon(reason string) {
	if m == nil || reason == "" {
		return
	}
	m.CouponOutcomes.WithLabelValues(reason).Inc()
}

// ConfigDefault records a settings key that fell back to its default.
func (m *DomainMetrics) ConfigDefault(key string) {
	if m == nil {
		return
	}
	m.ConfigDefaulted.WithLabelValues(key).Inc()
}

// ObserveOrder records a checkout submission outcome and the points it redeemed.
func (m *DomainMetrics) ObserveOrder(result string, pointsRedeemed int64) {
	if m == nil {
		return
	}
	m.OrdersSubmitted.WithLabelValues(result).Inc()
	if pointsRedeemed > 0 {
		m.PointsRedeemed.Add(float64(pointsRedeemed))
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
