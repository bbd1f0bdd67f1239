package metrics

import (
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type FarmMetrics struct {
	operations      *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	poolUnits       prometheus.Gauge
	heldValue       prometheus.Gauge
	feesCollected   *prometheus.CounterVec
	referralRewards prometheus.Counter
	reentrancy      prometheus.Counter
}

var (
	farmOnce     sync.Once
	farmRegistry *FarmMetrics
)

func Farm() *FarmMetrics {
	farmOnce.Do(func() {
		farmRegistry = &FarmMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farm_operations_total",
				Help: "Count of ledger operations by kind and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "farm_operation_duration_seconds",
				Help:    "Latency distribution for ledger operations.",
				Buckets: prometheus.DefBuckets,
			}, []string{"operation"}),
			poolUnits: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "farm_pool_units",
				Help: "Units currently held by the market pool.",
			}),
			heldValue: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "farm_held_value",
				Help: "Value custodied by the market vault.",
			}),
			feesCollected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farm_fees_collected_total",
				Help: "Fees routed to the payee distributor by domain.",
			}, []string{"domain"}),
			referralRewards: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "farm_referral_rewards_total",
				Help: "Units credited to referrers.",
			}),
			reentrancy: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "farm_reentrancy_rejections_total",
				Help: "Nested calls rejected while an operation was in flight.",
			}),
		}
		prometheus.MustRegister(
			farmRegistry.operations,
			farmRegistry.latency,
			farmRegistry.poolUnits,
			farmRegistry.heldValue,
			farmRegistry.feesCollected,
			farmRegistry.referralRewards,
			farmRegistry.reentrancy,
		)
	})
	return farmRegistry
}

func (m *FarmMetrics) ObserveOperation(op string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *FarmMetrics) SetMarket(poolUnits, held *big.Int) {
	if m == nil {
		return
	}
	m.poolUnits.Set(bigToFloat(poolUnits))
	m.heldValue.Set(bigToFloat(held))
}

func (m *FarmMetrics) AddFee(domain string, fee *big.Int) {
	if m == nil || fee == nil || fee.Sign() <= 0 {
		return
	}
	if domain == "" {
		domain = "unknown"
	}
	m.feesCollected.WithLabelValues(domain).Add(bigToFloat(fee))
}

func (m *FarmMetrics) AddReferralReward(units *big.Int) {
	if m == nil || units == nil || units.Sign() <= 0 {
		return
	}
	m.referralRewards.Add(bigToFloat(units))
}

func (m *FarmMetrics) IncReentrancy() {
	if m == nil {
		return
	}
	m.reentrancy.Inc()
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(value).Float64()
	if math.IsInf(f, 0) {
		return math.MaxFloat64
	}
	return f
}
