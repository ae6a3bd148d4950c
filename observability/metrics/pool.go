package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type PoolMetrics struct {
	tokensBought    prometheus.Counter
	tokensSold      prometheus.Counter
	payoutsSent     prometheus.Counter
	swapRequests    *prometheus.CounterVec
	ordersPlaced    prometheus.Counter
	ordersClosed    prometheus.Counter
	assetsRecovered prometheus.Counter
	poolValueEth    prometheus.Gauge
	mcrEth          prometheus.Gauge
	capitalRatio    prometheus.Gauge
}

var (
	poolOnce     sync.Once
	poolRegistry *PoolMetrics
)

func Pool() *PoolMetrics {
	poolOnce.Do(func() {
		poolRegistry = &PoolMetrics{
			tokensBought: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "pool_tokens_bought_total",
				Help: "Count of cover token purchases settled against the pool.",
			}),
			tokensSold: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "pool_tokens_sold_total",
				Help: "Count of cover token sales settled against the pool.",
			}),
			payoutsSent: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "pool_payouts_sent_total",
				Help: "Count of claim payouts released from the pool.",
			}),
			swapRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "pool_swap_requests_total",
				Help: "Count of swap requests recorded by the coordinator, by outcome.",
			}, []string{"outcome"}),
			ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "pool_orders_placed_total",
				Help: "Count of settlement orders presigned by the coordinator.",
			}),
			ordersClosed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "pool_orders_closed_total",
				Help: "Count of settlement orders reconciled back into the pool.",
			}),
			assetsRecovered: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "pool_assets_recovered_total",
				Help: "Count of stuck-asset recoveries executed by the coordinator.",
			}),
			poolValueEth: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "pool_value_eth",
				Help: "Current pool value across all supported assets, in ether.",
			}),
			mcrEth: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "pool_mcr_eth",
				Help: "Current minimum capital requirement, in ether.",
			}),
			capitalRatio: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "pool_capital_ratio_bps",
				Help: "Pool value over MCR in basis points.",
			}),
		}
		prometheus.MustRegister(
			poolRegistry.tokensBought,
			poolRegistry.tokensSold,
			poolRegistry.payoutsSent,
			poolRegistry.swapRequests,
			poolRegistry.ordersPlaced,
			poolRegistry.ordersClosed,
			poolRegistry.assetsRecovered,
			poolRegistry.poolValueEth,
			poolRegistry.mcrEth,
			poolRegistry.capitalRatio,
		)
	})
	return poolRegistry
}

func (m *PoolMetrics) ObserveTokensBought() {
	if m == nil {
		return
	}
	m.tokensBought.Inc()
}

func (m *PoolMetrics) ObserveTokensSold() {
	if m == nil {
		return
	}
	m.tokensSold.Inc()
}

func (m *PoolMetrics) ObservePayoutSent() {
	if m == nil {
		return
	}
	m.payoutsSent.Inc()
}

func (m *PoolMetrics) ObserveSwapRequest(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.swapRequests.WithLabelValues(outcome).Inc()
}

func (m *PoolMetrics) ObserveOrderPlaced() {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
}

func (m *PoolMetrics) ObserveOrderClosed() {
	if m == nil {
		return
	}
	m.ordersClosed.Inc()
}

func (m *PoolMetrics) ObserveAssetRecovered() {
	if m == nil {
		return
	}
	m.assetsRecovered.Inc()
}

func (m *PoolMetrics) SetPoolValueEth(value float64) {
	if m == nil {
		return
	}
	m.poolValueEth.Set(value)
}

func (m *PoolMetrics) SetMCREth(value float64) {
	if m == nil {
		return
	}
	m.mcrEth.Set(value)
}

func (m *PoolMetrics) SetCapitalRatioBps(value float64) {
	if m == nil {
		return
	}
	m.capitalRatio.Set(value)
}
