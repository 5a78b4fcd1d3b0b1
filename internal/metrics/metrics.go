package metrics

import (
	"net/http"

	"github.com/0xPuncker/evm-indexer/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	chainHeadBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "indexer_chain_head_block",
			Help: "Latest block number reported by the chain endpoint",
		},
		[]string{"chain"},
	)

	chainUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "indexer_chain_up",
			Help: "Whether the last probe of the chain endpoint succeeded",
		},
		[]string{"chain"},
	)

	chainProbeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_chain_probe_failures_total",
			Help: "Total number of failed chain probes",
		},
		[]string{"chain"},
	)

	chainProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "indexer_chain_probe_duration_seconds",
			Help:    "Chain probe duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain"},
	)

	contractBlocksToStart = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "indexer_contract_blocks_to_start",
			Help: "Blocks remaining until the chain head reaches the contract start block",
		},
		[]string{"contract"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_http_requests_total",
			Help: "Total number of API requests processed",
		},
		[]string{"method", "route"},
	)
)

// ObserveChainProbe records the outcome of one chain probe.
func ObserveChainProbe(status *types.ChainStatus) {
	chainProbeDuration.WithLabelValues(status.Name).Observe(status.Latency.Seconds())

	if !status.Healthy {
		chainUp.WithLabelValues(status.Name).Set(0)
		chainProbeFailures.WithLabelValues(status.Name).Inc()
		return
	}

	chainUp.WithLabelValues(status.Name).Set(1)
	chainHeadBlock.WithLabelValues(status.Name).Set(float64(status.HeadBlock))
}

func SetContractBlocksToStart(contract string, blocks uint64) {
	contractBlocksToStart.WithLabelValues(contract).Set(float64(blocks))
}

func RecordRequest(method, route string) {
	httpRequests.WithLabelValues(method, route).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
