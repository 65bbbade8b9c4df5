package gateway

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics は中継処理のPrometheusメトリクス。
// 専用のレジストリに登録し、公開APIとは別のアドレスで公開する。
type Metrics struct {
	// requestsTotal はドメイン・操作・結果ごとの中継回数。
	requestsTotal *prometheus.CounterVec
	// requestDuration はドメイン・操作ごとの中継時間。
	requestDuration *prometheus.HistogramVec
	// failuresTotal はドメイン・操作・失敗段階ごとの失敗回数。
	failuresTotal *prometheus.CounterVec

	// registry はメトリクスの登録先。
	registry *prometheus.Registry
}

// NewMetrics は新しいメトリクスを生成する。
func NewMetrics() *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_requests_total",
				Help: "Total number of relayed requests by domain, operation and outcome",
			},
			[]string{"domain", "operation", "outcome"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_request_duration_seconds",
				Help:    "Relay latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"domain", "operation"},
		),
		failuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_failures_total",
				Help: "Total number of relay failures by the stage they occurred in",
			},
			[]string{"domain", "operation", "stage"},
		),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.requestsTotal, m.requestDuration, m.failuresTotal)
	return m
}

// Observe は1回の中継結果を記録する。errがnilでなければstageを失敗段階として記録する。
func (m *Metrics) Observe(domain string, op Operation, stage Stage, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
		m.failuresTotal.WithLabelValues(domain, string(op), string(stage)).Inc()
	}
	m.requestsTotal.WithLabelValues(domain, string(op), outcome).Inc()
	m.requestDuration.WithLabelValues(domain, string(op)).Observe(d.Seconds())
}

// Handler はメトリクスを公開するHTTPハンドラを返す。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry はPrometheusレジストリを返す。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
