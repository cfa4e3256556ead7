package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "saferoute"

// police_updates_total の result ラベル
const (
	ResultUpdated = "updated"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Metrics サービス独自のレジストリに登録したメトリクス
type Metrics struct {
	registry        *prometheus.Registry
	routesScored    prometheus.Counter
	cellsCreated    prometheus.Counter
	policeUpdates   *prometheus.CounterVec
	compareDuration prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		routesScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routes_scored_total",
			Help:      "Number of candidate routes scored.",
		}),
		cellsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_created_total",
			Help:      "Number of safety cells created lazily.",
		}),
		policeUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "police_updates_total",
			Help:      "Police proximity results by outcome.",
		}, []string{"result"}),
		compareDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compare_duration_seconds",
			Help:      "Latency of route comparison requests.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.routesScored,
		m.cellsCreated,
		m.policeUpdates,
		m.compareDuration,
	)
	return m
}

func (m *Metrics) AddRoutesScored(n int) {
	m.routesScored.Add(float64(n))
}

func (m *Metrics) AddCellsCreated(n int) {
	m.cellsCreated.Add(float64(n))
}

func (m *Metrics) AddPoliceUpdates(result string, n int) {
	m.policeUpdates.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) ObserveCompare(d time.Duration) {
	m.compareDuration.Observe(d.Seconds())
}

// Handler /metrics 用のハンドラ
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry テストで値を確認する用途
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
