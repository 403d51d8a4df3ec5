// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// APIクライアントやハンドラー層から利用する。
type MetricsCollector interface {
	RecordUpstreamStatus(statusCode int)
	RecordUpstreamLatency(duration time.Duration)
	RecordUpstreamFailure()
	RecordSessionTeardown()
	RecordLoginSuccess()
	RecordLoginFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamStatus  *prometheus.CounterVec
	upstreamLatency prometheus.Histogram
	upstreamFail    prometheus.Counter
	teardownTotal   prometheus.Counter
	loginSuccess    prometheus.Counter
	loginFail       prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storeadmin_upstream_status_total",
			Help: "リモートAPIレスポンスのHTTPステータスコード別の合計数",
		}, []string{"status_code"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storeadmin_upstream_latency_seconds",
			Help:    "リモートAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		upstreamFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storeadmin_upstream_fail_total",
			Help: "リモートAPI呼び出しのトランスポート失敗の合計数",
		}),
		teardownTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storeadmin_session_teardown_total",
			Help: "401によるセッション破棄の合計数",
		}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storeadmin_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storeadmin_login_fail_total",
			Help: "ログイン失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.upstreamStatus,
		c.upstreamLatency,
		c.upstreamFail,
		c.teardownTotal,
		c.loginSuccess,
		c.loginFail,
	)

	return c
}

// RecordUpstreamStatus はリモートAPIのHTTPステータスコードを記録する。
func (c *Collector) RecordUpstreamStatus(statusCode int) {
	c.upstreamStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordUpstreamLatency はリモートAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(duration time.Duration) {
	c.upstreamLatency.Observe(duration.Seconds())
}

// RecordUpstreamFailure はトランスポート失敗を記録する。
func (c *Collector) RecordUpstreamFailure() {
	c.upstreamFail.Inc()
}

// RecordSessionTeardown は401によるセッション破棄を記録する。
func (c *Collector) RecordSessionTeardown() {
	c.teardownTotal.Inc()
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFail.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
