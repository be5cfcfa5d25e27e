// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ディスパッチ結果のラベル値
const (
	DispatchMatched  = "matched"
	DispatchFallback = "fallback"
	DispatchNotFound = "not_found"
)

// OAuth交換結果のラベル値
const (
	ExchangeSuccess = "success"
	ExchangeDenied  = "denied"
	ExchangeFailure = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ディスパッチャー、認証、ワーカーから利用する。
type MetricsCollector interface {
	RecordDispatch(outcome string)
	RecordOAuthExchange(provider, outcome string)
	RecordOAuthLatency(provider string, duration time.Duration)
	RecordUserCreated()
	RecordSessionFailure(op string)
	RecordSessionsPurged(count int64)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	dispatch       *prometheus.CounterVec
	oauthExchange  *prometheus.CounterVec
	oauthLatency   *prometheus.HistogramVec
	usersCreated   prometheus.Counter
	sessionFailure *prometheus.CounterVec
	sessionsPurged prometheus.Counter
	httpStatus     *prometheus.CounterVec
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "confsite_dispatch_total",
			Help: "ルートディスパッチ結果別のリクエスト数",
		}, []string{"outcome"}),
		oauthExchange: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "confsite_oauth_exchange_total",
			Help: "プロバイダー・結果別のOAuthコールバック処理数",
		}, []string{"provider", "outcome"}),
		oauthLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "confsite_oauth_exchange_latency_seconds",
			Help:    "OAuthコード交換のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		usersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "confsite_users_created_total",
			Help: "初回ログインで作成されたユーザーの合計数",
		}),
		sessionFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "confsite_session_failure_total",
			Help: "セッションストアへのアクセス失敗数",
		}, []string{"op"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "confsite_sessions_purged_total",
			Help: "削除された期限切れセッションの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "confsite_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.dispatch,
		c.oauthExchange,
		c.oauthLatency,
		c.usersCreated,
		c.sessionFailure,
		c.sessionsPurged,
		c.httpStatus,
	)

	return c
}

// RecordDispatch はディスパッチ結果を記録する。
func (c *Collector) RecordDispatch(outcome string) {
	c.dispatch.WithLabelValues(outcome).Inc()
}

// RecordOAuthExchange はOAuthコールバックの結果を記録する。
func (c *Collector) RecordOAuthExchange(provider, outcome string) {
	c.oauthExchange.WithLabelValues(provider, outcome).Inc()
}

// RecordOAuthLatency はコード交換のレイテンシを記録する。
func (c *Collector) RecordOAuthLatency(provider string, duration time.Duration) {
	c.oauthLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordUserCreated はユーザー作成を記録する。
func (c *Collector) RecordUserCreated() {
	c.usersCreated.Inc()
}

// RecordSessionFailure はセッションストアの失敗を記録する。
func (c *Collector) RecordSessionFailure(op string) {
	c.sessionFailure.WithLabelValues(op).Inc()
}

// RecordSessionsPurged は削除したセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
