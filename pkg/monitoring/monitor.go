package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dashboard"

// 指标在包加载时创建，未调用 Init 时也可以安全计数（测试中不注册）
var (
	RequestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route template and status class.",
	}, []string{"method", "route", "status"})

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route template.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route"})

	BadgeAssignments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "badge_assignments_total",
		Help:      "Badge tiers assigned by recomputation.",
	}, []string{"tier"})

	SpecialBadgesEarned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "special_badges_earned_total",
		Help:      "Special badges newly earned.",
	}, []string{"badge"})

	ChatIntents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chatbot_intents_total",
		Help:      "Chatbot messages by detected intent.",
	}, []string{"intent"})

	EventWriteFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_write_failures_total",
		Help:      "Best-effort event writes that failed.",
	}, []string{"event_type"})

	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Scheduled job executions by result.",
	}, []string{"job", "result"})

	LeaderboardSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "leaderboard_users",
		Help:      "Users ranked by the last leaderboard refresh.",
	})

	registerOnce sync.Once
)

// Init 注册到默认 registry；服务和回填脚本都会调用，重复调用无副作用
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			BadgeAssignments,
			SpecialBadgesEarned,
			ChatIntents,
			EventWriteFailures,
			JobRuns,
			LeaderboardSize,
		)
	})
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// MetricsMiddleware 以路由模板为标签，未匹配的路径归为一类，避免标签基数失控
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestCounter.WithLabelValues(c.Request.Method, route, statusClass(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
