// Package monitoring 服务自身的 Prometheus 指标：定时任务、通知投递、CI 回调与 API 调用
package monitoring

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "pipelinehealth"

type Metrics struct {
	registry *prometheus.Registry

	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	alertsFired   *prometheus.CounterVec
	webhooks      *prometheus.CounterVec
	apiCalls      *prometheus.CounterVec
	apiLatency    *prometheus.HistogramVec
}

// New 每个实例使用独立的 registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "定时任务执行次数",
		}, []string{"job", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "定时任务执行耗时",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"job"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "按渠道统计的通知投递结果",
		}, []string{"channel", "result"}),
		alertsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_triggered_total",
			Help:      "触发的告警数（不含去重抑制）",
		}, []string{"severity"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_received_total",
			Help:      "收到的 CI 回调",
		}, []string{"source", "event"}),
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "REST 接口调用次数",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "REST 接口耗时",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.jobRuns, m.jobDuration, m.notifications, m.alertsFired, m.webhooks, m.apiCalls, m.apiLatency,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterGauge 注册按需取值的指标，如在线 websocket 连接数
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// ObserveJob 签名与调度器的 TaskObserver 一致
func (m *Metrics) ObserveJob(job string, duration time.Duration, err error) {
	m.jobRuns.WithLabelValues(job, result(err == nil)).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *Metrics) ObserveNotification(channel string, ok bool) {
	m.notifications.WithLabelValues(channel, result(ok)).Inc()
}

func (m *Metrics) ObserveAlert(severity string) {
	m.alertsFired.WithLabelValues(severity).Inc()
}

func (m *Metrics) ObserveWebhook(source, event string) {
	m.webhooks.WithLabelValues(source, event).Inc()
}

// APIMonitor 记录 /api 下的调用次数和耗时，route 使用路由模板避免标签膨胀
func (m *Metrics) APIMonitor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		m.apiCalls.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.apiLatency.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
