// internal/app/system/metrics/metrics.go
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	metricsstore "github.com/dalemusser/planhub/internal/app/store/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "planhub"

// Metrics owns a private registry so tests can build as many as they like.
// All recording methods are nil-safe; a nil *Metrics records nothing.
type Metrics struct {
	reg *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	invitesCreated   prometheus.Counter
	workItemsCreated prometheus.Counter
	rebalances       prometheus.Counter

	realtimePeers   prometheus.Gauge
	realtimeEvents  prometheus.Counter
	realtimeDropped prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		invitesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invites_created_total",
			Help:      "Workspace invitations created.",
		}),
		workItemsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "work_items_created_total",
			Help:      "Work items created.",
		}),
		rebalances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "position_rebalances_total",
			Help:      "Project-wide position renumbers.",
		}),
		realtimePeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "peers",
			Help:      "Connected websocket subscribers.",
		}),
		realtimeEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_published_total",
			Help:      "Work item events published to the hub.",
		}),
		realtimeDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "peers_dropped_total",
			Help:      "Subscribers dropped for falling behind.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpLatency,
		m.invitesCreated, m.workItemsCreated, m.rebalances,
		m.realtimePeers, m.realtimeEvents, m.realtimeDropped,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Middleware records every request under its chi route pattern, so
// /api/workspaces/{workspaceId} is one series rather than one per id.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) InvitesCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.invitesCreated.Add(float64(n))
}

func (m *Metrics) WorkItemCreated() {
	if m != nil {
		m.workItemsCreated.Inc()
	}
}

func (m *Metrics) Rebalanced() {
	if m != nil {
		m.rebalances.Inc()
	}
}

// realtime.Observer

func (m *Metrics) PeerJoined()     { m.realtimePeers.Inc() }
func (m *Metrics) PeerLeft()       { m.realtimePeers.Dec() }
func (m *Metrics) EventDropped()   { m.realtimeDropped.Inc() }
func (m *Metrics) EventPublished() { m.realtimeEvents.Inc() }

/* ---------------------------- collection gauges ---------------------------- */

// CountFetcher returns collection totals; metricsstore.FetchCounts bound to
// a database satisfies it.
type CountFetcher func(ctx context.Context) metricsstore.Counts

type countsCollector struct {
	fetch   CountFetcher
	timeout time.Duration
	desc    *prometheus.Desc
}

// RegisterCounts exports collection totals as a gauge labelled by
// collection, computed at scrape time.
func (m *Metrics) RegisterCounts(fetch CountFetcher, timeout time.Duration) error {
	c := &countsCollector{
		fetch:   fetch,
		timeout: timeout,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "documents"),
			"Documents per collection at scrape time.",
			[]string{"collection"}, nil,
		),
	}
	return m.reg.Register(c)
}

func (c *countsCollector) Describe(ch chan<- *prometheus.Desc) { ch <- c.desc }

func (c *countsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	n := c.fetch(ctx)
	for _, kv := range []struct {
		name string
		v    int64
	}{
		{"users", n.Users},
		{"workspaces", n.Workspaces},
		{"projects", n.Projects},
		{"work_items", n.WorkItems},
		{"pending_invites", n.PendingInvites},
	} {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(kv.v), kv.name)
	}
}
