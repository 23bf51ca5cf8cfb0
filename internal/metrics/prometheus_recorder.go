package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "uyan"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	tickDuration  prom.Histogram
	tickFaults    prom.Counter
	entered       *prom.CounterVec
	dispatches    *prom.CounterVec
	fetches       *prom.CounterVec
	nextRemaining prom.Gauge
	keepAlive     prom.Gauge
}

// NewPrometheusRecorder constructs and registers the metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.tickDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Duration of alarm detector ticks",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		})
		pr.tickFaults = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tick_faults_total",
			Help:      "Ticks that panicked or failed and were recovered",
		})
		pr.entered = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "prayer_entered_total",
			Help:      "Prayer time transitions detected",
		}, []string{"prayer"})
		pr.dispatches = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "alert_dispatches_total",
			Help:      "Alert sink calls by sink and result",
		}, []string{"sink", "result"})
		pr.fetches = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "timesource_fetches_total",
			Help:      "Day schedule lookups by outcome",
		}, []string{"result"})
		pr.nextRemaining = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "next_prayer_remaining_seconds",
			Help:      "Seconds until the next prayer as of the last tick",
		})
		pr.keepAlive = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "keepalive_active",
			Help:      "1 while a background keep-alive session is open",
		})
		reg.MustRegister(pr.tickDuration, pr.tickFaults, pr.entered, pr.dispatches, pr.fetches, pr.nextRemaining, pr.keepAlive)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveTick(d time.Duration) {
	if p == nil || p.tickDuration == nil {
		return
	}
	p.tickDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTickFault() {
	if p == nil || p.tickFaults == nil {
		return
	}
	p.tickFaults.Inc()
}

func (p *PrometheusRecorder) IncEntered(prayer string) {
	if p == nil || p.entered == nil {
		return
	}
	p.entered.WithLabelValues(prayer).Inc()
}

func (p *PrometheusRecorder) IncDispatch(sink string, result ResultLabel) {
	if p == nil || p.dispatches == nil {
		return
	}
	p.dispatches.WithLabelValues(sink, string(result)).Inc()
}

func (p *PrometheusRecorder) IncFetch(result FetchLabel) {
	if p == nil || p.fetches == nil {
		return
	}
	p.fetches.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetNextRemaining(seconds float64) {
	if p == nil || p.nextRemaining == nil {
		return
	}
	p.nextRemaining.Set(seconds)
}

func (p *PrometheusRecorder) SetKeepAliveActive(active bool) {
	if p == nil || p.keepAlive == nil {
		return
	}
	if active {
		p.keepAlive.Set(1)
		return
	}
	p.keepAlive.Set(0)
}

// HTTPHandler returns an http.Handler serving the metrics in reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
