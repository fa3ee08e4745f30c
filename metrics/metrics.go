package metrics

import (
	"net/http"

	"github.com/Allenxuxu/toolkit/sync/atomic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMetricsPath = "/metrics"

var (
	Enable atomic.Bool
	rg     = prometheus.NewRegistry()
)

var (
	ActiveHandles = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "evloop_active_handles",
	})
	ActiveRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "evloop_active_requests",
	})
	LoopIterations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evloop_iterations_total",
	})
	PollEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evloop_poll_events_total",
	})
	TimersFired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evloop_timers_fired_total",
	})
)

func PrometheusMustRegister(cs ...prometheus.Collector) {
	rg.MustRegister(cs...)
}

func MustRun(path, address string) {
	if path == "" {
		path = defaultMetricsPath
	}

	rg.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
		ActiveHandles,
		ActiveRequests,
		LoopIterations,
		PollEvents,
		TimersFired,
	)

	Enable.Set(true)
	defer Enable.Set(false)

	http.Handle(path, promhttp.HandlerFor(rg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(address, nil); err != nil {
		panic(err)
	}
}
