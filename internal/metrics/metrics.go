package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "elo"

// Metrics groups the bot's collectors behind a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	commands   *prometheus.CounterVec
	rejections *prometheus.CounterVec
	matches    *prometheus.CounterVec
	conflicts  prometheus.Counter
	failures   prometheus.Counter
	latency    *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands handled, by kind.",
		}, []string{"kind"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Game results refused, by reason.",
		}, []string{"reason"}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_recorded_total",
			Help:      "Matches applied to the ladder, by outcome and team size.",
		}, []string{"outcome", "team_size"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_conflicts_total",
			Help:      "Pair updates retried after a concurrent write.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Invocations that ended in an operational failure.",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time spent handling one invocation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.commands, m.rejections, m.matches, m.conflicts, m.failures, m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Command(kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(kind).Inc()
	m.latency.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) Rejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) Match(outcome string, teamSize int) {
	if m == nil {
		return
	}
	size := "singles"
	if teamSize == 2 {
		size = "doubles"
	}
	m.matches.WithLabelValues(outcome, size).Inc()
}

func (m *Metrics) Conflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *Metrics) Failure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}
