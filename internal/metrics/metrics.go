// Package metrics exposes relay counters for Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "arxivrelay"

// Post results.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Relay holds the counters updated by the topic runner.
// A nil *Relay is valid and records nothing.
type Relay struct {
	runs           prometheus.Counter
	lastRunSeconds prometheus.Gauge

	entriesFetched  *prometheus.CounterVec
	entriesFiltered *prometheus.CounterVec
	entriesBadDate  *prometheus.CounterVec
	posts           *prometheus.CounterVec
	throttles       *prometheus.CounterVec
	topicErrors     *prometheus.CounterVec
	topicsSkipped   *prometheus.CounterVec
}

// New registers the relay collectors on reg.
func New(reg prometheus.Registerer) *Relay {
	f := promauto.With(reg)
	return &Relay{
		runs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed relay runs.",
		}),
		lastRunSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the most recent run.",
		}),
		entriesFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_fetched_total",
			Help:      "Entries returned by the upstream feed.",
		}, []string{"topic"}),
		entriesFiltered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_filtered_total",
			Help:      "Entries that passed the time window.",
		}, []string{"topic"}),
		entriesBadDate: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_bad_date_total",
			Help:      "Entries skipped because their timestamp did not parse.",
		}, []string{"topic"}),
		posts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_total",
			Help:      "Delivered messages by result.",
		}, []string{"topic", "result"}),
		throttles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttles_total",
			Help:      "Throttled (429) delivery attempts.",
		}, []string{"topic"}),
		topicErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topic_errors_total",
			Help:      "Topics that ended with an error.",
		}, []string{"topic"}),
		topicsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topics_skipped_total",
			Help:      "Topics skipped because no destination was configured.",
		}, []string{"topic"}),
	}
}

func (m *Relay) Fetched(topic string, n, filtered, badDate int) {
	if m == nil {
		return
	}
	m.entriesFetched.WithLabelValues(topic).Add(float64(n))
	m.entriesFiltered.WithLabelValues(topic).Add(float64(filtered))
	m.entriesBadDate.WithLabelValues(topic).Add(float64(badDate))
}

func (m *Relay) Posted(topic string, ok bool, throttles int) {
	if m == nil {
		return
	}
	res := ResultOK
	if !ok {
		res = ResultFailed
	}
	m.posts.WithLabelValues(topic, res).Inc()
	if throttles > 0 {
		m.throttles.WithLabelValues(topic).Add(float64(throttles))
	}
}

func (m *Relay) TopicFailed(topic string) {
	if m == nil {
		return
	}
	m.topicErrors.WithLabelValues(topic).Inc()
}

func (m *Relay) TopicSkipped(topic string) {
	if m == nil {
		return
	}
	m.topicsSkipped.WithLabelValues(topic).Inc()
}

// RunFinished records one completed run.
func (m *Relay) RunFinished(seconds float64) {
	if m == nil {
		return
	}
	m.runs.Inc()
	m.lastRunSeconds.Set(seconds)
}
