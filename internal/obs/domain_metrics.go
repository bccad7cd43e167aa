package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// StageMutationsTotal counts staging ledger mutations by domain, operation and outcome.
	StageMutationsTotal *prometheus.CounterVec
	// StagedLines tracks the current number of staged lines per domain.
	StagedLines *prometheus.GaugeVec
	// CommitTotal counts commit attempts by domain and outcome.
	CommitTotal *prometheus.CounterVec
	// CommitDuration records commit latency in milliseconds.
	CommitDuration *prometheus.HistogramVec
	// TerminalValidationTotal counts terminal validation attempts by outcome.
	TerminalValidationTotal *prometheus.CounterVec
	// StageSweepPurgedTotal counts stale staged lines removed by the sweeper.
	StageSweepPurgedTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		StageMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_mutations_total",
			Help:      "Count of staging ledger mutations by outcome.",
		}, []string{"domain", "op", "result"})
		StagedLines = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "staged_lines",
			Help:      "Current number of staged lines per domain.",
		}, []string{"domain"})
		CommitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_total",
			Help:      "Count of staged ledger commit outcomes.",
		}, []string{"domain", "result"})
		CommitDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_duration_ms",
			Help:      "Latency of commit operations in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"domain"})
		TerminalValidationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "terminal_validation_total",
			Help:      "Count of terminal validation attempts by outcome.",
		}, []string{"result"})
		StageSweepPurgedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_sweep_purged_total",
			Help:      "Number of stale staged lines purged by the sweeper.",
		})

		reg.MustRegister(
			StageMutationsTotal,
			StagedLines,
			CommitTotal,
			CommitDuration,
			TerminalValidationTotal,
			StageSweepPurgedTotal,
		)
	})
}
