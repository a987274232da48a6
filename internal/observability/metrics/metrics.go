package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	metricPrefix = "investly_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	investmentsTotal   *prometheus.CounterVec
	investmentLatency  *prometheus.HistogramVec
	investedMinorUnits prometheus.Counter
	refundsTotal       *prometheus.CounterVec

	redemptionsTotal *prometheus.CounterVec

	lifecycleTransitions *prometheus.CounterVec

	schedulerRuns *prometheus.CounterVec

	idempotentReplays prometheus.Counter

	feedSubscribers prometheus.Gauge
)

// Init registers the ledger metrics once per process. db may be nil.
func Init(db *sql.DB) {
	registerOnce.Do(func() {
		investmentsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "investments_total",
				Help: "Investment attempts by result (success or error reason)",
			},
			[]string{"result"},
		)
		investmentLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "investment_latency_seconds",
				Help:    "Latency of the atomic investment write",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		investedMinorUnits = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "invested_minor_units_total",
				Help: "Sum of admitted investment amounts in minor units",
			},
		)
		refundsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "refunds_total",
				Help: "Investment refunds by result",
			},
			[]string{"result"},
		)
		redemptionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "promo_redemptions_total",
				Help: "Promo code redemption attempts by result",
			},
			[]string{"result"},
		)
		lifecycleTransitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "lifecycle_transitions_total",
				Help: "Applied business status transitions",
			},
			[]string{"from", "to"},
		)
		schedulerRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "scheduler_runs_total",
				Help: "Scheduled job runs by job and result",
			},
			[]string{"job", "result"},
		)
		idempotentReplays = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "idempotent_replays_total",
				Help: "Requests answered from the idempotency store",
			},
		)
		feedSubscribers = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "funding_feed_subscribers",
				Help: "Connected live funding feed clients",
			},
		)

		prometheus.MustRegister(
			investmentsTotal,
			investmentLatency,
			investedMinorUnits,
			refundsTotal,
			redemptionsTotal,
			lifecycleTransitions,
			schedulerRuns,
			idempotentReplays,
			feedSubscribers,
		)

		if db != nil {
			prometheus.MustRegister(collectors.NewDBStatsCollector(db, "investly"))
		}
	})
}

// ObserveInvestment records one investment attempt. result is "success" or
// the error reason.
func ObserveInvestment(result string, amountMinor int64, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if investmentsTotal != nil {
		investmentsTotal.WithLabelValues(result).Inc()
	}
	if investmentLatency != nil {
		investmentLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if result == resultSuccess && amountMinor > 0 && investedMinorUnits != nil {
		investedMinorUnits.Add(float64(amountMinor))
	}
}

func IncRefund(result string) {
	if result == "" {
		result = resultSuccess
	}
	if refundsTotal != nil {
		refundsTotal.WithLabelValues(result).Inc()
	}
}

func IncRedemption(result string) {
	if result == "" {
		result = resultSuccess
	}
	if redemptionsTotal != nil {
		redemptionsTotal.WithLabelValues(result).Inc()
	}
}

func IncLifecycleTransition(from, to string) {
	if lifecycleTransitions != nil {
		lifecycleTransitions.WithLabelValues(from, to).Inc()
	}
}

func IncSchedulerRun(job, result string) {
	if job == "" {
		job = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if schedulerRuns != nil {
		schedulerRuns.WithLabelValues(job, result).Inc()
	}
}

func IncIdempotentReplay() {
	if idempotentReplays != nil {
		idempotentReplays.Inc()
	}
}

// AddFeedSubscribers moves the subscriber gauge by delta.
func AddFeedSubscribers(delta int) {
	if feedSubscribers != nil {
		feedSubscribers.Add(float64(delta))
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
