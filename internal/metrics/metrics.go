package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CountsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "counting_accepted_total",
		Help: "The total number of accepted counts",
	})

	CountsRuined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "counting_ruins_total",
		Help: "The total number of ruined counts",
	})

	CountsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "counting_rejected_total",
		Help: "The total number of rejected submissions",
	}, []string{"reason"})

	CountsRewound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "counting_rewinds_total",
		Help: "The total number of deletion-triggered count rewinds",
	})

	GoalsReached = promauto.NewCounter(prometheus.CounterOpts{
		Name: "counting_goals_reached_total",
		Help: "The total number of counting goals reached",
	})

	SanctionsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "counting_sanctions_applied_total",
		Help: "The total number of ruin roles assigned",
	})

	SanctionsRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "counting_sanctions_revoked_total",
		Help: "The total number of expired ruin roles revoked by the sweep",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "counting_sweep_duration_seconds",
		Help:    "Duration of sanction expiry sweeps",
		Buckets: prometheus.DefBuckets,
	})

	DiscordMessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discord_messages_sent_total",
		Help: "Total number of Discord messages sent",
	}, []string{"kind", "status"})

	StorageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "counting_storage_operations_total",
		Help: "Total number of storage operations",
	}, []string{"operation", "status"})
)
