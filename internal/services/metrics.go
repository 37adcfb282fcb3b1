package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "educheck_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"status", "method"}, // method: code/token
	)

	registrationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "educheck_registration_attempts_total",
			Help: "Total number of registration attempts",
		},
		[]string{"status", "role"},
	)

	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "educheck_submissions_total",
			Help: "Total number of test submissions",
		},
		[]string{"outcome"}, // stored/kept_previous
	)

	submissionScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "educheck_submission_score",
			Help:    "Distribution of submission scores",
			Buckets: []float64{60, 70, 80, 90, 100},
		},
	)

	chatMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "educheck_chat_messages_sent_total",
			Help: "Total number of chat messages sent",
		},
	)

	statsCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "educheck_stats_cache_lookups_total",
			Help: "Statistics cache lookups by result",
		},
		[]string{"result"}, // hit/miss
	)
)
