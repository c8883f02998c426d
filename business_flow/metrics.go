package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Voice webhooks partitioned by endpoint and how they were answered
	voiceWebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_webhooks_total",
			Help: "Voice webhooks answered, by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	// Dialogue transitions taken
	dialogueTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_dialogue_transitions_total",
			Help: "Dialogue state machine transitions",
		},
		[]string{"from", "trigger", "to"},
	)

	// Redelivered webhooks whose mutation was skipped
	voiceDuplicateDeliveriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voice_duplicate_deliveries_total",
			Help: "Webhook redeliveries whose mutation was skipped",
		},
	)

	// Status callbacks by reduced disposition
	callStatusCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_status_callbacks_total",
			Help: "Call status callbacks by reduced disposition",
		},
		[]string{"disposition"},
	)

	// Outbound call attempts by result
	callsInitiatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_calls_initiated_total",
			Help: "Outbound call initiation attempts by result",
		},
		[]string{"result"},
	)

	// Pending calls expired by the sweeper
	staleCallsFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voice_stale_calls_failed_total",
			Help: "Pending calls marked failed after no status callback arrived",
		},
	)
)

// Webhook outcomes
const (
	outcomeOK          = "ok"
	outcomeMissingLead = "missing_lead"
	outcomeUnknownLead = "unknown_lead"
	outcomeBadRequest  = "bad_request"
	outcomeNotFound    = "not_found"
	outcomeOffline     = "offline"
	outcomeFallback    = "fallback"
)
