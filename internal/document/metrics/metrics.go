package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the document lifecycle. All methods are
// safe on a nil receiver so tests and tools can run without a registry.
type Metrics struct {
	// Bulk operations by target status and outcome (committed, rejected, conflict, error)
	BulkTransitions *prometheus.CounterVec

	// Documents moved, by target status
	DocumentsTransitioned *prometheus.CounterVec

	BulkDuration prometheus.Histogram

	// Retrieval codes issued by kind (group, single) and collisions seen while issuing
	CodesIssued    *prometheus.CounterVec
	CodeCollisions prometheus.Counter

	// Client notifications by outcome status
	Notifications *prometheus.CounterVec

	// Confirmation gate outcomes (requested, awaiting, confirmed, cancelled, executed)
	GateOutcomes *prometheus.CounterVec

	// Undo attempts by outcome (undone, expired, invalid, conflict)
	UndoOutcomes *prometheus.CounterVec

	// Audit outbox relay
	OutboxPublished prometheus.Counter
	OutboxFailed    prometheus.Counter
}

// New registers the document metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BulkTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notaria_bulk_transitions_total",
			Help: "Bulk transition operations by target status and outcome",
		}, []string{"to", "outcome"}),
		DocumentsTransitioned: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notaria_documents_transitioned_total",
			Help: "Documents whose status changed, by target status",
		}, []string{"to"}),
		BulkDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "notaria_bulk_transition_duration_seconds",
			Help:    "Duration of a bulk transition including retries",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		CodesIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notaria_retrieval_codes_issued_total",
			Help: "Retrieval codes issued by kind",
		}, []string{"kind"}),
		CodeCollisions: f.NewCounter(prometheus.CounterOpts{
			Name: "notaria_retrieval_code_collisions_total",
			Help: "Generated retrieval codes discarded because they were already in use",
		}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notaria_client_notifications_total",
			Help: "Client notification outcomes",
		}, []string{"status"}),
		GateOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notaria_confirmation_gate_total",
			Help: "Confirmation gate state changes",
		}, []string{"state"}),
		UndoOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notaria_undo_total",
			Help: "Undo attempts by outcome",
		}, []string{"outcome"}),
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "notaria_audit_outbox_published_total",
			Help: "Audit events relayed to the event stream",
		}),
		OutboxFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "notaria_audit_outbox_failed_total",
			Help: "Audit outbox relay failures",
		}),
	}
}

func (m *Metrics) IncrementBulk(to, outcome string) {
	if m != nil {
		m.BulkTransitions.WithLabelValues(to, outcome).Inc()
	}
}

func (m *Metrics) AddDocumentsTransitioned(to string, n int) {
	if m != nil {
		m.DocumentsTransitioned.WithLabelValues(to).Add(float64(n))
	}
}

func (m *Metrics) ObserveBulkDuration(d time.Duration) {
	if m != nil {
		m.BulkDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementCodeIssued(kind string) {
	if m != nil {
		m.CodesIssued.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncrementCodeCollision() {
	if m != nil {
		m.CodeCollisions.Inc()
	}
}

func (m *Metrics) IncrementNotification(status string) {
	if m != nil {
		m.Notifications.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncrementGate(state string) {
	if m != nil {
		m.GateOutcomes.WithLabelValues(state).Inc()
	}
}

func (m *Metrics) IncrementUndo(outcome string) {
	if m != nil {
		m.UndoOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementOutboxPublished(n int) {
	if m != nil {
		m.OutboxPublished.Add(float64(n))
	}
}

func (m *Metrics) IncrementOutboxFailed() {
	if m != nil {
		m.OutboxFailed.Inc()
	}
}
