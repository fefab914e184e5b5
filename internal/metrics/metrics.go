package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	CheckCount      prometheus.Counter
	FetchedMessages prometheus.Counter
	Outcomes        *prometheus.CounterVec
	LeadsCreated    prometheus.Counter
	LeadsUpdated    prometheus.Counter
	CheckFailures   prometheus.Counter
	CheckDuration   prometheus.Histogram
	CSVBatches      *prometheus.CounterVec
	CSVRows         *prometheus.CounterVec
}

// NewMetrics creates new Prometheus metrics registered on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CheckCount: factory.NewCounter(prometheus.CounterOpts{
			Name: "lead_intake_mailbox_checks_total",
			Help: "Total number of mailbox check cycles",
		}),
		FetchedMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "lead_intake_fetched_messages_total",
			Help: "Total number of unseen messages fetched from the mailbox",
		}),
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lead_intake_message_outcomes_total",
			Help: "Mailbox messages by intake outcome",
		}, []string{"outcome"}),
		LeadsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "lead_intake_leads_created_total",
			Help: "Total number of lead records created",
		}),
		LeadsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "lead_intake_leads_updated_total",
			Help: "Total number of lead records merged with new data",
		}),
		CheckFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "lead_intake_mailbox_check_failures_total",
			Help: "Total number of mailbox checks that failed to fetch",
		}),
		CheckDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lead_intake_mailbox_check_duration_seconds",
			Help:    "Time spent in a mailbox check cycle",
			Buckets: prometheus.DefBuckets,
		}),
		CSVBatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lead_intake_csv_batches_total",
			Help: "CSV batches validated, by result",
		}, []string{"result"}),
		CSVRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lead_intake_csv_rows_total",
			Help: "CSV rows validated, by result",
		}, []string{"result"}),
	}
}
