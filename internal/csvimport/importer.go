package csvimport

import (
	"context"

	"github.com/sirupsen/logrus"

	"lead-intake-go/internal/extractor"
	"lead-intake-go/internal/leads"
	"lead-intake-go/internal/metrics"
	"lead-intake-go/internal/models"
)

// SourceCSV is the lead source recorded for rows without a source column
const SourceCSV = "csv_import"

// ImportResult is the outcome of an import. Leads are only written for valid batches.
type ImportResult struct {
	Outcome ValidationOutcome `json:"outcome"`
	Created int               `json:"created"`
	Updated int               `json:"updated"`
	Failed  int               `json:"failed"`
}

// Importer validates CSV batches and funnels accepted rows through the lead reconciler
type Importer struct {
	reconciler *leads.Reconciler
	metrics    *metrics.Metrics
	log        *logrus.Entry
}

// NewImporter creates a new importer. m may be nil.
func NewImporter(reconciler *leads.Reconciler, m *metrics.Metrics) *Importer {
	return &Importer{
		reconciler: reconciler,
		metrics:    m,
		log:        logrus.WithField("component", "csvimport"),
	}
}

// Validate validates data and records batch metrics without importing anything
func (im *Importer) Validate(data []byte, opts Options) ValidationOutcome {
	outcome := Validate(data, opts)
	im.observe(outcome)
	return outcome
}

// Import validates data and, when the batch is valid, reconciles each accepted row.
// A row that fails to persist is counted and logged; the rest of the batch continues.
func (im *Importer) Import(ctx context.Context, data []byte, opts Options) *ImportResult {
	result := &ImportResult{Outcome: im.Validate(data, opts)}
	if !result.Outcome.Valid {
		im.log.WithField("errors", len(result.Outcome.Errors)).Warn("CSV batch rejected")
		return result
	}

	for _, row := range result.Outcome.Data {
		_, created, err := im.reconciler.Reconcile(ctx, row.Candidate())
		if err != nil {
			result.Failed++
			im.log.WithError(err).WithField("email", row[ColEmail]).Error("Failed to import CSV row")
			continue
		}
		if created {
			result.Created++
			if im.metrics != nil {
				im.metrics.LeadsCreated.Inc()
			}
		} else {
			result.Updated++
			if im.metrics != nil {
				im.metrics.LeadsUpdated.Inc()
			}
		}
	}

	im.log.WithFields(logrus.Fields{
		"created": result.Created,
		"updated": result.Updated,
		"failed":  result.Failed,
	}).Info("CSV batch imported")
	return result
}

func (im *Importer) observe(o ValidationOutcome) {
	if im.metrics == nil {
		return
	}
	if o.Valid {
		im.metrics.CSVBatches.WithLabelValues("valid").Inc()
	} else {
		im.metrics.CSVBatches.WithLabelValues("invalid").Inc()
	}
	im.metrics.CSVRows.WithLabelValues("valid").Add(float64(o.Stats.ValidRows))
	im.metrics.CSVRows.WithLabelValues("invalid").Add(float64(o.Stats.InvalidRows))
	im.metrics.CSVRows.WithLabelValues("duplicate").Add(float64(o.Stats.DuplicateEmails))
}

// Candidate converts an accepted row into a lead candidate
func (r Row) Candidate() models.ParsedLeadCandidate {
	source := r[ColSource]
	if source == "" {
		source = SourceCSV
	}
	return models.ParsedLeadCandidate{
		FirstName:       r[ColFirstName],
		LastName:        r[ColLastName],
		Email:           r[ColEmail],
		Phone:           extractor.NormalizePhone(r[ColPhone]),
		VehicleInterest: r[ColVehicleInterest],
		LeadSource:      source,
		Notes:           r[ColNotes],
	}
}
