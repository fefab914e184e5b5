// Package leads creates and merges lead records keyed on email.
package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"

	"lead-intake-go/internal/models"
)

// ErrLeadNotFound is returned by Store.GetByEmail when no lead has the email
var ErrLeadNotFound = errors.New("lead not found")

// Store is the lead persistence collaborator
type Store interface {
	GetByEmail(ctx context.Context, email string) (*models.LeadRecord, error)
	Create(ctx context.Context, lead *models.LeadRecord) error
	Update(ctx context.Context, lead *models.LeadRecord) error
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	CreateConversationMessage(ctx context.Context, msg *models.ConversationMessage) error
}

// NormalizeEmail returns the case-folded, trimmed form used as the dedup key
func NormalizeEmail(email string) string {
	// Casers are stateful, so one is built per call.
	return cases.Fold().String(strings.TrimSpace(email))
}

// Reconciler merges candidates into stored lead records
type Reconciler struct {
	store Store
}

// NewReconciler creates a new reconciler
func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile creates a lead for an unseen email or merges the candidate into the existing one.
// Non-empty candidate fields overwrite stored values; empty fields never do.
func (r *Reconciler) Reconcile(ctx context.Context, c models.ParsedLeadCandidate) (*models.LeadRecord, bool, error) {
	email := NormalizeEmail(c.Email)
	if email == "" {
		return nil, false, fmt.Errorf("candidate has no email")
	}

	existing, err := r.store.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrLeadNotFound) {
		return nil, false, fmt.Errorf("failed to look up lead: %w", err)
	}

	if existing == nil {
		lead := &models.LeadRecord{Email: email, Status: models.LeadStatusNew}
		Merge(lead, c)
		if err := r.store.Create(ctx, lead); err != nil {
			return nil, false, fmt.Errorf("failed to create lead: %w", err)
		}
		logrus.WithField("lead_id", lead.ID).Infof("Created lead for %s", email)
		return lead, true, nil
	}

	if !Merge(existing, c) {
		logrus.Debugf("Lead %s unchanged by new candidate", existing.ID)
		return existing, false, nil
	}
	if err := r.store.Update(ctx, existing); err != nil {
		return nil, false, fmt.Errorf("failed to update lead: %w", err)
	}
	logrus.WithField("lead_id", existing.ID).Infof("Merged new data into lead %s", email)
	return existing, false, nil
}

// Merge copies every non-empty candidate field onto lead and reports whether anything changed
func Merge(lead *models.LeadRecord, c models.ParsedLeadCandidate) bool {
	changed := false
	set := func(dst *string, v string) {
		v = strings.TrimSpace(v)
		if v != "" && *dst != v {
			*dst = v
			changed = true
		}
	}

	set(&lead.FirstName, c.FirstName)
	set(&lead.LastName, c.LastName)
	set(&lead.Phone, c.Phone)
	set(&lead.VehicleInterest, c.VehicleInterest)
	set(&lead.LeadSource, c.LeadSource)
	return changed
}
