// Package intake turns unseen mailbox messages into lead records.
package intake

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"lead-intake-go/internal/extractor"
	"lead-intake-go/internal/health"
	"lead-intake-go/internal/leads"
	"lead-intake-go/internal/memory"
	"lead-intake-go/internal/metrics"
	"lead-intake-go/internal/models"
)

// Outcome is the result of processing one message
type Outcome string

// Message outcomes
const (
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeOtherLane   Outcome = "other_lane"
	OutcomeJunk        Outcome = "junk"
	OutcomeNotAllowed  Outcome = "not_allowed"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeCreated     Outcome = "created"
	OutcomeUpdated     Outcome = "updated"
	OutcomeFailed      Outcome = "failed"
	// OutcomeInterrupted leaves the message unseen and the watermark unchanged so the next check retries it
	OutcomeInterrupted Outcome = "interrupted"
)

// Session is the open mailbox a batch was fetched from
type Session interface {
	// Key identifies the mailbox and its UIDVALIDITY
	Key() string
	MarkSeen(uid uint32) error
	Move(uid uint32, folder string) error
}

// Bookkeeper persists per-mailbox watermarks and the intake log
type Bookkeeper interface {
	LoadWatermark(ctx context.Context, mailbox string) (uint32, error)
	SaveWatermark(ctx context.Context, mailbox string, uid uint32) error
	LogIntake(ctx context.Context, entry *models.IntakeLog) error
}

// Options configures message finalization and sender filtering
type Options struct {
	ProcessedFolder      string
	FailedFolder         string
	AllowedSenderDomains []string
}

// Result summarizes a processed batch
type Result struct {
	Fetched  int             `json:"fetched"`
	Outcomes map[Outcome]int `json:"outcomes"`
}

// Processor runs each message through the watermark guard, lane guard, filters,
// extraction, validation and reconciliation, then finalizes it.
type Processor struct {
	extractor  *extractor.Extractor
	reconciler *leads.Reconciler
	store      leads.Store
	book       Bookkeeper
	sink       memory.Sink
	guard      *LaneGuard
	health     *health.State
	metrics    *metrics.Metrics
	opts       Options

	mu    sync.Mutex
	marks map[string]uint32
}

// NewProcessor creates a new processor. sink and m may be nil.
func NewProcessor(store leads.Store, book Bookkeeper, sink memory.Sink, guard *LaneGuard, h *health.State, m *metrics.Metrics, opts Options) *Processor {
	if sink == nil {
		sink = memory.Noop{}
	}
	return &Processor{
		extractor:  extractor.New(),
		reconciler: leads.NewReconciler(store),
		store:      store,
		book:       book,
		sink:       sink,
		guard:      guard,
		health:     h,
		metrics:    m,
		opts:       opts,
		marks:      make(map[string]uint32),
	}
}

// ProcessBatch processes msgs in ascending UID order. A failing message is
// recorded and the rest of the batch continues. Once ctx is done the remaining
// messages are left untouched.
func (p *Processor) ProcessBatch(ctx context.Context, s Session, msgs []models.EmailMessage) Result {
	res := Result{Fetched: len(msgs), Outcomes: map[Outcome]int{}}

	sorted := append([]models.EmailMessage(nil), msgs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UID < sorted[j].UID })

	for i, msg := range sorted {
		if ctx.Err() != nil {
			logrus.WithField("remaining", len(sorted)-i).Warn("Batch interrupted, leaving remaining messages for the next check")
			res.Outcomes[OutcomeInterrupted] += len(sorted) - i
			break
		}
		outcome := p.Process(ctx, s, msg)
		res.Outcomes[outcome]++
	}
	return res
}

// Process handles a single message and returns its outcome
func (p *Processor) Process(ctx context.Context, s Session, msg models.EmailMessage) Outcome {
	key := s.Key()
	log := logrus.WithFields(logrus.Fields{
		"component":  "intake",
		"mailbox":    key,
		"uid":        msg.UID,
		"message_id": msg.MessageID,
	})

	if ctx.Err() != nil {
		return p.interrupted(log)
	}

	wm, err := p.watermark(ctx, key)
	if err != nil {
		log.WithError(err).Error("Failed to load watermark")
		p.health.RecordError(fmt.Errorf("uid %d: %w", msg.UID, err))
		p.count(OutcomeFailed)
		return OutcomeFailed
	}
	if msg.UID <= wm {
		log.Debugf("Message at or below watermark %d, skipping", wm)
		p.count(OutcomeDuplicate)
		return OutcomeDuplicate
	}

	if addr, ok := p.guard.Match(msg.Recipients()); ok {
		log.WithField("recipient", addr).Info("Message belongs to the reply lane, leaving it untouched")
		p.advance(ctx, key, msg.UID, log)
		p.count(OutcomeOtherLane)
		return OutcomeOtherLane
	}

	outcome, detail, leadID, err := p.evaluate(ctx, msg, log)
	if err != nil && ctx.Err() != nil {
		return p.interrupted(log)
	}
	if err != nil {
		outcome, detail = OutcomeFailed, err.Error()
		log.WithError(err).Error("Failed to process message")
	}

	// The outcome is settled; bookkeeping completes even if ctx is cancelled now.
	ctx = context.WithoutCancel(ctx)
	p.finalize(ctx, s, msg, outcome, log)
	p.advance(ctx, key, msg.UID, log)

	switch outcome {
	case OutcomeCreated, OutcomeUpdated, OutcomeInvalid:
		p.health.RecordMessage(msg.UID)
	case OutcomeFailed:
		p.health.RecordError(fmt.Errorf("uid %d: %w", msg.UID, err))
	}

	entry := &models.IntakeLog{
		Mailbox:   key,
		UID:       msg.UID,
		MessageID: msg.MessageID,
		Outcome:   string(outcome),
		Detail:    detail,
	}
	if leadID != "" {
		entry.LeadID = &leadID
	}
	if err := p.book.LogIntake(ctx, entry); err != nil {
		log.WithError(err).Warn("Failed to write intake log")
	}

	p.count(outcome)
	log.WithField("outcome", outcome).Info("Message processed")
	return outcome
}

// interrupted skips finalization so the message stays unseen for the next check
func (p *Processor) interrupted(log *logrus.Entry) Outcome {
	log.Warn("Check cancelled, message left for the next check")
	p.count(OutcomeInterrupted)
	return OutcomeInterrupted
}

// evaluate runs the filters and, for a qualifying lead, reconciliation and its side effects
func (p *Processor) evaluate(ctx context.Context, msg models.EmailMessage, log *logrus.Entry) (Outcome, string, string, error) {
	if msg.ParseError != "" {
		return "", "", "", errors.New(msg.ParseError)
	}

	if match, ok := isJunk(msg.Subject, msg.From); ok {
		return OutcomeJunk, fmt.Sprintf("matched junk pattern %q", match), "", nil
	}

	domain := extractor.SenderDomain(msg.From)
	if !allowedSender(domain, p.opts.AllowedSenderDomains) {
		return OutcomeNotAllowed, fmt.Sprintf("sender domain %q not allowed", domain), "", nil
	}

	content := msg.Content()
	c := p.extractor.Extract(msg.Subject, content, msg.From)

	if reason := qualify(c); reason != "" {
		log.WithField("reason", reason).Info("Message is not a qualified lead")
		return OutcomeInvalid, reason, "", nil
	}

	lead, created, err := p.reconciler.Reconcile(ctx, c)
	if err != nil {
		return "", "", "", err
	}

	conv := &models.Conversation{
		LeadID:  lead.ID,
		Channel: models.ChannelEmail,
		Subject: msg.Subject,
		Status:  models.ConversationOpen,
	}
	if err := p.store.CreateConversation(ctx, conv); err != nil {
		return "", "", lead.ID, err
	}

	externalID := msg.MessageID
	if externalID == "" {
		externalID = fmt.Sprintf("uid:%d", msg.UID)
	}
	err = p.store.CreateConversationMessage(ctx, &models.ConversationMessage{
		ConversationID: conv.ID,
		Direction:      models.DirectionInbound,
		Sender:         msg.From,
		Content:        content,
		ExternalID:     externalID,
	})
	if err != nil {
		return "", "", lead.ID, err
	}

	entry := memory.Entry{
		LeadID:   lead.ID,
		Email:    lead.Email,
		Source:   lead.LeadSource,
		Content:  extractor.StripTags(content),
		Metadata: c.Metadata,
	}
	if err := p.sink.AddLeadMemory(ctx, entry); err != nil {
		log.WithError(err).Warn("Failed to store lead memory")
	}

	if created {
		if p.metrics != nil {
			p.metrics.LeadsCreated.Inc()
		}
		return OutcomeCreated, "", lead.ID, nil
	}
	if p.metrics != nil {
		p.metrics.LeadsUpdated.Inc()
	}
	return OutcomeUpdated, "", lead.ID, nil
}

// qualify returns why c is not a usable lead, or "" when it is
func qualify(c models.ParsedLeadCandidate) string {
	if !extractor.IsValidEmail(c.Email) {
		return "missing or invalid email"
	}
	if !c.HasName() && c.Phone == "" && c.VehicleInterest == "" {
		return "no name, phone or vehicle interest"
	}
	return ""
}

func (p *Processor) finalize(ctx context.Context, s Session, msg models.EmailMessage, outcome Outcome, log *logrus.Entry) {
	if err := s.MarkSeen(msg.UID); err != nil {
		log.WithError(err).Warn("Failed to mark message as seen")
		p.health.RecordError(fmt.Errorf("uid %d: mark seen: %w", msg.UID, err))
		return
	}

	folder := ""
	switch outcome {
	case OutcomeCreated, OutcomeUpdated:
		folder = p.opts.ProcessedFolder
	case OutcomeInvalid, OutcomeFailed:
		folder = p.opts.FailedFolder
	}
	if folder == "" {
		return
	}
	if err := s.Move(msg.UID, folder); err != nil {
		log.WithError(err).WithField("folder", folder).Warn("Failed to move message")
		p.health.RecordError(fmt.Errorf("uid %d: move to %s: %w", msg.UID, folder, err))
	}
}

func (p *Processor) watermark(ctx context.Context, key string) (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if wm, ok := p.marks[key]; ok {
		return wm, nil
	}
	wm, err := p.book.LoadWatermark(ctx, key)
	if err != nil {
		return 0, err
	}
	p.marks[key] = wm
	return wm, nil
}

// Watermark returns the highest UID processed for key in this process
func (p *Processor) Watermark(key string) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.marks[key]
}

func (p *Processor) advance(ctx context.Context, key string, uid uint32, log *logrus.Entry) {
	p.mu.Lock()
	if uid <= p.marks[key] {
		p.mu.Unlock()
		return
	}
	p.marks[key] = uid
	p.mu.Unlock()

	if err := p.book.SaveWatermark(ctx, key, uid); err != nil {
		log.WithError(err).Warn("Failed to persist watermark")
	}
}

func (p *Processor) count(o Outcome) {
	if p.metrics != nil {
		p.metrics.Outcomes.WithLabelValues(string(o)).Inc()
	}
}
