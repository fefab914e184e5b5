// Package repository persists leads, conversations, watermarks and intake logs with gorm.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"lead-intake-go/internal/leads"
	"lead-intake-go/internal/models"
)

// Repository implements leads.Store and the mailbox bookkeeping the intake processor needs
type Repository struct {
	db *gorm.DB
}

// New creates a new repository
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetByEmail returns the lead with the given normalized email or leads.ErrLeadNotFound
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.LeadRecord, error) {
	var lead models.LeadRecord
	result := r.db.WithContext(ctx).Where("email = ?", leads.NormalizeEmail(email)).First(&lead)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, leads.ErrLeadNotFound
	}
	if result.Error != nil {
		return nil, fmt.Errorf("database error: %w", result.Error)
	}
	return &lead, nil
}

// Create inserts a new lead
func (r *Repository) Create(ctx context.Context, lead *models.LeadRecord) error {
	if result := r.db.WithContext(ctx).Create(lead); result.Error != nil {
		return fmt.Errorf("failed to create lead: %w", result.Error)
	}
	return nil
}

// Update saves every field of an existing lead
func (r *Repository) Update(ctx context.Context, lead *models.LeadRecord) error {
	if result := r.db.WithContext(ctx).Save(lead); result.Error != nil {
		return fmt.Errorf("failed to update lead: %w", result.Error)
	}
	return nil
}

// CreateConversation inserts a conversation
func (r *Repository) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	if result := r.db.WithContext(ctx).Create(conv); result.Error != nil {
		return fmt.Errorf("failed to create conversation: %w", result.Error)
	}
	return nil
}

// CreateConversationMessage inserts a conversation message
func (r *Repository) CreateConversationMessage(ctx context.Context, msg *models.ConversationMessage) error {
	if result := r.db.WithContext(ctx).Create(msg); result.Error != nil {
		return fmt.Errorf("failed to create conversation message: %w", result.Error)
	}
	return nil
}

// ListConversations returns the conversations of a lead, newest first
func (r *Repository) ListConversations(ctx context.Context, leadID string) ([]models.Conversation, error) {
	var convs []models.Conversation
	result := r.db.WithContext(ctx).Where("lead_id = ?", leadID).Order("created_at DESC").Find(&convs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get conversations: %w", result.Error)
	}
	return convs, nil
}

// LoadWatermark returns the highest processed UID for mailbox, 0 when none was stored
func (r *Repository) LoadWatermark(ctx context.Context, mailbox string) (uint32, error) {
	var wm models.ProcessingWatermark
	result := r.db.WithContext(ctx).Where("mailbox = ?", mailbox).First(&wm)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if result.Error != nil {
		return 0, fmt.Errorf("failed to load watermark: %w", result.Error)
	}
	return wm.UID, nil
}

// SaveWatermark stores uid for mailbox unless a higher UID is already stored
func (r *Repository) SaveWatermark(ctx context.Context, mailbox string, uid uint32) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wm models.ProcessingWatermark
		result := tx.Where("mailbox = ?", mailbox).First(&wm)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return tx.Create(&models.ProcessingWatermark{Mailbox: mailbox, UID: uid}).Error
		}
		if result.Error != nil {
			return result.Error
		}
		if uid <= wm.UID {
			return nil
		}
		return tx.Model(&wm).Updates(map[string]interface{}{"uid": uid, "updated_at": time.Now()}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save watermark: %w", err)
	}
	return nil
}

// LogIntake records the outcome of a mailbox message
func (r *Repository) LogIntake(ctx context.Context, entry *models.IntakeLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if result := r.db.WithContext(ctx).Create(entry); result.Error != nil {
		return fmt.Errorf("failed to log intake: %w", result.Error)
	}
	return nil
}

// ListIntakeLogs returns the most recent intake log entries
func (r *Repository) ListIntakeLogs(ctx context.Context, limit int) ([]models.IntakeLog, error) {
	var logs []models.IntakeLog
	result := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&logs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get intake logs: %w", result.Error)
	}
	return logs, nil
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
