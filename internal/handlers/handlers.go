package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lead-intake-go/internal/csvimport"
	"lead-intake-go/internal/health"
	"lead-intake-go/internal/intake"
	"lead-intake-go/internal/models"
)

// Store is the read side of the lead repository used by the admin API
type Store interface {
	Ping(ctx context.Context) error
	GetByEmail(ctx context.Context, email string) (*models.LeadRecord, error)
	ListConversations(ctx context.Context, leadID string) ([]models.Conversation, error)
	ListIntakeLogs(ctx context.Context, limit int) ([]models.IntakeLog, error)
}

// Mailbox is the mailbox session controlled by the admin API
type Mailbox interface {
	CheckNow(ctx context.Context) (intake.Result, error)
	Running() bool
	Uptime() time.Duration
}

// Handlers contains all HTTP handlers
type Handlers struct {
	store    Store
	mailbox  Mailbox
	importer *csvimport.Importer
	health   *health.State
	csvOpts  csvimport.Options
	gatherer prometheus.Gatherer
}

// NewHandlers creates new HTTP handlers
func NewHandlers(store Store, mailbox Mailbox, importer *csvimport.Importer, h *health.State, csvOpts csvimport.Options, gatherer prometheus.Gatherer) *Handlers {
	return &Handlers{
		store:    store,
		mailbox:  mailbox,
		importer: importer,
		health:   h,
		csvOpts:  csvOpts,
		gatherer: gatherer,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	{
		api.GET("/leads/:email", h.GetLead)
		api.POST("/leads/import", h.ImportLeads)

		api.GET("/intake/logs", h.GetIntakeLogs)

		api.POST("/mailbox/check", h.CheckMailbox)
		api.GET("/mailbox/status", h.GetMailboxStatus)
	}
}
