// Package mailbox owns the IMAP session of the monitored lead inbox.
package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
	gmail "google.golang.org/api/gmail/v1"

	"lead-intake-go/internal/config"
	"lead-intake-go/internal/health"
	"lead-intake-go/internal/intake"
	"lead-intake-go/internal/metrics"
	"lead-intake-go/internal/models"
)

// Processor handles the unseen messages found by a check
type Processor interface {
	ProcessBatch(ctx context.Context, s intake.Session, msgs []models.EmailMessage) intake.Result
}

// Manager keeps one IMAP session open, watches it with IDLE when available and
// polls it on a fixed interval. All checks are serialized on the session.
type Manager struct {
	cfg       config.MailConfig
	processor Processor
	health    *health.State
	metrics   *metrics.Metrics
	log       *logrus.Entry

	// mu guards the session; it is held for the whole of a check
	mu       sync.Mutex
	client   *client.Client
	key      string
	hasIdle  bool
	idleStop chan struct{}
	idleDone chan error
	updates  chan client.Update
	trigger  chan struct{}
	quit     chan struct{}
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	group singleflight.Group

	stateMu   sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewManager creates a new mailbox manager
func NewManager(cfg config.MailConfig, p Processor, h *health.State, m *metrics.Metrics) *Manager {
	return &Manager{
		cfg:       cfg,
		processor: p,
		health:    h,
		metrics:   m,
		log:       logrus.WithField("component", "mailbox"),
	}
}

// Start opens the session, runs an initial check and begins watching the folder.
// It returns a *ConfigurationError when credentials are missing and a
// *ConnectionError when the server cannot be reached or rejects the login.
func (m *Manager) Start(ctx context.Context) error {
	if !m.cfg.HasCredentials() {
		err := &ConfigurationError{Reason: "host, user and password or oauth credentials are required"}
		m.log.WithError(err).Error("Mailbox intake disabled")
		return err
	}

	m.mu.Lock()
	if m.Running() {
		m.mu.Unlock()
		return nil
	}

	if err := m.connect(ctx); err != nil {
		m.mu.Unlock()
		m.health.SetConnected(false)
		m.health.RecordError(err)
		m.log.WithError(err).Error("Failed to start mailbox session")
		return err
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.trigger = make(chan struct{}, 1)
	m.quit = make(chan struct{})

	m.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	schedule := fmt.Sprintf("@every %s", m.cfg.PollInterval)
	if _, err := m.cron.AddFunc(schedule, m.poll); err != nil {
		m.client.Logout()
		m.client = nil
		m.mu.Unlock()
		return fmt.Errorf("failed to add poll job: %w", err)
	}

	m.setRunning(true)
	m.health.SetConnected(true)

	m.wg.Add(2)
	go m.readUpdates(m.updates, m.quit)
	go m.runTriggered(m.quit)

	m.cron.Start()
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"mailbox":       m.key,
		"idle":          m.cfg.IdleEnabled && m.hasIdle,
		"poll_interval": m.cfg.PollInterval.String(),
	}).Info("Mailbox session started")

	// Start leaves IDLE off until the backlog check has run.
	if _, err := m.CheckNow(ctx); err != nil {
		m.log.WithError(err).Warn("Initial mailbox check failed")
	}
	return nil
}

// Stop halts polling and IDLE, waits for an in-flight check and logs out.
// It is safe to call more than once and before Start.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.Running() {
		m.mu.Unlock()
		return nil
	}
	m.setRunning(false)

	cronCtx := m.cron.Stop()
	m.stopIdle()

	var err error
	if m.client != nil {
		if err = m.client.Logout(); err != nil {
			m.log.WithError(err).Warn("Logout failed")
		}
		m.client = nil
	}
	close(m.quit)
	m.cancel()
	m.health.SetConnected(false)
	m.mu.Unlock()

	select {
	case <-cronCtx.Done():
	case <-time.After(30 * time.Second):
		m.log.Warn("Timed out waiting for poll job to finish")
	}
	m.wg.Wait()

	m.log.Info("Mailbox session stopped")
	return err
}

// Running reports whether a session is open
func (m *Manager) Running() bool {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.running
}

// Uptime returns how long the current session has been open, 0 when stopped
func (m *Manager) Uptime() time.Duration {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	if !m.running {
		return 0
	}
	return time.Since(m.startedAt)
}

func (m *Manager) setRunning(running bool) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.running = running
	if running {
		m.startedAt = time.Now()
	} else {
		m.startedAt = time.Time{}
	}
}

// CheckNow fetches and processes unseen messages. Concurrent callers share one check.
// The check runs to completion even if ctx is cancelled; only its values are kept.
func (m *Manager) CheckNow(ctx context.Context) (intake.Result, error) {
	v, err, _ := m.group.Do("check", func() (interface{}, error) {
		return m.check(context.WithoutCancel(ctx))
	})
	if err != nil {
		return intake.Result{}, err
	}
	return v.(intake.Result), nil
}

func (m *Manager) poll() {
	if _, err := m.CheckNow(m.ctx); err != nil && !errors.Is(err, ErrNotRunning) {
		m.log.WithError(err).Warn("Scheduled mailbox check failed")
	}
}

func (m *Manager) check(ctx context.Context) (intake.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.Running() {
		return intake.Result{}, ErrNotRunning
	}

	start := time.Now()
	m.metrics.CheckCount.Inc()
	defer func() { m.metrics.CheckDuration.Observe(time.Since(start).Seconds()) }()

	m.stopIdle()
	defer m.startIdle()

	if m.dropped() {
		m.log.Warn("Mailbox session dropped, reconnecting")
		m.health.SetConnected(false)
		if m.client != nil {
			m.client.Terminate()
			m.client = nil
		}
		if err := m.connect(ctx); err != nil {
			m.metrics.CheckFailures.Inc()
			m.health.RecordError(err)
			return intake.Result{}, err
		}
		m.setRunning(true)
		m.health.SetConnected(true)
	}

	msgs, err := m.fetchUnseen()
	if err != nil {
		m.metrics.CheckFailures.Inc()
		if m.dropped() {
			m.health.SetConnected(false)
		}
		m.health.RecordError(err)
		return intake.Result{}, err
	}
	m.metrics.FetchedMessages.Add(float64(len(msgs)))

	if len(msgs) == 0 {
		m.log.Debug("No unseen messages")
		return intake.Result{Outcomes: map[intake.Outcome]int{}}, nil
	}

	m.log.Infof("Fetched %d unseen messages", len(msgs))
	res := m.processor.ProcessBatch(ctx, &session{c: m.client, key: m.key}, msgs)
	m.log.WithField("outcomes", res.Outcomes).Infof("Mailbox check completed in %v", time.Since(start))
	return res, nil
}

// connect dials, authenticates and selects the folder. Called with mu held.
func (m *Manager) connect(ctx context.Context) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	var c *client.Client
	var err error
	if m.cfg.TLS {
		c, err = client.DialTLS(addr, &tls.Config{ServerName: m.cfg.Host})
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return &ConnectionError{Op: "dial", Err: err}
	}

	if m.updates == nil {
		m.updates = make(chan client.Update, 64)
	}
	c.Updates = m.updates

	if err := m.login(ctx, c); err != nil {
		c.Logout()
		return &ConnectionError{Op: "login", Err: err}
	}

	status, err := c.Select(m.cfg.Folder, false)
	if err != nil {
		c.Logout()
		return &ConnectionError{Op: "select", Err: fmt.Errorf("%s: %w", m.cfg.Folder, err)}
	}

	m.hasIdle, err = c.Support("IDLE")
	if err != nil {
		m.hasIdle = false
	}
	m.client = c
	m.key = fmt.Sprintf("%s@%s/%s#%d", m.cfg.User, m.cfg.Host, m.cfg.Folder, status.UidValidity)
	return nil
}

func (m *Manager) login(ctx context.Context, c *client.Client) error {
	if !m.cfg.UsesOAuth() {
		return c.Login(m.cfg.User, m.cfg.Password)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     m.cfg.OAuth.ClientID,
		ClientSecret: m.cfg.OAuth.ClientSecret,
		Scopes:       []string{gmail.MailGoogleComScope},
		Endpoint:     google.Endpoint,
	}
	token, err := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: m.cfg.OAuth.RefreshToken}).Token()
	if err != nil {
		return fmt.Errorf("failed to refresh access token: %w", err)
	}

	return c.Authenticate(sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
		Username: m.cfg.User,
		Token:    token.AccessToken,
		Host:     m.cfg.Host,
		Port:     m.cfg.Port,
	}))
}

// dropped reports whether the session is gone. Called with mu held.
func (m *Manager) dropped() bool {
	if m.client == nil {
		return true
	}
	select {
	case <-m.client.LoggedOut():
		return true
	default:
		return false
	}
}

// fetchUnseen searches for unseen messages and fetches them with BODY.PEEK so the
// fetch itself never sets \Seen. Called with mu held.
func (m *Manager) fetchUnseen() ([]models.EmailMessage, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		return nil, &ConnectionError{Op: "search", Err: err}
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqset, items, messages)
	}()

	var emails []models.EmailMessage
	for msg := range messages {
		email, err := toEmailMessage(msg, section)
		if err != nil {
			// The processor finalizes it as failed.
			m.log.WithError(err).WithField("uid", msg.Uid).Warn("Failed to parse message")
			email.ParseError = err.Error()
		}
		emails = append(emails, email)
	}

	if err := <-done; err != nil {
		return nil, &ConnectionError{Op: "fetch", Err: err}
	}
	return emails, nil
}

// startIdle enters IDLE when enabled and supported. Called with mu held.
func (m *Manager) startIdle() {
	if !m.cfg.IdleEnabled || !m.hasIdle || !m.Running() || m.client == nil || m.idleStop != nil {
		return
	}

	stop := make(chan struct{})
	done := make(chan error, 1)
	m.idleStop, m.idleDone = stop, done

	c := m.client
	go func() {
		done <- c.Idle(stop, &client.IdleOptions{LogoutTimeout: 25 * time.Minute})
	}()
}

// stopIdle leaves IDLE and waits for the command to finish. Called with mu held.
func (m *Manager) stopIdle() {
	if m.idleStop == nil {
		return
	}
	close(m.idleStop)
	if err := <-m.idleDone; err != nil {
		m.log.WithError(err).Warn("IDLE ended with error")
	}
	m.idleStop, m.idleDone = nil, nil
}

// readUpdates drains unsolicited server responses. New mail schedules a check
// without blocking so IDLE can always be interrupted.
func (m *Manager) readUpdates(updates <-chan client.Update, quit <-chan struct{}) {
	defer m.wg.Done()
	for {
		select {
		case upd := <-updates:
			if _, ok := upd.(*client.MailboxUpdate); ok {
				select {
				case m.trigger <- struct{}{}:
				default:
				}
			}
		case <-quit:
			return
		}
	}
}

func (m *Manager) runTriggered(quit <-chan struct{}) {
	defer m.wg.Done()
	for {
		select {
		case <-m.trigger:
			m.log.Debug("Mailbox update received")
			if _, err := m.CheckNow(m.ctx); err != nil && !errors.Is(err, ErrNotRunning) {
				m.log.WithError(err).Warn("Triggered mailbox check failed")
			}
		case <-quit:
			return
		}
	}
}

// session exposes the open mailbox to the intake processor
type session struct {
	c   *client.Client
	key string
}

func (s *session) Key() string {
	return s.key
}

func (s *session) MarkSeen(uid uint32) error {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.c.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("failed to mark uid %d as seen: %w", uid, err)
	}
	return nil
}

func (s *session) Move(uid uint32, folder string) error {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	if err := s.c.UidMove(seqset, folder); err != nil {
		return fmt.Errorf("failed to move uid %d to %s: %w", uid, folder, err)
	}
	return nil
}
