package csvimport

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-intake-go/internal/leads"
	"lead-intake-go/internal/metrics"
	"lead-intake-go/internal/models"
)

type fakeStore struct {
	leads     map[string]*models.LeadRecord
	createErr error
}

func (s *fakeStore) GetByEmail(_ context.Context, email string) (*models.LeadRecord, error) {
	if l, ok := s.leads[email]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, leads.ErrLeadNotFound
}

func (s *fakeStore) Create(_ context.Context, l *models.LeadRecord) error {
	if s.createErr != nil {
		return s.createErr
	}
	cp := *l
	s.leads[l.Email] = &cp
	return nil
}

func (s *fakeStore) Update(_ context.Context, l *models.LeadRecord) error {
	cp := *l
	s.leads[l.Email] = &cp
	return nil
}

func (s *fakeStore) CreateConversation(context.Context, *models.Conversation) error { return nil }

func (s *fakeStore) CreateConversationMessage(context.Context, *models.ConversationMessage) error {
	return nil
}

func TestImporterImportsValidBatch(t *testing.T) {
	store := &fakeStore{leads: map[string]*models.LeadRecord{
		"john@example.com": {ID: "existing", Email: "john@example.com", FirstName: "John", Phone: "5550000000"},
	}}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	im := NewImporter(leads.NewReconciler(store), m)

	data := "firstName,lastName,email,phone,source\n" +
		"Jane,Doe,Jane@Example.com,1-555-123-4567,\n" +
		"John,Smith,john@example.com,,Trade show\n"

	res := im.Import(context.Background(), []byte(data), DefaultOptions())

	require.True(t, res.Outcome.Valid)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 0, res.Failed)

	jane := store.leads["jane@example.com"]
	require.NotNil(t, jane)
	assert.Equal(t, "5551234567", jane.Phone)
	assert.Equal(t, SourceCSV, jane.LeadSource)

	john := store.leads["john@example.com"]
	assert.Equal(t, "Smith", john.LastName)
	assert.Equal(t, "5550000000", john.Phone)
	assert.Equal(t, "Trade show", john.LeadSource)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CSVBatches.WithLabelValues("valid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CSVRows.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LeadsCreated))
}

func TestImporterSkipsInvalidBatch(t *testing.T) {
	store := &fakeStore{leads: map[string]*models.LeadRecord{}}
	im := NewImporter(leads.NewReconciler(store), nil)

	data := "firstName,lastName,email\nJane,Doe,jane@example.com\nBob,,bob@example.com\n"
	res := im.Import(context.Background(), []byte(data), DefaultOptions())

	assert.False(t, res.Outcome.Valid)
	assert.Equal(t, 0, res.Created)
	assert.Empty(t, store.leads)
}

func TestImporterCountsFailedRows(t *testing.T) {
	store := &fakeStore{leads: map[string]*models.LeadRecord{}, createErr: errors.New("db down")}
	im := NewImporter(leads.NewReconciler(store), nil)

	res := im.Import(context.Background(), []byte("firstName,lastName,email\nJane,Doe,jane@example.com\n"), DefaultOptions())

	assert.True(t, res.Outcome.Valid)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 0, res.Created)
}
