package records

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"aircraft_logger/internal/database"
	"aircraft_logger/internal/models"
	"aircraft_logger/internal/search"

	"github.com/google/uuid"
)

// Store is the persistence the service needs. database.RecordRepository satisfies it.
type Store interface {
	Add(ctx context.Context, rec *models.Record) error
	Update(ctx context.Context, rec *models.Record) error
	GetAll(ctx context.Context) ([]*models.Record, error)
	GetByID(ctx context.Context, id string) (*models.Record, error)
	Delete(ctx context.Context, id string) error
	InsertBatch(ctx context.Context, recs []*models.Record) error
}

// ErrNotFound is returned when an id does not name a stored record
var ErrNotFound = database.ErrRecordNotFound

// Service creates, edits and lists records. It assigns identity on first save
// and always reads lists back from the store.
type Service struct {
	store Store
	now   func() time.Time
	newID func() string
}

type Option func(*Service)

// WithClock overrides the creation timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides record id generation
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new record with a fresh id and the current time
func (s *Service) Create(ctx context.Context, fields models.RecordFields) (*models.Record, error) {
	rec := models.NewRecord(s.newID(), s.now(), fields)
	if err := s.store.Add(ctx, rec); err != nil {
		slog.Error("Error adding record", "id", rec.ID, "error", err)
		return nil, fmt.Errorf("failed to add record: %w", err)
	}
	slog.Info("Record added", "id", rec.ID, "ac_number", rec.ACNumber, "pictures", len(rec.Pictures))
	return rec, nil
}

// Update replaces every editable field of the record with the given id
func (s *Service) Update(ctx context.Context, id string, fields models.RecordFields) (*models.Record, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}

	rec.Apply(fields)
	if err := s.store.Update(ctx, rec); err != nil {
		slog.Error("Error updating record", "id", id, "error", err)
		return nil, fmt.Errorf("failed to update record: %w", err)
	}
	slog.Info("Record updated", "id", rec.ID, "ac_number", rec.ACNumber, "pictures", len(rec.Pictures))
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Record, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch record %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes a record permanently. Unknown ids are ignored.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		slog.Error("Error deleting record", "id", id, "error", err)
		return fmt.Errorf("failed to delete record: %w", err)
	}
	slog.Info("Record deleted", "id", id)
	return nil
}

// List fetches every record, newest first, and keeps those matching term
func (s *Service) List(ctx context.Context, term string) ([]*models.Record, error) {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		slog.Error("Error fetching records", "error", err)
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	return search.Filter(all, term), nil
}
