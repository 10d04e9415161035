package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"water-quality-backend/internal/log"
	"water-quality-backend/internal/model"
	"water-quality-backend/internal/parse"
	"water-quality-backend/internal/water"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for all database operations.
type Store interface {
	water.HistoryProvider
	water.AreaLister

	SaveSamples(ctx context.Context, origin string, samples []water.Sample) (int64, error)
	Latest(ctx context.Context, area string) (*water.Sample, error)

	CreateJob(ctx context.Context, job *model.TreatmentJob) error
	UpdateJob(ctx context.Context, job *model.TreatmentJob) error
	GetJob(ctx context.Context, id string) (*model.TreatmentJob, error)

	Ping(ctx context.Context) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db    *gorm.DB
	clock clockwork.Clock
}

// NewGormStore creates a new GORM-backed store. A nil clock uses wall time.
func NewGormStore(db *gorm.DB, clock clockwork.Clock) Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &gormStore{db: db, clock: clock}
}

// SaveSamples inserts samples, skipping ones already stored for the same area and
// timestamp. It returns the number of rows written.
func (s *gormStore) SaveSamples(ctx context.Context, origin string, samples []water.Sample) (int64, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	rows := make([]model.Sample, 0, len(samples))
	now := s.clock.Now()
	for _, smp := range samples {
		rows = append(rows, toModel(smp, origin, now))
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "area"}, {Name: "observed_at"}},
		DoNothing: true,
	}).Create(&rows)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to save %d samples: %w", len(rows), res.Error)
	}
	if res.RowsAffected < int64(len(rows)) {
		log.Debugf("skipped %d already stored samples", int64(len(rows))-res.RowsAffected)
	}
	return res.RowsAffected, nil
}

// History returns an area's samples from the last hours, oldest first.
// hours <= 0 returns the full history.
func (s *gormStore) History(ctx context.Context, area string, hours int) ([]water.Sample, error) {
	q := s.db.WithContext(ctx).Where("LOWER(area) = ?", parse.AreaKey(area))
	if hours > 0 {
		q = q.Where("observed_at >= ?", s.clock.Now().Add(-time.Duration(hours)*time.Hour))
	}

	var rows []model.Sample
	if err := q.Order("observed_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load history for %q: %w", area, err)
	}

	out := make([]water.Sample, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromModel(r))
	}
	return out, nil
}

// Areas returns the distinct area names with stored samples.
func (s *gormStore) Areas(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.WithContext(ctx).Model(&model.Sample{}).
		Distinct("area").Order("area").Pluck("area", &names).Error; err != nil {
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}
	return names, nil
}

// Latest returns the most recent complete sample for an area, or nil when none
// exists. Partial samples are skipped.
func (s *gormStore) Latest(ctx context.Context, area string) (*water.Sample, error) {
	var row model.Sample
	err := s.db.WithContext(ctx).
		Where("LOWER(area) = ? AND partial = ?", parse.AreaKey(area), false).
		Order("observed_at DESC").
		Limit(1).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest sample for %q: %w", area, err)
	}
	smp := fromModel(row)
	return &smp, nil
}

func (s *gormStore) CreateJob(ctx context.Context, job *model.TreatmentJob) error {
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job %s: %w", job.ID, err)
	}
	return nil
}

func (s *gormStore) UpdateJob(ctx context.Context, job *model.TreatmentJob) error {
	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("failed to update job %s: %w", job.ID, err)
	}
	return nil
}

func (s *gormStore) GetJob(ctx context.Context, id string) (*model.TreatmentJob, error) {
	var job model.TreatmentJob
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	return &job, nil
}

// Ping checks the database connection.
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
