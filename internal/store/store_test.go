package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"water-quality-backend/internal/db"
	"water-quality-backend/internal/model"
	"water-quality-backend/internal/water"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// newSQLiteStore returns a store backed by a private in-memory database.
func newSQLiteStore(t *testing.T) Store {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", regexp.MustCompile(`\W`).ReplaceAllString(t.Name(), "_"))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return NewGormStore(gormDB, clockwork.NewFakeClockAt(testNow))
}

func sampleAt(area string, at time.Time, tds float64) water.Sample {
	return water.Sample{Area: area, Timestamp: at, TDS: tds, PH: 7.2, Ca: 40, Mg: 12, Turbidity: 1, Chlorine: 0.5}
}

func TestGormStore_SamplesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	written, err := s.SaveSamples(ctx, OriginIngest, []water.Sample{
		sampleAt("HSR_Layout", testNow.Add(-48*time.Hour), 410),
		sampleAt("HSR Layout", testNow.Add(-12*time.Hour), 420),
		sampleAt("hsr layout", testNow.Add(-1*time.Hour), 430),
		sampleAt("Whitefield", testNow.Add(-2*time.Hour), 700),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), written)

	t.Run("History window", func(t *testing.T) {
		got, err := s.History(ctx, "HSR Layout", 24)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 420.0, got[0].TDS)
		assert.Equal(t, 430.0, got[1].TDS)
		assert.Equal(t, "HSR Layout", got[0].Area)
	})

	t.Run("Full history", func(t *testing.T) {
		got, err := s.History(ctx, "hsr_layout", 0)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("Unknown area is empty", func(t *testing.T) {
		got, err := s.History(ctx, "Atlantis", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Latest", func(t *testing.T) {
		got, err := s.Latest(ctx, "HSR_LAYOUT")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 430.0, got.TDS)

		none, err := s.Latest(ctx, "Atlantis")
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("Areas", func(t *testing.T) {
		got, err := s.Areas(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"HSR Layout", "Whitefield"}, got)
	})
}

func TestGormStore_LatestSkipsPartial(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	partial := water.Sample{Area: "Whitefield", Timestamp: testNow, TDS: 650, Partial: true}
	_, err := s.SaveSamples(ctx, OriginUpstream, []water.Sample{
		sampleAt("Whitefield", testNow.Add(-time.Hour), 600),
		partial,
		{Area: "Bellandur", Timestamp: testNow, TDS: 500, Partial: true},
	})
	require.NoError(t, err)

	testCases := []struct {
		name     string
		area     string
		expected *float64
	}{
		{name: "Falls back to last complete sample", area: "Whitefield", expected: ptr(600.0)},
		{name: "Only partial samples", area: "Bellandur"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Latest(ctx, tc.area)
			require.NoError(t, err)
			if tc.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tc.expected, got.TDS)
			assert.False(t, got.Partial)
		})
	}

	// History keeps partial samples for their TDS.
	history, err := s.History(ctx, "Whitefield", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[1].Partial)
	assert.Equal(t, 650.0, history[1].TDS)
}

func ptr[T any](v T) *T { return &v }

func TestGormStore_SaveSamplesSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	batch := []water.Sample{
		sampleAt("Jayanagar", testNow.Add(-time.Hour), 300),
		sampleAt("Jayanagar", testNow, 310),
	}
	written, err := s.SaveSamples(ctx, OriginUpstream, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), written)

	written, err = s.SaveSamples(ctx, OriginUpstream, append(batch, sampleAt("Jayanagar", testNow.Add(time.Hour), 320)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), written)

	got, err := s.History(ctx, "Jayanagar", 0)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestGormStore_SaveSamplesEmpty(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB, nil)

	written, err := s.SaveSamples(context.Background(), OriginIngest, nil)
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_JobRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	estimated := 10.0
	job := &model.TreatmentJob{
		ID:                "4b3f1c1e-9f5e-4a55-8d7a-0a4c1f3e2b10",
		Area:              "MG Road",
		Device:            "Portable Softener",
		VolumeLiters:      20,
		FlowLPerMin:       2,
		RemovalEfficiency: 0.8,
		InitialHardness:   250,
		EstimatedMinutes:  &estimated,
		Status:            model.JobQueued,
	}
	require.NoError(t, s.CreateJob(ctx, job))

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobQueued, got.Status)
	assert.Nil(t, got.FinalHardness)
	assert.False(t, got.Done())

	final := 50.0
	got.Status = model.JobCompleted
	got.Progress = 100
	got.FinalHardness = &final
	require.NoError(t, s.UpdateJob(ctx, got))

	got, err = s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	require.NotNil(t, got.FinalHardness)
	assert.Equal(t, 50.0, *got.FinalHardness)
	assert.True(t, got.Done())

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_Ping(t *testing.T) {
	s := newSQLiteStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestGormStore_DatabaseErrors(t *testing.T) {
	boom := errors.New("connection reset")

	testCases := []struct {
		name             string
		mockExpectations func(mock sqlmock.Sqlmock)
		call             func(s Store) error
		expectNotFound   bool
	}{
		{
			name: "History query fails",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "water_samples" WHERE LOWER(area) = $1`)).
					WithArgs("mg road", Any{}).
					WillReturnError(boom)
			},
			call: func(s Store) error {
				_, err := s.History(context.Background(), "MG_Road", 24)
				return err
			},
		},
		{
			name: "Latest query fails",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "water_samples" WHERE LOWER(area) = $1`)).
					WillReturnError(boom)
			},
			call: func(s Store) error {
				_, err := s.Latest(context.Background(), "MG Road")
				return err
			},
		},
		{
			name: "Job lookup fails",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "treatment_jobs" WHERE id = $1`)).
					WillReturnError(boom)
			},
			call: func(s Store) error {
				_, err := s.GetJob(context.Background(), "abc")
				return err
			},
		},
		{
			name: "Job lookup empty",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "treatment_jobs" WHERE id = $1`)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			call: func(s Store) error {
				_, err := s.GetJob(context.Background(), "abc")
				return err
			},
			expectNotFound: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			s := NewGormStore(gormDB, clockwork.NewFakeClockAt(testNow))

			tc.mockExpectations(mock)
			err := tc.call(s)

			require.Error(t, err)
			if tc.expectNotFound {
				assert.ErrorIs(t, err, ErrNotFound)
			} else {
				assert.ErrorIs(t, err, boom)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
