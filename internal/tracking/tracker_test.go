package tracking

import (
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/apperror"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:tracking_%s?mode=memory&cache=shared", uuid.New().String()[:8])
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(model.TenantModels()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func floatPtr(v float64) *float64 { return &v }

func newInProgressTrip(t *testing.T, tracker *Tracker) *model.Trip {
	t.Helper()
	trip, err := tracker.CreateTrip(1, 1, 1)
	require.NoError(t, err)
	trip, err = tracker.StartTrip(trip.ID)
	require.NoError(t, err)
	return trip
}

func TestStartTrip(t *testing.T) {
	tracker := NewTracker(newTestDB(t))

	trip, err := tracker.CreateTrip(1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, model.TripStatusNotStarted, trip.Status)

	trip, err = tracker.StartTrip(trip.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TripStatusInProgress, trip.Status)
	assert.NotNil(t, trip.StartTime)

	// Starting again conflicts
	_, err = tracker.StartTrip(trip.ID)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestStartTripSecondOnSameBus(t *testing.T) {
	tracker := NewTracker(newTestDB(t))

	newInProgressTrip(t, tracker)
	second, err := tracker.CreateTrip(1, 1, 2)
	require.NoError(t, err)

	_, err = tracker.StartTrip(second.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestRecordLocation(t *testing.T) {
	db := newTestDB(t)
	tracker := NewTracker(db)
	trip := newInProgressTrip(t, tracker)

	updated, err := tracker.RecordLocation(trip.ID, LocationSample{
		Latitude:  12.97,
		Longitude: 77.59,
		SpeedKmh:  floatPtr(32),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CurrentLatitude)
	assert.Equal(t, 12.97, *updated.CurrentLatitude)
	assert.Equal(t, 77.59, *updated.CurrentLongitude)
	assert.Equal(t, 32.0, *updated.SpeedKmh)
	assert.NotNil(t, updated.LastUpdateTime)

	var entries []model.LocationTracking
	require.NoError(t, db.Where("trip_id = ?", trip.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, 12.97, entries[0].Latitude)
	assert.Equal(t, 77.59, entries[0].Longitude)
}

func TestRecordLocationMissingTrip(t *testing.T) {
	db := newTestDB(t)
	tracker := NewTracker(db)

	_, err := tracker.RecordLocation(404, LocationSample{Latitude: 1, Longitude: 2})
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	var count int64
	require.NoError(t, db.Model(&model.LocationTracking{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestRecordLocationAtomicRollback(t *testing.T) {
	db := newTestDB(t)
	tracker := NewTracker(db)
	trip := newInProgressTrip(t, tracker)

	// Break the history insert so the transaction fails after the snapshot
	// update
	require.NoError(t, db.Migrator().DropTable(&model.LocationTracking{}))

	_, err := tracker.RecordLocation(trip.ID, LocationSample{Latitude: 12.97, Longitude: 77.59})
	require.Error(t, err)

	// The snapshot update was rolled back with it
	var reloaded model.Trip
	require.NoError(t, db.First(&reloaded, trip.ID).Error)
	assert.Nil(t, reloaded.CurrentLatitude)
	assert.Nil(t, reloaded.CurrentLongitude)
	assert.Nil(t, reloaded.LastUpdateTime)

	// And no history row survives once the table is back
	require.NoError(t, db.AutoMigrate(&model.LocationTracking{}))
	var count int64
	require.NoError(t, db.Model(&model.LocationTracking{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestConcurrentRecordLocation(t *testing.T) {
	db := newTestDB(t)
	tracker := NewTracker(db)
	trip := newInProgressTrip(t, tracker)

	samples := []LocationSample{
		{Latitude: 12.97, Longitude: 77.59, SpeedKmh: floatPtr(32)},
		{Latitude: 12.98, Longitude: 77.60, SpeedKmh: floatPtr(41)},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(samples))
	for i, s := range samples {
		wg.Add(1)
		go func(i int, s LocationSample) {
			defer wg.Done()
			_, errs[i] = tracker.RecordLocation(trip.ID, s)
		}(i, s)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	// History accumulated both entries
	var count int64
	require.NoError(t, db.Model(&model.LocationTracking{}).Where("trip_id = ?", trip.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	// The snapshot matches exactly one sample, never a mixture of fields
	var reloaded model.Trip
	require.NoError(t, db.First(&reloaded, trip.ID).Error)
	require.NotNil(t, reloaded.CurrentLatitude)
	matched := false
	for _, s := range samples {
		if *reloaded.CurrentLatitude == s.Latitude &&
			*reloaded.CurrentLongitude == s.Longitude &&
			*reloaded.SpeedKmh == *s.SpeedKmh {
			matched = true
		}
	}
	assert.True(t, matched, "snapshot must match one sample in full")
}

func TestGetLocationHistoryNewestFirst(t *testing.T) {
	tracker := NewTracker(newTestDB(t))
	trip := newInProgressTrip(t, tracker)

	for _, lat := range []float64{10.0, 11.0, 12.0} {
		_, err := tracker.RecordLocation(trip.ID, LocationSample{Latitude: lat, Longitude: lat * 2})
		require.NoError(t, err)
	}

	entries, err := tracker.GetLocationHistory(trip.ID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 12.0, entries[0].Latitude)
	assert.Equal(t, 11.0, entries[1].Latitude)
}

func TestGetLocationHistoryMissingTrip(t *testing.T) {
	tracker := NewTracker(newTestDB(t))

	_, err := tracker.GetLocationHistory(404, 10)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestEndTrip(t *testing.T) {
	tracker := NewTracker(newTestDB(t))
	trip := newInProgressTrip(t, tracker)

	ended, err := tracker.EndTrip(trip.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TripStatusCompleted, ended.Status)
	assert.NotNil(t, ended.EndTime)
}

func TestEndTripWithoutStart(t *testing.T) {
	// Pinned policy: ending a trip that never started still completes it
	tracker := NewTracker(newTestDB(t))
	trip, err := tracker.CreateTrip(1, 1, 1)
	require.NoError(t, err)

	ended, err := tracker.EndTrip(trip.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TripStatusCompleted, ended.Status)
	assert.Nil(t, ended.StartTime)
	assert.NotNil(t, ended.EndTime)
}

func TestCancelTrip(t *testing.T) {
	tracker := NewTracker(newTestDB(t))

	// Cancelling a not-started trip is permitted
	trip, err := tracker.CreateTrip(1, 1, 1)
	require.NoError(t, err)
	cancelled, err := tracker.CancelTrip(trip.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TripStatusCancelled, cancelled.Status)

	// Terminal states reject cancellation
	_, err = tracker.CancelTrip(trip.ID)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	ended := newInProgressTrip(t, tracker)
	_, err = tracker.EndTrip(ended.ID)
	require.NoError(t, err)
	_, err = tracker.CancelTrip(ended.ID)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}
