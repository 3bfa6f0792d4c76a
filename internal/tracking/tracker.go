// Package tracking mutates trip state and the append-only location history.
// Every accepted location sample updates the trip's current-position
// snapshot and appends one history row inside a single transaction.
package tracking

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/apperror"
)

// Tracker operates on a single tenant database
type Tracker struct {
	db *gorm.DB
}

// NewTracker wraps a tenant connection
func NewTracker(db *gorm.DB) *Tracker {
	return &Tracker{db: db}
}

// LocationSample is one GPS reading from a moving vehicle
type LocationSample struct {
	Latitude  float64
	Longitude float64
	SpeedKmh  *float64
	Heading   *float64
	Accuracy  *float64
}

// CreateTrip registers a new not-started trip
func (t *Tracker) CreateTrip(busID, routeID, driverID uint) (*model.Trip, error) {
	trip := model.Trip{
		BusID:    busID,
		RouteID:  routeID,
		DriverID: driverID,
		Status:   model.TripStatusNotStarted,
	}
	if err := t.db.Create(&trip).Error; err != nil {
		return nil, apperror.Internal(err, "failed to create trip")
	}
	return &trip, nil
}

// GetTrip loads one trip
func (t *Tracker) GetTrip(tripID uint) (*model.Trip, error) {
	var trip model.Trip
	if err := t.db.First(&trip, tripID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("trip %d not found", tripID)
		}
		return nil, apperror.Internal(err, "failed to load trip %d", tripID)
	}
	return &trip, nil
}

// ActiveTripForBus returns the bus's in-progress trip, of which callers
// expect at most one
func (t *Tracker) ActiveTripForBus(busID uint) (*model.Trip, error) {
	var trip model.Trip
	err := t.db.Where("bus_id = ? AND status = ?", busID, model.TripStatusInProgress).First(&trip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("no active trip for bus %d", busID)
		}
		return nil, apperror.Internal(err, "failed to look up active trip for bus %d", busID)
	}
	return &trip, nil
}

// StartTrip transitions a trip to in_progress and stamps the start time.
// Rejected when another in-progress trip exists for the same bus, keeping
// the at-most-one invariant "find active trip for bus" relies on.
func (t *Tracker) StartTrip(tripID uint) (*model.Trip, error) {
	var trip model.Trip
	err := t.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&trip, tripID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("trip %d not found", tripID)
			}
			return apperror.Internal(err, "failed to load trip %d", tripID)
		}

		if trip.Status != model.TripStatusNotStarted {
			return apperror.Conflict("trip %d is %s, not %s", tripID, trip.Status, model.TripStatusNotStarted)
		}

		var active int64
		if err := tx.Model(&model.Trip{}).
			Where("bus_id = ? AND status = ? AND id <> ?", trip.BusID, model.TripStatusInProgress, tripID).
			Count(&active).Error; err != nil {
			return apperror.Internal(err, "failed to check active trips for bus %d", trip.BusID)
		}
		if active > 0 {
			return apperror.Conflict("bus %d already has a trip in progress", trip.BusID)
		}

		now := time.Now()
		trip.Status = model.TripStatusInProgress
		trip.StartTime = &now
		return tx.Save(&trip).Error
	})
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// RecordLocation atomically updates the trip's current-position snapshot and
// appends one history entry. Both writes commit together or neither does; a
// missing trip fails with NotFound before any write.
func (t *Tracker) RecordLocation(tripID uint, sample LocationSample) (*model.Trip, error) {
	var trip model.Trip
	err := t.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&trip, tripID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("trip %d not found", tripID)
			}
			return apperror.Internal(err, "failed to load trip %d", tripID)
		}

		now := time.Now()
		trip.CurrentLatitude = &sample.Latitude
		trip.CurrentLongitude = &sample.Longitude
		trip.SpeedKmh = sample.SpeedKmh
		trip.LastUpdateTime = &now
		if err := tx.Save(&trip).Error; err != nil {
			return apperror.Internal(err, "failed to update trip %d snapshot", tripID)
		}

		entry := model.LocationTracking{
			TripID:     tripID,
			Latitude:   sample.Latitude,
			Longitude:  sample.Longitude,
			SpeedKmh:   sample.SpeedKmh,
			Heading:    sample.Heading,
			Accuracy:   sample.Accuracy,
			RecordedAt: now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return apperror.Internal(err, "failed to append location for trip %d", tripID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

// EndTrip stamps the trip completed with an end time. The transition is not
// gated on in_progress: ending a trip that never started still completes it.
func (t *Tracker) EndTrip(tripID uint) (*model.Trip, error) {
	var trip model.Trip
	if err := t.db.First(&trip, tripID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("trip %d not found", tripID)
		}
		return nil, apperror.Internal(err, "failed to load trip %d", tripID)
	}

	now := time.Now()
	trip.Status = model.TripStatusCompleted
	trip.EndTime = &now
	if err := t.db.Save(&trip).Error; err != nil {
		return nil, apperror.Internal(err, "failed to end trip %d", tripID)
	}
	return &trip, nil
}

// CancelTrip marks a pending or running trip cancelled; terminal trips
// cannot be cancelled
func (t *Tracker) CancelTrip(tripID uint) (*model.Trip, error) {
	var trip model.Trip
	if err := t.db.First(&trip, tripID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("trip %d not found", tripID)
		}
		return nil, apperror.Internal(err, "failed to load trip %d", tripID)
	}

	if trip.Status == model.TripStatusCompleted || trip.Status == model.TripStatusCancelled {
		return nil, apperror.Conflict("trip %d is already %s", tripID, trip.Status)
	}

	now := time.Now()
	trip.Status = model.TripStatusCancelled
	trip.EndTime = &now
	if err := t.db.Save(&trip).Error; err != nil {
		return nil, apperror.Internal(err, "failed to cancel trip %d", tripID)
	}
	return &trip, nil
}

// GetLocationHistory returns the most recent entries for a trip, newest first
func (t *Tracker) GetLocationHistory(tripID uint, limit int) ([]model.LocationTracking, error) {
	var count int64
	if err := t.db.Model(&model.Trip{}).Where("id = ?", tripID).Count(&count).Error; err != nil {
		return nil, apperror.Internal(err, "failed to check trip %d", tripID)
	}
	if count == 0 {
		return nil, apperror.NotFound("trip %d not found", tripID)
	}

	query := t.db.Where("trip_id = ?", tripID).Order("recorded_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var entries []model.LocationTracking
	if err := query.Find(&entries).Error; err != nil {
		return nil, apperror.Internal(err, "failed to load history for trip %d", tripID)
	}
	return entries, nil
}
