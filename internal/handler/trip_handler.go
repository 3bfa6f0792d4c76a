package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/rbac"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/tracking"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/logger"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/prometheus"
)

// tripOwnerFor resolves the owning user of a trip under the caller's role's
// ownership rule: the assigned driver for drivers, and for parents the
// caller itself when one of their students rides the trip's bus.
func tripOwnerFor(c echo.Context, db *gorm.DB, trip *model.Trip) *uint {
	claims, ok := claimsFrom(c)
	if !ok {
		return nil
	}
	switch claims.Role {
	case model.RoleDriver:
		return &trip.DriverID
	case model.RoleParent:
		var count int64
		if err := db.Model(&model.Student{}).
			Where("parent_id = ? AND bus_id = ?", claims.UserID, trip.BusID).
			Count(&count).Error; err != nil {
			logger.FromEcho(c).Error("Failed to resolve trip ownership", zap.Error(err))
			return nil
		}
		if count > 0 {
			return &claims.UserID
		}
		return nil
	default:
		return nil
	}
}

func loadTrip(c echo.Context, db *gorm.DB) (*model.Trip, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip ID"})
		return nil, false
	}
	var trip model.Trip
	if err := db.First(&trip, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
		} else {
			logger.FromEcho(c).Error("Failed to load trip", zap.Error(err))
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		return nil, false
	}
	return &trip, true
}

// CreateTrip registers a new not-started trip
func CreateTrip(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTripOperation("create")

	if err := authorize(c, rbac.ResourceTrip, rbac.ActionCreate, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	var req struct {
		BusID    uint `json:"bus_id"`
		RouteID  uint `json:"route_id"`
		DriverID uint `json:"driver_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.BusID == 0 || req.RouteID == 0 || req.DriverID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bus_id, route_id and driver_id are required"})
	}

	trip, err := tracking.NewTracker(db).CreateTrip(req.BusID, req.RouteID, req.DriverID)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Trip created", zap.Uint("id", trip.ID), zap.Uint("bus_id", trip.BusID))
	return c.JSON(http.StatusCreated, trip)
}

// GetTrip returns one trip, honoring ownership tiers
func GetTrip(c echo.Context) error {
	log := logger.FromEcho(c)

	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}
	trip, ok := loadTrip(c, db)
	if !ok {
		return nil
	}

	if err := authorize(c, rbac.ResourceTrip, rbac.ActionRead, tripOwnerFor(c, db, trip)); err != nil {
		return respondError(c, log, err)
	}
	return c.JSON(http.StatusOK, trip)
}

// ListTrips returns trips visible to the caller. Callers on the "all" tier
// see every trip; drivers see their own.
func ListTrips(c echo.Context) error {
	log := logger.FromEcho(c)

	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}
	claims, ok := claimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	query := db.Order("id DESC")
	switch claims.Role {
	case model.RoleDriver:
		query = query.Where("driver_id = ?", claims.UserID)
	case model.RoleParent:
		// Parents see trips for the buses their students ride
		var busIDs []uint
		if err := db.Model(&model.Student{}).
			Where("parent_id = ? AND bus_id IS NOT NULL", claims.UserID).
			Pluck("bus_id", &busIDs).Error; err != nil {
			log.Error("Failed to resolve parent buses", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if len(busIDs) == 0 {
			return c.JSON(http.StatusOK, []model.Trip{})
		}
		query = query.Where("bus_id IN ?", busIDs)
	default:
		if err := authorize(c, rbac.ResourceTrip, rbac.ActionRead, nil); err != nil {
			return respondError(c, log, err)
		}
	}

	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var trips []model.Trip
	if err := query.Find(&trips).Error; err != nil {
		log.Error("Failed to list trips", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, trips)
}

// StartTrip transitions a trip to in_progress
func StartTrip(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTripOperation("start")

	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}
	trip, ok := loadTrip(c, db)
	if !ok {
		return nil
	}

	if err := authorize(c, rbac.ResourceTrip, rbac.ActionUpdate, tripOwnerFor(c, db, trip)); err != nil {
		return respondError(c, log, err)
	}

	started, err := tracking.NewTracker(db).StartTrip(trip.ID)
	if err != nil {
		return respondError(c, log, err)
	}
	prometheus.ActiveTripsGauge.Inc()

	log.Info("Trip started", zap.Uint("id", started.ID), zap.Uint("bus_id", started.BusID))
	return c.JSON(http.StatusOK, started)
}

// RecordLocation accepts a location sample for a trip and performs the
// atomic snapshot-plus-history write
func RecordLocation(c echo.Context) error {
	log := logger.FromEcho(c)

	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}
	trip, ok := loadTrip(c, db)
	if !ok {
		return nil
	}

	if err := authorize(c, rbac.ResourceLocation, rbac.ActionCreate, tripOwnerFor(c, db, trip)); err != nil {
		return respondError(c, log, err)
	}

	if trip.Status != model.TripStatusInProgress {
		return c.JSON(http.StatusConflict, echo.Map{"error": "trip is not in progress"})
	}

	var req struct {
		Latitude  float64  `json:"latitude"`
		Longitude float64  `json:"longitude"`
		SpeedKmh  *float64 `json:"speed_kmh"`
		Heading   *float64 `json:"heading"`
		Accuracy  *float64 `json:"accuracy"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updated, err := tracking.NewTracker(db).RecordLocation(trip.ID, tracking.LocationSample{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		SpeedKmh:  req.SpeedKmh,
		Heading:   req.Heading,
		Accuracy:  req.Accuracy,
	})
	if err != nil {
		return respondError(c, log, err)
	}
	prometheus.LocationUpdateCounter.Inc()

	return c.JSON(http.StatusOK, updated)
}

// GetLocationHistory returns the most recent location entries, newest first
func GetLocationHistory(c echo.Context) error {
	log := logger.FromEcho(c)

	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}
	trip, ok := loadTrip(c, db)
	if !ok {
		return nil
	}

	if err := authorize(c, rbac.ResourceLocation, rbac.ActionRead, tripOwnerFor(c, db, trip)); err != nil {
		return respondError(c, log, err)
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 50
	}

	entries, err := tracking.NewTracker(db).GetLocationHistory(trip.ID, limit)
	if err != nil {
		return respondError(c, log, err)
	}
	return c.JSON(http.StatusOK, entries)
}

// EndTrip marks a trip completed
func EndTrip(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTripOperation("end")

	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}
	trip, ok := loadTrip(c, db)
	if !ok {
		return nil
	}

	if err := authorize(c, rbac.ResourceTrip, rbac.ActionUpdate, tripOwnerFor(c, db, trip)); err != nil {
		return respondError(c, log, err)
	}

	wasActive := trip.Status == model.TripStatusInProgress
	ended, err := tracking.NewTracker(db).EndTrip(trip.ID)
	if err != nil {
		return respondError(c, log, err)
	}
	if wasActive {
		prometheus.ActiveTripsGauge.Dec()
	}

	log.Info("Trip ended", zap.Uint("id", ended.ID))
	return c.JSON(http.StatusOK, ended)
}

// CancelTrip marks a pending or running trip cancelled
func CancelTrip(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTripOperation("cancel")

	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}
	trip, ok := loadTrip(c, db)
	if !ok {
		return nil
	}

	if err := authorize(c, rbac.ResourceTrip, rbac.ActionUpdate, tripOwnerFor(c, db, trip)); err != nil {
		return respondError(c, log, err)
	}

	wasActive := trip.Status == model.TripStatusInProgress
	cancelled, err := tracking.NewTracker(db).CancelTrip(trip.ID)
	if err != nil {
		return respondError(c, log, err)
	}
	if wasActive {
		prometheus.ActiveTripsGauge.Dec()
	}

	log.Info("Trip cancelled", zap.Uint("id", cancelled.ID))
	return c.JSON(http.StatusOK, cancelled)
}

// GetActiveTripForBus returns the bus's single in-progress trip
func GetActiveTripForBus(c echo.Context) error {
	log := logger.FromEcho(c)

	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	busID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus ID"})
	}

	trip, err := tracking.NewTracker(db).ActiveTripForBus(uint(busID))
	if err != nil {
		return respondError(c, log, err)
	}

	if err := authorize(c, rbac.ResourceTrip, rbac.ActionRead, tripOwnerFor(c, db, trip)); err != nil {
		return respondError(c, log, err)
	}
	return c.JSON(http.StatusOK, trip)
}
