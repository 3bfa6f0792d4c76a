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
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/logger"
)

// CreateBus registers a vehicle
func CreateBus(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceBus, rbac.ActionCreate, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	var req struct {
		PlateNumber string `json:"plate_number"`
		Model       string `json:"model"`
		Capacity    int    `json:"capacity"`
		DriverID    *uint  `json:"driver_id"`
		RouteID     *uint  `json:"route_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.PlateNumber == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plate_number is required"})
	}

	var count int64
	if err := db.Model(&model.Bus{}).Where("plate_number = ?", req.PlateNumber).Count(&count).Error; err != nil {
		log.Error("Failed to check plate number", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "plate number already registered"})
	}

	bus := model.Bus{
		PlateNumber: req.PlateNumber,
		Model:       req.Model,
		Capacity:    req.Capacity,
		DriverID:    req.DriverID,
		RouteID:     req.RouteID,
		IsActive:    true,
	}
	if err := db.Create(&bus).Error; err != nil {
		log.Error("Failed to create bus", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "bus creation failed"})
	}

	log.Info("Bus created", zap.String("plate_number", bus.PlateNumber), zap.Uint("id", bus.ID))
	return c.JSON(http.StatusCreated, bus)
}

// GetBus returns one bus, honoring the driver's ownership tier
func GetBus(c echo.Context) error {
	log := logger.FromEcho(c)

	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus ID"})
	}

	var bus model.Bus
	if err := db.First(&bus, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
		}
		log.Error("Failed to load bus", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if err := authorize(c, rbac.ResourceBus, rbac.ActionRead, bus.DriverID); err != nil {
		return respondError(c, log, err)
	}
	return c.JSON(http.StatusOK, bus)
}

// ListBuses returns all buses
func ListBuses(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceBus, rbac.ActionRead, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	var buses []model.Bus
	if err := db.Order("id").Find(&buses).Error; err != nil {
		log.Error("Failed to list buses", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, buses)
}

// UpdateBus patches a bus, including driver and route assignment
func UpdateBus(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceBus, rbac.ActionUpdate, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus ID"})
	}

	var bus model.Bus
	if err := db.First(&bus, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
		}
		log.Error("Failed to load bus", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var req struct {
		Model    *string `json:"model"`
		Capacity *int    `json:"capacity"`
		DriverID *uint   `json:"driver_id"`
		RouteID  *uint   `json:"route_id"`
		IsActive *bool   `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Model != nil {
		bus.Model = *req.Model
	}
	if req.Capacity != nil {
		bus.Capacity = *req.Capacity
	}
	if req.DriverID != nil {
		bus.DriverID = req.DriverID
	}
	if req.RouteID != nil {
		bus.RouteID = req.RouteID
	}
	if req.IsActive != nil {
		bus.IsActive = *req.IsActive
	}

	if err := db.Save(&bus).Error; err != nil {
		log.Error("Failed to update bus", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "bus update failed"})
	}
	return c.JSON(http.StatusOK, bus)
}

// DeleteBus removes a bus that has no trips
func DeleteBus(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceBus, rbac.ActionDelete, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus ID"})
	}

	var trips int64
	if err := db.Model(&model.Trip{}).Where("bus_id = ?", id).Count(&trips).Error; err != nil {
		log.Error("Failed to count bus trips", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if trips > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "bus has recorded trips"})
	}

	result := db.Delete(&model.Bus{}, id)
	if result.Error != nil {
		log.Error("Failed to delete bus", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "bus deletion failed"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "bus not found"})
	}

	log.Info("Bus deleted", zap.Uint64("id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Bus deleted"})
}
