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

type stopRequest struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Sequence  int     `json:"sequence"`
}

// CreateRoute registers a route with its ordered stops
func CreateRoute(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceRoute, rbac.ActionCreate, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	var req struct {
		Name        string        `json:"name"`
		Description string        `json:"description"`
		Stops       []stopRequest `json:"stops"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	var count int64
	if err := db.Model(&model.Route{}).Where("name = ?", req.Name).Count(&count).Error; err != nil {
		log.Error("Failed to check route name", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "route name already exists"})
	}

	route := model.Route{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&route).Error; err != nil {
			return err
		}
		for _, s := range req.Stops {
			stop := model.Stop{
				RouteID:   route.ID,
				Name:      s.Name,
				Latitude:  s.Latitude,
				Longitude: s.Longitude,
				Sequence:  s.Sequence,
			}
			if err := tx.Create(&stop).Error; err != nil {
				return err
			}
			route.Stops = append(route.Stops, stop)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to create route", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "route creation failed"})
	}

	log.Info("Route created", zap.String("name", route.Name), zap.Uint("id", route.ID))
	return c.JSON(http.StatusCreated, route)
}

// GetRoute returns one route with its stops in sequence order
func GetRoute(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceRoute, rbac.ActionRead, routeOwnerFor(c)); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route ID"})
	}

	var route model.Route
	if err := db.Preload("Stops", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence")
	}).First(&route, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
		}
		log.Error("Failed to load route", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, route)
}

// routeOwnerFor treats a driver viewing a route on their assigned bus as
// the owner; no other role owns routes
func routeOwnerFor(c echo.Context) *uint {
	claims, ok := claimsFrom(c)
	if !ok || claims.Role != model.RoleDriver {
		return nil
	}
	db, ok := tenantDB(c)
	if !ok {
		return nil
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return nil
	}
	var count int64
	if err := db.Model(&model.Bus{}).
		Where("route_id = ? AND driver_id = ?", id, claims.UserID).
		Count(&count).Error; err != nil || count == 0 {
		return nil
	}
	return &claims.UserID
}

// ListRoutes returns all routes
func ListRoutes(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceRoute, rbac.ActionRead, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	var routes []model.Route
	if err := db.Order("id").Find(&routes).Error; err != nil {
		log.Error("Failed to list routes", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, routes)
}

// DeleteRoute removes a route not referenced by buses or trips
func DeleteRoute(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceRoute, rbac.ActionDelete, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid route ID"})
	}

	var buses int64
	if err := db.Model(&model.Bus{}).Where("route_id = ?", id).Count(&buses).Error; err != nil {
		log.Error("Failed to count route buses", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if buses > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "route is assigned to buses"})
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("route_id = ?", id).Delete(&model.Stop{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Route{}, id).Error
	})
	if err != nil {
		log.Error("Failed to delete route", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "route deletion failed"})
	}

	log.Info("Route deleted", zap.Uint64("id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Route deleted"})
}
