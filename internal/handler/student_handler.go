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

// CreateStudent registers a student under a parent
func CreateStudent(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceStudent, rbac.ActionCreate, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	var req struct {
		Name         string `json:"name"`
		Grade        string `json:"grade"`
		ParentID     uint   `json:"parent_id"`
		BusID        *uint  `json:"bus_id"`
		RouteID      *uint  `json:"route_id"`
		PickupStopID *uint  `json:"pickup_stop_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" || req.ParentID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and parent_id are required"})
	}

	// Referential existence is a business constraint this layer owns
	var parent model.User
	if err := db.Where("id = ? AND role = ?", req.ParentID, model.RoleParent).First(&parent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "parent not found"})
		}
		log.Error("Failed to check parent", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	student := model.Student{
		Name:         req.Name,
		Grade:        req.Grade,
		ParentID:     req.ParentID,
		BusID:        req.BusID,
		RouteID:      req.RouteID,
		PickupStopID: req.PickupStopID,
		IsActive:     true,
	}
	if err := db.Create(&student).Error; err != nil {
		log.Error("Failed to create student", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "student creation failed"})
	}

	log.Info("Student created", zap.String("name", student.Name), zap.Uint("id", student.ID))
	return c.JSON(http.StatusCreated, student)
}

// GetStudent returns one student, honoring the parent's ownership tier
func GetStudent(c echo.Context) error {
	log := logger.FromEcho(c)

	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid student ID"})
	}

	var student model.Student
	if err := db.First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "student not found"})
		}
		log.Error("Failed to load student", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if err := authorize(c, rbac.ResourceStudent, rbac.ActionRead, &student.ParentID); err != nil {
		return respondError(c, log, err)
	}
	return c.JSON(http.StatusOK, student)
}

// ListStudents returns students visible to the caller: all for the "all"
// tier, own children for parents
func ListStudents(c echo.Context) error {
	log := logger.FromEcho(c)

	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}
	claims, ok := claimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	query := db.Order("id")
	if claims.Role == model.RoleParent {
		query = query.Where("parent_id = ?", claims.UserID)
	} else {
		if err := authorize(c, rbac.ResourceStudent, rbac.ActionRead, nil); err != nil {
			return respondError(c, log, err)
		}
		if busID := c.QueryParam("bus_id"); busID != "" {
			query = query.Where("bus_id = ?", busID)
		}
	}

	var students []model.Student
	if err := query.Find(&students).Error; err != nil {
		log.Error("Failed to list students", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, students)
}

// UpdateStudent patches a student record
func UpdateStudent(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceStudent, rbac.ActionUpdate, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid student ID"})
	}

	var student model.Student
	if err := db.First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "student not found"})
		}
		log.Error("Failed to load student", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var req struct {
		Name         *string `json:"name"`
		Grade        *string `json:"grade"`
		BusID        *uint   `json:"bus_id"`
		RouteID      *uint   `json:"route_id"`
		PickupStopID *uint   `json:"pickup_stop_id"`
		IsActive     *bool   `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name != nil {
		student.Name = *req.Name
	}
	if req.Grade != nil {
		student.Grade = *req.Grade
	}
	if req.BusID != nil {
		student.BusID = req.BusID
	}
	if req.RouteID != nil {
		student.RouteID = req.RouteID
	}
	if req.PickupStopID != nil {
		student.PickupStopID = req.PickupStopID
	}
	if req.IsActive != nil {
		student.IsActive = *req.IsActive
	}

	if err := db.Save(&student).Error; err != nil {
		log.Error("Failed to update student", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "student update failed"})
	}
	return c.JSON(http.StatusOK, student)
}

// DeleteStudent removes a student record
func DeleteStudent(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceStudent, rbac.ActionDelete, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid student ID"})
	}

	result := db.Delete(&model.Student{}, id)
	if result.Error != nil {
		log.Error("Failed to delete student", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "student deletion failed"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "student not found"})
	}

	log.Info("Student deleted", zap.Uint64("id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Student deleted"})
}
