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

// CreateSubscription subscribes the calling parent to one of their
// students' trips
func CreateSubscription(c echo.Context) error {
	log := logger.FromEcho(c)

	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}
	claims, ok := claimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		StudentID uint   `json:"student_id"`
		Channel   string `json:"channel"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.StudentID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "student_id is required"})
	}

	var student model.Student
	if err := db.First(&student, req.StudentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "student not found"})
		}
		log.Error("Failed to load student", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if err := authorize(c, rbac.ResourceSubscription, rbac.ActionCreate, &student.ParentID); err != nil {
		return respondError(c, log, err)
	}

	var count int64
	if err := db.Model(&model.Subscription{}).
		Where("parent_id = ? AND student_id = ?", claims.UserID, req.StudentID).
		Count(&count).Error; err != nil {
		log.Error("Failed to check subscription", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "subscription already exists"})
	}

	channel := req.Channel
	if channel == "" {
		channel = "push"
	}
	sub := model.Subscription{
		ParentID:  claims.UserID,
		StudentID: req.StudentID,
		Channel:   channel,
		Active:    true,
	}
	if err := db.Create(&sub).Error; err != nil {
		log.Error("Failed to create subscription", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "subscription creation failed"})
	}

	log.Info("Subscription created",
		zap.Uint("id", sub.ID),
		zap.Uint("parent_id", sub.ParentID),
		zap.Uint("student_id", sub.StudentID))
	return c.JSON(http.StatusCreated, sub)
}

// ListSubscriptions returns the caller's subscriptions; the "all" tier
// sees every subscription
func ListSubscriptions(c echo.Context) error {
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
		if err := authorize(c, rbac.ResourceSubscription, rbac.ActionRead, nil); err != nil {
			return respondError(c, log, err)
		}
	}

	var subs []model.Subscription
	if err := query.Find(&subs).Error; err != nil {
		log.Error("Failed to list subscriptions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, subs)
}

// DeleteSubscription removes one of the caller's subscriptions
func DeleteSubscription(c echo.Context) error {
	log := logger.FromEcho(c)

	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid subscription ID"})
	}

	var sub model.Subscription
	if err := db.First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "subscription not found"})
		}
		log.Error("Failed to load subscription", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if err := authorize(c, rbac.ResourceSubscription, rbac.ActionDelete, &sub.ParentID); err != nil {
		return respondError(c, log, err)
	}

	if err := db.Delete(&sub).Error; err != nil {
		log.Error("Failed to delete subscription", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "subscription deletion failed"})
	}

	log.Info("Subscription deleted", zap.Uint("id", sub.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Subscription deleted"})
}
