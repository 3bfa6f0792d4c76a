package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/rbac"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/roleadmin"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/logger"
)

var tenantUserRoles = map[string]bool{
	model.RoleAdmin:  true,
	model.RoleDriver: true,
	model.RoleParent: true,
}

// CreateUser creates a tenant user (admin, driver, or parent)
func CreateUser(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceUser, rbac.ActionCreate, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	var req struct {
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Name     string `json:"name"`
		Password string `json:"password"`
		Role     string `json:"role"`
		RoleID   *uint  `json:"role_id"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse user creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}
	if !tenantUserRoles[req.Role] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	var count int64
	if err := db.Model(&model.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		log.Error("Failed to check user email", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	}

	if req.RoleID != nil {
		// The custom role must exist in this tenant
		if _, err := roleadmin.NewRegistry(db).GetRole(*req.RoleID); err != nil {
			return respondError(c, log, err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user creation failed"})
	}

	user := model.User{
		Email:        req.Email,
		Phone:        req.Phone,
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         req.Role,
		RoleID:       req.RoleID,
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Error("Failed to create user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user creation failed"})
	}

	log.Info("User created",
		zap.String("email", user.Email),
		zap.Uint("id", user.ID),
		zap.String("role", user.Role))
	return c.JSON(http.StatusCreated, user)
}

// GetUser returns one tenant user
func GetUser(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceUser, rbac.ActionRead, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	var user model.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		log.Error("Failed to load user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, user)
}

// ListUsers returns tenant users, optionally filtered by role
func ListUsers(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceUser, rbac.ActionRead, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	query := db.Order("id")
	if role := c.QueryParam("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []model.User
	if err := query.Find(&users).Error; err != nil {
		log.Error("Failed to list users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, users)
}

// UpdateUser patches a tenant user, including custom role assignment
func UpdateUser(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceUser, rbac.ActionUpdate, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	var user model.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		log.Error("Failed to load user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var req struct {
		Phone    *string `json:"phone"`
		Name     *string `json:"name"`
		RoleID   *uint   `json:"role_id"`
		IsActive *bool   `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.RoleID != nil {
		if _, err := roleadmin.NewRegistry(db).GetRole(*req.RoleID); err != nil {
			return respondError(c, log, err)
		}
		user.RoleID = req.RoleID
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := db.Save(&user).Error; err != nil {
		log.Error("Failed to update user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "user update failed"})
	}

	log.Info("User updated", zap.Uint("id", user.ID))
	return c.JSON(http.StatusOK, user)
}
