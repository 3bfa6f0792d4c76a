package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/tenant"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/jwtutil"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/logger"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/prometheus"
)

// AuthHandler serves login and profile operations. Superadmin credentials
// live in the platform database; everyone else authenticates against their
// organization's tenant database.
type AuthHandler struct {
	platformDB *gorm.DB
	registry   *tenant.Registry
	jwt        *jwtutil.JWTUtil
}

// NewAuthHandler builds an AuthHandler
func NewAuthHandler(platformDB *gorm.DB, registry *tenant.Registry, jwt *jwtutil.JWTUtil) *AuthHandler {
	return &AuthHandler{platformDB: platformDB, registry: registry, jwt: jwt}
}

// Login authenticates a user and issues a signed token embedding the
// identity and organization context
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email            string `json:"email"`
		Password         string `json:"password"`
		OrganizationCode string `json:"organization_code,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.OrganizationCode == "" {
		return h.platformLogin(c, req.Email, req.Password)
	}
	return h.tenantLogin(c, req.Email, req.Password, req.OrganizationCode)
}

func (h *AuthHandler) platformLogin(c echo.Context, email, password string) error {
	log := logger.FromEcho(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if err := h.platformDB.Where("email = ? AND role = ?", email, model.RoleSuperadmin).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("Superadmin not found", zap.String("email", email))
			prometheus.RecordAuthError("user_not_found")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		log.Error("Failed to load superadmin", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn("Invalid password", zap.String("email", email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := h.jwt.GenerateToken(user.Email, user.ID, nil, "", model.RoleSuperadmin, nil)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	h.stampLastLogin(h.platformDB, user.ID)
	log.Info("Superadmin logged in", zap.String("email", user.Email))
	return c.JSON(http.StatusOK, echo.Map{"token": token, "user": user})
}

func (h *AuthHandler) tenantLogin(c echo.Context, email, password, orgCode string) error {
	log := logger.FromEcho(c)

	var org model.Organization
	if err := h.platformDB.Where("code = ?", orgCode).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("Unknown organization", zap.String("organization_code", orgCode))
			prometheus.RecordAuthError("organization_not_found")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		log.Error("Failed to load organization", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !org.Active {
		log.Warn("Login against deactivated organization", zap.String("organization_code", orgCode))
		prometheus.RecordAuthError("organization_inactive")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "organization is deactivated"})
	}

	db, err := h.registry.Resolve(org.Code)
	if err != nil {
		log.Error("Failed to resolve tenant database", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant database unavailable"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if err := db.Where("email = ? AND is_active = ?", email, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("User not found", zap.String("email", email), zap.String("organization_code", orgCode))
			prometheus.RecordAuthError("user_not_found")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		log.Error("Failed to load user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn("Invalid password", zap.String("email", email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := h.jwt.GenerateToken(user.Email, user.ID, &org.ID, org.Code, user.Role, user.RoleID)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	h.stampLastLogin(db, user.ID)
	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.String("organization_code", org.Code),
		zap.String("role", user.Role))
	return c.JSON(http.StatusOK, echo.Map{"token": token, "user": user})
}

func (h *AuthHandler) stampLastLogin(db *gorm.DB, userID uint) {
	now := time.Now()
	if err := db.Model(&model.User{}).Where("id = ?", userID).Update("last_login", now).Error; err != nil {
		logger.GetLogger().Warn("Failed to stamp last login", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// GetProfile returns the authenticated user's record
func (h *AuthHandler) GetProfile(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, ok := claimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	db := h.platformDB
	if claims.OrganizationCode != "" {
		tdb, err := h.registry.Resolve(claims.OrganizationCode)
		if err != nil {
			log.Error("Failed to resolve tenant database", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant database unavailable"})
		}
		db = tdb
	}

	var user model.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		log.Error("Profile not found", zap.Uint("user_id", claims.UserID), zap.Error(err))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, user)
}

// ChangePassword updates the authenticated user's password after verifying
// the current one
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, ok := claimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new password is required"})
	}

	db := h.platformDB
	if claims.OrganizationCode != "" {
		tdb, err := h.registry.Resolve(claims.OrganizationCode)
		if err != nil {
			log.Error("Failed to resolve tenant database", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant database unavailable"})
		}
		db = tdb
	}

	var user model.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "current password is incorrect"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password update failed"})
	}

	if err := db.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
		log.Error("Failed to update password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password update failed"})
	}

	log.Info("Password changed", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
