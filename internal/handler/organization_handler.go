package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/rbac"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/tenant"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/logger"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/prometheus"
)

// OrganizationHandler manages customer organizations in the platform
// database and provisions their tenant databases
type OrganizationHandler struct {
	platformDB *gorm.DB
	registry   *tenant.Registry
}

// NewOrganizationHandler builds an OrganizationHandler
func NewOrganizationHandler(platformDB *gorm.DB, registry *tenant.Registry) *OrganizationHandler {
	return &OrganizationHandler{platformDB: platformDB, registry: registry}
}

// CreateOrganization registers an organization, provisions its tenant
// database, and seeds the organization admin account
func (h *OrganizationHandler) CreateOrganization(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOrganizationOperation("create")

	if err := authorize(c, rbac.ResourceOrganization, rbac.ActionCreate, nil); err != nil {
		return respondError(c, log, err)
	}

	var req struct {
		Code          string `json:"code"`
		Name          string `json:"name"`
		AdminEmail    string `json:"admin_email"`
		AdminPassword string `json:"admin_password"`
		AdminName     string `json:"admin_name"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse organization creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Code == "" || req.Name == "" || req.AdminEmail == "" || req.AdminPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code, name, admin_email and admin_password are required"})
	}

	var count int64
	if err := h.platformDB.Model(&model.Organization{}).Where("code = ?", req.Code).Count(&count).Error; err != nil {
		log.Error("Failed to check organization code", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "organization code already exists"})
	}

	org := model.Organization{
		Code:   req.Code,
		Name:   req.Name,
		Active: true,
	}
	if err := h.platformDB.Create(&org).Error; err != nil {
		log.Error("Failed to create organization", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "organization creation failed"})
	}

	// Provision the tenant database; the organization row stays so the
	// operation can be retried on failure
	defer prometheus.TrackDBOperation("provision")(time.Now())
	if err := h.registry.Provision(org.ID, org.Code); err != nil {
		log.Error("Failed to provision tenant database",
			zap.String("organization_code", org.Code), zap.Error(err))
		return respondError(c, log, err)
	}
	prometheus.RecordOrganizationOperation("provision")

	// Seed the organization admin inside the new tenant database
	db, err := h.registry.Resolve(org.Code)
	if err != nil {
		return respondError(c, log, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash admin password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "organization creation failed"})
	}
	admin := model.User{
		Email:        req.AdminEmail,
		Name:         req.AdminName,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if err := db.Where("email = ?", req.AdminEmail).FirstOrCreate(&admin).Error; err != nil {
		log.Error("Failed to seed organization admin", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "organization creation failed"})
	}

	log.Info("Organization created",
		zap.String("code", org.Code),
		zap.Uint("id", org.ID),
		zap.String("database", h.registry.DatabaseName(org.Code)))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":      "Organization created successfully",
		"organization": org,
	})
}

// GetOrganization retrieves one organization
func (h *OrganizationHandler) GetOrganization(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceOrganization, rbac.ActionRead, nil); err != nil {
		return respondError(c, log, err)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid organization ID"})
	}

	var org model.Organization
	if err := h.platformDB.First(&org, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
		}
		log.Error("Failed to load organization", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, org)
}

// ListOrganizations returns all organizations
func (h *OrganizationHandler) ListOrganizations(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceOrganization, rbac.ActionRead, nil); err != nil {
		return respondError(c, log, err)
	}

	var orgs []model.Organization
	if err := h.platformDB.Order("id").Find(&orgs).Error; err != nil {
		log.Error("Failed to list organizations", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, orgs)
}

// DeactivateOrganization flags an organization inactive and evicts its
// cached tenant pool. The tenant database itself is not dropped.
func (h *OrganizationHandler) DeactivateOrganization(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOrganizationOperation("deactivate")

	if err := authorize(c, rbac.ResourceOrganization, rbac.ActionDelete, nil); err != nil {
		return respondError(c, log, err)
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid organization ID"})
	}

	var org model.Organization
	if err := h.platformDB.First(&org, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
		}
		log.Error("Failed to load organization", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if err := h.platformDB.Model(&org).Update("active", false).Error; err != nil {
		log.Error("Failed to deactivate organization", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivation failed"})
	}
	h.registry.Evict(org.Code)

	log.Info("Organization deactivated", zap.String("code", org.Code), zap.Uint("id", org.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Organization deactivated"})
}
