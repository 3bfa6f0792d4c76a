package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/rbac"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/roleadmin"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/logger"
)

// CreatePermission creates a permission in the caller's tenant
func CreatePermission(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourcePermission, rbac.ActionCreate, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	var req struct {
		Name        string `json:"name"`
		Code        string `json:"code"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse permission creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" || req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and code are required"})
	}

	permission, err := roleadmin.NewRegistry(db).CreatePermission(req.Name, req.Code, req.Description)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Permission created", zap.String("code", permission.Code), zap.Uint("id", permission.ID))
	return c.JSON(http.StatusCreated, permission)
}

// UpdatePermission patches an existing permission
func UpdatePermission(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourcePermission, rbac.ActionUpdate, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid permission ID"})
	}

	var req struct {
		Name        *string `json:"name"`
		Code        *string `json:"code"`
		Description *string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	permission, err := roleadmin.NewRegistry(db).UpdatePermission(uint(id), roleadmin.PermissionPatch{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, log, err)
	}
	return c.JSON(http.StatusOK, permission)
}

// ListPermissions returns a page of permissions plus a total count
func ListPermissions(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourcePermission, rbac.ActionRead, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	permissions, total, err := roleadmin.NewRegistry(db).ListPermissions(limit, offset)
	if err != nil {
		return respondError(c, log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"permissions": permissions, "total": total})
}

// DeletePermission removes a permission unless a role still references it
func DeletePermission(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourcePermission, rbac.ActionDelete, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid permission ID"})
	}

	if err := roleadmin.NewRegistry(db).DeletePermission(uint(id)); err != nil {
		return respondError(c, log, err)
	}

	log.Info("Permission deleted", zap.Uint64("id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Permission deleted"})
}
