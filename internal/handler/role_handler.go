package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/rbac"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/roleadmin"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/logger"
)

// CreateRole creates a custom role in the caller's tenant
func CreateRole(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceRole, rbac.ActionCreate, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	var req struct {
		Name          string         `json:"name"`
		Description   string         `json:"description"`
		PermissionIDs model.UintList `json:"permission_ids"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse role creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	role, err := roleadmin.NewRegistry(db).CreateRole(req.Name, req.Description, req.PermissionIDs)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Role created", zap.String("name", role.Name), zap.Uint("id", role.ID))
	return c.JSON(http.StatusCreated, role)
}

// UpdateRole patches an existing role
func UpdateRole(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceRole, rbac.ActionUpdate, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role ID"})
	}

	var req struct {
		Name          *string         `json:"name"`
		Description   *string         `json:"description"`
		PermissionIDs *model.UintList `json:"permission_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	role, err := roleadmin.NewRegistry(db).UpdateRole(uint(id), roleadmin.RolePatch{
		Name:          req.Name,
		Description:   req.Description,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Role updated", zap.Uint("id", role.ID))
	return c.JSON(http.StatusOK, role)
}

// GetRole returns one role with permissions expanded
func GetRole(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceRole, rbac.ActionRead, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role ID"})
	}

	role, err := roleadmin.NewRegistry(db).GetRole(uint(id))
	if err != nil {
		return respondError(c, log, err)
	}
	return c.JSON(http.StatusOK, role)
}

// ListRoles returns roles with permissions expanded inline plus a total count
func ListRoles(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceRole, rbac.ActionRead, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	roles, total, err := roleadmin.NewRegistry(db).ListRoles(limit, offset)
	if err != nil {
		return respondError(c, log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": roles, "total": total})
}

// DeleteRole removes a role, honoring assignment and default-role protection
func DeleteRole(c echo.Context) error {
	log := logger.FromEcho(c)

	if err := authorize(c, rbac.ResourceRole, rbac.ActionDelete, nil); err != nil {
		return respondError(c, log, err)
	}
	db, ok := tenantDB(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
	}
	claims, _ := claimsFrom(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role ID"})
	}

	requester := roleadmin.Requester{UserID: claims.UserID, Role: claims.Role}
	if err := roleadmin.NewRegistry(db).DeleteRole(uint(id), requester); err != nil {
		return respondError(c, log, err)
	}

	log.Info("Role deleted", zap.Uint64("id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Role deleted"})
}
