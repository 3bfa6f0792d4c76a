package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/rbac"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/apperror"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/jwtutil"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/logger"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/prometheus"
)

// claimsFrom returns the authenticated identity set by AuthMiddleware
func claimsFrom(c echo.Context) (*jwtutil.UserClaims, bool) {
	claims, ok := c.Get("user").(*jwtutil.UserClaims)
	return claims, ok
}

// tenantDB returns the tenant connection set by TenantMiddleware
func tenantDB(c echo.Context) (*gorm.DB, bool) {
	db, ok := c.Get("tenant_db").(*gorm.DB)
	return db, ok
}

// respondError maps a service-layer error kind to the HTTP boundary
func respondError(c echo.Context, log *zap.Logger, err error) error {
	status := apperror.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	log.Warn("Request rejected", zap.Int("status", status), zap.Error(err))
	return c.JSON(status, echo.Map{"error": apperror.Message(err)})
}

// authorize runs the RBAC decision for the authenticated identity. When the
// identity carries a custom role id, its permission codes are expanded from
// the tenant database and augment the fixed role's grants. ownerID is the
// target row's owning user under the caller's role's ownership rule.
func authorize(c echo.Context, resource, action string, ownerID *uint) error {
	log := logger.FromEcho(c)

	claims, ok := claimsFrom(c)
	if !ok {
		return apperror.Forbidden("authentication required")
	}

	var extraCodes []string
	if claims.RoleID != nil {
		db, ok := tenantDB(c)
		if !ok {
			return apperror.Forbidden("organization context required")
		}
		codes, err := rbac.LoadRolePermissionCodes(db, *claims.RoleID)
		if err != nil {
			// A dangling role id must not widen or crash the check
			log.Warn("Failed to expand custom role",
				zap.Uint("role_id", *claims.RoleID), zap.Error(err))
		} else {
			extraCodes = codes
		}
	}

	decision := rbac.Authorize(rbac.AuthorizeInput{
		Role:       claims.Role,
		ExtraCodes: extraCodes,
		Resource:   resource,
		Action:     action,
		CallerID:   claims.UserID,
		OwnerID:    ownerID,
	})
	if decision.Allowed {
		return nil
	}

	if decision.Tier == rbac.TierOwn {
		prometheus.RecordAuthError("ownership_denied")
	} else {
		prometheus.RecordAuthError("permission_denied")
	}
	return apperror.Forbidden("%s", decision.Reason)
}
