package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/tenant"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/jwtutil"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/logger"
)

// TenantMiddleware resolves the authenticated identity's organization to its
// tenant database connection and stores it in the request context. Must run
// after AuthMiddleware.
func TenantMiddleware(registry *tenant.Registry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			claims, ok := c.Get("user").(*jwtutil.UserClaims)
			if !ok {
				log.Error("Tenant resolution without authenticated identity")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			if claims.OrganizationCode == "" {
				log.Warn("Organization context missing from token", zap.Uint("user_id", claims.UserID))
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization context required"})
			}

			db, err := registry.Resolve(claims.OrganizationCode)
			if err != nil {
				log.Error("Failed to resolve tenant database",
					zap.String("organization_code", claims.OrganizationCode),
					zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant database unavailable"})
			}

			c.Set("tenant_db", db)
			return next(c)
		}
	}
}
