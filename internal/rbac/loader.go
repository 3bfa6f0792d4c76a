package rbac

import (
	"errors"

	"gorm.io/gorm"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/apperror"
)

// LoadRolePermissionCodes expands a tenant custom role into its permission
// codes: role -> ordered permission id list -> codes. Callers feed the
// result to Authorize as ExtraCodes so the decision itself stays pure.
func LoadRolePermissionCodes(db *gorm.DB, roleID uint) ([]string, error) {
	var role model.Role
	if err := db.First(&role, roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("role %d not found", roleID)
		}
		return nil, apperror.Internal(err, "failed to load role %d", roleID)
	}

	if len(role.PermissionIDs) == 0 {
		return nil, nil
	}

	var permissions []model.Permission
	if err := db.Where("id IN ?", []uint(role.PermissionIDs)).Find(&permissions).Error; err != nil {
		return nil, apperror.Internal(err, "failed to load permissions for role %d", roleID)
	}

	codes := make([]string, 0, len(permissions))
	for _, p := range permissions {
		codes = append(codes, p.Code)
	}
	return codes, nil
}
