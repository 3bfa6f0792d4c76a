package tenant

import (
	"strings"

	"gorm.io/gorm"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/rbac"
)

// defaultRoles maps each seeded role to the fixed-matrix role whose grants
// it mirrors. These rows let organizations attach custom role ids while the
// built-in matrix stays authoritative for the fixed role names.
var defaultRoles = []struct {
	name        string
	description string
	matrixRole  string
}{
	{"organization_admin", "Full access within the organization", model.RoleAdmin},
	{"driver", "Operates assigned buses and reports trip locations", model.RoleDriver},
	{"parent", "Follows own students and their trips", model.RoleParent},
}

// permissionName turns a code like "trip:read_all" into "Trip Read All"
func permissionName(code string) string {
	parts := strings.FieldsFunc(code, func(r rune) bool {
		return r == ':' || r == '_'
	})
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// seedDefaults populates a freshly migrated tenant database with the default
// permissions and protected default roles. Skips when roles already exist so
// a retried provision does not duplicate the seed.
func seedDefaults(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Role{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		codeToID := make(map[string]uint)
		for _, dr := range defaultRoles {
			for _, code := range rbac.FixedCodes(dr.matrixRole) {
				if _, ok := codeToID[code]; ok {
					continue
				}
				perm := model.Permission{
					Name: permissionName(code),
					Code: code,
				}
				if err := tx.Create(&perm).Error; err != nil {
					return err
				}
				codeToID[code] = perm.ID
			}
		}

		for _, dr := range defaultRoles {
			ids := make(model.UintList, 0)
			for _, code := range rbac.FixedCodes(dr.matrixRole) {
				ids = append(ids, codeToID[code])
			}
			role := model.Role{
				Name:          dr.name,
				Description:   dr.description,
				PermissionIDs: ids,
				Type:          model.RoleTypeDefault,
				AllowDelete:   false,
			}
			if err := tx.Create(&role).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
