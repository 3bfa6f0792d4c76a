// Package roleadmin manages custom roles and permissions inside one tenant
// database: uniqueness, referential deletion safety, and default-role
// protection.
package roleadmin

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/apperror"
)

// Registry operates on a single tenant database
type Registry struct {
	db *gorm.DB
}

// NewRegistry wraps a tenant connection
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// Requester identifies who is asking for a protected operation
type Requester struct {
	UserID uint
	Role   string
}

// RolePatch carries the updatable role fields; nil leaves a field unchanged
type RolePatch struct {
	Name          *string
	Description   *string
	PermissionIDs *model.UintList
}

// PermissionPatch carries the updatable permission fields
type PermissionPatch struct {
	Name        *string
	Code        *string
	Description *string
}

// validatePermissionIDs checks that every id exists in this tenant
func (r *Registry) validatePermissionIDs(ids model.UintList) error {
	if len(ids) == 0 {
		return nil
	}
	var existing []uint
	if err := r.db.Model(&model.Permission{}).Where("id IN ?", []uint(ids)).Pluck("id", &existing).Error; err != nil {
		return apperror.Internal(err, "failed to validate permission ids")
	}
	known := make(map[uint]struct{}, len(existing))
	for _, id := range existing {
		known[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return apperror.NotFound("permission %d not found", id)
		}
	}
	return nil
}

// CreateRole creates a custom role after validating name uniqueness and the
// permission id list
func (r *Registry) CreateRole(name, description string, permissionIDs model.UintList) (*model.Role, error) {
	var count int64
	if err := r.db.Model(&model.Role{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return nil, apperror.Internal(err, "failed to check role name")
	}
	if count > 0 {
		return nil, apperror.Conflict("role %q already exists", name)
	}

	if err := r.validatePermissionIDs(permissionIDs); err != nil {
		return nil, err
	}

	role := model.Role{
		Name:          name,
		Description:   description,
		PermissionIDs: permissionIDs,
		Type:          model.RoleTypeCustom,
		AllowDelete:   true,
	}
	if err := r.db.Create(&role).Error; err != nil {
		return nil, apperror.Internal(err, "failed to create role %q", name)
	}
	return &role, nil
}

// UpdateRole applies a patch to an existing role
func (r *Registry) UpdateRole(id uint, patch RolePatch) (*model.Role, error) {
	var role model.Role
	if err := r.db.First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("role %d not found", id)
		}
		return nil, apperror.Internal(err, "failed to load role %d", id)
	}

	if patch.Name != nil && *patch.Name != role.Name {
		var count int64
		if err := r.db.Model(&model.Role{}).Where("name = ? AND id <> ?", *patch.Name, id).Count(&count).Error; err != nil {
			return nil, apperror.Internal(err, "failed to check role name")
		}
		if count > 0 {
			return nil, apperror.Conflict("role %q already exists", *patch.Name)
		}
		role.Name = *patch.Name
	}
	if patch.Description != nil {
		role.Description = *patch.Description
	}
	if patch.PermissionIDs != nil {
		if err := r.validatePermissionIDs(*patch.PermissionIDs); err != nil {
			return nil, err
		}
		role.PermissionIDs = *patch.PermissionIDs
	}

	if err := r.db.Save(&role).Error; err != nil {
		return nil, apperror.Internal(err, "failed to update role %d", id)
	}
	return &role, nil
}

// expand resolves each role's permission id list to full Permission objects
func (r *Registry) expand(roles []model.Role) ([]model.RoleWithPermissions, error) {
	idSet := make(map[uint]struct{})
	for _, role := range roles {
		for _, id := range role.PermissionIDs {
			idSet[id] = struct{}{}
		}
	}
	byID := make(map[uint]model.Permission, len(idSet))
	if len(idSet) > 0 {
		ids := make([]uint, 0, len(idSet))
		for id := range idSet {
			ids = append(ids, id)
		}
		var permissions []model.Permission
		if err := r.db.Where("id IN ?", ids).Find(&permissions).Error; err != nil {
			return nil, apperror.Internal(err, "failed to expand role permissions")
		}
		for _, p := range permissions {
			byID[p.ID] = p
		}
	}

	expanded := make([]model.RoleWithPermissions, 0, len(roles))
	for _, role := range roles {
		perms := make([]model.Permission, 0, len(role.PermissionIDs))
		for _, id := range role.PermissionIDs {
			if p, ok := byID[id]; ok {
				perms = append(perms, p)
			}
		}
		expanded = append(expanded, model.RoleWithPermissions{Role: role, Permissions: perms})
	}
	return expanded, nil
}

// GetRole returns one role with permissions expanded inline
func (r *Registry) GetRole(id uint) (*model.RoleWithPermissions, error) {
	var role model.Role
	if err := r.db.First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("role %d not found", id)
		}
		return nil, apperror.Internal(err, "failed to load role %d", id)
	}
	expanded, err := r.expand([]model.Role{role})
	if err != nil {
		return nil, err
	}
	return &expanded[0], nil
}

// ListRoles returns a page of roles with permissions expanded inline, plus
// the total count
func (r *Registry) ListRoles(limit, offset int) ([]model.RoleWithPermissions, int64, error) {
	var total int64
	if err := r.db.Model(&model.Role{}).Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal(err, "failed to count roles")
	}

	query := r.db.Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var roles []model.Role
	if err := query.Find(&roles).Error; err != nil {
		return nil, 0, apperror.Internal(err, "failed to list roles")
	}

	expanded, err := r.expand(roles)
	if err != nil {
		return nil, 0, err
	}
	return expanded, total, nil
}

// isFoundingAdmin reports whether userID is the tenant's seeded admin
// account, the earliest admin user in the tenant
func (r *Registry) isFoundingAdmin(userID uint) (bool, error) {
	var founding model.User
	err := r.db.Where("role = ?", model.RoleAdmin).Order("id").First(&founding).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, apperror.Internal(err, "failed to look up founding admin")
	}
	return founding.ID == userID, nil
}

// DeleteRole removes a role. Roles still held by users cannot be deleted;
// default roles are only deletable by the platform superadmin or the
// tenant's founding admin.
func (r *Registry) DeleteRole(id uint, requester Requester) error {
	var role model.Role
	if err := r.db.First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("role %d not found", id)
		}
		return apperror.Internal(err, "failed to load role %d", id)
	}

	var holders int64
	if err := r.db.Model(&model.User{}).Where("role_id = ?", id).Count(&holders).Error; err != nil {
		return apperror.Internal(err, "failed to count role holders")
	}
	if holders > 0 {
		return apperror.Conflict("role %q is assigned to %d user(s)", role.Name, holders)
	}

	if role.Type == model.RoleTypeDefault || !role.AllowDelete {
		if requester.Role != model.RoleSuperadmin {
			founding, err := r.isFoundingAdmin(requester.UserID)
			if err != nil {
				return err
			}
			if !founding {
				return apperror.Forbidden("default role %q cannot be deleted", role.Name)
			}
		}
	}

	if err := r.db.Delete(&model.Role{}, id).Error; err != nil {
		return apperror.Internal(err, "failed to delete role %d", id)
	}
	return nil
}

// CreatePermission creates a permission with a unique name and code
func (r *Registry) CreatePermission(name, code, description string) (*model.Permission, error) {
	var count int64
	if err := r.db.Model(&model.Permission{}).Where("code = ? OR name = ?", code, name).Count(&count).Error; err != nil {
		return nil, apperror.Internal(err, "failed to check permission uniqueness")
	}
	if count > 0 {
		return nil, apperror.Conflict("permission with name %q or code %q already exists", name, code)
	}

	permission := model.Permission{
		Name:        name,
		Code:        code,
		Description: description,
	}
	if err := r.db.Create(&permission).Error; err != nil {
		return nil, apperror.Internal(err, "failed to create permission %q", code)
	}
	return &permission, nil
}

// UpdatePermission applies a patch to an existing permission
func (r *Registry) UpdatePermission(id uint, patch PermissionPatch) (*model.Permission, error) {
	var permission model.Permission
	if err := r.db.First(&permission, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("permission %d not found", id)
		}
		return nil, apperror.Internal(err, "failed to load permission %d", id)
	}

	if patch.Name != nil && *patch.Name != permission.Name {
		var count int64
		if err := r.db.Model(&model.Permission{}).Where("name = ? AND id <> ?", *patch.Name, id).Count(&count).Error; err != nil {
			return nil, apperror.Internal(err, "failed to check permission name")
		}
		if count > 0 {
			return nil, apperror.Conflict("permission with name %q already exists", *patch.Name)
		}
		permission.Name = *patch.Name
	}
	if patch.Code != nil && *patch.Code != permission.Code {
		var count int64
		if err := r.db.Model(&model.Permission{}).Where("code = ? AND id <> ?", *patch.Code, id).Count(&count).Error; err != nil {
			return nil, apperror.Internal(err, "failed to check permission code")
		}
		if count > 0 {
			return nil, apperror.Conflict("permission with code %q already exists", *patch.Code)
		}
		permission.Code = *patch.Code
	}
	if patch.Description != nil {
		permission.Description = *patch.Description
	}

	if err := r.db.Save(&permission).Error; err != nil {
		return nil, apperror.Internal(err, "failed to update permission %d", id)
	}
	return &permission, nil
}

// ListPermissions returns a page of permissions plus the total count
func (r *Registry) ListPermissions(limit, offset int) ([]model.Permission, int64, error) {
	var total int64
	if err := r.db.Model(&model.Permission{}).Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal(err, "failed to count permissions")
	}

	query := r.db.Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var permissions []model.Permission
	if err := query.Find(&permissions).Error; err != nil {
		return nil, 0, apperror.Internal(err, "failed to list permissions")
	}
	return permissions, total, nil
}

// DeletePermission removes a permission unless any role still references it.
// The conflict message names every blocking role so the caller can resolve it.
func (r *Registry) DeletePermission(id uint) error {
	var permission model.Permission
	if err := r.db.First(&permission, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("permission %d not found", id)
		}
		return apperror.Internal(err, "failed to load permission %d", id)
	}

	// permission_ids is a jsonb document, so membership is checked in
	// process; tenant role tables stay small
	var roles []model.Role
	if err := r.db.Find(&roles).Error; err != nil {
		return apperror.Internal(err, "failed to scan roles")
	}
	var blocking []string
	for _, role := range roles {
		if role.PermissionIDs.Contains(id) {
			blocking = append(blocking, role.Name)
		}
	}
	if len(blocking) > 0 {
		return apperror.Conflict("permission %q is used by role(s): %s",
			permission.Code, strings.Join(blocking, ", "))
	}

	if err := r.db.Delete(&model.Permission{}, id).Error; err != nil {
		return apperror.Internal(err, "failed to delete permission %d", id)
	}
	return nil
}
