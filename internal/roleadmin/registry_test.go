package roleadmin

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/apperror"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:roleadmin_%s?mode=memory&cache=shared", uuid.New().String()[:8])
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(model.TenantModels()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedPermissions(t *testing.T, db *gorm.DB, codes ...string) model.UintList {
	t.Helper()
	ids := make(model.UintList, 0, len(codes))
	for _, code := range codes {
		p := model.Permission{Name: "Perm " + code, Code: code}
		require.NoError(t, db.Create(&p).Error)
		ids = append(ids, p.ID)
	}
	return ids
}

func TestCreateRole(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)
	ids := seedPermissions(t, db, "trip:read", "trip:read_all")

	role, err := reg.CreateRole("dispatcher", "sees all trips", ids)
	require.NoError(t, err)
	assert.Equal(t, model.RoleTypeCustom, role.Type)
	assert.True(t, role.AllowDelete)
	assert.Equal(t, ids, role.PermissionIDs)
}

func TestCreateRoleDuplicateName(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)

	_, err := reg.CreateRole("dispatcher", "", nil)
	require.NoError(t, err)

	_, err = reg.CreateRole("dispatcher", "", nil)
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestCreateRoleUnknownPermission(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)
	ids := seedPermissions(t, db, "trip:read")

	_, err := reg.CreateRole("dispatcher", "", append(ids, 9999))
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "9999")
}

func TestUpdateRole(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)
	ids := seedPermissions(t, db, "trip:read", "bus:read")

	role, err := reg.CreateRole("dispatcher", "", model.UintList{ids[0]})
	require.NoError(t, err)

	newName := "coordinator"
	newIDs := model.UintList{ids[1]}
	updated, err := reg.UpdateRole(role.ID, RolePatch{Name: &newName, PermissionIDs: &newIDs})
	require.NoError(t, err)
	assert.Equal(t, "coordinator", updated.Name)
	assert.Equal(t, newIDs, updated.PermissionIDs)

	// Rename onto another role conflicts
	other, err := reg.CreateRole("dispatcher", "", nil)
	require.NoError(t, err)
	_, err = reg.UpdateRole(other.ID, RolePatch{Name: &newName})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	// Replacing with unknown ids is rejected
	bad := model.UintList{4242}
	_, err = reg.UpdateRole(role.ID, RolePatch{PermissionIDs: &bad})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = reg.UpdateRole(9999, RolePatch{})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestListRolesExpandsPermissions(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)
	ids := seedPermissions(t, db, "trip:read", "bus:read")

	_, err := reg.CreateRole("dispatcher", "", ids)
	require.NoError(t, err)
	_, err = reg.CreateRole("viewer", "", model.UintList{ids[0]})
	require.NoError(t, err)

	roles, total, err := reg.ListRoles(10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, roles, 2)

	assert.Len(t, roles[0].Permissions, 2)
	assert.Equal(t, "trip:read", roles[0].Permissions[0].Code)
	assert.Len(t, roles[1].Permissions, 1)
}

func TestDeleteRoleHeldByUser(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)

	role, err := reg.CreateRole("dispatcher", "", nil)
	require.NoError(t, err)

	user := model.User{Email: "d@acme.test", Role: model.RoleDriver, RoleID: &role.ID}
	require.NoError(t, db.Create(&user).Error)

	err = reg.DeleteRole(role.ID, Requester{UserID: 1, Role: model.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "dispatcher")

	// Clearing the assignment unblocks deletion
	require.NoError(t, db.Model(&user).Update("role_id", nil).Error)
	require.NoError(t, reg.DeleteRole(role.ID, Requester{UserID: 1, Role: model.RoleAdmin}))
}

func TestDeleteDefaultRoleProtection(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)

	founding := model.User{Email: "admin@acme.test", Role: model.RoleAdmin}
	require.NoError(t, db.Create(&founding).Error)
	later := model.User{Email: "admin2@acme.test", Role: model.RoleAdmin}
	require.NoError(t, db.Create(&later).Error)

	seeded := model.Role{Name: "driver", Type: model.RoleTypeDefault, AllowDelete: false}
	require.NoError(t, db.Create(&seeded).Error)

	// An ordinary admin cannot delete a seeded role
	err := reg.DeleteRole(seeded.ID, Requester{UserID: later.ID, Role: model.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	// The founding admin can
	require.NoError(t, reg.DeleteRole(seeded.ID, Requester{UserID: founding.ID, Role: model.RoleAdmin}))

	// So can the platform superadmin
	seeded2 := model.Role{Name: "parent", Type: model.RoleTypeDefault, AllowDelete: false}
	require.NoError(t, db.Create(&seeded2).Error)
	require.NoError(t, reg.DeleteRole(seeded2.ID, Requester{UserID: 0, Role: model.RoleSuperadmin}))
}

func TestCreatePermissionConflicts(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)

	_, err := reg.CreatePermission("Trip Read", "trip:read", "")
	require.NoError(t, err)

	_, err = reg.CreatePermission("Trip Read", "trip:read2", "")
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	_, err = reg.CreatePermission("Trip Read 2", "trip:read", "")
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestDeletePermissionReferenced(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)
	ids := seedPermissions(t, db, "trip:read")

	roleA, err := reg.CreateRole("dispatcher", "", ids)
	require.NoError(t, err)
	roleB, err := reg.CreateRole("viewer", "", ids)
	require.NoError(t, err)

	err = reg.DeletePermission(ids[0])
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "dispatcher")
	assert.Contains(t, err.Error(), "viewer")

	// Removing the references unblocks deletion
	empty := model.UintList{}
	_, err = reg.UpdateRole(roleA.ID, RolePatch{PermissionIDs: &empty})
	require.NoError(t, err)
	_, err = reg.UpdateRole(roleB.ID, RolePatch{PermissionIDs: &empty})
	require.NoError(t, err)
	require.NoError(t, reg.DeletePermission(ids[0]))
}

func TestDeletePermissionNotFound(t *testing.T) {
	db := newTestDB(t)
	reg := NewRegistry(db)

	err := reg.DeletePermission(123)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}
