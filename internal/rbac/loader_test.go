package rbac

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

func newLoaderDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:rbac_%s?mode=memory&cache=shared", uuid.New().String()[:8])
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Role{}, &model.Permission{}))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestLoadRolePermissionCodes(t *testing.T) {
	db := newLoaderDB(t)

	p1 := model.Permission{Name: "Read all trips", Code: "trip:read_all"}
	p2 := model.Permission{Name: "Cancel trips", Code: "trip:update_all"}
	require.NoError(t, db.Create(&p1).Error)
	require.NoError(t, db.Create(&p2).Error)

	role := model.Role{
		Name:          "dispatcher",
		Type:          model.RoleTypeCustom,
		PermissionIDs: model.UintList{p1.ID, p2.ID},
		AllowDelete:   true,
	}
	require.NoError(t, db.Create(&role).Error)

	codes, err := LoadRolePermissionCodes(db, role.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"trip:read_all", "trip:update_all"}, codes)
}

func TestLoadRolePermissionCodesEmptyRole(t *testing.T) {
	db := newLoaderDB(t)

	role := model.Role{Name: "observer", Type: model.RoleTypeCustom, AllowDelete: true}
	require.NoError(t, db.Create(&role).Error)

	codes, err := LoadRolePermissionCodes(db, role.ID)
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestLoadRolePermissionCodesMissingRole(t *testing.T) {
	db := newLoaderDB(t)

	_, err := LoadRolePermissionCodes(db, 999)
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}
