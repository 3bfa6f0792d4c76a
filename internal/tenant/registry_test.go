package tenant

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/config"
)

// memCatalog is an in-memory Catalog recording creation calls
type memCatalog struct {
	mu      sync.Mutex
	dbs     map[string]bool
	creates int
}

func newMemCatalog() *memCatalog {
	return &memCatalog{dbs: make(map[string]bool)}
}

func (c *memCatalog) DatabaseExists(name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dbs[name], nil
}

func (c *memCatalog) CreateDatabase(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dbs[name] {
		return fmt.Errorf("database %q already exists", name)
	}
	c.dbs[name] = true
	c.creates++
	return nil
}

func (c *memCatalog) createCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creates
}

func testConfig() *config.Config {
	return &config.Config{
		DB: config.DBConfig{
			MaxIdleConns:    1,
			MaxOpenConns:    1,
			ConnMaxLifetime: time.Hour,
			LogLevel:        gormlogger.Silent,
		},
		Tenant: config.TenantConfig{
			DBPrefix:  "smartroute",
			CacheSize: 8,
		},
	}
}

// sqliteFactory maps tenant database names onto isolated shared-cache
// in-memory sqlite databases
func sqliteFactory(t *testing.T) func(dbName string) gorm.Dialector {
	t.Helper()
	nonce := uuid.New().String()[:8]
	return func(dbName string) gorm.Dialector {
		return sqlite.Open(fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", dbName, nonce))
	}
}

func newTestRegistry(t *testing.T, catalog Catalog) *Registry {
	t.Helper()
	r, err := NewRegistry(testConfig(), catalog, sqliteFactory(t), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "acme_school", NormalizeCode("Acme School"))
	assert.Equal(t, "org_42", NormalizeCode("ORG-42"))
	assert.Equal(t, "plain1", NormalizeCode("plain1"))
	assert.Equal(t, "a_b_c_", NormalizeCode("a.b/c!"))
}

func TestDatabaseNameDerivation(t *testing.T) {
	r := newTestRegistry(t, newMemCatalog())

	// Deterministic
	assert.Equal(t, r.DatabaseName("Acme School"), r.DatabaseName("Acme School"))
	assert.Equal(t, "smartroute_acme_school", r.DatabaseName("Acme School"))

	// Distinct codes never collide
	assert.NotEqual(t, r.DatabaseName("acme"), r.DatabaseName("zenith"))
}

func TestResolveReturnsSamePool(t *testing.T) {
	r := newTestRegistry(t, newMemCatalog())

	db1, err := r.Resolve("acme")
	require.NoError(t, err)
	db2, err := r.Resolve("acme")
	require.NoError(t, err)
	assert.Same(t, db1, db2)

	other, err := r.Resolve("zenith")
	require.NoError(t, err)
	assert.NotSame(t, db1, other)
}

func TestProvisionCreatesSchemaAndSeed(t *testing.T) {
	catalog := newMemCatalog()
	r := newTestRegistry(t, catalog)

	require.NoError(t, r.Provision(1, "acme"))

	exists, err := r.Exists("acme")
	require.NoError(t, err)
	assert.True(t, exists)

	db, err := r.Resolve("acme")
	require.NoError(t, err)

	var roles []model.Role
	require.NoError(t, db.Order("id").Find(&roles).Error)
	require.Len(t, roles, 3)
	for _, role := range roles {
		assert.Equal(t, model.RoleTypeDefault, role.Type)
		assert.False(t, role.AllowDelete)
		assert.NotEmpty(t, role.PermissionIDs)
	}

	var permCount int64
	require.NoError(t, db.Model(&model.Permission{}).Count(&permCount).Error)
	assert.Greater(t, permCount, int64(0))
}

func TestProvisionIdempotent(t *testing.T) {
	catalog := newMemCatalog()
	r := newTestRegistry(t, catalog)

	require.NoError(t, r.Provision(1, "acme"))
	require.NoError(t, r.Provision(1, "acme"))
	assert.Equal(t, 1, catalog.createCount())

	// Seed did not duplicate
	db, err := r.Resolve("acme")
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&model.Role{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestProvisionConcurrentSingleCreate(t *testing.T) {
	catalog := newMemCatalog()
	r := newTestRegistry(t, catalog)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.Provision(1, "acme")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, catalog.createCount())
}

func TestExistsIndependentOfPools(t *testing.T) {
	catalog := newMemCatalog()
	r := newTestRegistry(t, catalog)

	exists, err := r.Exists("acme")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, r.Provision(1, "acme"))
	r.Evict("acme")

	exists, err = r.Exists("acme")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEvictThenResolveReopens(t *testing.T) {
	r := newTestRegistry(t, newMemCatalog())

	db1, err := r.Resolve("acme")
	require.NoError(t, err)
	r.Evict("acme")

	db2, err := r.Resolve("acme")
	require.NoError(t, err)
	assert.NotSame(t, db1, db2)
}

func TestEvictedPoolStaysUsableForHeldHandles(t *testing.T) {
	r := newTestRegistry(t, newMemCatalog())

	require.NoError(t, r.Provision(1, "acme"))
	db1, err := r.Resolve("acme")
	require.NoError(t, err)

	// A handler that resolved the pool before the eviction must be able to
	// finish its queries
	r.Evict("acme")
	var count int64
	assert.NoError(t, db1.Model(&model.Role{}).Count(&count).Error)
}

func TestCloseReleasesPoolsImmediately(t *testing.T) {
	r, err := NewRegistry(testConfig(), newMemCatalog(), sqliteFactory(t), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, r.Provision(1, "acme"))
	db, err := r.Resolve("acme")
	require.NoError(t, err)

	r.Close()
	var count int64
	assert.Error(t, db.Model(&model.Role{}).Count(&count).Error)
}
