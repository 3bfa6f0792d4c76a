// Package tenant routes requests to per-organization databases and
// provisions new ones. Every organization resolves to its own physical
// database named after its code; connection pools are cached per
// organization, never opened per request.
package tenant

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/apperror"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/config"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/database"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/prometheus"
)

// Catalog is the administrative view of the database server: existence
// checks and creation against the maintenance connection
type Catalog interface {
	DatabaseExists(name string) (bool, error)
	CreateDatabase(name string) error
}

// PostgresCatalog implements Catalog over the postgres maintenance database
type PostgresCatalog struct {
	db *gorm.DB
}

// NewPostgresCatalog wraps an admin connection
func NewPostgresCatalog(admin *gorm.DB) *PostgresCatalog {
	return &PostgresCatalog{db: admin}
}

// DatabaseExists checks the pg_database catalog, independent of any open pools
func (c *PostgresCatalog) DatabaseExists(name string) (bool, error) {
	var count int64
	if err := c.db.Raw("SELECT COUNT(1) FROM pg_database WHERE datname = ?", name).Scan(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateDatabase creates the named database. The name is already normalized
// to [a-z0-9_] so it is safe to interpolate as a quoted identifier.
func (c *PostgresCatalog) CreateDatabase(name string) error {
	return c.db.Exec(fmt.Sprintf(`CREATE DATABASE %q`, name)).Error
}

// evictCloseDelay keeps an evicted pool open long enough for requests that
// resolved it before the eviction to finish their queries
const evictCloseDelay = 30 * time.Second

// Registry derives tenant database names from organization codes, hands out
// cached pooled connections, and provisions new tenant databases
type Registry struct {
	cfg       *config.Config
	catalog   Catalog
	dialector func(dbName string) gorm.Dialector
	pools     *lru.Cache[string, *gorm.DB]
	flight    singleflight.Group
	closing   atomic.Bool
	log       *zap.Logger
}

// NewRegistry builds a registry. The dialector factory maps a database name
// to a gorm dialector; production wires database.PostgresDialector, tests
// substitute an in-memory driver.
func NewRegistry(cfg *config.Config, catalog Catalog, dialector func(dbName string) gorm.Dialector, log *zap.Logger) (*Registry, error) {
	r := &Registry{
		cfg:       cfg,
		catalog:   catalog,
		dialector: dialector,
		log:       log,
	}

	size := cfg.Tenant.CacheSize
	if size <= 0 {
		size = 64
	}
	pools, err := lru.NewWithEvict[string, *gorm.DB](size, func(name string, db *gorm.DB) {
		if r.closing.Load() {
			closePool(log, name, db)
			return
		}
		// Requests that resolved this pool before the eviction may still
		// hold it; close after a grace period instead of under them
		log.Info("evicted tenant pool", zap.String("database", name))
		time.AfterFunc(evictCloseDelay, func() { closePool(log, name, db) })
	})
	if err != nil {
		return nil, err
	}
	r.pools = pools
	return r, nil
}

func closePool(log *zap.Logger, name string, db *gorm.DB) {
	if err := database.Close(db); err != nil {
		log.Warn("failed to close tenant pool", zap.String("database", name), zap.Error(err))
		return
	}
	log.Info("closed tenant pool", zap.String("database", name))
}

// NormalizeCode lowercases the organization code and replaces every
// character outside [a-z0-9] with an underscore
func NormalizeCode(code string) string {
	var b strings.Builder
	for _, ch := range strings.ToLower(code) {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// DatabaseName derives the tenant database name from an organization code.
// The derivation is a pure function of the code: the same code always maps
// to the same database and distinct codes never collide.
func (r *Registry) DatabaseName(code string) string {
	return r.cfg.Tenant.DBPrefix + "_" + NormalizeCode(code)
}

// Resolve returns the pooled connection for an organization's database,
// opening it on first use. Concurrent first-time resolves for the same
// organization share one open.
func (r *Registry) Resolve(code string) (*gorm.DB, error) {
	name := r.DatabaseName(code)
	if db, ok := r.pools.Get(name); ok {
		return db, nil
	}

	v, err, _ := r.flight.Do("resolve:"+name, func() (interface{}, error) {
		if db, ok := r.pools.Get(name); ok {
			return db, nil
		}
		db, err := database.Open(r.dialector(name), &r.cfg.DB)
		if err != nil {
			return nil, apperror.Internal(err, "failed to connect to tenant database %s", name)
		}
		r.pools.Add(name, db)
		prometheus.TenantPoolsGauge.Set(float64(r.pools.Len()))
		r.log.Info("opened tenant pool", zap.String("database", name))
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*gorm.DB), nil
}

// Exists checks the administrative catalog for the organization's database
func (r *Registry) Exists(code string) (bool, error) {
	return r.catalog.DatabaseExists(r.DatabaseName(code))
}

// Provision creates and migrates the organization's database. Calls are
// serialized per organization code; re-provisioning an existing database is
// a logged no-op so the operation is safe to retry.
func (r *Registry) Provision(orgID uint, code string) error {
	name := r.DatabaseName(code)
	_, err, _ := r.flight.Do("provision:"+name, func() (interface{}, error) {
		exists, err := r.catalog.DatabaseExists(name)
		if err != nil {
			return nil, apperror.Internal(err, "failed to check tenant database %s", name)
		}
		if exists {
			r.log.Info("tenant database already provisioned",
				zap.Uint("organization_id", orgID),
				zap.String("database", name))
			return nil, nil
		}

		if err := r.catalog.CreateDatabase(name); err != nil {
			return nil, apperror.Internal(err, "failed to create tenant database %s", name)
		}

		db, err := r.Resolve(code)
		if err != nil {
			return nil, err
		}

		if err := db.AutoMigrate(model.TenantModels()...); err != nil {
			// DDL has no multi-statement rollback; a partial schema needs a
			// retried provision, so fail loudly
			return nil, apperror.Internal(err, "failed to migrate tenant database %s", name)
		}

		if err := seedDefaults(db); err != nil {
			return nil, apperror.Internal(err, "failed to seed tenant database %s", name)
		}

		r.log.Info("provisioned tenant database",
			zap.Uint("organization_id", orgID),
			zap.String("database", name))
		return nil, nil
	})
	return err
}

// Evict drops the cached pool for an organization, closing it. Used when an
// organization is deactivated.
func (r *Registry) Evict(code string) {
	r.pools.Remove(r.DatabaseName(code))
	prometheus.TenantPoolsGauge.Set(float64(r.pools.Len()))
}

// Close releases every cached tenant pool immediately
func (r *Registry) Close() {
	r.closing.Store(true)
	r.pools.Purge()
	prometheus.TenantPoolsGauge.Set(0)
}
