package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/config"
)

// PostgresDialector builds the production dialector for the named database
// using the shared connection parameters. The tenant registry takes this as
// its dialector factory; tests substitute an in-memory driver.
func PostgresDialector(dbConfig *config.DBConfig) func(dbName string) gorm.Dialector {
	return func(dbName string) gorm.Dialector {
		return postgres.New(postgres.Config{
			DSN:                  dbConfig.DSNFor(dbName),
			PreferSimpleProtocol: true, // Disables implicit prepared statement usage
		})
	}
}

// Open opens a pooled gorm connection using the given dialector and the
// pool settings from config
func Open(dialector gorm.Dialector, dbConfig *config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(dbConfig.LogLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Set connection pool settings from config
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	return db, nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
