package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/config"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/jwtutil"
)

func newPlatformDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:platform_%s?mode=memory&cache=shared", uuid.New().String()[:8])
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(model.PlatformModels()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func loginRequest(t *testing.T, h *AuthHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Login(e.NewContext(req, rec)))
	return rec
}

func seedSuperadmin(t *testing.T, db *gorm.DB, email, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleSuperadmin,
		IsActive:     true,
	}).Error)
}

func TestPlatformLoginSuccess(t *testing.T) {
	db := newPlatformDB(t)
	seedSuperadmin(t, db, "root@platform.test", "s3cret")
	h := NewAuthHandler(db, nil, jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "test", ExpirationHours: 1}))

	rec := loginRequest(t, h, `{"email":"root@platform.test","password":"s3cret"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "token")
}

func TestPlatformLoginUnknownEmail(t *testing.T) {
	db := newPlatformDB(t)
	h := NewAuthHandler(db, nil, jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "test", ExpirationHours: 1}))

	rec := loginRequest(t, h, `{"email":"nobody@platform.test","password":"s3cret"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlatformLoginWrongPassword(t *testing.T) {
	db := newPlatformDB(t)
	seedSuperadmin(t, db, "root@platform.test", "s3cret")
	h := NewAuthHandler(db, nil, jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "test", ExpirationHours: 1}))

	rec := loginRequest(t, h, `{"email":"root@platform.test","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlatformLoginDatabaseFailure(t *testing.T) {
	db := newPlatformDB(t)
	h := NewAuthHandler(db, nil, jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "test", ExpirationHours: 1}))

	// A broken schema must surface as a server error, not as bad credentials
	require.NoError(t, db.Migrator().DropTable(&model.User{}))

	rec := loginRequest(t, h, `{"email":"root@platform.test","password":"s3cret"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
