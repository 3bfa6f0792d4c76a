package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/handler"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/middleware"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/model"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/internal/tenant"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/config"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/database"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/jwtutil"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/pkg/logger"
	"github.com/Vignesh-FullStackDeveloper/SmartRouteHub-Backend-sub001/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting fleet service...", zap.String("environment", cfg.Server.Env))

	// Platform database holds the organization registry and the superadmin
	dialector := database.PostgresDialector(&cfg.DB)
	platformDB, err := database.Open(dialector(cfg.DB.DBName), &cfg.DB)
	if err != nil {
		log.Fatal("Failed to connect to platform database", zap.Error(err))
	}
	if err := platformDB.AutoMigrate(model.PlatformModels()...); err != nil {
		log.Fatal("Failed to migrate platform database", zap.Error(err))
	}
	log.Info("Platform database connection established")

	if err := bootstrapSuperadmin(platformDB, cfg); err != nil {
		log.Fatal("Failed to bootstrap superadmin", zap.Error(err))
	}

	// Tenant registry resolves organization codes to per-tenant databases.
	// Catalog operations run against the maintenance database.
	adminDB, err := database.Open(dialector(cfg.Tenant.AdminDBName), &cfg.DB)
	if err != nil {
		log.Fatal("Failed to connect to admin database", zap.Error(err))
	}
	registry, err := tenant.NewRegistry(cfg, tenant.NewPostgresCatalog(adminDB), dialector, log)
	if err != nil {
		log.Fatal("Failed to initialize tenant registry", zap.Error(err))
	}
	defer registry.Close()
	log.Info("Tenant registry initialized",
		zap.String("db_prefix", cfg.Tenant.DBPrefix),
		zap.Int("cache_size", cfg.Tenant.CacheSize))

	// Initialize JWT utility
	jwtUtil := jwtutil.NewJWTUtil(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics()
	log.Info("Prometheus metrics initialized")

	authHandler := handler.NewAuthHandler(platformDB, registry, jwtUtil)
	orgHandler := handler.NewOrganizationHandler(platformDB, registry)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", prometheus.MetricsHandler)

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/login", authHandler.Login)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware(jwtUtil))

	api.GET("/profile", authHandler.GetProfile)
	api.POST("/change-password", authHandler.ChangePassword)

	// Organization management - platform scope, no tenant context
	orgs := api.Group("/organizations")
	orgs.POST("", orgHandler.CreateOrganization)
	orgs.GET("", orgHandler.ListOrganizations)
	orgs.GET("/:id", orgHandler.GetOrganization)
	orgs.POST("/:id/deactivate", orgHandler.DeactivateOrganization)

	// Tenant-scoped operations - organization code from the token selects
	// the tenant database
	tenantAPI := api.Group("")
	tenantAPI.Use(middleware.TenantMiddleware(registry))

	users := tenantAPI.Group("/users")
	users.POST("", handler.CreateUser)
	users.GET("", handler.ListUsers)
	users.GET("/:id", handler.GetUser)
	users.PATCH("/:id", handler.UpdateUser)

	roles := tenantAPI.Group("/roles")
	roles.POST("", handler.CreateRole)
	roles.GET("", handler.ListRoles)
	roles.GET("/:id", handler.GetRole)
	roles.PATCH("/:id", handler.UpdateRole)
	roles.DELETE("/:id", handler.DeleteRole)

	permissions := tenantAPI.Group("/permissions")
	permissions.POST("", handler.CreatePermission)
	permissions.GET("", handler.ListPermissions)
	permissions.PATCH("/:id", handler.UpdatePermission)
	permissions.DELETE("/:id", handler.DeletePermission)

	buses := tenantAPI.Group("/buses")
	buses.POST("", handler.CreateBus)
	buses.GET("", handler.ListBuses)
	buses.GET("/:id", handler.GetBus)
	buses.PATCH("/:id", handler.UpdateBus)
	buses.DELETE("/:id", handler.DeleteBus)
	buses.GET("/:id/active-trip", handler.GetActiveTripForBus)

	routes := tenantAPI.Group("/routes")
	routes.POST("", handler.CreateRoute)
	routes.GET("", handler.ListRoutes)
	routes.GET("/:id", handler.GetRoute)
	routes.DELETE("/:id", handler.DeleteRoute)

	students := tenantAPI.Group("/students")
	students.POST("", handler.CreateStudent)
	students.GET("", handler.ListStudents)
	students.GET("/:id", handler.GetStudent)
	students.PATCH("/:id", handler.UpdateStudent)
	students.DELETE("/:id", handler.DeleteStudent)

	trips := tenantAPI.Group("/trips")
	trips.POST("", handler.CreateTrip)
	trips.GET("", handler.ListTrips)
	trips.GET("/:id", handler.GetTrip)
	trips.POST("/:id/start", handler.StartTrip)
	trips.POST("/:id/location", handler.RecordLocation)
	trips.GET("/:id/locations", handler.GetLocationHistory)
	trips.POST("/:id/end", handler.EndTrip)
	trips.POST("/:id/cancel", handler.CancelTrip)

	subscriptions := tenantAPI.Group("/subscriptions")
	subscriptions.POST("", handler.CreateSubscription)
	subscriptions.GET("", handler.ListSubscriptions)
	subscriptions.DELETE("/:id", handler.DeleteSubscription)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}

// bootstrapSuperadmin seeds the platform superadmin account on first start
func bootstrapSuperadmin(db *gorm.DB, cfg *config.Config) error {
	var count int64
	if err := db.Model(&model.User{}).
		Where("role = ?", model.RoleSuperadmin).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Bootstrap.SuperadminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Create(&model.User{
		Email:        cfg.Bootstrap.SuperadminEmail,
		PasswordHash: string(hash),
		Name:         "Platform Superadmin",
		Role:         model.RoleSuperadmin,
		IsActive:     true,
	}).Error
}
