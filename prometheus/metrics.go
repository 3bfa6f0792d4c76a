package prometheus

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counter
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Authentication and authorization error counter
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_auth_errors_total",
			Help: "Total number of authentication and authorization errors",
		},
		[]string{"type"}, // "invalid_token", "permission_denied", "ownership_denied", etc.
	)

	// Organization operation counter
	OrganizationOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_organization_operations_total",
			Help: "Total number of organization operations",
		},
		[]string{"operation"}, // "create", "provision", "deactivate", etc.
	)

	// Location update counter
	LocationUpdateCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_location_updates_total",
			Help: "Total number of accepted trip location updates",
		},
	)

	// Trip operation counter
	TripOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_trip_operations_total",
			Help: "Total number of trip operations",
		},
		[]string{"operation"}, // "create", "start", "end", "cancel"
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "query", "insert", "update", "delete", "provision"
	)
)

// Gauge metrics
var (
	// Active trips currently in progress
	ActiveTripsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleet_active_trips",
			Help: "Number of trips currently in progress",
		},
	)

	// Cached tenant connection pools
	TenantPoolsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleet_tenant_pools",
			Help: "Number of tenant connection pools currently cached",
		},
	)
)

// InitMetrics registers all metrics with the default registry
func InitMetrics() {
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(OrganizationOperationCounter)
	prometheus.MustRegister(LocationUpdateCounter)
	prometheus.MustRegister(TripOperationCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)
	prometheus.MustRegister(ActiveTripsGauge)
	prometheus.MustRegister(TenantPoolsGauge)
}

// RecordAuthError increments the auth error counter for the given type
func RecordAuthError(errorType string) {
	AuthErrorCounter.WithLabelValues(errorType).Inc()
}

// RecordOrganizationOperation increments the organization operation counter
func RecordOrganizationOperation(operation string) {
	OrganizationOperationCounter.WithLabelValues(operation).Inc()
}

// RecordTripOperation increments the trip operation counter
func RecordTripOperation(operation string) {
	TripOperationCounter.WithLabelValues(operation).Inc()
}

// TrackDBOperation returns a function that records the duration of a
// database operation when called. Use with defer:
//
//	defer prometheus.TrackDBOperation("query")(time.Now())
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		DBOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// MetricsMiddleware returns an Echo middleware that records request metrics
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			HTTPRequestCounter.WithLabelValues(endpoint, method, status).Inc()
			RequestDuration.WithLabelValues(endpoint, method, status).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// MetricsHandler exposes the Prometheus metrics endpoint
func MetricsHandler(c echo.Context) error {
	promhttp.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}
