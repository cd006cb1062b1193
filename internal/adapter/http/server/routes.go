package server

import (
	"net/http"

	"github.com/Temutjin2k/dispatch-ops/docs"
	"github.com/Temutjin2k/dispatch-ops/internal/domain/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

var (
	manager         = []types.UserRole{types.RoleManager}
	driver          = []types.UserRole{types.RoleDriver}
	managerOrDriver = []types.UserRole{types.RoleManager, types.RoleDriver}
)

// setupRoutes - setups http routes. Every domain route goes through
// RequireRoles so services always see a caller identity.
func (a *API) setupRoutes() {
	mux, routes, m := a.mux, a.routes, a.m

	// System Health
	mux.HandleFunc("GET /health", routes.health.HealthCheck)

	setupSwaggerRoute(mux, docs.SwaggerInfo.InstanceName())
	setupMetricsRoute(mux)

	// Orders
	mux.Handle("POST /orders", m.RequireRoles(routes.order.Create, manager...))
	mux.Handle("GET /orders", m.RequireRoles(routes.order.List, manager...))
	mux.Handle("POST /orders/quote", m.RequireRoles(routes.order.Quote, manager...))
	mux.Handle("GET /orders/{id}", m.RequireRoles(routes.order.Get, managerOrDriver...))
	mux.Handle("GET /orders/{id}/fees", m.RequireRoles(routes.order.Fees, manager...))
	mux.Handle("POST /orders/{id}/assign", m.RequireRoles(routes.order.Assign, managerOrDriver...))
	mux.Handle("POST /orders/{id}/status", m.RequireRoles(routes.order.Transition, managerOrDriver...))
	mux.Handle("POST /orders/{id}/cancel", m.RequireRoles(routes.order.Cancel, manager...))

	// Drivers
	mux.Handle("POST /drivers", m.RequireRoles(routes.driver.Create, manager...))
	mux.Handle("GET /drivers", m.RequireRoles(routes.driver.List, manager...))
	mux.Handle("GET /drivers/{id}", m.RequireRoles(routes.driver.Get, managerOrDriver...))
	mux.Handle("POST /drivers/{id}/active", m.RequireRoles(routes.driver.SetActive, manager...))
	mux.Handle("POST /drivers/{id}/status", m.RequireRoles(routes.driver.SetStatus, driver...))
	mux.Handle("POST /drivers/{id}/location", m.RequireRoles(routes.driver.UpdateLocation, driver...))
	mux.Handle("GET /drivers/{id}/earnings", m.RequireRoles(routes.driver.Earnings, managerOrDriver...))

	// Issues
	mux.Handle("POST /issues", m.RequireRoles(routes.issue.Create, driver...))
	mux.Handle("GET /issues", m.RequireRoles(routes.issue.List, manager...))
	mux.Handle("GET /issues/{id}", m.RequireRoles(routes.issue.Get, managerOrDriver...))
	mux.Handle("PATCH /issues/{id}", m.RequireRoles(routes.issue.Update, manager...))

	// Settings and metrics
	mux.Handle("GET /settings", m.RequireRoles(routes.settings.Get, manager...))
	mux.Handle("PUT /settings", m.RequireRoles(routes.settings.Update, manager...))
	mux.Handle("GET /metrics/overview", m.RequireRoles(routes.admin.GetOverview, manager...))

	// Live feed for managers
	mux.Handle("GET /ws/managers", m.RequireRoles(routes.feed.Serve, manager...))
}

// setupSwaggerRoute serves the Swagger UI for the registered instance.
func setupSwaggerRoute(mux *http.ServeMux, instanceName string) {
	swaggerURL := httpSwagger.InstanceName(instanceName)
	mux.HandleFunc("/swagger/", httpSwagger.Handler(swaggerURL))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("GET /metrics", promhttp.Handler())
}
