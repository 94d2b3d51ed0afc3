package controllers

import (
	"context"
	"net/http"
	"shopease/services"
	"shopease/utils"

	"go.uber.org/zap"
)

// AdminController serves the dashboard summary
type AdminController struct {
	Stats    *services.StatsService
	Timeouts utils.Timeouts
	Log      *zap.Logger
}

// NewAdminController creates a new AdminController
func NewAdminController(stats *services.StatsService, timeouts utils.Timeouts, log *zap.Logger) *AdminController {
	return &AdminController{Stats: stats, Timeouts: timeouts.WithDefaults(), Log: log}
}

// GetStats returns user/product/order counts, revenue and orders per month
func (ac *AdminController) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := utils.WithTimeout(r.Context(), ac.Timeouts.Medium, ac.Log, "admin_stats")
	defer cancel()
	stats, err := ac.Stats.Stats(ctx)
	if err != nil {
		writeError(w, r, ac.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Pinger checks that a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Home answers the root path
func Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ShopEase server is running"))
}

// Health reports 200 when the database answers and 503 otherwise
func Health(db Pinger, timeout utils.Timeouts, log *zap.Logger) http.HandlerFunc {
	timeout = timeout.WithDefaults()
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := utils.WithTimeout(r.Context(), timeout.Short, log, "healthz")
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
