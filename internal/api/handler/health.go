package handler

import (
	"net/http"

	"github.com/rensmac/sqlgate/internal/api/response"
	"github.com/rensmac/sqlgate/internal/repository/postgres"
	"github.com/rensmac/sqlgate/internal/repository/redis"
	"github.com/rensmac/sqlgate/internal/warehouse"
)

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status across the audit store, the cache and
// the active warehouse
func ReadyCheck(db *postgres.DB, rdb *redis.Client, router *warehouse.Router, active string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			response.ServiceUnavailable(w, "audit store not ready")
			return
		}

		if err := rdb.Ping(r.Context()); err != nil {
			response.ServiceUnavailable(w, "cache not ready")
			return
		}

		adapter, err := router.Get(r.Context(), active)
		if err != nil {
			response.ServiceUnavailable(w, "warehouse not ready")
			return
		}
		if err := adapter.HealthCheck(r.Context()); err != nil {
			response.ServiceUnavailable(w, "warehouse not ready")
			return
		}

		response.OK(w, map[string]string{
			"status":    "ready",
			"warehouse": active,
		})
	}
}

// FlushCache clears all cached query results from Redis
func FlushCache(resultCache *redis.ResultCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := resultCache.FlushAll(r.Context())
		if err != nil {
			response.InternalError(w, "failed to flush cache")
			return
		}

		response.OK(w, map[string]any{
			"message":      "cache flushed successfully",
			"keys_deleted": deleted,
		})
	}
}
