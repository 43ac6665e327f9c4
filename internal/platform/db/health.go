package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is the connection pool snapshot reported by the health endpoint.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

func statsOf(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
	}
}

// Check is one named probe run by the health endpoint, on top of the base
// connectivity ping. The server wires a ledger check here so /health/db
// fails when the audit table is unreachable.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// HealthHandler reports database connectivity, pool statistics and the
// outcome of every registered check.
func HealthHandler(pool *pgxpool.Pool, checks ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		healthy := true
		body := map[string]interface{}{
			"pool": statsOf(pool),
		}

		if err := pool.Ping(ctx); err != nil {
			healthy = false
			body["error"] = err.Error()
		}

		if len(checks) > 0 {
			results := make(map[string]string, len(checks))
			for _, chk := range checks {
				if err := chk.Fn(ctx); err != nil {
					healthy = false
					results[chk.Name] = err.Error()
					continue
				}
				results[chk.Name] = "ok"
			}
			body["checks"] = results
		}

		if !healthy {
			body["status"] = "unhealthy"
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		body["status"] = "healthy"
		return c.JSON(http.StatusOK, body)
	}
}
