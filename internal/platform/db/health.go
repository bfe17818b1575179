package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const pingTimeout = 3 * time.Second

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PoolStats is the JSON view of pgxpool.Stat.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
}

// HealthReport is the /health/db/ response body.
type HealthReport struct {
	Status   string     `json:"status"`
	Database string     `json:"database"`
	Latency  string     `json:"latency"`
	Error    string     `json:"error,omitempty"`
	Pool     *PoolStats `json:"pool,omitempty"`
}

func statsOf(pool *pgxpool.Pool) *PoolStats {
	s := pool.Stat()
	return &PoolStats{
		TotalConns:      s.TotalConns(),
		IdleConns:       s.IdleConns(),
		AcquiredConns:   s.AcquiredConns(),
		MaxConns:        s.MaxConns(),
		AcquireCount:    s.AcquireCount(),
		AcquireDuration: s.AcquireDuration().String(),
	}
}

// Check pings the database once and reports the outcome.
func Check(ctx context.Context, p Pinger) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	r := HealthReport{Status: "healthy", Database: "connected", Latency: time.Since(start).String()}
	if err != nil {
		r.Status, r.Database, r.Error = "unhealthy", "unreachable", err.Error()
	}
	if pool, ok := p.(*pgxpool.Pool); ok {
		r.Pool = statsOf(pool)
	}
	return r
}

// HealthHandler serves Check as JSON, with 503 when the ping fails.
func HealthHandler(p Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := Check(c.Request().Context(), p)
		status := http.StatusOK
		if r.Error != "" {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, r)
	}
}
