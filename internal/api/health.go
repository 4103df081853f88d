package api

import (
	"encoding/json"
	"net/http"

	"gorm.io/gorm"
)

// SchedulerHandle exposes the liveness of the background job driver. The
// handle is injected here rather than read from a process-wide variable.
type SchedulerHandle interface {
	Running() bool
}

// HandleHealth reports process health: database connectivity and whether the
// sweep scheduler is active.
func HandleHealth(db *gorm.DB, scheduler SchedulerHandle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		database := "connected"

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			status = "unhealthy"
			database = "disconnected"
		}

		schedulerStatus := "stopped"
		if scheduler != nil && scheduler.Running() {
			schedulerStatus = "running"
		}

		w.Header().Set("Content-Type", "application/json")
		if status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"status":    status,
			"database":  database,
			"scheduler": schedulerStatus,
		})
	}
}
