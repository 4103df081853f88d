package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cronpulse/cronpulse/internal/models"
	"github.com/cronpulse/cronpulse/internal/store"
)

// PingBroadcaster publishes ping events to connected dashboard clients.
type PingBroadcaster interface {
	Broadcast(event string, payload interface{})
}

// MonitorRequest represents a create/update monitor request body. Pointer
// fields distinguish "absent" from "zero" on update.
type MonitorRequest struct {
	Name           *string      `json:"name"`
	Interval       *float64     `json:"interval"`
	EmailRecipient *string      `json:"email_recipient"`
	WebhookURL     *string      `json:"webhook_url"`
	ExpiresAt      NullableTime `json:"expires_at,omitzero"`
}

// NullableTime distinguishes three JSON states: absent (leave unchanged),
// null (clear), and a timestamp (set).
type NullableTime struct {
	Set   bool
	Value *time.Time
}

func (n *NullableTime) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	return json.Unmarshal(b, &n.Value)
}

func (n NullableTime) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// IsZero lets `omitzero` drop the field entirely when it was never set, so
// the absent/null/value tri-state survives a marshal/unmarshal round-trip.
func (n NullableTime) IsZero() bool {
	return !n.Set
}

// HandleGetMonitors returns all monitors for the current user
func HandleGetMonitors(monitors store.MonitorStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())

		list, err := monitors.ListByUser(r.Context(), user.ID)
		if err != nil {
			http.Error(w, "Failed to fetch monitors", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// HandleGetMonitor returns a single monitor by ID
func HandleGetMonitor(monitors store.MonitorStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "Invalid monitor ID", http.StatusBadRequest)
			return
		}

		m, err := monitors.GetByID(r.Context(), id, user.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Monitor not found", http.StatusNotFound)
			} else {
				http.Error(w, "Failed to fetch monitor", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m)
	}
}

// HandleCreateMonitor creates a new monitor
func HandleCreateMonitor(monitors store.MonitorStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())

		var req MonitorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Name == nil || *req.Name == "" {
			http.Error(w, "Name is required", http.StatusBadRequest)
			return
		}
		if req.Interval == nil {
			http.Error(w, "Interval is required", http.StatusBadRequest)
			return
		}
		if msg := validateInterval(*req.Interval); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}

		m := models.Monitor{
			UserID:   user.ID,
			Name:     *req.Name,
			Interval: *req.Interval,
		}
		if req.EmailRecipient != nil {
			m.EmailRecipient = *req.EmailRecipient
		}
		if req.WebhookURL != nil {
			m.WebhookURL = *req.WebhookURL
		}
		if !m.HasAlertDestination() {
			http.Error(w, "At least one of email_recipient or webhook_url must be provided", http.StatusBadRequest)
			return
		}
		if msg := validateWebhookURL(m.WebhookURL); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		if req.ExpiresAt.Value != nil {
			if req.ExpiresAt.Value.Before(time.Now()) {
				http.Error(w, "expires_at must be in the future", http.StatusBadRequest)
				return
			}
			m.ExpiresAt = req.ExpiresAt.Value
		}

		if err := monitors.Create(r.Context(), &m); err != nil {
			log.Error("failed to create monitor", zap.Error(err))
			http.Error(w, "Failed to create monitor", http.StatusInternalServerError)
			return
		}

		log.Info("monitor created",
			zap.Int("monitor_id", m.ID),
			zap.Int("user_id", user.ID),
			zap.Float64("interval_minutes", m.Interval))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(m)
	}
}

// HandleUpdateMonitor updates an existing monitor
func HandleUpdateMonitor(monitors store.MonitorStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "Invalid monitor ID", http.StatusBadRequest)
			return
		}

		var req MonitorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Interval != nil {
			if msg := validateInterval(*req.Interval); msg != "" {
				http.Error(w, msg, http.StatusBadRequest)
				return
			}
		}
		if req.WebhookURL != nil {
			if msg := validateWebhookURL(*req.WebhookURL); msg != "" {
				http.Error(w, msg, http.StatusBadRequest)
				return
			}
		}
		if req.ExpiresAt.Value != nil && req.ExpiresAt.Value.Before(time.Now()) {
			http.Error(w, "expires_at must be in the future", http.StatusBadRequest)
			return
		}

		// Validate the merged result before persisting anything: a PUT must
		// not be able to strip the last alert destination.
		current, err := monitors.GetByID(r.Context(), id, user.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Monitor not found", http.StatusNotFound)
			} else {
				http.Error(w, "Failed to fetch monitor", http.StatusInternalServerError)
			}
			return
		}
		email := current.EmailRecipient
		if req.EmailRecipient != nil {
			email = *req.EmailRecipient
		}
		webhook := current.WebhookURL
		if req.WebhookURL != nil {
			webhook = *req.WebhookURL
		}
		if email == "" && webhook == "" {
			http.Error(w, "At least one of email_recipient or webhook_url must be set", http.StatusBadRequest)
			return
		}

		m, err := monitors.Update(r.Context(), id, user.ID, store.MonitorUpdate{
			Name:           req.Name,
			Interval:       req.Interval,
			EmailRecipient: req.EmailRecipient,
			WebhookURL:     req.WebhookURL,
			SetExpiresAt:   req.ExpiresAt.Set,
			ExpiresAt:      req.ExpiresAt.Value,
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Monitor not found", http.StatusNotFound)
			} else {
				log.Error("failed to update monitor", zap.Int("monitor_id", id), zap.Error(err))
				http.Error(w, "Failed to update monitor", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m)
	}
}

// HandleDeleteMonitor deletes a monitor
func HandleDeleteMonitor(monitors store.MonitorStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "Invalid monitor ID", http.StatusBadRequest)
			return
		}

		if err := monitors.Delete(r.Context(), id, user.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Monitor not found", http.StatusNotFound)
			} else {
				log.Error("failed to delete monitor", zap.Int("monitor_id", id), zap.Error(err))
				http.Error(w, "Failed to delete monitor", http.StatusInternalServerError)
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// HandlePing records a heartbeat from a client, resetting the monitor's
// missed-ping clock.
func HandlePing(monitors store.MonitorStore, hub PingBroadcaster, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "Invalid monitor ID", http.StatusBadRequest)
			return
		}

		m, err := monitors.GetByID(r.Context(), id, user.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "Monitor not found or not authorized", http.StatusNotFound)
			} else {
				http.Error(w, "Failed to fetch monitor", http.StatusInternalServerError)
			}
			return
		}

		now := time.Now().UTC()
		if err := monitors.UpdateLastPing(r.Context(), m, now); err != nil {
			log.Error("failed to record ping", zap.Int("monitor_id", id), zap.Error(err))
			http.Error(w, "Failed to record ping", http.StatusInternalServerError)
			return
		}

		if hub != nil {
			hub.Broadcast("monitor_ping", map[string]interface{}{
				"monitor_id":   m.ID,
				"monitor_name": m.Name,
				"last_ping":    now,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     "success",
			"monitor_id": m.ID,
		})
	}
}

func validateInterval(minutes float64) string {
	if minutes <= 0 {
		return "Interval must be positive"
	}
	if minutes > models.MaxIntervalMinutes {
		return "Interval must not exceed 30 days"
	}
	return ""
}

func validateWebhookURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "webhook_url must be a valid http(s) URL"
	}
	return ""
}
