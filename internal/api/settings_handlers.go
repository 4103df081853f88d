package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/cronpulse/cronpulse/internal/alert"
	"github.com/cronpulse/cronpulse/internal/config"
	"github.com/cronpulse/cronpulse/internal/store"
)

// SMTPSettingsRequest represents an SMTP settings update. The password is
// write-only: omitting it keeps the stored value.
type SMTPSettingsRequest struct {
	Host        string  `json:"smtp_host"`
	Port        string  `json:"smtp_port"`
	User        string  `json:"smtp_user"`
	Password    *string `json:"smtp_password,omitempty"`
	SenderEmail string  `json:"sender_email"`
	SenderName  string  `json:"sender_name"`
	UseTLS      string  `json:"smtp_use_tls"`
}

// HandleGetSMTPSettings returns the resolved SMTP settings, secrets excluded
func HandleGetSMTPSettings(resolver *store.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys := []string{
			store.SettingSMTPHost,
			store.SettingSMTPPort,
			store.SettingSMTPUser,
			store.SettingSenderEmail,
			store.SettingSenderName,
			store.SettingSMTPUseTLS,
		}

		resolved := make(map[string]string, len(keys))
		for _, key := range keys {
			v, err := resolver.Get(r.Context(), key)
			if err != nil {
				http.Error(w, "Failed to fetch settings", http.StatusInternalServerError)
				return
			}
			resolved[key] = v
		}

		configured, err := resolver.SMTPConfigured(r.Context())
		if err != nil {
			http.Error(w, "Failed to fetch settings", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"settings":   resolved,
			"configured": configured,
		})
	}
}

// HandleUpdateSMTPSettings persists SMTP settings to the settings store.
// Environment variables still win over the stored values when present.
func HandleUpdateSMTPSettings(settings store.SettingsStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SMTPSettingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Host == "" || req.Port == "" || req.SenderEmail == "" {
			http.Error(w, "smtp_host, smtp_port and sender_email are required", http.StatusBadRequest)
			return
		}

		pairs := []struct {
			key, value string
			secret     bool
		}{
			{store.SettingSMTPHost, req.Host, false},
			{store.SettingSMTPPort, req.Port, false},
			{store.SettingSMTPUser, req.User, false},
			{store.SettingSenderEmail, req.SenderEmail, false},
			{store.SettingSenderName, req.SenderName, false},
			{store.SettingSMTPUseTLS, req.UseTLS, false},
		}
		for _, p := range pairs {
			if err := settings.Set(r.Context(), p.key, p.value, p.secret); err != nil {
				log.Error("failed to save setting", zap.String("key", p.key), zap.Error(err))
				http.Error(w, "Failed to save settings", http.StatusInternalServerError)
				return
			}
		}
		// Only update the password when one was provided
		if req.Password != nil && *req.Password != "" {
			if err := settings.Set(r.Context(), store.SettingSMTPPass, *req.Password, true); err != nil {
				log.Error("failed to save setting", zap.String("key", store.SettingSMTPPass), zap.Error(err))
				http.Error(w, "Failed to save settings", http.StatusInternalServerError)
				return
			}
		}

		log.Info("smtp settings updated")
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleTestSMTPSettings sends a test email with a freshly constructed
// sender, so a misconfiguration surfaces here instead of at alert time.
func HandleTestSMTPSettings(resolver *store.Resolver, cfg *config.Config, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())

		smtpCfg, err := alert.ResolveSMTPConfig(r.Context(), resolver, cfg.Sweep.SMTPTimeout)
		if err != nil {
			http.Error(w, "Failed to resolve SMTP settings", http.StatusInternalServerError)
			return
		}

		sender, err := alert.NewEmailSender(smtpCfg, log)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ok, msg := sender.Send(user.Email, "",
			"CronPulse test email",
			"<p>This is a test email from CronPulse. Your SMTP settings work.</p>")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": ok,
			"message": msg,
		})
	}
}
