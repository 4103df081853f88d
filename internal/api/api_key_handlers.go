package api

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cronpulse/cronpulse/internal/models"
	"github.com/cronpulse/cronpulse/internal/store"
)

// HandleGetAPIKeys returns all API keys for the current user
func HandleGetAPIKeys(keys store.APIKeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())

		list, err := keys.ListByUser(r.Context(), user.ID)
		if err != nil {
			http.Error(w, "Failed to fetch API keys", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// HandleCreateAPIKey creates a new API key. The key itself is returned once
// and never stored in plain text.
func HandleCreateAPIKey(keys store.APIKeyStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())

		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, "API key name cannot be empty", http.StatusBadRequest)
			return
		}

		// 32 random bytes = 43 base64 chars
		keyBytes := make([]byte, 32)
		if _, err := rand.Read(keyBytes); err != nil {
			http.Error(w, "Failed to generate API key", http.StatusInternalServerError)
			return
		}
		apiKey := base64.URLEncoding.EncodeToString(keyBytes)

		keyHash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "Failed to hash API key", http.StatusInternalServerError)
			return
		}

		key := models.APIKey{
			UserID:  user.ID,
			Name:    req.Name,
			KeyHash: string(keyHash),
			Prefix:  apiKey[:8],
		}
		if err := keys.Create(r.Context(), &key); err != nil {
			log.Error("failed to create api key", zap.Error(err))
			http.Error(w, "Failed to create API key", http.StatusInternalServerError)
			return
		}

		log.Info("api key created", zap.Int("user_id", user.ID), zap.Int("key_id", key.ID))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         key.ID,
			"name":       key.Name,
			"prefix":     key.Prefix,
			"key":        apiKey, // only sent once
			"created_at": key.CreatedAt,
		})
	}
}

// HandleDeleteAPIKey deletes an API key
func HandleDeleteAPIKey(keys store.APIKeyStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "Invalid API key ID", http.StatusBadRequest)
			return
		}

		if err := keys.Delete(r.Context(), id, user.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "API key not found", http.StatusNotFound)
			} else {
				log.Error("failed to delete api key", zap.Int("key_id", id), zap.Error(err))
				http.Error(w, "Failed to delete API key", http.StatusInternalServerError)
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
