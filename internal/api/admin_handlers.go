package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cronpulse/cronpulse/internal/store"
)

// HandleListUsers returns all users. Admin only.
func HandleListUsers(users store.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := users.List(r.Context())
		if err != nil {
			http.Error(w, "Failed to fetch users", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)
	}
}

// HandleDeleteUser deletes a user and, through the schema's cascade, their
// monitors and API keys. Admin only; admins cannot delete themselves.
func HandleDeleteUser(users store.UserStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current := UserFromContext(r.Context())
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "Invalid user ID", http.StatusBadRequest)
			return
		}
		if id == current.ID {
			http.Error(w, "Cannot delete your own account", http.StatusBadRequest)
			return
		}

		if err := users.Delete(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "User not found", http.StatusNotFound)
			} else {
				log.Error("failed to delete user", zap.Int("user_id", id), zap.Error(err))
				http.Error(w, "Failed to delete user", http.StatusInternalServerError)
			}
			return
		}

		log.Info("user deleted", zap.Int("user_id", id), zap.Int("by", current.ID))
		w.WriteHeader(http.StatusNoContent)
	}
}
