package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cronpulse/cronpulse/internal/config"
	"github.com/cronpulse/cronpulse/internal/models"
	"github.com/cronpulse/cronpulse/internal/store"
)

type contextKey string

const userContextKey contextKey = "user"

const tokenTTL = 30 * time.Minute

// CredentialsRequest represents signup/login credentials
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents login response
type LoginResponse struct {
	Token     string `json:"access_token"`
	TokenType string `json:"token_type"`
	UserID    int    `json:"user_id"`
}

// HandleSignup registers a new user
func HandleSignup(users store.UserStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		if req.Email == "" || !strings.Contains(req.Email, "@") {
			http.Error(w, "Invalid email address", http.StatusBadRequest)
			return
		}
		if len(req.Password) < 6 {
			http.Error(w, "Password must be at least 6 characters long", http.StatusBadRequest)
			return
		}

		if _, err := users.GetByEmail(r.Context(), req.Email); err == nil {
			http.Error(w, "Email already registered", http.StatusBadRequest)
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("failed to hash password", zap.Error(err))
			http.Error(w, "Failed to create user", http.StatusInternalServerError)
			return
		}

		user := models.User{
			Email:          req.Email,
			HashedPassword: string(hashed),
		}
		if err := users.Create(r.Context(), &user); err != nil {
			log.Error("failed to create user", zap.Error(err))
			http.Error(w, "Failed to create user", http.StatusInternalServerError)
			return
		}

		log.Info("user created", zap.Int("user_id", user.ID))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
		})
	}
}

// HandleLogin authenticates a user and issues a session token
func HandleLogin(users store.UserStore, cfg *config.Config, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		user, err := users.GetByEmail(r.Context(), req.Email)
		if err != nil {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
			log.Info("authentication failed", zap.Int("user_id", user.ID))
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}

		token, err := generateJWT(user.ID, cfg.JWTSecret)
		if err != nil {
			log.Error("failed to generate token", zap.Error(err))
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(LoginResponse{
			Token:     token,
			TokenType: "bearer",
			UserID:    user.ID,
		})
	}
}

// AuthMiddleware authenticates requests with either a session token (JWT
// bearer) or a long-lived API key (X-API-Key header). It is the single guard
// in front of every protected route.
func AuthMiddleware(users store.UserStore, keys store.APIKeyStore, jwtSecret string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
				user, ok := authenticateAPIKey(r.Context(), users, keys, apiKey, log)
				if !ok {
					http.Error(w, "Invalid API key", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			userID, ok := parseJWT(tokenString, jwtSecret)
			if !ok {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				log.Warn("failed to load token user", zap.Int("user_id", userID), zap.Error(err))
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// AdminOnly rejects requests from non-admin users. Must run after
// AuthMiddleware.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil || !user.IsAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func authenticateAPIKey(ctx context.Context, users store.UserStore, keys store.APIKeyStore, apiKey string, log *zap.Logger) (*models.User, bool) {
	all, err := keys.GetAll(ctx)
	if err != nil {
		log.Error("failed to load api keys", zap.Error(err))
		return nil, false
	}

	// Keys are stored hashed, so match by comparing against each hash.
	// The prefix narrows the candidates first.
	var matched *models.APIKey
	for i := range all {
		if !strings.HasPrefix(apiKey, all[i].Prefix) {
			continue
		}
		if err := bcrypt.CompareHashAndPassword([]byte(all[i].KeyHash), []byte(apiKey)); err == nil {
			matched = &all[i]
			break
		}
	}
	if matched == nil {
		return nil, false
	}

	if err := keys.UpdateLastUsed(ctx, matched.ID, time.Now().UTC()); err != nil {
		log.Warn("failed to record api key use", zap.Int("key_id", matched.ID), zap.Error(err))
	}

	user, err := users.GetByID(ctx, matched.UserID)
	if err != nil {
		return nil, false
	}
	return user, true
}

func withUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

func parseJWT(tokenString, secret string) (int, bool) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	uid, ok := claims["user_id"].(float64)
	if !ok {
		return 0, false
	}
	return int(uid), true
}

// generateJWT generates a session token for a user
func generateJWT(userID int, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	})
	return token.SignedString([]byte(secret))
}
