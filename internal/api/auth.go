package api

import (
	"context"
	"errors"
	"log/slog"
	"merot-portal/internal/database"
	"merot-portal/pkg/api"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userContextKey struct{}

func (s *BackendService) Login(r *http.Request) (any, error) {
	req, err := ParseRequestWithValidation[api.LoginRequest](r)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()

	var user database.User
	if err := s.db.WithContext(ctx).Where("email = ? AND portal = ?", req.Email, req.Portal).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusUnauthorized, "invalid email or password")
		}
		slog.Error("error looking up user", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error looking up user")
	}

	if !user.CheckPassword(req.Password) {
		return nil, CodedErrorf(http.StatusUnauthorized, "invalid email or password")
	}

	token := uuid.NewString()
	if err := s.db.WithContext(ctx).Model(&user).Update("token", token).Error; err != nil {
		slog.Error("error saving session token", "user_id", user.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error creating session")
	}

	slog.Info("user logged in", "user_id", user.Id, "portal", req.Portal)
	return api.LoginResponse{Token: token, User: convertUser(user)}, nil
}

// Authenticate resolves the bearer token to a user and rejects the request with
// 401 if there is none.
func (s *BackendService) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		var user database.User
		if err := s.db.WithContext(r.Context()).Where("token = ?", token).First(&user).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				slog.Error("error resolving session token", "error", err)
			}
			http.Error(w, "invalid or expired session", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey{}, user)))
	})
}

func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(roles, currentUser(r).Role) {
				http.Error(w, "insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func currentUser(r *http.Request) database.User {
	user, _ := r.Context().Value(userContextKey{}).(database.User)
	return user
}

func isStaff(user database.User) bool {
	return user.Role == database.RoleReviewer || user.Role == database.RoleAdmin
}
