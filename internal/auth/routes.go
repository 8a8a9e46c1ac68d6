package auth

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/harmonyapp/harmony/internal/api"
	"github.com/harmonyapp/harmony/internal/apperrors"
	"github.com/harmonyapp/harmony/internal/config"
)

// LinkChecker reports whether a profile has a linked Spotify account.
// Implemented by the spotify credential store.
type LinkChecker interface {
	IsLinked(userID string) (bool, error)
}

// RegisterRoutes wires auth routes to the router.
// linkChecker is optional - if nil, /v1/auth/me reports spotify_linked=false.
func RegisterRoutes(router chi.Router, service *Service, cfg config.Config, linkChecker LinkChecker) {
	router.Method(http.MethodPost, "/v1/auth/register", api.Handler(registerHandler(service, cfg)))
	router.Method(http.MethodPost, "/v1/auth/login", api.Handler(loginHandler(service, cfg)))
	router.Method(http.MethodPost, "/v1/auth/refresh", api.Handler(refreshHandler(cfg)))
	router.Method(http.MethodGet, "/v1/auth/me", api.Handler(meHandler(service, linkChecker)))
	router.Method(http.MethodPatch, "/v1/auth/me", api.Handler(updateMeHandler(service, linkChecker)))
}

func registerHandler(service *Service, cfg config.Config) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			Email       string `json:"email"`
			DisplayName string `json:"display_name"`
			Password    string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}
		if strings.TrimSpace(body.Email) == "" || !strings.Contains(body.Email, "@") {
			return apperrors.NewValidationError("a valid email is required", nil)
		}
		if strings.TrimSpace(body.DisplayName) == "" {
			return apperrors.NewValidationError("display_name is required", nil)
		}
		if len(body.Password) < 8 {
			return apperrors.NewValidationError("password must be at least 8 characters", nil)
		}

		profile, err := service.Register(body.Email, strings.TrimSpace(body.DisplayName), body.Password)
		if err != nil {
			if err == ErrEmailTaken {
				return apperrors.NewConflictError("Email is already registered", apperrors.ErrorCodeEmailTaken)
			}
			return apperrors.NewInternalError("Failed to register")
		}

		tokens, err := GenerateTokenPair(cfg, TokenPayload{Sub: profile.ID})
		if err != nil {
			return apperrors.NewInternalError("Failed to generate token pair")
		}

		return api.WriteResource(w, http.StatusCreated, map[string]any{
			"object":         api.ObjectTokenPair,
			"access_token":   tokens.AccessToken,
			"refresh_token":  tokens.RefreshToken,
			"expires_in_sec": tokens.ExpiresInSec,
			"profile":        formatProfile(profile, false),
		})
	}
}

func loginHandler(service *Service, cfg config.Config) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}
		if body.Email == "" || body.Password == "" {
			return apperrors.NewValidationError("email and password are required", nil)
		}

		profile, err := service.Authenticate(body.Email, body.Password)
		if err != nil {
			if err == ErrInvalidCredentials {
				return apperrors.NewUnauthorizedError("Invalid email or password", apperrors.ErrorCodeInvalidCredentials)
			}
			return apperrors.NewInternalError("Failed to log in")
		}

		tokens, err := GenerateTokenPair(cfg, TokenPayload{Sub: profile.ID})
		if err != nil {
			return apperrors.NewInternalError("Failed to generate token pair")
		}

		return api.WriteResource(w, http.StatusOK, map[string]any{
			"object":         api.ObjectTokenPair,
			"access_token":   tokens.AccessToken,
			"refresh_token":  tokens.RefreshToken,
			"expires_in_sec": tokens.ExpiresInSec,
			"profile":        formatProfile(profile, false),
		})
	}
}

func refreshHandler(cfg config.Config) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return apperrors.NewValidationError("refresh_token is required", nil)
		}
		if body.RefreshToken == "" {
			return apperrors.NewValidationError("refresh_token is required", nil)
		}

		accessToken, expiresIn, err := RefreshAccessToken(cfg, body.RefreshToken)
		if err != nil {
			switch err {
			case ErrTokenExpired:
				return apperrors.NewUnauthorizedError("Refresh token has expired", apperrors.ErrorCodeAuthTokenExpired)
			case ErrTokenType:
				return apperrors.NewUnauthorizedError("Invalid token: expected refresh token")
			default:
				return apperrors.NewUnauthorizedError("Invalid refresh token", apperrors.ErrorCodeAuthTokenInvalid)
			}
		}

		return api.WriteResource(w, http.StatusOK, map[string]any{
			"object":         "token_refresh",
			"access_token":   accessToken,
			"expires_in_sec": expiresIn,
		})
	}
}

func meHandler(service *Service, linkChecker LinkChecker) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		profile, err := service.GetProfile(user.ID)
		if err != nil {
			return apperrors.NewInternalError("Failed to load profile")
		}
		if profile == nil {
			return apperrors.NewNotFoundResource("profile", user.ID)
		}

		linked := false
		if linkChecker != nil {
			if isLinked, err := linkChecker.IsLinked(user.ID); err == nil {
				linked = isLinked
			}
		}

		return api.WriteResource(w, http.StatusOK, formatProfile(profile, linked))
	}
}

func updateMeHandler(service *Service, linkChecker LinkChecker) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, ok := UserFromContext(r.Context())
		if !ok {
			return apperrors.NewUnauthorizedError("Authentication required")
		}

		var body struct {
			AvatarURL *string `json:"avatar_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}
		if body.AvatarURL == nil {
			return apperrors.NewValidationError("avatar_url is required", nil)
		}

		// An empty string clears the avatar.
		avatarURL := body.AvatarURL
		if strings.TrimSpace(*avatarURL) == "" {
			avatarURL = nil
		}

		profile, err := service.UpdateAvatar(user.ID, avatarURL)
		if err != nil {
			if err == sql.ErrNoRows {
				return apperrors.NewNotFoundResource("profile", user.ID)
			}
			return apperrors.NewInternalError("Failed to update profile")
		}

		linked := false
		if linkChecker != nil {
			if isLinked, err := linkChecker.IsLinked(user.ID); err == nil {
				linked = isLinked
			}
		}

		return api.WriteResource(w, http.StatusOK, formatProfile(profile, linked))
	}
}

func formatProfile(profile *Profile, spotifyLinked bool) map[string]any {
	payload := map[string]any{
		"object":         api.ObjectProfile,
		"id":             profile.ID,
		"email":          profile.Email,
		"display_name":   profile.DisplayName,
		"spotify_linked": spotifyLinked,
		"created_at":     api.RFC3339Millis(profile.CreatedAt),
	}
	if profile.AvatarURL != nil && *profile.AvatarURL != "" {
		payload["avatar_url"] = *profile.AvatarURL
	}
	return payload
}
