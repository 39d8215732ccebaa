package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
)

// RefreshTokenCookie holds the refresh token for browser clients.
const RefreshTokenCookie = "refresh_token"

func requireActor(r *http.Request) (uuid.UUID, enums.Role, error) {
	id, role, ok := middleware.Actor(r.Context())
	if !ok {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, role, nil
}

func setAuthCookies(w http.ResponseWriter, cfg config.CookieConfig, tokens auth.TokenPair) {
	http.SetCookie(w, authCookie(cfg, middleware.AccessTokenCookie, tokens.AccessToken, tokens.AccessTokenExpiresAt))
	http.SetCookie(w, authCookie(cfg, RefreshTokenCookie, tokens.RefreshToken, tokens.RefreshTokenExpiresAt))
}

func clearAuthCookies(w http.ResponseWriter, cfg config.CookieConfig) {
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		cookie := authCookie(cfg, name, "", time.Unix(0, 0))
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

func authCookie(cfg config.CookieConfig, name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0
}
