package handlers

import (
	"net/http"

	"github.com/authkeeper/authkeeper/internal/models"
)

// Имена cookie, в которых передаются токены сессии
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookieConfig описывает транспортные атрибуты cookie с токенами
type CookieConfig struct {
	Secure bool // выставлять ли Secure; выключается только для локальной разработки
}

// setAuthCookies выставляет обе cookie с токенами.
// HttpOnly всегда: токены не должны быть доступны из JS.
func setAuthCookies(w http.ResponseWriter, cfg CookieConfig, pair *models.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearAuthCookies сбрасывает обе cookie с токенами
func clearAuthCookies(w http.ResponseWriter, cfg CookieConfig) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cfg.Secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
