package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/authkeeper/authkeeper/internal/server/handlers"
	"github.com/authkeeper/authkeeper/internal/server/token"
)

// AuthMiddleware создает middleware для проверки JWT access токена.
// Токен принимается из заголовка Authorization (Bearer) или,
// если заголовка нет, из cookie accessToken.
func AuthMiddleware(logger *slog.Logger, tokenCfg token.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, errMsg := extractAccessToken(r)
			if errMsg != "" {
				logger.Warn("Access token not accepted", "reason", errMsg)
				http.Error(w, "Unauthorized: "+errMsg, http.StatusUnauthorized)
				return
			}

			// Валидируем токен
			claims, err := token.ParseAccess(tokenCfg, tokenString)
			if err != nil {
				logger.Warn("Invalid access token", "error", err)
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			// Добавляем данные из токена в контекст
			ctx := context.WithValue(r.Context(), handlers.UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, handlers.UsernameKey, claims.Username)

			logger.Debug("User authenticated", "user_id", claims.UserID, "username", claims.Username)

			// Передаем запрос дальше с обновленным контекстом
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractAccessToken достает access token из запроса.
// Возвращает токен и пустую строку, либо пустой токен и описание проблемы.
func extractAccessToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		// Ожидаем формат: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", "invalid token format"
		}
		return parts[1], ""
	}

	if cookie, err := r.Cookie(handlers.AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, ""
	}

	return "", "missing token"
}
