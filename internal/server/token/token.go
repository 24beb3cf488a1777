package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/authkeeper/authkeeper/internal/models"
)

// Config содержит конфигурацию для подписи и проверки токенов.
// Access и refresh токены подписываются разными секретами,
// поэтому токен одного вида никогда не проходит проверку другого.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// AccessClaims представляет claims access токена.
// Несет полный набор identity-полей, чтобы обычные запросы
// авторизовались без похода в базу.
type AccessClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// RefreshClaims представляет claims refresh токена.
// Несет только ID пользователя.
type RefreshClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// SignAccess создает новый JWT access token для пользователя
// Возвращает токен и время его жизни в секундах
func SignAccess(cfg Config, user *models.User) (string, int64, error) {
	now := time.Now()

	claims := AccessClaims{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    cfg.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(cfg.AccessSecret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, int64(cfg.AccessTTL.Seconds()), nil
}

// SignRefresh создает новый JWT refresh token для пользователя
func SignRefresh(cfg Config, userID string) (string, error) {
	now := time.Now()

	claims := RefreshClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.RefreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    cfg.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(cfg.RefreshSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return tokenString, nil
}

// ParseAccess валидирует и парсит JWT access token
func ParseAccess(cfg Config, tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parse(tokenString, cfg.AccessSecret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh валидирует и парсит JWT refresh token
func ParseRefresh(cfg Config, tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parse(tokenString, cfg.RefreshSecret, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("invalid token: missing user id")
	}
	return claims, nil
}

// parse проверяет подпись, алгоритм и срок действия токена
func parse(tokenString string, secret []byte, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return fmt.Errorf("invalid token")
	}

	return nil
}
