// Package session владеет жизненным циклом учетных данных:
// хеширование и проверка паролей, выдача и проверка подписанных токенов,
// ротация refresh токена при обновлении.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/authkeeper/authkeeper/internal/models"
	"github.com/authkeeper/authkeeper/internal/server/storage"
	"github.com/authkeeper/authkeeper/internal/server/token"
)

// Manager реализует менеджер учетных данных и сессий
type Manager struct {
	logger     *slog.Logger
	users      storage.UserStorage
	tokenCfg   token.Config
	bcryptCost int
}

// NewManager создает новый менеджер сессий
// cost — стоимость bcrypt; 0 означает bcrypt.DefaultCost
func NewManager(logger *slog.Logger, users storage.UserStorage, tokenCfg token.Config, cost int) *Manager {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Manager{
		logger:     logger,
		users:      users,
		tokenCfg:   tokenCfg,
		bcryptCost: cost,
	}
}

// HashPassword возвращает bcrypt хеш пароля
func (m *Manager) HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), m.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword проверяет пароль против сохраненного хеша.
// Сравнение выполняется самим bcrypt, plaintext нигде не восстанавливается.
func (m *Manager) VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// IssueTokenPair выдает новую пару токенов и сохраняет ее на записи пользователя.
// Перезапись refresh токена — точка ротации: предыдущий токен перестает
// действовать, как только запись обновлена. Все или ничего: при сбое любого
// шага наружу уходит одинаковая generic ошибка (кроме отсутствия пользователя).
func (m *Manager) IssueTokenPair(ctx context.Context, userID string) (*models.TokenPair, error) {
	user, err := m.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		m.logger.ErrorContext(ctx, "failed to load user for token pair", slog.Any("error", err))
		return nil, ErrTokenPairGeneration
	}

	accessToken, expiresIn, err := token.SignAccess(m.tokenCfg, user)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to sign access token", slog.Any("error", err))
		return nil, ErrTokenPairGeneration
	}

	refreshToken, err := token.SignRefresh(m.tokenCfg, user.ID)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to sign refresh token", slog.Any("error", err))
		return nil, ErrTokenPairGeneration
	}

	// Сохраняем оба токена одним обновлением записи
	if err := m.users.UpdateTokens(ctx, user.ID, accessToken, refreshToken); err != nil {
		m.logger.ErrorContext(ctx, "failed to persist token pair", slog.Any("error", err))
		return nil, ErrTokenPairGeneration
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

// VerifyRefreshToken криптографически проверяет refresh token
// Любой дефект токена (пустой, битый, просроченный, чужая подпись)
// превращается в ErrUnauthorized
func (m *Manager) VerifyRefreshToken(raw string) (*token.RefreshClaims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: missing refresh token", ErrUnauthorized)
	}

	claims, err := token.ParseRefresh(m.tokenCfg, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}

	return claims, nil
}

// RotateOnRefresh проверяет предъявленный refresh token и, если он совпадает
// с сохраненным, выдает свежую пару, перезаписывая старую.
// Предъявление уже ротированного токена отклоняется: после успешного refresh
// предыдущий токен больше не равен сохраненному значению.
func (m *Manager) RotateOnRefresh(ctx context.Context, presented string) (*models.User, *models.TokenPair, error) {
	claims, err := m.VerifyRefreshToken(presented)
	if err != nil {
		return nil, nil, err
	}

	user, err := m.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
		}
		m.logger.ErrorContext(ctx, "failed to load user for rotation", slog.Any("error", err))
		return nil, nil, ErrInternal
	}

	// Токен должен байт-в-байт совпадать с текущим сохраненным значением.
	// Несовпадение означает предъявление устаревшего или уже использованного токена.
	if user.RefreshToken == "" || presented != user.RefreshToken {
		m.logger.WarnContext(ctx, "stale or reused refresh token", slog.String("user_id", user.ID))
		return nil, nil, fmt.Errorf("%w: refresh token is expired or used", ErrUnauthorized)
	}

	pair, err := m.IssueTokenPair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// EndSession очищает оба токена на записи пользователя (logout).
// Отсутствие пользователя не считается ошибкой: сессии и так нет.
func (m *Manager) EndSession(ctx context.Context, userID string) error {
	if err := m.users.ClearTokens(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil
		}
		m.logger.ErrorContext(ctx, "failed to clear tokens", slog.Any("error", err))
		return fmt.Errorf("%w: failed to end session", ErrInternal)
	}
	return nil
}
