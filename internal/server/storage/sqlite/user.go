package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/authkeeper/authkeeper/internal/models"
	"github.com/authkeeper/authkeeper/internal/server/storage"
)

const userColumns = `id, email, username, full_name, password_hash, access_token, refresh_token, created_at, updated_at, last_login`

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.FullName,
		user.PasswordHash,
		user.AccessToken,
		user.RefreshToken,
		user.CreatedAt,
		user.UpdatedAt,
		user.LastLogin,
	)

	if err != nil {
		// Проверяем на duplicate email/username
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, userID))
}

// GetUserByUsername retrieves user by username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

// GetUserByLogin retrieves user whose email or username equals login
func (s *Storage) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ? OR username = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, login, login))
}

// UpdateProfile updates username and/or full name, empty values keep the old ones
func (s *Storage) UpdateProfile(ctx context.Context, userID, username, fullName string) (*models.User, error) {
	query := `
		UPDATE users
		SET username = CASE WHEN ? != '' THEN ? ELSE username END,
		    full_name = CASE WHEN ? != '' THEN ? ELSE full_name END,
		    updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		username, username,
		fullName, fullName,
		time.Now(),
		userID,
	)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, storage.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if err := requireAffected(result); err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, userID)
}

// UpdatePassword replaces the stored password hash
func (s *Storage) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, passwordHash, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return requireAffected(result)
}

// UpdateTokens persists a freshly issued token pair onto the user record.
// Одна UPDATE команда: перезапись refresh токена атомарна на уровне записи.
func (s *Storage) UpdateTokens(ctx context.Context, userID, accessToken, refreshToken string) error {
	query := `UPDATE users SET access_token = ?, refresh_token = ?, updated_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, accessToken, refreshToken, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}

	return requireAffected(result)
}

// ClearTokens removes both session tokens from the user record
func (s *Storage) ClearTokens(ctx context.Context, userID string) error {
	query := `UPDATE users SET access_token = '', refresh_token = '', updated_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}

	return requireAffected(result)
}

// UpdateLastLogin updates the last login timestamp
func (s *Storage) UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error {
	query := `UPDATE users SET last_login = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, lastLogin, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return requireAffected(result)
}

// scanUser читает одну строку users в модель
func (s *Storage) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.FullName,
		&user.PasswordHash,
		&user.AccessToken,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLogin,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}

	return user, nil
}

// requireAffected превращает обновление без затронутых строк в ErrUserNotFound
func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}
