package storage

import (
	"context"
	"time"

	"github.com/authkeeper/authkeeper/internal/models"
)

// UserStorage defines interface for user data persistence
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if email or username is taken
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// GetUserByUsername retrieves user by username
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByLogin retrieves user whose email OR username equals login
	// Returns ErrUserNotFound if no user matches
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)

	// UpdateProfile updates username and/or full name
	// Empty arguments leave the corresponding field unchanged
	// Returns ErrUserNotFound if user doesn't exist
	UpdateProfile(ctx context.Context, userID, username, fullName string) (*models.User, error)

	// UpdatePassword replaces the stored password hash
	// Returns ErrUserNotFound if user doesn't exist
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// UpdateTokens persists a freshly issued token pair onto the user record.
	// Overwriting the refresh token is the rotation point: the previous
	// refresh token stops being valid as soon as this call succeeds.
	// Returns ErrUserNotFound if user doesn't exist
	UpdateTokens(ctx context.Context, userID, accessToken, refreshToken string) error

	// ClearTokens removes both session tokens from the user record
	// Returns ErrUserNotFound if user doesn't exist
	ClearTokens(ctx context.Context, userID string) error

	// UpdateLastLogin updates the last login timestamp
	UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error
}
