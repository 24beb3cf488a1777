package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/authkeeper/authkeeper/internal/models"
	"github.com/authkeeper/authkeeper/internal/server/storage"
)

// userDoc описывает документ пользователя в коллекции users
type userDoc struct {
	ID           string     `bson:"_id"`
	Email        string     `bson:"email"`
	Username     string     `bson:"username"`
	FullName     string     `bson:"full_name"`
	PasswordHash string     `bson:"password_hash"`
	AccessToken  string     `bson:"access_token"`
	RefreshToken string     `bson:"refresh_token"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
	LastLogin    *time.Time `bson:"last_login,omitempty"`
}

func toDoc(user *models.User) *userDoc {
	return &userDoc{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		FullName:     user.FullName,
		PasswordHash: user.PasswordHash,
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
		LastLogin:    user.LastLogin,
	}
}

func (d *userDoc) toModel() *models.User {
	return &models.User{
		ID:           d.ID,
		Email:        d.Email,
		Username:     d.Username,
		FullName:     d.FullName,
		PasswordHash: d.PasswordHash,
		AccessToken:  d.AccessToken,
		RefreshToken: d.RefreshToken,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		LastLogin:    d.LastLogin,
	}
}

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	if _, err := s.users.InsertOne(ctx, toDoc(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": userID})
}

// GetUserByUsername retrieves user by username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

// GetUserByLogin retrieves user whose email or username equals login
func (s *Storage) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"email": login},
		bson.M{"username": login},
	}})
}

// UpdateProfile updates username and/or full name, empty values keep the old ones
func (s *Storage) UpdateProfile(ctx context.Context, userID, username, fullName string) (*models.User, error) {
	set := bson.M{"updated_at": time.Now()}
	if username != "" {
		set["username"] = username
	}
	if fullName != "" {
		set["full_name"] = fullName
	}

	// Возвращаем уже обновленный документ
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDoc
	err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrUserNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, storage.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return doc.toModel(), nil
}

// UpdatePassword replaces the stored password hash
func (s *Storage) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return s.updateByID(ctx, userID, bson.M{
		"password_hash": passwordHash,
		"updated_at":    time.Now(),
	})
}

// UpdateTokens persists a freshly issued token pair onto the user record.
// Один UpdateByID с $set обоих полей: ротация атомарна на уровне документа.
func (s *Storage) UpdateTokens(ctx context.Context, userID, accessToken, refreshToken string) error {
	return s.updateByID(ctx, userID, bson.M{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"updated_at":    time.Now(),
	})
}

// ClearTokens removes both session tokens from the user record
func (s *Storage) ClearTokens(ctx context.Context, userID string) error {
	return s.updateByID(ctx, userID, bson.M{
		"access_token":  "",
		"refresh_token": "",
		"updated_at":    time.Now(),
	})
}

// UpdateLastLogin updates the last login timestamp
func (s *Storage) UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error {
	return s.updateByID(ctx, userID, bson.M{"last_login": lastLogin})
}

// findOne выполняет поиск одного документа по фильтру
func (s *Storage) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.toModel(), nil
}

// updateByID выполняет $set по _id и превращает отсутствие документа в ErrUserNotFound
func (s *Storage) updateByID(ctx context.Context, userID string, set bson.M) error {
	result, err := s.users.UpdateByID(ctx, userID, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.MatchedCount == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}
