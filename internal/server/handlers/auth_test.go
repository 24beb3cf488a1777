package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/authkeeper/authkeeper/internal/models"
	"github.com/authkeeper/authkeeper/internal/server/session"
	"github.com/authkeeper/authkeeper/internal/server/storage"
	"github.com/authkeeper/authkeeper/internal/server/token"
	"github.com/authkeeper/authkeeper/pkg/api"
)

// mockUserStorage is a mock implementation of UserStorage for testing
type mockUserStorage struct {
	users       map[string]*models.User // id -> User
	createError error
	getError    error
}

func newMockUserStorage() *mockUserStorage {
	return &mockUserStorage{users: make(map[string]*models.User)}
}

func (m *mockUserStorage) CreateUser(ctx context.Context, user *models.User) error {
	if m.createError != nil {
		return m.createError
	}
	for _, u := range m.users {
		if u.Email == user.Email || u.Username == user.Username {
			return storage.ErrUserAlreadyExists
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserStorage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	user, ok := m.users[userID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (m *mockUserStorage) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	for _, u := range m.users {
		if u.Email == login || u.Username == login {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (m *mockUserStorage) UpdateProfile(ctx context.Context, userID, username, fullName string) (*models.User, error) {
	user, ok := m.users[userID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	if username != "" {
		for id, u := range m.users {
			if id != userID && u.Username == username {
				return nil, storage.ErrUserAlreadyExists
			}
		}
		user.Username = username
	}
	if fullName != "" {
		user.FullName = fullName
	}
	user.UpdatedAt = time.Now()
	return user, nil
}

func (m *mockUserStorage) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	user, ok := m.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *mockUserStorage) UpdateTokens(ctx context.Context, userID, accessToken, refreshToken string) error {
	user, ok := m.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	user.AccessToken = accessToken
	user.RefreshToken = refreshToken
	return nil
}

func (m *mockUserStorage) ClearTokens(ctx context.Context, userID string) error {
	user, ok := m.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	user.AccessToken = ""
	user.RefreshToken = ""
	return nil
}

func (m *mockUserStorage) UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error {
	user, ok := m.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	user.LastLogin = &lastLogin
	return nil
}

func testTokenConfig() token.Config {
	return token.Config{
		AccessSecret:  []byte("test-access-secret-32-bytes-long"),
		RefreshSecret: []byte("test-refresh-secret-32-bytes-lng"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
		Issuer:        "authkeeper",
	}
}

func testAuthHandler() (*AuthHandler, *mockUserStorage, *session.Manager) {
	logger := slog.Default()
	users := newMockUserStorage()
	sessions := session.NewManager(logger, users, testTokenConfig(), bcrypt.MinCost)
	handler := NewAuthHandler(logger, users, sessions, CookieConfig{Secure: true})
	return handler, users, sessions
}

// seedUser добавляет в mock пользователя с захешированным паролем
func seedUser(t *testing.T, users *mockUserStorage, sessions *session.Manager, password string) *models.User {
	t.Helper()

	hash, err := sessions.HashPassword(password)
	require.NoError(t, err)

	now := time.Now()
	user := &models.User{
		ID:           "user-123",
		Email:        "alice@example.com",
		Username:     "alice",
		FullName:     "Alice Smith",
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	users.users[user.ID] = user
	return user
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegister_Success(t *testing.T) {
	handler, users, _ := testAuthHandler()

	rec := postJSON(t, handler.Register, "/api/v1/auth/register", api.RegisterRequest{
		Email:    "bob@example.com",
		Username: "bob_builder",
		Password: "can-we-fix-it",
		FullName: "Bob Builder",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp api.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "bob@example.com", resp.Email)
	assert.Equal(t, "bob_builder", resp.Username)
	assert.Equal(t, "Bob Builder", resp.FullName)

	// Пароль и токены в ответ не попадают
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "token")

	// В хранилище bcrypt хеш, а не plaintext
	stored := users.users[resp.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "can-we-fix-it", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("can-we-fix-it")))
}

func TestRegister_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  api.RegisterRequest
	}{
		{
			name: "empty email",
			req:  api.RegisterRequest{Username: "bob_builder", Password: "can-we-fix-it", FullName: "Bob"},
		},
		{
			name: "whitespace email",
			req:  api.RegisterRequest{Email: "   ", Username: "bob_builder", Password: "can-we-fix-it", FullName: "Bob"},
		},
		{
			name: "empty username",
			req:  api.RegisterRequest{Email: "bob@example.com", Password: "can-we-fix-it", FullName: "Bob"},
		},
		{
			name: "whitespace username",
			req:  api.RegisterRequest{Email: "bob@example.com", Username: " \t ", Password: "can-we-fix-it", FullName: "Bob"},
		},
		{
			name: "empty password",
			req:  api.RegisterRequest{Email: "bob@example.com", Username: "bob_builder", FullName: "Bob"},
		},
		{
			name: "whitespace full name",
			req:  api.RegisterRequest{Email: "bob@example.com", Username: "bob_builder", Password: "can-we-fix-it", FullName: "   "},
		},
		{
			name: "malformed email",
			req:  api.RegisterRequest{Email: "not-an-email", Username: "bob_builder", Password: "can-we-fix-it", FullName: "Bob"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, users, _ := testAuthHandler()

			rec := postJSON(t, handler.Register, "/api/v1/auth/register", tt.req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			// Запись не создана
			assert.Empty(t, users.users)
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	handler, users, sessions := testAuthHandler()
	seedUser(t, users, sessions, "password-123")

	tests := []struct {
		name string
		req  api.RegisterRequest
	}{
		{
			name: "duplicate email",
			req:  api.RegisterRequest{Email: "alice@example.com", Username: "different", Password: "password-123", FullName: "Other"},
		},
		{
			name: "duplicate username",
			req:  api.RegisterRequest{Email: "other@example.com", Username: "alice", Password: "password-123", FullName: "Other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, handler.Register, "/api/v1/auth/register", tt.req)

			assert.Equal(t, http.StatusConflict, rec.Code)
			assert.Len(t, users.users, 1)
		})
	}
}

func TestLogin_Success(t *testing.T) {
	handler, users, sessions := testAuthHandler()
	user := seedUser(t, users, sessions, "password-123")

	tests := []struct {
		name string
		req  api.LoginRequest
	}{
		{name: "by login field with email", req: api.LoginRequest{Login: "alice@example.com", Password: "password-123"}},
		{name: "by login field with username", req: api.LoginRequest{Login: "alice", Password: "password-123"}},
		{name: "by explicit email", req: api.LoginRequest{Email: "alice@example.com", Password: "password-123"}},
		{name: "by explicit username", req: api.LoginRequest{Username: "alice", Password: "password-123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, handler.Login, "/api/v1/auth/login", tt.req)

			require.Equal(t, http.StatusOK, rec.Code)

			var resp api.TokenResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.AccessToken)
			assert.NotEmpty(t, resp.RefreshToken)

			// Обе cookie выставлены
			accessCookie := cookieByName(t, rec, AccessTokenCookie)
			require.NotNil(t, accessCookie)
			assert.Equal(t, resp.AccessToken, accessCookie.Value)
			assert.True(t, accessCookie.HttpOnly)

			refreshCookie := cookieByName(t, rec, RefreshTokenCookie)
			require.NotNil(t, refreshCookie)
			assert.Equal(t, resp.RefreshToken, refreshCookie.Value)
			assert.True(t, refreshCookie.HttpOnly)

			// Пара сохранена на записи пользователя
			assert.Equal(t, resp.RefreshToken, user.RefreshToken)
			assert.Equal(t, resp.AccessToken, user.AccessToken)
		})
	}
}

func TestLogin_Failures(t *testing.T) {
	handler, users, sessions := testAuthHandler()
	user := seedUser(t, users, sessions, "password-123")

	tests := []struct {
		name       string
		req        api.LoginRequest
		wantStatus int
	}{
		{
			name:       "missing identifier",
			req:        api.LoginRequest{Password: "password-123"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing password",
			req:        api.LoginRequest{Login: "alice"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown user",
			req:        api.LoginRequest{Login: "nobody", Password: "password-123"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "wrong password",
			req:        api.LoginRequest{Login: "alice", Password: "wrong-password"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, handler.Login, "/api/v1/auth/login", tt.req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			// Токены не выданы
			assert.Empty(t, user.RefreshToken)
			assert.Nil(t, cookieByName(t, rec, AccessTokenCookie))
		})
	}
}

func TestRefresh_WithCookie(t *testing.T) {
	handler, users, sessions := testAuthHandler()
	user := seedUser(t, users, sessions, "password-123")

	pair, err := sessions.IssueTokenPair(context.Background(), user.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: pair.RefreshToken})
	rec := httptest.NewRecorder()
	handler.Refresh(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, resp.RefreshToken, user.RefreshToken)
	require.NotNil(t, cookieByName(t, rec, RefreshTokenCookie))
}

func TestRefresh_WithBody(t *testing.T) {
	handler, users, sessions := testAuthHandler()
	user := seedUser(t, users, sessions, "password-123")

	pair, err := sessions.IssueTokenPair(context.Background(), user.ID)
	require.NoError(t, err)

	rec := postJSON(t, handler.Refresh, "/api/v1/auth/refresh", api.RefreshRequest{
		RefreshToken: pair.RefreshToken,
	})

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRefresh_StaleTokenRejected(t *testing.T) {
	handler, users, sessions := testAuthHandler()
	user := seedUser(t, users, sessions, "password-123")

	ctx := context.Background()
	first, err := sessions.IssueTokenPair(ctx, user.ID)
	require.NoError(t, err)

	// Вторая выдача ротирует refresh token; значения должны различаться
	time.Sleep(1100 * time.Millisecond)
	second, err := sessions.IssueTokenPair(ctx, user.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Устаревший токен отклоняется
	rec := postJSON(t, handler.Refresh, "/api/v1/auth/refresh", api.RefreshRequest{
		RefreshToken: first.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Действующий токен принимается
	rec = postJSON(t, handler.Refresh, "/api/v1/auth/refresh", api.RefreshRequest{
		RefreshToken: second.RefreshToken,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefresh_InvalidToken(t *testing.T) {
	handler, _, _ := testAuthHandler()

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "missing token", body: api.RefreshRequest{}},
		{name: "garbage token", body: api.RefreshRequest{RefreshToken: "xx.yy.zz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, handler.Refresh, "/api/v1/auth/refresh", tt.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestLogout(t *testing.T) {
	handler, users, sessions := testAuthHandler()
	user := seedUser(t, users, sessions, "password-123")

	pair, err := sessions.IssueTokenPair(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, user.RefreshToken)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserIDKey, user.ID))
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)

	// Оба токена очищены на записи
	assert.Empty(t, user.AccessToken)
	assert.Empty(t, user.RefreshToken)

	// Cookie сброшены
	accessCookie := cookieByName(t, rec, AccessTokenCookie)
	require.NotNil(t, accessCookie)
	assert.Less(t, accessCookie.MaxAge, 0)

	// Последний refresh token больше не принимается
	recRefresh := postJSON(t, handler.Refresh, "/api/v1/auth/refresh", api.RefreshRequest{
		RefreshToken: pair.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, recRefresh.Code)
}

func TestLogout_WithoutUserContext(t *testing.T) {
	handler, _, _ := testAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
