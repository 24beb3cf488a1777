package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/authkeeper/authkeeper/internal/models"
	"github.com/authkeeper/authkeeper/internal/server/session"
	"github.com/authkeeper/authkeeper/internal/server/storage"
	"github.com/authkeeper/authkeeper/internal/validation"
	"github.com/authkeeper/authkeeper/pkg/api"
)

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger    *slog.Logger
	users     storage.UserStorage
	sessions  *session.Manager
	cookieCfg CookieConfig
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, users storage.UserStorage, sessions *session.Manager, cookieCfg CookieConfig) *AuthHandler {
	return &AuthHandler{
		logger:    logger,
		users:     users,
		sessions:  sessions,
		cookieCfg: cookieCfg,
	}
}

// Register обрабатывает POST /api/v1/auth/register
// Регистрация нового пользователя
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Парсим request body
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode register request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Поля из одних пробелов считаются пустыми
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)

	// Валидация до любого обращения к базе
	if err := validation.ValidateEmail(req.Email); err != nil {
		h.logger.WarnContext(ctx, "invalid email", slog.Any("error", err))
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateUsername(req.Username); err != nil {
		h.logger.WarnContext(ctx, "invalid username", slog.String("username", req.Username), slog.Any("error", err))
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		h.logger.WarnContext(ctx, "invalid password", slog.Any("error", err))
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateFullName(req.FullName); err != nil {
		h.logger.WarnContext(ctx, "invalid full name", slog.Any("error", err))
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	// Пароль хранится только в виде bcrypt хеша
	passwordHash, err := h.sessions.HashPassword(req.Password)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Сохраняем в БД
	if err := h.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.logger.WarnContext(ctx, "user already exists",
				slog.String("username", req.Username),
				slog.String("email", req.Email))
			sendError(h.logger, w, "user with this email or username already exists", http.StatusConflict)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user registered successfully",
		slog.String("username", user.Username),
		slog.String("user_id", user.ID))

	sendJSON(h.logger, w, toUserResponse(user), http.StatusCreated)
}

// Login обрабатывает POST /api/v1/auth/login
// Аутентификация по email или username и паролю
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Парсим request body
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode login request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Идентификатор: login, либо явный email, либо явный username
	login := strings.TrimSpace(req.Login)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}
	if login == "" {
		login = strings.TrimSpace(req.Username)
	}
	if login == "" {
		sendError(h.logger, w, "email or username is required", http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		sendError(h.logger, w, "password is required", http.StatusBadRequest)
		return
	}

	// Ищем пользователя по email или username
	user, err := h.users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "login failed: user not found", slog.String("login", login))
			sendError(h.logger, w, "user does not exist", http.StatusBadRequest)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Проверяем пароль против сохраненного хеша
	if !h.sessions.VerifyPassword(req.Password, user.PasswordHash) {
		h.logger.WarnContext(ctx, "login failed: invalid password", slog.String("user_id", user.ID))
		sendError(h.logger, w, "invalid password", http.StatusBadRequest)
		return
	}

	// Выдаем пару токенов; обе записываются на пользователя одним обновлением
	pair, err := h.sessions.IssueTokenPair(ctx, user.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue token pair", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Обновляем last_login
	if err := h.users.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		// Не критичная ошибка, логируем но не прерываем
		h.logger.WarnContext(ctx, "failed to update last login", slog.Any("error", err))
	}

	h.logger.InfoContext(ctx, "user logged in successfully",
		slog.String("username", user.Username),
		slog.String("user_id", user.ID))

	setAuthCookies(w, h.cookieCfg, pair)
	sendJSON(h.logger, w, api.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, http.StatusOK)
}

// Logout обрабатывает POST /api/v1/auth/logout
// Выход пользователя: очистка токенов на записи и сброс cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		sendError(h.logger, w, "unauthorized request", http.StatusUnauthorized)
		return
	}

	if err := h.sessions.EndSession(ctx, userID); err != nil {
		h.logger.ErrorContext(ctx, "failed to end session", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user logged out successfully", slog.String("user_id", userID))

	clearAuthCookies(w, h.cookieCfg)
	w.WriteHeader(http.StatusNoContent)
}

// Refresh обрабатывает POST /api/v1/auth/refresh
// Обновление пары токенов по refresh token из cookie или тела запроса
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	refreshToken := h.incomingRefreshToken(r)
	if refreshToken == "" {
		sendError(h.logger, w, "unauthorized request", http.StatusUnauthorized)
		return
	}

	// Ротация: проверка подписи, сверка с сохраненным значением, новая пара
	user, pair, err := h.sessions.RotateOnRefresh(ctx, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrUnauthorized), errors.Is(err, session.ErrNotFound):
			h.logger.WarnContext(ctx, "refresh rejected", slog.Any("error", err))
			sendError(h.logger, w, "invalid refresh token", http.StatusUnauthorized)
		default:
			h.logger.ErrorContext(ctx, "failed to rotate tokens", slog.Any("error", err))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.logger.InfoContext(ctx, "tokens refreshed successfully", slog.String("user_id", user.ID))

	setAuthCookies(w, h.cookieCfg, pair)
	sendJSON(h.logger, w, api.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, http.StatusOK)
}

// incomingRefreshToken извлекает refresh token из cookie, затем из тела
func (h *AuthHandler) incomingRefreshToken(r *http.Request) string {
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var req api.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ""
	}
	return req.RefreshToken
}

// toUserResponse собирает публичное представление пользователя
func toUserResponse(user *models.User) api.UserResponse {
	return api.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		FullName:  user.FullName,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
		LastLogin: user.LastLogin,
	}
}
