package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/authkeeper/authkeeper/internal/server/session"
	"github.com/authkeeper/authkeeper/internal/server/storage"
	"github.com/authkeeper/authkeeper/internal/validation"
	"github.com/authkeeper/authkeeper/pkg/api"
)

// UserHandler обрабатывает запросы работы с профилем пользователя
type UserHandler struct {
	logger   *slog.Logger
	users    storage.UserStorage
	sessions *session.Manager
}

// NewUserHandler создает новый handler для профиля
func NewUserHandler(logger *slog.Logger, users storage.UserStorage, sessions *session.Manager) *UserHandler {
	return &UserHandler{
		logger:   logger,
		users:    users,
		sessions: sessions,
	}
}

// Me обрабатывает GET /api/v1/users/me
// Возвращает текущего пользователя
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		sendError(h.logger, w, "unauthorized request", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			sendError(h.logger, w, "user not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, toUserResponse(user), http.StatusOK)
}

// UpdateProfile обрабатывает PATCH /api/v1/users/me
// Изменяет username и/или отображаемое имя
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		sendError(h.logger, w, "unauthorized request", http.StatusUnauthorized)
		return
	}

	var req api.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode update profile request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)

	// Хотя бы одно поле должно быть заполнено
	if req.Username == "" && req.FullName == "" {
		sendError(h.logger, w, "username or full name is required", http.StatusBadRequest)
		return
	}

	if req.Username != "" {
		if err := validation.ValidateUsername(req.Username); err != nil {
			h.logger.WarnContext(ctx, "invalid username", slog.String("username", req.Username), slog.Any("error", err))
			sendError(h.logger, w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.FullName != "" {
		if err := validation.ValidateFullName(req.FullName); err != nil {
			h.logger.WarnContext(ctx, "invalid full name", slog.Any("error", err))
			sendError(h.logger, w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	user, err := h.users.UpdateProfile(ctx, userID, req.Username, req.FullName)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUserNotFound):
			sendError(h.logger, w, "user not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrUserAlreadyExists):
			sendError(h.logger, w, "username already taken", http.StatusConflict)
		default:
			h.logger.ErrorContext(ctx, "failed to update profile", slog.Any("error", err))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.logger.InfoContext(ctx, "profile updated", slog.String("user_id", userID))

	sendJSON(h.logger, w, toUserResponse(user), http.StatusOK)
}

// ChangePassword обрабатывает POST /api/v1/users/me/password
// Смена пароля с проверкой старого
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		sendError(h.logger, w, "unauthorized request", http.StatusUnauthorized)
		return
	}

	var req api.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode change password request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.OldPassword == "" {
		sendError(h.logger, w, "old password is required", http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePassword(req.NewPassword); err != nil {
		h.logger.WarnContext(ctx, "invalid new password", slog.Any("error", err))
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			sendError(h.logger, w, "user does not exist", http.StatusBadRequest)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Старый пароль должен совпадать с сохраненным хешем
	if !h.sessions.VerifyPassword(req.OldPassword, user.PasswordHash) {
		h.logger.WarnContext(ctx, "change password failed: invalid old password", slog.String("user_id", userID))
		sendError(h.logger, w, "invalid old password", http.StatusBadRequest)
		return
	}

	passwordHash, err := h.sessions.HashPassword(req.NewPassword)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		h.logger.ErrorContext(ctx, "failed to update password", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "password changed successfully", slog.String("user_id", userID))

	w.WriteHeader(http.StatusNoContent)
}
