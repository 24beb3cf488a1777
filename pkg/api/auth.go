package api

import "time"

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Email    string `json:"email"`     // email пользователя
	Username string `json:"username"`  // username пользователя
	Password string `json:"password"`  // пароль в открытом виде, хешируется на сервере
	FullName string `json:"full_name"` // отображаемое имя
}

// UserResponse представляет пользователя в ответах API
// Хеш пароля и токены в ответ не попадают никогда
type UserResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	FullName  string     `json:"full_name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// LoginRequest представляет запрос на аутентификацию.
// Login принимает email или username; поддерживаются и явные поля.
type LoginRequest struct {
	Login    string `json:"login,omitempty"`    // email или username
	Email    string `json:"email,omitempty"`    // явный email
	Username string `json:"username,omitempty"` // явный username
	Password string `json:"password"`           // пароль
}

// TokenResponse представляет ответ с токенами доступа
type TokenResponse struct {
	AccessToken  string `json:"access_token"`  // JWT access token
	RefreshToken string `json:"refresh_token"` // JWT refresh token
	ExpiresIn    int64  `json:"expires_in"`    // время жизни access token в секундах
}

// RefreshRequest представляет запрос на обновление пары токенов.
// Токен также принимается из cookie refreshToken; тело имеет приоритет ниже.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// UpdateProfileRequest представляет запрос на изменение профиля
// Должно быть заполнено хотя бы одно поле
type UpdateProfileRequest struct {
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// ChangePasswordRequest представляет запрос на смену пароля
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// MessageResponse представляет ответ без полезных данных
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
