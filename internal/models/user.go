package models

import "time"

// User представляет учетную запись пользователя в системе
type User struct {
	ID           string     `json:"id"`                   // UUID пользователя
	Email        string     `json:"email"`                // уникальный email
	Username     string     `json:"username"`             // уникальный username
	FullName     string     `json:"full_name"`            // отображаемое имя
	PasswordHash string     `json:"-"`                    // bcrypt хеш пароля, никогда не отдается наружу
	AccessToken  string     `json:"-"`                    // последний выданный access token
	RefreshToken string     `json:"-"`                    // единственный действующий refresh token
	CreatedAt    time.Time  `json:"created_at"`           // время создания
	UpdatedAt    time.Time  `json:"updated_at"`           // время последнего обновления
	LastLogin    *time.Time `json:"last_login,omitempty"` // время последнего входа
}

// TokenPair представляет пару токенов, выдаваемую при входе и обновлении.
// Оба токена генерируются вместе и перезаписываются вместе.
type TokenPair struct {
	AccessToken  string `json:"access_token"`  // JWT access token, короткий TTL
	RefreshToken string `json:"refresh_token"` // JWT refresh token, длинный TTL
	ExpiresIn    int64  `json:"expires_in"`    // время жизни access token в секундах
}

// HasSession сообщает, есть ли у пользователя активная сессия
func (u *User) HasSession() bool {
	return u.RefreshToken != ""
}
