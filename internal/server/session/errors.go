package session

import (
	"errors"
	"fmt"
)

// Error taxonomy of the credential/session manager.
// Handlers map these to HTTP status codes with errors.Is.
var (
	// ErrBadRequest indicates invalid caller input or a wrong password
	ErrBadRequest = errors.New("bad request")

	// ErrUnauthorized indicates a missing, invalid, expired or reused token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates that the referenced user no longer exists
	ErrNotFound = errors.New("user not found")

	// ErrInternal indicates an unexpected signing or persistence failure
	ErrInternal = errors.New("internal error")
)

// ErrTokenPairGeneration возвращается при любом сбое выдачи пары токенов.
// Сообщение одинаковое для всех шагов, чтобы не раскрывать наружу,
// какой именно ресурс оказался недоступен.
var ErrTokenPairGeneration = fmt.Errorf(
	"%w: something went wrong while generating access and refresh tokens", ErrInternal)
