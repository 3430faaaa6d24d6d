// Package crypto - bcrypt-хеширование API токенов.
//
// Management API позволяет хранить в конфигурации не сам токен,
// а его bcrypt-хеш: утечка конфига не раскрывает токен. Хеш
// распознается по префиксу $2a$/$2b$/$2y$, обычный токен
// по-прежнему сравнивается напрямую.
package crypto

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Ошибки хеширования и проверки токенов
var (
	ErrEmptyToken   = errors.New("token cannot be empty")
	ErrHashMismatch = errors.New("token does not match hash")
	ErrInvalidHash  = errors.New("invalid token hash format")
	ErrTokenTooLong = errors.New("token exceeds maximum length of 72 bytes")
)

// DefaultCost - стоимость bcrypt по умолчанию.
// Проверка токена выполняется на каждый management-запрос,
// поэтому выше 12 поднимать не стоит
const DefaultCost = 12

// MaxTokenLength - предел bcrypt (72 байта)
const MaxTokenLength = 72

// HashToken хеширует API токен с дефолтной стоимостью.
// Salt генерируется автоматически, два вызова дают разные хеши
func HashToken(token string) (string, error) {
	return HashTokenWithCost(token, DefaultCost)
}

// HashTokenWithCost хеширует токен с указанной стоимостью.
// Cost за пределами [bcrypt.MinCost, bcrypt.MaxCost] приводится к границе
func HashTokenWithCost(token string, cost int) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}
	if len(token) > MaxTokenLength {
		return "", ErrTokenTooLong
	}

	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyToken проверяет соответствие токена хешу.
// Сравнение внутри bcrypt constant-time
func VerifyToken(token, hash string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if hash == "" {
		return ErrInvalidHash
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrHashMismatch
		}
		return ErrInvalidHash
	}
	return nil
}

// TokenMatches - bool-обертка над VerifyToken для условий
func TokenMatches(token, hash string) bool {
	return VerifyToken(token, hash) == nil
}

// IsBcryptHash определяет, задан ли токен в конфигурации хешем.
// Распознаются стандартные bcrypt-префиксы
func IsBcryptHash(s string) bool {
	if !strings.HasPrefix(s, "$2a$") && !strings.HasPrefix(s, "$2b$") && !strings.HasPrefix(s, "$2y$") {
		return false
	}
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
