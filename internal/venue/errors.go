package venue

import (
	"errors"
	"fmt"
)

// Sentinel ошибки venue-слоя
var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrSymbolNotSupported  = errors.New("symbol not supported")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrVenueUnavailable    = errors.New("venue unavailable")
)

// Error представляет ошибку от биржи.
//
// Retryable разделяет временные сбои (сеть, rate limit, 5xx)
// от постоянных (невалидный ордер, недостаток средств):
// временные ошибки retry'ятся на границе venue-слоя,
// постоянные немедленно возвращаются вызывающему коду.
type Error struct {
	Venue     string
	Op        string // операция: "fetch_ticker", "place_order", ...
	Code      string // код ошибки биржи, если есть
	Message   string
	Transient bool
	Original  error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s [%s]: %s", e.Venue, e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Venue, e.Op, e.Message)
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *Error) Unwrap() error {
	return e.Original
}

// Retryable реализует retry.RetryableError
func (e *Error) Retryable() bool {
	return e.Transient
}

// NewTransientError создаёт временную ошибку биржи (можно retry'ить)
func NewTransientError(venueName, op string, err error) *Error {
	return &Error{
		Venue:     venueName,
		Op:        op,
		Message:   errMessage(err),
		Transient: true,
		Original:  err,
	}
}

// NewPermanentError создаёт постоянную ошибку биржи (retry бесполезен)
func NewPermanentError(venueName, op string, err error) *Error {
	return &Error{
		Venue:     venueName,
		Op:        op,
		Message:   errMessage(err),
		Transient: false,
		Original:  err,
	}
}

// IsTransient проверяет, является ли ошибка временной
func IsTransient(err error) bool {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Transient
	}
	return false
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
