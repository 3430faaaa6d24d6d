package utils

// validator.go - валидация данных
//
// Назначение:
// Проверка корректности входных данных перед использованием
// в торговой логике и конфигурации.
//
// Функции:
// - ValidateSymbol: проверка формата символа (BTC/USDT)
// - NormalizeSymbol: приведение символа к каноническому виду
// - ExtractBaseCurrency / ExtractQuoteCurrency: разбор символа
// - ValidateVenue: проверка имени биржи
// - ValidateVolume: проверка объема (> 0)
// - ValidateAPIKey / ValidateAPISecret: базовая проверка ключей
//
// Все валидаторы возвращают error с описанием проблемы или nil.

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки валидации
var (
	ErrInvalidSymbol    = errors.New("invalid symbol format")
	ErrInvalidVenue     = errors.New("unsupported venue")
	ErrInvalidVolume    = errors.New("invalid volume")
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrInvalidAPISecret = errors.New("invalid API secret")
)

// SupportedVenues список бирж, для которых есть адаптеры
var SupportedVenues = []string{"binance", "kraken", "coinbase", "okx", "bybit", "sim"}

// Известные котировочные валюты (проверяются от длинных к коротким)
var knownQuotes = []string{"USDT", "USDC", "BUSD", "USD", "BTC", "ETH"}

// ============================================================
// Символы
// ============================================================

// ValidateSymbol проверяет формат торгового символа.
//
// Допустимы буквы, цифры и разделители -, _, /.
// Длина после нормализации: от 2 до 20 символов.
func ValidateSymbol(symbol string) error {
	normalized := NormalizeSymbol(symbol)
	if len(normalized) < 2 || len(normalized) > 20 {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	for _, r := range normalized {
		isLetter := r >= 'A' && r <= 'Z'
		isDigit := r >= '0' && r <= '9'
		if !isLetter && !isDigit {
			return fmt.Errorf("%w: %q contains invalid character %q", ErrInvalidSymbol, symbol, r)
		}
	}
	return nil
}

// NormalizeSymbol приводит символ к каноническому виду: BTCUSDT.
// Убирает разделители и переводит в верхний регистр.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.NewReplacer("-", "", "_", "", "/", "").Replace(s)
	return s
}

// ExtractBaseCurrency возвращает базовую валюту символа (BTC из BTC/USDT).
//
// Если в символе есть разделитель - используется он,
// иначе котировочная валюта определяется по известному списку.
func ExtractBaseCurrency(symbol string) string {
	base, _ := splitSymbol(symbol)
	return base
}

// ExtractQuoteCurrency возвращает котировочную валюту символа (USDT из BTC/USDT).
func ExtractQuoteCurrency(symbol string) string {
	_, quote := splitSymbol(symbol)
	return quote
}

func splitSymbol(symbol string) (base, quote string) {
	s := strings.ToUpper(strings.TrimSpace(symbol))

	// Разделитель присутствует - разбор тривиален
	for _, sep := range []string{"/", "-", "_"} {
		if idx := strings.Index(s, sep); idx > 0 {
			return s[:idx], s[idx+len(sep):]
		}
	}

	// Ищем известную котировочную валюту в конце
	for _, q := range knownQuotes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return s[:len(s)-len(q)], q
		}
	}
	return s, ""
}

// ============================================================
// Биржи
// ============================================================

// ValidateVenue проверяет, что биржа поддерживается
func ValidateVenue(venue string) error {
	normalized := NormalizeVenue(venue)
	for _, v := range SupportedVenues {
		if normalized == v {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidVenue, venue)
}

// NormalizeVenue приводит имя биржи к каноническому виду
func NormalizeVenue(venue string) string {
	return strings.ToLower(strings.TrimSpace(venue))
}

// GetSupportedVenues возвращает копию списка поддерживаемых бирж
func GetSupportedVenues() []string {
	result := make([]string, len(SupportedVenues))
	copy(result, SupportedVenues)
	return result
}

// ============================================================
// Числовые параметры
// ============================================================

// ValidateVolume проверяет объём: строго положительный и в разумных пределах
func ValidateVolume(volume float64) error {
	if volume <= 0 {
		return fmt.Errorf("%w: must be positive, got %v", ErrInvalidVolume, volume)
	}
	if volume > 1e9 {
		return fmt.Errorf("%w: too large, got %v", ErrInvalidVolume, volume)
	}
	return nil
}

// ValidatePercentage проверяет процентное значение в диапазоне [0, 100]
func ValidatePercentage(pct float64) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("percentage out of range [0, 100]: %v", pct)
	}
	return nil
}

// ============================================================
// API credentials
// ============================================================

// ValidateAPIKey базовая проверка API ключа биржи.
// Минимум 16 символов, только буквы, цифры, дефисы и подчёркивания.
func ValidateAPIKey(apiKey string) error {
	if len(apiKey) < 16 {
		return fmt.Errorf("%w: too short", ErrInvalidAPIKey)
	}
	for _, r := range apiKey {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum && r != '-' && r != '_' {
			return fmt.Errorf("%w: contains invalid character", ErrInvalidAPIKey)
		}
	}
	return nil
}

// ValidateAPISecret базовая проверка API секрета.
// Минимум 16 символов, спецсимволы допустимы.
func ValidateAPISecret(secret string) error {
	if len(secret) < 16 {
		return fmt.Errorf("%w: too short", ErrInvalidAPISecret)
	}
	return nil
}

// ============================================================
// Is* helpers
// ============================================================

// IsValidSymbol bool-вариант ValidateSymbol
func IsValidSymbol(symbol string) bool {
	return ValidateSymbol(symbol) == nil
}

// IsValidVenue bool-вариант ValidateVenue
func IsValidVenue(venue string) bool {
	return ValidateVenue(venue) == nil
}

// IsValidAPIKey bool-вариант ValidateAPIKey
func IsValidAPIKey(apiKey string) bool {
	return ValidateAPIKey(apiKey) == nil
}

// ============================================================
// Аккумулятор ошибок валидации
// ============================================================

// ValidationError одна ошибка валидации с привязкой к полю
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors набор ошибок валидации
type ValidationErrors []ValidationError

// Add добавляет ошибку по полю
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// AddError добавляет ошибку если err != nil
func (e *ValidationErrors) AddError(field string, err error) {
	if err == nil {
		return
	}
	e.Add(field, err.Error())
}

// HasErrors проверяет наличие ошибок
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Error реализация интерфейса error
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	parts := make([]string, 0, len(e))
	for _, v := range e {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return strings.Join(parts, "; ")
}
