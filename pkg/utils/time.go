package utils

import (
	"time"
)

// time.go - утилиты для работы со временем
//
// Назначение:
// Вспомогательные функции для временных операций, используемые
// для агрегации статистики по периодам и суточных лимитов безопасности.
//
// Функции:
// - GetDayStart: начало текущего дня (00:00:00)
// - GetWeekStart: начало текущей недели (понедельник 00:00:00)
// - GetMonthStart: начало текущего месяца (1-е число 00:00:00)
// - IsSameDay: проверка смены суток (сброс дневных счётчиков)
// - UnixMillis / FromUnixMillis: метки времени тикеров

// ============================================================
// Границы периодов
// ============================================================

// GetDayStart возвращает начало текущего дня (00:00:00) в UTC
//
// Пример:
//
//	// Сейчас: 2024-01-15 14:30:45 UTC
//	start := GetDayStart()
//	// start: 2024-01-15 00:00:00 UTC
func GetDayStart() time.Time {
	return GetDayStartFrom(time.Now().UTC())
}

// GetDayStartFrom возвращает начало дня для указанного времени в UTC
func GetDayStartFrom(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// GetWeekStart возвращает начало текущей недели (понедельник 00:00:00) в UTC
//
// Неделя начинается с понедельника (ISO 8601)
func GetWeekStart() time.Time {
	return GetWeekStartFrom(time.Now().UTC())
}

// GetWeekStartFrom возвращает начало недели для указанного времени
func GetWeekStartFrom(t time.Time) time.Time {
	t = t.UTC()

	// Получаем день недели (0=Sunday, 1=Monday, ..., 6=Saturday)
	weekday := int(t.Weekday())

	// Преобразуем к ISO 8601 (1=Monday, ..., 7=Sunday)
	if weekday == 0 {
		weekday = 7
	}

	// Возвращаем начало понедельника
	monday := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

// GetMonthStart возвращает начало текущего месяца (1-е число 00:00:00) в UTC
func GetMonthStart() time.Time {
	return GetMonthStartFrom(time.Now().UTC())
}

// GetMonthStartFrom возвращает начало месяца для указанного времени
func GetMonthStartFrom(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// IsSameDay проверяет, относятся ли два момента к одним суткам UTC.
//
// Используется для сброса суточных счётчиков (P&L, количество сделок):
// счётчики обнуляются при первом обращении в новых сутках.
func IsSameDay(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// ============================================================
// Периоды статистики
// ============================================================

// PeriodType тип периода для статистики
type PeriodType string

const (
	PeriodDay   PeriodType = "day"
	PeriodWeek  PeriodType = "week"
	PeriodMonth PeriodType = "month"
	PeriodAll   PeriodType = "all"
)

// GetPeriodStart возвращает начало периода указанного типа
func GetPeriodStart(period PeriodType) time.Time {
	switch period {
	case PeriodDay:
		return GetDayStart()
	case PeriodWeek:
		return GetWeekStart()
	case PeriodMonth:
		return GetMonthStart()
	case PeriodAll:
		return time.Time{} // zero time
	default:
		return GetDayStart()
	}
}

// ============================================================
// Утилиты для timestamp
// ============================================================

// UnixMillis возвращает текущее время в миллисекундах Unix
func UnixMillis() int64 {
	return time.Now().UnixMilli()
}

// FromUnixMillis конвертирует миллисекунды Unix в time.Time
func FromUnixMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ============================================================
// Форматирование
// ============================================================

// FormatDuration форматирует продолжительность в человекочитаемый формат
//
// Примеры:
//   - "45s"
//   - "5m30s"
//   - "2h15m"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		if minutes > 0 {
			return (time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute).String()
		}
		return (time.Duration(hours) * time.Hour).String()
	}

	if minutes > 0 {
		if seconds > 0 {
			return (time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second).String()
		}
		return (time.Duration(minutes) * time.Minute).String()
	}

	return (time.Duration(seconds) * time.Second).String()
}
