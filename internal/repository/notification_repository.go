package repository

import (
	"database/sql"
	"time"

	jsoniter "github.com/json-iterator/go"

	"arbibot/internal/models"
)

var notificationJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// NotificationRepository - работа с таблицей notifications
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create сохраняет уведомление. Meta сериализуется в JSON,
// присвоенный базой ID записывается обратно в структуру.
func (r *NotificationRepository) Create(n *models.Notification) error {
	query := `
		INSERT INTO notifications (timestamp, type, severity, component, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	meta, err := marshalMeta(n.Meta)
	if err != nil {
		return err
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	return r.db.QueryRow(
		query,
		n.Timestamp,
		n.Type,
		n.Severity,
		n.Component,
		n.Message,
		meta,
	).Scan(&n.ID)
}

// GetRecent возвращает последние limit уведомлений, новые первыми
func (r *NotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, component, message, meta
		FROM notifications
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// GetByType возвращает последние уведомления заданного типа
func (r *NotificationRepository) GetByType(ntype string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, component, message, meta
		FROM notifications
		WHERE type = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Query(query, ntype, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// GetBySeverity возвращает последние уведомления с важностью не ниже заданной
func (r *NotificationRepository) GetBySeverity(severity string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, component, message, meta
		FROM notifications
		WHERE severity = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Query(query, severity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// DeleteOlderThan удаляет уведомления старше указанного времени.
// Возвращает количество удаленных записей.
func (r *NotificationRepository) DeleteOlderThan(before time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE timestamp < $1`

	result, err := r.db.Exec(query, before)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// DeleteAll очищает журнал уведомлений
func (r *NotificationRepository) DeleteAll() error {
	query := `DELETE FROM notifications`

	_, err := r.db.Exec(query)
	return err
}

// Count возвращает общее количество уведомлений
func (r *NotificationRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM notifications`

	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// marshalMeta сериализует дополнительные данные уведомления.
// Пустая map превращается в NULL, а не в "{}".
func marshalMeta(meta map[string]interface{}) (interface{}, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	data, err := notificationJSON.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// scanNotifications читает все строки результата
func scanNotifications(rows *sql.Rows) ([]*models.Notification, error) {
	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var meta []byte
		err := rows.Scan(&n.ID, &n.Timestamp, &n.Type, &n.Severity, &n.Component, &n.Message, &meta)
		if err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := notificationJSON.Unmarshal(meta, &n.Meta); err != nil {
				return nil, err
			}
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}
