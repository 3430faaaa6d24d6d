package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"arbibot/internal/models"
)

// ============================================================
// NotificationRepository Tests
// ============================================================

var notificationRows = []string{"id", "timestamp", "type", "severity", "component", "message", "meta"}

func TestNewNotificationRepository(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	repo := NewNotificationRepository(db)
	if repo == nil {
		t.Fatal("NewNotificationRepository returned nil")
	}
	if repo.db != db {
		t.Error("db not set correctly")
	}
}

func TestNotificationRepositoryCreate(t *testing.T) {
	tests := []struct {
		name      string
		n         *models.Notification
		mockSetup func(mock sqlmock.Sqlmock)
		expectErr bool
	}{
		{
			name: "success with meta",
			n: &models.Notification{
				Type:      models.NotificationTypeTradeCompleted,
				Severity:  models.SeverityInfo,
				Component: "executor",
				Message:   "BTC/USDT binance→kraken: COMPLETED, P&L 0.99 USD",
				Meta:      map[string]interface{}{"profit_usd": 0.99},
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO notifications`).
					WithArgs(
						sqlmock.AnyArg(), models.NotificationTypeTradeCompleted, models.SeverityInfo,
						"executor", sqlmock.AnyArg(), sqlmock.AnyArg(),
					).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
			},
			expectErr: false,
		},
		{
			name: "empty meta stored as NULL",
			n: &models.Notification{
				Type:      models.NotificationTypeBreaker,
				Severity:  models.SeverityCritical,
				Component: "safety",
				Message:   "Торговля остановлена",
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO notifications`).
					WithArgs(
						sqlmock.AnyArg(), models.NotificationTypeBreaker, models.SeverityCritical,
						"safety", sqlmock.AnyArg(), nil,
					).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
			},
			expectErr: false,
		},
		{
			name: "database error",
			n: &models.Notification{
				Type:     models.NotificationTypeError,
				Severity: models.SeverityError,
				Message:  "scanner error",
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO notifications`).
					WillReturnError(errors.New("connection refused"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			tt.mockSetup(mock)

			repo := NewNotificationRepository(db)
			err = repo.Create(tt.n)

			if tt.expectErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if tt.n.ID == 0 {
					t.Error("ID not assigned after create")
				}
				if tt.n.Timestamp.IsZero() {
					t.Error("Timestamp not assigned after create")
				}
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestNotificationRepositoryGetRecent(t *testing.T) {
	now := time.Now()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows(notificationRows).
		AddRow(2, now, "TRADE_COMPLETED", "info", "executor", "trade done", []byte(`{"profit_usd":0.99}`)).
		AddRow(1, now.Add(-time.Minute), "BREAKER", "critical", "safety", "trading halted", nil)
	mock.ExpectQuery(`SELECT .+ FROM notifications ORDER BY timestamp DESC LIMIT \$1`).
		WithArgs(50).
		WillReturnRows(rows)

	repo := NewNotificationRepository(db)
	result, err := repo.GetRecent(50)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(result))
	}
	if result[0].Meta["profit_usd"] != 0.99 {
		t.Errorf("meta not deserialized: %v", result[0].Meta)
	}
	if result[1].Meta != nil {
		t.Errorf("expected nil meta for NULL column, got %v", result[1].Meta)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestNotificationRepositoryGetByType(t *testing.T) {
	now := time.Now()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows(notificationRows).
		AddRow(1, now, "TRADE_FAILED", "error", "executor", "leg failed", nil)
	mock.ExpectQuery(`SELECT .+ FROM notifications WHERE type = \$1 ORDER BY timestamp DESC LIMIT \$2`).
		WithArgs("TRADE_FAILED", 10).
		WillReturnRows(rows)

	repo := NewNotificationRepository(db)
	result, err := repo.GetByType("TRADE_FAILED", 10)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(result))
	}
	if result[0].Type != "TRADE_FAILED" {
		t.Errorf("expected Type=TRADE_FAILED, got %s", result[0].Type)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestNotificationRepositoryGetBySeverity(t *testing.T) {
	now := time.Now()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows(notificationRows).
		AddRow(1, now, "BREAKER", "critical", "safety", "trading halted", nil)
	mock.ExpectQuery(`SELECT .+ FROM notifications WHERE severity = \$1 ORDER BY timestamp DESC LIMIT \$2`).
		WithArgs(models.SeverityCritical, 10).
		WillReturnRows(rows)

	repo := NewNotificationRepository(db)
	result, err := repo.GetBySeverity(models.SeverityCritical, 10)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(result))
	}
	if result[0].Severity != models.SeverityCritical {
		t.Errorf("expected Severity=critical, got %s", result[0].Severity)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestNotificationRepositoryDeleteOlderThan(t *testing.T) {
	threshold := time.Now().AddDate(0, 0, -7)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM notifications WHERE timestamp < \$1`).
		WithArgs(threshold).
		WillReturnResult(sqlmock.NewResult(0, 15))

	repo := NewNotificationRepository(db)
	deleted, err := repo.DeleteOlderThan(threshold)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if deleted != 15 {
		t.Errorf("expected 15 deleted, got %d", deleted)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestNotificationRepositoryDeleteAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM notifications`).
		WillReturnResult(sqlmock.NewResult(0, 100))

	repo := NewNotificationRepository(db)
	if err := repo.DeleteAll(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestNotificationRepositoryCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"count"}).AddRow(150)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications`).
		WillReturnRows(rows)

	repo := NewNotificationRepository(db)
	count, err := repo.Count()

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if count != 150 {
		t.Errorf("expected count=150, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
