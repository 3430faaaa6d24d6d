//go:build integration

// Package integration содержит интеграционные тесты бота.
//
// Проверяется взаимодействие компонентов:
// - API: полный цикл HTTP запроса через router и middleware
// - WebSocket: подключение, broadcast сообщения
// - База данных: реальные запросы репозиториев к PostgreSQL
//
// Тесты отделены build tag'ом "integration":
// go test -tags=integration ./tests/integration/...
//
// Без доступной тестовой БД тесты пропускаются.
package integration

import (
	"database/sql"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"arbibot/internal/api"
	"arbibot/internal/repository"
	"arbibot/internal/websocket"
	"arbibot/pkg/utils"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
)

// TestConfig - конфигурация тестовой БД
type TestConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// TestServer собирает все компоненты для интеграционного теста
type TestServer struct {
	DB      *sql.DB
	Router  *mux.Router
	Server  *httptest.Server
	Hub     *websocket.Hub
	Repos   *TestRepositories
	Cleanup func()
}

// TestRepositories - репозитории поверх тестовой БД
type TestRepositories struct {
	Trade        *repository.TradeRepository
	Notification *repository.NotificationRepository
	Stats        *repository.StatsRepository
}

func getTestConfig() TestConfig {
	return TestConfig{
		DBHost:     getEnv("TEST_DB_HOST", "localhost"),
		DBPort:     getEnv("TEST_DB_PORT", "5432"),
		DBName:     getEnv("TEST_DB_NAME", "arbibot_test"),
		DBUser:     getEnv("TEST_DB_USER", "postgres"),
		DBPassword: getEnv("TEST_DB_PASSWORD", "postgres"),
		DBSSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SetupTestDB открывает соединение с тестовой БД.
// Пропускает тест, если БД недоступна
func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	config := getTestConfig()

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName, config.DBSSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Skipf("интеграционный тест пропущен: нет соединения с БД: %v", err)
		return nil, func() {}
	}

	if err := db.Ping(); err != nil {
		t.Skipf("интеграционный тест пропущен: БД не отвечает: %v", err)
		return nil, func() {}
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, func() { db.Close() }
}

// SetupTestServer собирает полный тестовый сервер: БД, репозитории,
// WebSocket hub и HTTP router
func SetupTestServer(t *testing.T) *TestServer {
	db, dbCleanup := SetupTestDB(t)
	if db == nil {
		return nil
	}

	if err := initTestTables(db); err != nil {
		t.Skipf("интеграционный тест пропущен: не удалось создать таблицы: %v", err)
		return nil
	}

	log := utils.InitLogger(utils.LogConfig{Level: "error", Format: "text"})

	hub := websocket.NewHub(log)
	go hub.Run()

	repos := &TestRepositories{
		Trade:        repository.NewTradeRepository(db),
		Notification: repository.NewNotificationRepository(db),
		Stats:        repository.NewStatsRepository(db),
	}

	router := api.SetupRoutes(&api.Dependencies{
		TradeRepo:        repos.Trade,
		NotificationRepo: repos.Notification,
		StatsRepo:        repos.Stats,
		Hub:              hub,
		Log:              log,
	})

	server := httptest.NewServer(router)

	cleanup := func() {
		server.Close()
		hub.Stop()
		cleanupTestTables(db)
		dbCleanup()
	}

	return &TestServer{
		DB:      db,
		Router:  router,
		Server:  server,
		Hub:     hub,
		Repos:   repos,
		Cleanup: cleanup,
	}
}

// initTestTables создает таблицы тестовой схемы
func initTestTables(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id VARCHAR(64) PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			buy_venue VARCHAR(50) NOT NULL,
			sell_venue VARCHAR(50) NOT NULL,
			buy_price DECIMAL(20, 8) NOT NULL,
			sell_price DECIMAL(20, 8) NOT NULL,
			quantity DECIMAL(20, 8) NOT NULL,
			fees DECIMAL(20, 8) NOT NULL DEFAULT 0,
			profit_usd DECIMAL(20, 8) NOT NULL DEFAULT 0,
			score DECIMAL(10, 2) NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL,
			fail_reason TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id SERIAL PRIMARY KEY,
			timestamp TIMESTAMP DEFAULT NOW(),
			type VARCHAR(50) NOT NULL,
			severity VARCHAR(10) DEFAULT 'info',
			component VARCHAR(50) DEFAULT '',
			message TEXT NOT NULL,
			meta JSONB
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// cleanupTestTables очищает таблицы после теста
func cleanupTestTables(db *sql.DB) {
	for _, table := range []string{"trades", "notifications"} {
		db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
	}
}
