package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arbibot/internal/alert"
	"arbibot/internal/api"
	"arbibot/internal/config"
	"arbibot/internal/engine"
	"arbibot/internal/models"
	"arbibot/internal/repository"
	"arbibot/internal/venue"
	"arbibot/internal/websocket"
	"arbibot/pkg/utils"

	_ "github.com/lib/pq"
)

// statusBroadcastInterval - период рассылки снимков состояния
// движка подключенным WebSocket клиентам
const statusBroadcastInterval = 2 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := utils.InitLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer log.Sync()

	log.Info("запуск арбитражного бота",
		utils.Bool("dry_run", cfg.Trading.DryRun),
		utils.Any("symbols", cfg.Trading.Symbols))

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatal("ошибка подключения к базе данных", utils.Err(err))
	}
	defer db.Close()

	log.Info("база данных подключена", utils.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Репозитории
	tradeRepo := repository.NewTradeRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// WebSocket hub
	hub := websocket.NewHub(log)
	go hub.Run()
	defer hub.Stop()

	// Биржи
	venues, err := venue.Build(cfg)
	if err != nil {
		log.Fatal("ошибка инициализации бирж", utils.Err(err))
	}
	defer closeVenues(venues, log)

	// Движок
	controller := engine.NewController(cfg, venues, log)

	// Уведомления: БД + WebSocket broadcast
	dispatcher := alert.NewDispatcher(notificationRepo, hub, log)
	dispatcher.Start()
	defer dispatcher.Stop()
	controller.SetNotifier(dispatcher)

	// Завершённые сделки: БД + WebSocket broadcast
	controller.SetTradeStore(&broadcastingStore{repo: tradeRepo, hub: hub})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go controller.Run(ctx)
	go broadcastLoop(ctx, controller, hub)

	// HTTP router
	router := api.SetupRoutes(&api.Dependencies{
		Controller:       controller,
		TradeRepo:        tradeRepo,
		NotificationRepo: notificationRepo,
		StatsRepo:        statsRepo,
		Hub:              hub,
		APIToken:         cfg.Security.APIToken,
		Log:              log,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP сервер запущен", utils.String("addr", server.Addr))
		var err error
		if cfg.Server.UseHTTPS {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP сервер упал", utils.Err(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("остановка сервера")

	// Останавливаем движок: активные сделки довершаются
	controller.Disable()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("принудительная остановка HTTP сервера", utils.Err(err))
	}

	log.Info("сервер остановлен")
}

// broadcastingStore сохраняет сделку в БД и транслирует её
// WebSocket клиентам
type broadcastingStore struct {
	repo *repository.TradeRepository
	hub  *websocket.Hub
}

func (s *broadcastingStore) SaveTrade(rec *models.TradeRecord) error {
	s.hub.BroadcastTrade(rec)
	return s.repo.SaveTrade(rec)
}

// broadcastLoop периодически рассылает снимки состояния движка:
// статус, буфер возможностей, предохранители
func broadcastLoop(ctx context.Context, controller *engine.Controller, hub *websocket.Hub) {
	ticker := time.NewTicker(statusBroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if hub.ClientCount() == 0 {
				continue
			}
			status := controller.Status()
			hub.BroadcastStatus(status)
			hub.BroadcastSafety(status.Safety)
			hub.BroadcastOpportunities(controller.Scanner().Top(20))
		}
	}
}

// closeVenues закрывает соединения с биржами
func closeVenues(venues map[string]venue.Venue, log *utils.Logger) {
	for name, v := range venues {
		if err := v.Close(); err != nil {
			log.Warn("ошибка закрытия соединения с биржей",
				utils.String("venue", name), utils.Err(err))
		}
	}
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
