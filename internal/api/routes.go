package api

import (
	"net/http"
	"net/http/pprof"

	"arbibot/internal/api/handlers"
	"arbibot/internal/api/middleware"
	"arbibot/internal/engine"
	"arbibot/internal/repository"
	"arbibot/internal/websocket"
	"arbibot/pkg/utils"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	Controller       *engine.Controller
	TradeRepo        *repository.TradeRepository
	NotificationRepo *repository.NotificationRepository
	StatsRepo        *repository.StatsRepository
	Hub              *websocket.Hub

	// APIToken защищает управляющие endpoints.
	// Пустой токен отключает аутентификацию (локальное развертывание)
	APIToken string

	Log *utils.Logger
}

// SetupRoutes настраивает все HTTP маршруты приложения.
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── GET  /status - снимок состояния движка
//	├── /trading/
//	│   ├── POST /enable - включить торговлю
//	│   └── POST /disable - выключить торговлю
//	├── /safety/
//	│   ├── GET  / - состояние предохранителей
//	│   ├── POST /breaker/reset - сброс circuit breaker
//	│   ├── POST /restrictions - добавить ограничение
//	│   └── DELETE /restrictions - снять ограничение
//	├── GET /opportunities - текущий буфер возможностей
//	├── /trades/
//	│   ├── GET / - история сделок
//	│   ├── GET /active - сделки в работе
//	│   └── GET /{id} - сделка по ID
//	├── GET /stats - агрегированная статистика
//	└── /notifications/
//	    ├── GET    / - журнал уведомлений
//	    └── DELETE / - очистить журнал
//
// /ws/stream - WebSocket для real-time обновлений
// /metrics  - Prometheus метрики
// /health   - health check
// /debug/pprof/* - профилирование (за DebugAuth)
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. Auth (только для /api/v1)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	log := deps.Log
	if log == nil {
		log = utils.InitLogger(utils.LogConfig{Level: "info", Format: "text"})
	}

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logging(log))
	router.Use(middleware.CORS)

	// Создание handlers с внедрением зависимостей
	var engineHandler *handlers.EngineHandler
	var safetyHandler *handlers.SafetyHandler
	var tradeHandler *handlers.TradeHandler
	if deps.Controller != nil {
		engineHandler = handlers.NewEngineHandler(deps.Controller, deps.Controller.Scanner())
		safetyHandler = handlers.NewSafetyHandler(deps.Controller.Gate())
		tradeHandler = handlers.NewTradeHandler(deps.TradeRepo, deps.Controller.Executor())
	} else if deps.TradeRepo != nil {
		tradeHandler = handlers.NewTradeHandler(deps.TradeRepo, nil)
	}

	var statsHandler *handlers.StatsHandler
	if deps.StatsRepo != nil {
		statsHandler = handlers.NewStatsHandler(deps.StatsRepo)
	}

	var notificationHandler *handlers.NotificationHandler
	if deps.NotificationRepo != nil {
		notificationHandler = handlers.NewNotificationHandler(deps.NotificationRepo)
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Auth(deps.APIToken))

	if engineHandler != nil {
		api.HandleFunc("/status", engineHandler.GetStatus).Methods("GET")
		api.HandleFunc("/trading/enable", engineHandler.EnableTrading).Methods("POST")
		api.HandleFunc("/trading/disable", engineHandler.DisableTrading).Methods("POST")
		api.HandleFunc("/opportunities", engineHandler.GetOpportunities).Methods("GET")
	}

	if safetyHandler != nil {
		api.HandleFunc("/safety", safetyHandler.GetSafety).Methods("GET")
		api.HandleFunc("/safety/breaker/reset", safetyHandler.ResetBreaker).Methods("POST")
		api.HandleFunc("/safety/restrictions", safetyHandler.AddRestriction).Methods("POST")
		api.HandleFunc("/safety/restrictions", safetyHandler.RemoveRestriction).Methods("DELETE")
	}

	if tradeHandler != nil {
		api.HandleFunc("/trades", tradeHandler.GetTrades).Methods("GET")
		api.HandleFunc("/trades/active", tradeHandler.GetActiveTrades).Methods("GET")
		api.HandleFunc("/trades/{id}", tradeHandler.GetTrade).Methods("GET")
	}

	if statsHandler != nil {
		api.HandleFunc("/stats", statsHandler.GetStats).Methods("GET")
	}

	if notificationHandler != nil {
		api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
		api.HandleFunc("/notifications", notificationHandler.ClearNotifications).Methods("DELETE")
	}

	// WebSocket route
	if deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Профилирование за Basic Auth
	debug := router.PathPrefix("/debug/pprof").Subrouter()
	debug.Use(middleware.DebugAuth)
	debug.HandleFunc("/", pprof.Index)
	debug.HandleFunc("/cmdline", pprof.Cmdline)
	debug.HandleFunc("/profile", pprof.Profile)
	debug.HandleFunc("/symbol", pprof.Symbol)
	debug.HandleFunc("/trace", pprof.Trace)
	debug.PathPrefix("/").Handler(http.HandlerFunc(pprof.Index))

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
