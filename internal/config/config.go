package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"arbibot/pkg/utils"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Security    SecurityConfig
	Trading     TradingConfig
	Risk        RiskConfig
	Performance PerformanceConfig
	Scoring     ScoringConfig
	Venues      []VenueConfig
	Logging     LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	APIToken      string // токен для доступа к management API
	EncryptionKey string // AES-256 ключ для шифрования биржевых credentials
}

// TradingConfig - торговые параметры
type TradingConfig struct {
	Symbols []string // торгуемые символы (BTC/USDT, ETH/USDT)

	MinProfitThreshold  float64 // минимальный профит в долях (0.001 = 0.1%)
	MaxTradeNotionalUSD float64 // максимальный размер сделки в USD
	MinTradeUSD         float64 // минимальный размер сделки в USD
	MaxDailyTrades      int     // лимит сделок в сутки

	OrderTimeout      time.Duration // таймаут ожидания исполнения ордеров
	OrderPollInterval time.Duration // интервал опроса статуса ордеров

	// Оценка проскальзывания перед сделкой:
	// если суммарное ожидаемое проскальзывание превышает
	// SlippageBudgetFraction × ожидаемый профит - сделка отклоняется
	SlippageBudgetFraction float64

	// Адаптивное ценообразование для высоко-скоровых возможностей:
	// при score > AdaptiveScoreThreshold цена покупки поднимается,
	// цена продажи опускается на AdaptiveAggressiveness
	AdaptiveScoreThreshold float64
	AdaptiveAggressiveness float64

	DryRun bool // симуляция: ордера исполняются на sim-бирже
}

// RiskConfig - лимиты риск-менеджмента
type RiskConfig struct {
	MaxDailyLossUSD       float64       // суточный лимит убытка
	MaxSingleTradeLossUSD float64       // лимит убытка одной сделки
	MaxOpenPositions      int           // максимум одновременных сделок
	MaxConsecutiveLosses  int           // подряд убыточных сделок до стопа
	BreakerCooldown       time.Duration // cooldown гранулярного circuit breaker

	PriceAnomalyThreshold float64 // порог аномального расхождения цен в долях
	SafetyMargin          float64 // множитель запаса над MinProfitThreshold
	BaseTradeUSD          float64 // базовый размер сделки для динамического сайзинга

	RestrictedSymbols []string // символы, исключённые из торговли
	RestrictedVenues  []string // биржи, исключённые из торговли
}

// PerformanceConfig - интервалы циклов и параметры кэша
type PerformanceConfig struct {
	PriceUpdateInterval time.Duration // период опроса тикеров по биржам
	ScanInterval        time.Duration // период сканирования возможностей
	MainLoopInterval    time.Duration // период диспетчеризации контроллера
	OrderBookDepth      int           // глубина запрашиваемого стакана
	StalenessThreshold  time.Duration // максимальный возраст тикера (0 = без проверки)
	VolatilityWindow    time.Duration // окно расчёта волатильности
	DispatchRate        float64       // лимит запусков сделок в секунду
}

// ScoringConfig - веса композитного скоринга возможностей (сумма = 1.0)
type ScoringConfig struct {
	ProfitWeight            float64
	LiquidityWeight         float64
	VolatilityWeight        float64
	HistoricalSuccessWeight float64

	ProfitRefPct    float64 // профит (%), дающий 100 баллов по профиту
	LiquidityRefUSD float64 // ликвидность (USD), дающая 100 баллов
}

// VenueConfig - настройки одной биржи
type VenueConfig struct {
	Name      string
	Fee       float64 // комиссия тейкера в долях
	RateLimit float64 // запросов в секунду
	Burst     float64
	APIKey    string // зашифрованный AES-256-GCM (base64)
	APISecret string // зашифрованный AES-256-GCM (base64)
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "arbibot"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			APIToken:      getEnv("API_TOKEN", ""),
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		},
		Trading: TradingConfig{
			Symbols: getEnvAsSlice("SYMBOLS", []string{"BTC/USDT", "ETH/USDT"}),

			MinProfitThreshold:  getEnvAsFloat("MIN_PROFIT_THRESHOLD", 0.001),
			MaxTradeNotionalUSD: getEnvAsFloat("MAX_TRADE_NOTIONAL_USD", 100.0),
			MinTradeUSD:         getEnvAsFloat("MIN_TRADE_USD", 10.0),
			MaxDailyTrades:      getEnvAsInt("MAX_DAILY_TRADES", 1000),

			OrderTimeout:      getEnvAsDuration("ORDER_TIMEOUT", 10*time.Second),
			OrderPollInterval: getEnvAsDuration("ORDER_POLL_INTERVAL", 100*time.Millisecond),

			SlippageBudgetFraction: getEnvAsFloat("SLIPPAGE_BUDGET_FRACTION", 0.5),

			AdaptiveScoreThreshold: getEnvAsFloat("ADAPTIVE_SCORE_THRESHOLD", 70.0),
			AdaptiveAggressiveness: getEnvAsFloat("ADAPTIVE_AGGRESSIVENESS", 0.0005),

			DryRun: getEnvAsBool("DRY_RUN", true),
		},
		Risk: RiskConfig{
			MaxDailyLossUSD:       getEnvAsFloat("MAX_DAILY_LOSS_USD", 500.0),
			MaxSingleTradeLossUSD: getEnvAsFloat("MAX_SINGLE_TRADE_LOSS_USD", 50.0),
			MaxOpenPositions:      getEnvAsInt("MAX_OPEN_POSITIONS", 5),
			MaxConsecutiveLosses:  getEnvAsInt("MAX_CONSECUTIVE_LOSSES", 3),
			BreakerCooldown:       getEnvAsDuration("BREAKER_COOLDOWN", 10*time.Minute),

			PriceAnomalyThreshold: getEnvAsFloat("PRICE_ANOMALY_THRESHOLD", 0.05),
			SafetyMargin:          getEnvAsFloat("SAFETY_MARGIN", 1.5),
			BaseTradeUSD:          getEnvAsFloat("BASE_TRADE_USD", 100.0),

			RestrictedSymbols: getEnvAsSlice("RESTRICTED_SYMBOLS", nil),
			RestrictedVenues:  getEnvAsSlice("RESTRICTED_VENUES", nil),
		},
		Performance: PerformanceConfig{
			PriceUpdateInterval: getEnvAsDuration("PRICE_UPDATE_INTERVAL", 100*time.Millisecond),
			ScanInterval:        getEnvAsDuration("SCAN_INTERVAL", 50*time.Millisecond),
			MainLoopInterval:    getEnvAsDuration("MAIN_LOOP_INTERVAL", 1*time.Second),
			OrderBookDepth:      getEnvAsInt("ORDER_BOOK_DEPTH", 20),
			StalenessThreshold:  getEnvAsDuration("STALENESS_THRESHOLD", 5*time.Second),
			VolatilityWindow:    getEnvAsDuration("VOLATILITY_WINDOW", 5*time.Minute),
			DispatchRate:        getEnvAsFloat("DISPATCH_RATE", 2.0),
		},
		Scoring: ScoringConfig{
			ProfitWeight:            getEnvAsFloat("SCORE_PROFIT_WEIGHT", 0.4),
			LiquidityWeight:         getEnvAsFloat("SCORE_LIQUIDITY_WEIGHT", 0.3),
			VolatilityWeight:        getEnvAsFloat("SCORE_VOLATILITY_WEIGHT", 0.2),
			HistoricalSuccessWeight: getEnvAsFloat("SCORE_SUCCESS_WEIGHT", 0.1),

			ProfitRefPct:    getEnvAsFloat("SCORE_PROFIT_REF_PCT", 1.0),
			LiquidityRefUSD: getEnvAsFloat("SCORE_LIQUIDITY_REF_USD", 10000.0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", ""),
		},
	}

	cfg.Venues = loadVenues()

	// Валидация критичных параметров безопасности
	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	// Валидация числовых диапазонов
	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadVenues читает список бирж из VENUES и их настройки
// из VENUE_<NAME>_* переменных
func loadVenues() []VenueConfig {
	names := getEnvAsSlice("VENUES", []string{"binance", "kraken"})

	venues := make([]VenueConfig, 0, len(names))
	for _, name := range names {
		normalized := utils.NormalizeVenue(name)
		prefix := "VENUE_" + strings.ToUpper(normalized)

		venues = append(venues, VenueConfig{
			Name:      normalized,
			Fee:       getEnvAsFloat(prefix+"_FEE", 0.001),
			RateLimit: getEnvAsFloat(prefix+"_RATE_LIMIT", 10),
			Burst:     getEnvAsFloat(prefix+"_BURST", 20),
			APIKey:    getEnv(prefix+"_API_KEY", ""),
			APISecret: getEnv(prefix+"_API_SECRET", ""),
		})
	}
	return venues
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	// ENCRYPTION_KEY обязателен для шифрования API ключей бирж.
	// В dry-run режиме credentials не нужны, ключ можно не задавать.
	if !c.Trading.DryRun {
		if c.Security.EncryptionKey == "" {
			return fmt.Errorf("ENCRYPTION_KEY is required for encrypting venue API keys")
		}
		if len(c.Security.EncryptionKey) != 32 {
			return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
		}
	}

	// API_TOKEN защищает management endpoints (enable/disable, сброс breaker'а)
	if c.Security.APIToken != "" && len(c.Security.APIToken) < 16 {
		return fmt.Errorf("API_TOKEN must be at least 16 characters")
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	// Валидация портов
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	// Торговые параметры
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("SYMBOLS must not be empty")
	}
	for _, s := range c.Trading.Symbols {
		if err := utils.ValidateSymbol(s); err != nil {
			return fmt.Errorf("SYMBOLS: %w", err)
		}
	}

	if c.Trading.MinProfitThreshold <= 0 {
		return fmt.Errorf("MIN_PROFIT_THRESHOLD must be positive, got %v", c.Trading.MinProfitThreshold)
	}

	if c.Trading.MinTradeUSD <= 0 {
		return fmt.Errorf("MIN_TRADE_USD must be positive, got %v", c.Trading.MinTradeUSD)
	}

	if c.Trading.MaxTradeNotionalUSD < c.Trading.MinTradeUSD {
		return fmt.Errorf("MAX_TRADE_NOTIONAL_USD (%v) must be >= MIN_TRADE_USD (%v)",
			c.Trading.MaxTradeNotionalUSD, c.Trading.MinTradeUSD)
	}

	if c.Trading.OrderTimeout <= 0 {
		return fmt.Errorf("ORDER_TIMEOUT must be positive, got %v", c.Trading.OrderTimeout)
	}

	if c.Trading.SlippageBudgetFraction <= 0 || c.Trading.SlippageBudgetFraction > 1 {
		return fmt.Errorf("SLIPPAGE_BUDGET_FRACTION must be in (0, 1], got %v", c.Trading.SlippageBudgetFraction)
	}

	// Риск-лимиты
	if c.Risk.MaxDailyLossUSD <= 0 {
		return fmt.Errorf("MAX_DAILY_LOSS_USD must be positive, got %v", c.Risk.MaxDailyLossUSD)
	}

	if c.Risk.MaxOpenPositions < 1 {
		return fmt.Errorf("MAX_OPEN_POSITIONS must be at least 1, got %d", c.Risk.MaxOpenPositions)
	}

	if c.Risk.MaxConsecutiveLosses < 1 {
		return fmt.Errorf("MAX_CONSECUTIVE_LOSSES must be at least 1, got %d", c.Risk.MaxConsecutiveLosses)
	}

	if c.Risk.SafetyMargin < 1 {
		return fmt.Errorf("SAFETY_MARGIN must be >= 1, got %v", c.Risk.SafetyMargin)
	}

	// Интервалы циклов
	if c.Performance.ScanInterval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL must be positive, got %v", c.Performance.ScanInterval)
	}

	if c.Performance.MainLoopInterval <= 0 {
		return fmt.Errorf("MAIN_LOOP_INTERVAL must be positive, got %v", c.Performance.MainLoopInterval)
	}

	if c.Performance.OrderBookDepth < 1 {
		return fmt.Errorf("ORDER_BOOK_DEPTH must be at least 1, got %d", c.Performance.OrderBookDepth)
	}

	if c.Performance.StalenessThreshold < 0 {
		return fmt.Errorf("STALENESS_THRESHOLD cannot be negative, got %v", c.Performance.StalenessThreshold)
	}

	// Веса скоринга обязаны суммироваться в 1.0
	weightSum := c.Scoring.ProfitWeight + c.Scoring.LiquidityWeight +
		c.Scoring.VolatilityWeight + c.Scoring.HistoricalSuccessWeight
	if weightSum < 0.999 || weightSum > 1.001 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %v", weightSum)
	}

	// Биржи
	if len(c.Venues) < 2 {
		return fmt.Errorf("at least 2 venues are required for arbitrage, got %d", len(c.Venues))
	}
	for _, v := range c.Venues {
		if err := utils.ValidateVenue(v.Name); err != nil {
			return fmt.Errorf("VENUES: %w", err)
		}
		if v.Fee < 0 || v.Fee > 0.1 {
			return fmt.Errorf("venue %s: fee must be in [0, 0.1], got %v", v.Name, v.Fee)
		}
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
