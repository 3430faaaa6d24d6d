package utils

// logger.go - структурированное логирование на базе zap
//
// Назначение:
// Единая точка инициализации логгера для всех компонентов бота.
//
// Возможности:
// - Форматы вывода: JSON (production) и text (development)
// - Уровни: debug, info, warn, error, fatal
// - Вывод в stdout/stderr или файл (с fallback на stderr)
// - Глобальный логгер + типизированные конструкторы полей
//   (Exchange, Symbol, Price, PNL и т.д.)

import (
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig конфигурация логгера
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal
	Format      string // json или text
	Output      string // пусто = stdout, "stderr" или путь к файлу
	Development bool   // режим разработки (stacktrace на Warn+)
}

// Logger обёртка над zap.Logger с sugar-вариантом для printf-style логирования
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

var (
	globalMu     sync.Mutex
	globalLogger *Logger
)

// ============================================================
// Инициализация
// ============================================================

// parseLevel преобразует строковый уровень в zapcore.Level.
// Неизвестные значения трактуются как info.
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// buildEncoder выбирает encoder по формату
func buildEncoder(format string, development bool) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	if strings.ToLower(format) == "text" {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

// buildSink открывает место назначения логов.
// При ошибке открытия файла возвращает stderr - логгер обязан работать всегда.
func buildSink(output string) zapcore.WriteSyncer {
	switch output {
	case "", "stdout":
		return zapcore.Lock(os.Stdout)
	case "stderr":
		return zapcore.Lock(os.Stderr)
	default:
		file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zapcore.Lock(os.Stderr)
		}
		return zapcore.AddSync(file)
	}
}

// InitLogger создаёт и настраивает логгер по конфигурации.
// Никогда не возвращает nil и не паникует.
func InitLogger(config LogConfig) *Logger {
	core := zapcore.NewCore(
		buildEncoder(config.Format, config.Development),
		buildSink(config.Output),
		parseLevel(config.Level),
	)

	opts := []zap.Option{zap.AddCaller()}
	if config.Development {
		opts = append(opts, zap.Development())
	}

	zapLogger := zap.New(core, opts...)
	return &Logger{
		Logger: zapLogger,
		sugar:  zapLogger.Sugar(),
	}
}

// ============================================================
// Глобальный логгер
// ============================================================

// GetGlobalLogger возвращает глобальный логгер,
// лениво создавая логгер по умолчанию при первом вызове
func GetGlobalLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{})
	}
	return globalLogger
}

// InitGlobalLogger инициализирует глобальный логгер по конфигурации
func InitGlobalLogger(config LogConfig) *Logger {
	logger := InitLogger(config)
	SetGlobalLogger(logger)
	return logger
}

// SetGlobalLogger заменяет глобальный логгер (используется в тестах)
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// L короткий доступ к глобальному логгеру
func L() *Logger {
	return GetGlobalLogger()
}

// ============================================================
// Методы Logger
// ============================================================

// With возвращает дочерний логгер с дополнительными полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	child := l.Logger.With(fields...)
	return &Logger{
		Logger: child,
		sugar:  child.Sugar(),
	}
}

// WithComponent дочерний логгер с полем component
func (l *Logger) WithComponent(component string) *Logger {
	return l.With(Component(component))
}

// WithExchange дочерний логгер с полем exchange
func (l *Logger) WithExchange(exchange string) *Logger {
	return l.With(Exchange(exchange))
}

// WithSymbol дочерний логгер с полем symbol
func (l *Logger) WithSymbol(symbol string) *Logger {
	return l.With(Symbol(symbol))
}

// WithPairID дочерний логгер с полем pair_id
func (l *Logger) WithPairID(pairID int) *Logger {
	return l.With(PairID(pairID))
}

// Sugar возвращает sugar-логгер для printf-style вызовов
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// ============================================================
// Глобальные функции логирования
// ============================================================

func Debug(msg string, fields ...zap.Field) { GetGlobalLogger().Logger.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { GetGlobalLogger().Logger.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetGlobalLogger().Logger.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetGlobalLogger().Logger.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { GetGlobalLogger().Logger.Fatal(msg, fields...) }

func Debugf(template string, args ...interface{}) { GetGlobalLogger().sugar.Debugf(template, args...) }
func Infof(template string, args ...interface{})  { GetGlobalLogger().sugar.Infof(template, args...) }
func Warnf(template string, args ...interface{})  { GetGlobalLogger().sugar.Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { GetGlobalLogger().sugar.Errorf(template, args...) }
func Fatalf(template string, args ...interface{}) { GetGlobalLogger().sugar.Fatalf(template, args...) }

// fieldsToInterface разворачивает zap.Field в плоский список key/value
// для передачи в sugar-логгер
func fieldsToInterface(fields []zap.Field) []interface{} {
	result := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		var value interface{}
		switch {
		case f.Interface != nil:
			value = f.Interface
		case f.String != "":
			value = f.String
		default:
			value = f.Integer
		}
		result = append(result, f.Key, value)
	}
	return result
}

// ============================================================
// Конструкторы доменных полей
// ============================================================

func Exchange(name string) zap.Field    { return zap.String("exchange", name) }
func Symbol(symbol string) zap.Field    { return zap.String("symbol", symbol) }
func PairID(id int) zap.Field           { return zap.Int("pair_id", id) }
func OrderID(id string) zap.Field       { return zap.String("order_id", id) }
func Price(price float64) zap.Field     { return zap.Float64("price", price) }
func Volume(volume float64) zap.Field   { return zap.Float64("volume", volume) }
func Spread(spread float64) zap.Field   { return zap.Float64("spread", spread) }
func PNL(pnl float64) zap.Field         { return zap.Float64("pnl", pnl) }
func Side(side string) zap.Field        { return zap.String("side", side) }
func State(state string) zap.Field      { return zap.String("state", state) }
func Latency(ms float64) zap.Field      { return zap.Float64("latency_ms", ms) }
func RequestID(id string) zap.Field     { return zap.String("request_id", id) }
func UserID(id int) zap.Field           { return zap.Int("user_id", id) }
func Component(name string) zap.Field   { return zap.String("component", name) }

// Переэкспорт стандартных конструкторов zap,
// чтобы вызывающий код не импортировал zap напрямую
func String(key, value string) zap.Field         { return zap.String(key, value) }
func Int(key string, value int) zap.Field        { return zap.Int(key, value) }
func Int64(key string, value int64) zap.Field    { return zap.Int64(key, value) }
func Float64(key string, value float64) zap.Field { return zap.Float64(key, value) }
func Bool(key string, value bool) zap.Field      { return zap.Bool(key, value) }
func Err(err error) zap.Field                    { return zap.Error(err) }
func Any(key string, value interface{}) zap.Field { return zap.Any(key, value) }
func Duration(key string, value time.Duration) zap.Field { return zap.Duration(key, value) }
