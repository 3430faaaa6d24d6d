package engine

// ============================================================
// Машина состояний арбитражной сделки
// ============================================================
//
// Жизненный цикл сделки строго монотонный: состояние может двигаться
// только вперёд по цепочке размещения ног и никогда не возвращается
// назад. Терминальные состояния финальны.

// Состояния сделки
const (
	StatePending         = "PENDING"          // сделка создана, ноги не размещены
	StateExecutingBuy    = "EXECUTING_BUY"    // размещается ордер покупки
	StateBuyPlaced       = "BUY_PLACED"       // ордер покупки принят биржей
	StateExecutingSell   = "EXECUTING_SELL"   // размещается ордер продажи
	StateSellPlaced      = "SELL_PLACED"      // ордер продажи принят биржей
	StateMonitoring      = "MONITORING"       // обе ноги размещены, ожидание исполнения
	StateCompleted       = "COMPLETED"        // обе ноги исполнены полностью
	StatePartiallyFilled = "PARTIALLY_FILLED" // исполнилась только часть объёма
	StateFailed          = "FAILED"           // ошибка размещения/исполнения
	StateCancelled       = "CANCELLED"        // ни одна нога не исполнилась, ордера отменены
)

// ValidTransitions определяет допустимые переходы между состояниями
var ValidTransitions = map[string][]string{
	StatePending:       {StateExecutingBuy, StateFailed, StateCancelled},
	StateExecutingBuy:  {StateBuyPlaced, StateFailed},
	StateBuyPlaced:     {StateExecutingSell, StateFailed, StatePartiallyFilled},
	StateExecutingSell: {StateSellPlaced, StateFailed, StatePartiallyFilled},
	StateSellPlaced:    {StateMonitoring, StateFailed},
	StateMonitoring:    {StateCompleted, StatePartiallyFilled, StateFailed, StateCancelled},

	// Терминальные состояния переходов не имеют
	StateCompleted:       {},
	StatePartiallyFilled: {},
	StateFailed:          {},
	StateCancelled:       {},
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal возвращает true для финальных состояний
func IsTerminal(s string) bool {
	switch s {
	case StateCompleted, StatePartiallyFilled, StateFailed, StateCancelled:
		return true
	}
	return false
}

// StateInfo возвращает описание состояния для UI
func StateInfo(s string) string {
	switch s {
	case StatePending:
		return "Сделка создана, ожидает запуска"
	case StateExecutingBuy:
		return "Размещение ордера покупки..."
	case StateBuyPlaced:
		return "Ордер покупки размещён"
	case StateExecutingSell:
		return "Размещение ордера продажи..."
	case StateSellPlaced:
		return "Ордер продажи размещён"
	case StateMonitoring:
		return "Ожидание исполнения обеих ног"
	case StateCompleted:
		return "Сделка завершена"
	case StatePartiallyFilled:
		return "Частичное исполнение"
	case StateFailed:
		return "Ошибка! Требуется проверка балансов"
	case StateCancelled:
		return "Сделка отменена"
	default:
		return "Неизвестное состояние"
	}
}
