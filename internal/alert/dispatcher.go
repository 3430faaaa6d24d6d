package alert

import (
	"sync"
	"sync/atomic"

	"arbibot/internal/models"
	"arbibot/pkg/utils"
)

// ============================================================
// Диспетчер уведомлений
// ============================================================
// Принимает события движка, сохраняет их в БД и транслирует
// подключенным WebSocket клиентам. Работает асинхронно:
// движок никогда не блокируется на отправке уведомления.

const dispatchBufferSize = 128

// Store сохраняет уведомления (репозиторий)
type Store interface {
	Create(n *models.Notification) error
}

// Broadcaster транслирует уведомления клиентам (WebSocket hub)
type Broadcaster interface {
	BroadcastNotification(n *models.Notification)
}

// Dispatcher - асинхронный диспетчер уведомлений движка.
//
// Использование:
//
//	d := alert.NewDispatcher(repo, hub, log)
//	d.Start()
//	controller.SetNotifier(d)
//	...
//	d.Stop() // дожидается обработки очереди
type Dispatcher struct {
	store       Store
	broadcaster Broadcaster
	log         *utils.Logger

	queue   chan models.Notification
	dropped atomic.Int64

	stopOnce sync.Once
	done     chan struct{}
}

// NewDispatcher создает диспетчер.
// store и broadcaster могут быть nil: соответствующий шаг пропускается
func NewDispatcher(store Store, broadcaster Broadcaster, log *utils.Logger) *Dispatcher {
	return &Dispatcher{
		store:       store,
		broadcaster: broadcaster,
		log:         log.WithComponent("alert"),
		queue:       make(chan models.Notification, dispatchBufferSize),
		done:        make(chan struct{}),
	}
}

// Start запускает фоновую горутину обработки очереди
func (d *Dispatcher) Start() {
	go d.run()
}

// Stop закрывает очередь и дожидается обработки оставшихся уведомлений
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.queue)
	})
	<-d.done
}

// Notify ставит уведомление в очередь. Неблокирующий:
// при переполнении очереди уведомление отбрасывается
func (d *Dispatcher) Notify(n models.Notification) {
	defer func() {
		// Notify после Stop: очередь уже закрыта
		if recover() != nil {
			d.dropped.Add(1)
		}
	}()

	select {
	case d.queue <- n:
	default:
		d.dropped.Add(1)
		d.log.Warn("очередь уведомлений переполнена, уведомление отброшено",
			utils.String("type", n.Type))
	}
}

// Dropped возвращает количество отброшенных уведомлений
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for n := range d.queue {
		d.dispatch(n)
	}
}

func (d *Dispatcher) dispatch(n models.Notification) {
	// Сначала сохраняем: Create присваивает ID,
	// и клиенты получают уведомление уже с ним
	if d.store != nil {
		if err := d.store.Create(&n); err != nil {
			d.log.Error("ошибка сохранения уведомления",
				utils.String("type", n.Type), utils.Err(err))
		}
	}

	if d.broadcaster != nil {
		d.broadcaster.BroadcastNotification(&n)
	}

	switch n.Severity {
	case models.SeverityCritical:
		d.log.Error("критическое событие движка",
			utils.String("type", n.Type), utils.String("message", n.Message))
	case models.SeverityError:
		d.log.Warn("событие движка",
			utils.String("type", n.Type), utils.String("message", n.Message))
	}
}
