package notify

/*
Файл dispatcher.go реализует асинхронную доставку уведомлений апруверам.

Ключевые особенности архитектуры:
- Non-blocking: черновики уходят в буферизованный канал, цикл корреляции
  не ждет почтовый бэкенд.
- Drain Pattern & Graceful Shutdown: при остановке буфер вычитывается до конца,
  недоставленных черновиков при штатной перезагрузке не остается.
- Load Shedding: переполненный буфер не блокирует потребителя очереди —
  черновик логируется и теряется (callback при этом уже скоррелирован,
  задача ждет решения, ссылки восстановимы по task id).
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xela07ax/approvalflow-prototype/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sender — физическая доставка письма. В этом ядре бэкенд заглушен (LogSender).
type Sender interface {
	Send(ctx context.Context, draft domain.NotificationDraft) error
}

type Dispatcher struct {
	ch      chan domain.NotificationDraft
	sender  Sender
	limiter *rate.Limiter // темп исходящих писем
	logger  *zap.Logger
	wg      sync.WaitGroup

	isClosed int32 // Атомарный флаг (0 - открыт, 1 - закрыт)
}

func NewDispatcher(sender Sender, sendRate float64, logger *zap.Logger) *Dispatcher {
	if sendRate <= 0 {
		sendRate = 10
	}
	return &Dispatcher{
		ch:      make(chan domain.NotificationDraft, 1000),
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(sendRate), 1),
		logger:  logger.With(zap.String("mod", "notify")),
	}
}

func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё доотправит.
func (d *Dispatcher) Stop() {
	atomic.StoreInt32(&d.isClosed, 1)

	// Даем крошечную паузу, чтобы текущие Notify успели проскочить
	time.Sleep(10 * time.Millisecond)

	d.logger.Info("stopping dispatcher: closing channel and draining buffer...")
	close(d.ch)
	d.wg.Wait()
	d.logger.Info("dispatcher stopped gracefully")
}

// Notify ставит черновик в очередь на доставку. Никогда не блокирует.
func (d *Dispatcher) Notify(draft domain.NotificationDraft) {
	if atomic.LoadInt32(&d.isClosed) == 1 {
		d.logger.Warn("draft dropped: dispatcher is stopping", zap.String("task_id", draft.TaskID))
		return
	}

	select {
	case d.ch <- draft:
	default:
		d.logger.Error("notification_buffer_overflow",
			zap.String("task_id", draft.TaskID),
			zap.String("to", draft.To))
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for draft := range d.ch {
		// Используем Background: основной контекст может быть уже закрыт,
		// а буфер обязан дойти до конца
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := d.limiter.Wait(ctx); err != nil {
			cancel()
			d.logger.Error("send rate wait failed", zap.Error(err))
			continue
		}
		if err := d.sender.Send(ctx, draft); err != nil {
			d.logger.Error("notification delivery failed",
				zap.String("task_id", draft.TaskID),
				zap.Error(err))
		}
		cancel()
	}
	d.logger.Info("notify worker finished")
}
