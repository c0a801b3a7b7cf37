package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/xela07ax/approvalflow-prototype/internal/domain"
	"github.com/xela07ax/approvalflow-prototype/internal/infra"
	"github.com/xela07ax/approvalflow-prototype/internal/queue"
	"go.uber.org/zap"
)

// Poller владеет циклом receive/process/acknowledge.
// Один цикл за раз: следующий тик не начнется, пока не дообработана текущая
// пачка (тикер просто роняет пропущенные тики) — повторного входа нет.
type Poller struct {
	queue      queue.Consumer
	correlator *Correlator
	cfg        infra.QueueConfig
	metrics    *Metrics
	logger     *zap.Logger
}

func NewPoller(q queue.Consumer, c *Correlator, cfg infra.QueueConfig, m *Metrics, logger *zap.Logger) *Poller {
	return &Poller{
		queue:      q,
		correlator: c,
		cfg:        cfg,
		metrics:    m,
		logger:     logger.Named("poller"),
	}
}

// Run крутит цикл опроса до отмены контекста.
// Остановка кооперативная: недообработанные сообщения остаются неподтвержденными,
// их безопасно доставит повторно сама очередь (attach идемпотентен).
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.PollDelay)
	defer ticker.Stop()

	p.logger.Info("callback poller started",
		zap.Duration("poll_delay", p.cfg.PollDelay),
		zap.Int("batch_size", p.cfg.BatchSize))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("callback poller stopping by context...")
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

// cycle — одна самодостаточная единица работы: пачка, сообщения независимо.
func (p *Poller) cycle(ctx context.Context) {
	p.metrics.CyclesTotal.Inc()

	waitSec := int(p.cfg.WaitTime / time.Second)
	messages, err := p.queue.Receive(ctx, p.cfg.BatchSize, waitSec)
	if err != nil {
		// Очередь недоступна — цикл обрывается, ничего не потеряно
		// (сообщений не получали). Следующий тик попробует снова.
		p.metrics.ReceiveErrors.Inc()
		p.logger.Error("queue receive failed, cycle aborted", zap.Error(err))
		return
	}

	for _, msg := range messages {
		// Ошибка одного сообщения не прерывает соседей по пачке
		if err := p.process(ctx, msg); err != nil {
			p.logger.Error("failed to process message, left for redelivery",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			continue
		}

		// Подтверждаем только после успешной корреляции
		if err := p.queue.Delete(ctx, msg.Receipt); err != nil {
			// Сообщение придет еще раз; корреляция это переживет
			p.logger.Warn("ack failed, message will be redelivered",
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
	}
}

func (p *Poller) process(ctx context.Context, msg queue.Message) error {
	start := time.Now()
	defer func() {
		p.metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	payload, err := Decode(msg.Body)
	if err != nil {
		p.metrics.MessagesProcessed.WithLabelValues("malformed").Inc()
		// Сырое тело — в лог: на повторной доставке упадет так же,
		// без него оператору нечего чинить
		p.logger.Error("malformed payload",
			zap.String("message_id", msg.ID),
			zap.ByteString("raw_body", msg.Body))
		return err
	}

	if err := p.correlator.Correlate(ctx, payload); err != nil {
		switch {
		case errors.Is(err, domain.ErrTaskNotFound):
			p.metrics.MessagesProcessed.WithLabelValues("task_not_found").Inc()
		default:
			p.metrics.MessagesProcessed.WithLabelValues("failed").Inc()
		}
		return err
	}

	p.metrics.MessagesProcessed.WithLabelValues("ok").Inc()
	return nil
}
