package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xela07ax/approvalflow-prototype/internal/domain"
	"go.uber.org/zap"
)

// ErrCorrelationFailed — нарушение инварианта или сбой хранилища после того,
// как payload успешно разобран. Сообщение остается в очереди.
var ErrCorrelationFailed = errors.New("callback correlation failed")

// defaultTitle используется, когда вопрос не нашелся: письмо важнее метаданных.
const defaultTitle = "Approval Request"

// Notifier принимает готовый черновик письма. Доставка — забота коллаборатора.
type Notifier interface {
	Notify(draft domain.NotificationDraft)
}

// OrphanSignaler сообщает коллаборатору о callback-е без задачи.
// Ядро только сигнализирует: прерывание зависшего workflow мы не реализуем.
type OrphanSignaler interface {
	OrphanedTask(ctx context.Context, taskID string)
}

// Correlator — сердце потребителя: связывает callback с ожидающей задачей,
// прикрепляет resumption-токен и порождает уведомление апруверу.
type Correlator struct {
	store    TaskStore
	notifier Notifier
	signals  OrphanSignaler
	metrics  *Metrics
	baseURL  string
	logger   *zap.Logger
	now      func() time.Time
}

func NewCorrelator(store TaskStore, notifier Notifier, signals OrphanSignaler, metrics *Metrics, baseURL string, logger *zap.Logger) *Correlator {
	return &Correlator{
		store:    store,
		notifier: notifier,
		signals:  signals,
		metrics:  metrics,
		baseURL:  baseURL,
		logger:   logger.Named("correlator"),
		now:      time.Now,
	}
}

// Correlate прикрепляет токен к задаче и отдает черновик письма в Notifier.
// Возвращенная ошибка означает «сообщение не обработано»: вызывающий не должен
// подтверждать его, и очередь доставит callback повторно.
func (c *Correlator) Correlate(ctx context.Context, msg CallbackMessage) error {
	// 1. Условное прикрепление токена (атомарный однострочный UPDATE)
	affected, prevToken, err := c.store.AttachToken(ctx, msg.TaskID, msg.TaskToken, c.now())
	if err != nil {
		return fmt.Errorf("%w: attach token: %v", ErrCorrelationFailed, err)
	}

	if affected == 0 {
		// Callback без задачи. Дальше по хранилищу не ходим: предупреждение
		// апрувера и прерывание workflow — ответственность коллаборатора.
		c.logger.Error("no task id found, signaling orphaned callback",
			zap.String("task_id", msg.TaskID))
		c.signals.OrphanedTask(ctx, msg.TaskID)
		return fmt.Errorf("attach affected zero rows: %w", domain.ErrTaskNotFound)
	}

	// 2. Задача обязана существовать — токен только что лег в ее строку
	task, err := c.store.GetTask(ctx, msg.TaskID)
	if err != nil {
		return fmt.Errorf("%w: task vanished after attach: %v", ErrCorrelationFailed, err)
	}

	// 3. Метаданные для письма — best-effort
	title := defaultTitle
	question, err := c.store.GetQuestion(ctx, task.QuestionID)
	if err != nil {
		c.logger.Warn("question lookup failed, using default title",
			zap.String("question_id", task.QuestionID), zap.Error(err))
	} else if question != nil {
		title = question.Title
	}

	// 4-5. Ссылки решения + текст письма
	draft := domain.RenderDraft(c.baseURL, msg.TaskID, title, task.AssessorEmail)

	// Повторная доставка уже скоррелированного callback: токен в строке совпал
	// с входящим еще до нашего UPDATE. Сообщение подтверждаем, письмо не дублируем.
	if prevToken != nil && *prevToken == msg.TaskToken {
		c.metrics.DraftsSuppressed.Inc()
		c.logger.Info("duplicate callback delivery, draft suppressed",
			zap.String("task_id", msg.TaskID))
		return nil
	}

	c.metrics.DraftsEmitted.Inc()
	c.logger.Info("callback correlated, sending notification",
		zap.String("task_id", msg.TaskID),
		zap.String("subject", draft.Subject))
	c.notifier.Notify(draft)
	return nil
}
