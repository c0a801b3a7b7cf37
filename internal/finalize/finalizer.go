package finalize

import (
	"context"
	"fmt"
	"time"

	"github.com/xela07ax/approvalflow-prototype/internal/domain"
	"go.uber.org/zap"
)

// TerminalStore Описываем, что финализатору нужно от хранилища
type TerminalStore interface {
	// GetTaskToken читает токен до того, как терминальная запись его сотрет.
	GetTaskToken(ctx context.Context, taskID string) (*string, error)
	// SetTerminal безусловно пишет терминальный статус и очищает токен.
	SetTerminal(ctx context.Context, taskID string, status domain.TaskStatus, comments string, now time.Time) error
}

// DecisionSignaler объявляет решение внешнему оркестратору.
type DecisionSignaler interface {
	PublishDecision(ctx context.Context, taskID string, status domain.TaskStatus, token *string) error
}

// Result — ответ финализатора, отдается вызывающему дословно.
type Result struct {
	Status    string            `json:"status"` // updated | noop
	TaskID    string            `json:"taskId,omitempty"`
	StatusSet domain.TaskStatus `json:"statusSet,omitempty"`
}

// Finalizer применяет терминальное решение к задаче.
// Повторный вызов безопасен: терминальная запись идемпотентна, а запись по
// несуществующей задаче молча затрагивает ноль строк.
type Finalizer struct {
	store   TerminalStore
	signals DecisionSignaler
	logger  *zap.Logger
	now     func() time.Time
}

func NewFinalizer(store TerminalStore, signals DecisionSignaler, logger *zap.Logger) *Finalizer {
	return &Finalizer{
		store:   store,
		signals: signals,
		logger:  logger.Named("finalizer"),
		now:     time.Now,
	}
}

// Finalize нормализует решение и пишет терминальный статус.
// Неизвестное решение проходит в статус как есть (осознанный passthrough).
// Ошибка означает «изменение состояния не гарантировано» — вызывающий может
// безопасно повторить.
func (f *Finalizer) Finalize(ctx context.Context, taskID, decision, comments string) (Result, error) {
	if taskID == "" {
		// Нечего финализировать; хранилище не трогаем
		return Result{Status: "noop"}, nil
	}

	status := domain.NormalizeDecision(decision)

	// Токен понадобится оркестратору — читаем до очистки
	token, err := f.store.GetTaskToken(ctx, taskID)
	if err != nil {
		return Result{}, fmt.Errorf("finalize: read task token: %w", err)
	}

	if err := f.store.SetTerminal(ctx, taskID, status, comments, f.now()); err != nil {
		return Result{}, fmt.Errorf("finalize: terminal write: %w", err)
	}

	// Решение уже в базе. Недоставленный сигнал — не откат: повтор запроса
	// идемпотентен, а оркестратор в худшем случае завершится по таймауту.
	if err := f.signals.PublishDecision(ctx, taskID, status, token); err != nil {
		f.logger.Error("decision saved but signal not delivered",
			zap.String("task_id", taskID),
			zap.Error(err))
	}

	f.logger.Info("task finalized",
		zap.String("task_id", taskID),
		zap.String("decision", decision),
		zap.String("status_set", string(status)))

	return Result{Status: "updated", TaskID: taskID, StatusSet: status}, nil
}
