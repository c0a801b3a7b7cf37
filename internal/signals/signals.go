package signals

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/approvalflow-prototype/internal/domain"
	"github.com/xela07ax/approvalflow-prototype/internal/infra"
	"go.uber.org/zap"
)

// RedisSignaler транслирует события ядра коллабораторам через Pub/Sub.
// Сигнал — уведомление, не команда: ядро не ждет подтверждения и не знает,
// кто на другом конце (оркестратор, алертинг, никого).
type RedisSignaler struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisSignaler(rdb *redis.Client, logger *zap.Logger) *RedisSignaler {
	return &RedisSignaler{rdb: rdb, logger: logger.Named("signaler")}
}

// OrphanedTask сообщает о callback-е, для которого не нашлось задачи.
// Прерывание зависшего workflow — ответственность подписчика, не ядра.
func (s *RedisSignaler) OrphanedTask(ctx context.Context, taskID string) {
	if err := s.rdb.Publish(ctx, infra.RedisChanOrphanedTasks, taskID).Err(); err != nil {
		// Сообщение все равно останется в очереди и вернется — сигнал догонит
		s.logger.Warn("orphan signal delivery failed",
			zap.String("task_id", taskID),
			zap.Error(err))
	}
}

// decisionEvent — payload сигнала о финальном решении.
// Токен нужен оркестратору, чтобы возобновить приостановленный workflow.
type decisionEvent struct {
	TaskID    string            `json:"taskId"`
	Status    domain.TaskStatus `json:"status"`
	TaskToken *string           `json:"taskToken,omitempty"`
}

// PublishDecision объявляет терминальный статус задачи.
// Возвращает ошибку только сериализации/транспорта: решение уже в базе,
// и вызывающий сам решает, насколько это критично.
func (s *RedisSignaler) PublishDecision(ctx context.Context, taskID string, status domain.TaskStatus, token *string) error {
	payload, err := json.Marshal(decisionEvent{TaskID: taskID, Status: status, TaskToken: token})
	if err != nil {
		return fmt.Errorf("signal: marshal decision event: %w", err)
	}

	if err := s.rdb.Publish(ctx, infra.RedisChanDecisions, payload).Err(); err != nil {
		return fmt.Errorf("signal: publish decision: %w", err)
	}

	// Адресный канал: оркестратор, ждущий решение по конкретной задаче,
	// подписывается на него вместо фильтрации общего потока
	if err := s.rdb.Publish(ctx, infra.GetDecisionChanKey(taskID), payload).Err(); err != nil {
		return fmt.Errorf("signal: publish addressed decision: %w", err)
	}

	s.logger.Info("decision signal published",
		zap.String("task_id", taskID),
		zap.String("status", string(status)))
	return nil
}
