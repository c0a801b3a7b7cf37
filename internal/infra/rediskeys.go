package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "apflow"
)

// Ключи Streams (очередь callback-сообщений)
const (
	// RedisKeyCallbackStream — поток, в который оркестратор кладет callback
	// с resumption-токеном после приостановки workflow.
	RedisKeyCallbackStream = RedisNamespace + ":callbacks:stream"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanDecisions — канал для трансляции финальных решений по задачам.
	// Его вычитывает внешний оркестратор, ожидающий resumption-токен.
	RedisChanDecisions = RedisNamespace + ":approvals:decisions"

	// RedisChanOrphanedTasks — сигнал «callback без задачи»: коллаборатор
	// должен предупредить апрувера и прервать зависший workflow.
	RedisChanOrphanedTasks = RedisNamespace + ":approvals:orphaned"
)

// GetDecisionChanKey Генератор имени канала для адресного сигнала по задаче
func GetDecisionChanKey(taskID string) string {
	return fmt.Sprintf("%s:task:%s", RedisChanDecisions, taskID)
}
