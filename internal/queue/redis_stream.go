package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/approvalflow-prototype/internal/infra"
	"go.uber.org/zap"
)

// bodyField — имя поля записи стрима, в котором лежит сырой payload.
const bodyField = "body"

// RedisStream реализует Consumer/Publisher поверх Redis Streams consumer group.
// Receipt = ID записи стрима. Неподтвержденные записи остаются в PEL группы
// и по истечении visibility timeout возвращаются через XAutoClaim —
// это и есть механизм повторной доставки.
type RedisStream struct {
	rdb    *redis.Client
	cfg    infra.QueueConfig
	logger *zap.Logger
}

func NewRedisStream(rdb *redis.Client, cfg infra.QueueConfig, logger *zap.Logger) *RedisStream {
	return &RedisStream{
		rdb:    rdb,
		cfg:    cfg,
		logger: logger.Named("redis-stream"),
	}
}

// Init создает consumer group (идемпотентно; BUSYGROUP не ошибка).
func (q *RedisStream) Init(ctx context.Context) error {
	err := q.rdb.XGroupCreateMkStream(ctx, q.cfg.Stream, q.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("redis stream: failed to create group %s: %w", q.cfg.Group, err)
	}
	return nil
}

// Receive отдает сначала «зависшие» чужие сообщения (повторная доставка),
// затем добирает новые из стрима с блокировкой до wait секунд.
func (q *RedisStream) Receive(ctx context.Context, max int, wait int) ([]Message, error) {
	out := make([]Message, 0, max)

	// 1. Повторная доставка: забираем записи, висящие в PEL дольше visibility timeout
	claimed, _, err := q.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.cfg.Stream,
		Group:    q.cfg.Group,
		Consumer: q.cfg.Consumer,
		MinIdle:  q.cfg.VisibilityTimeout,
		Start:    "0-0",
		Count:    int64(max),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis stream: autoclaim failed: %w", err)
	}
	for _, m := range claimed {
		out = append(out, toMessage(m))
	}
	if len(out) >= max {
		return out, nil
	}

	// 2. Новые сообщения (long-poll через Block)
	streams, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.cfg.Group,
		Consumer: q.cfg.Consumer,
		Streams:  []string{q.cfg.Stream, ">"},
		Count:    int64(max - len(out)),
		Block:    time.Duration(wait) * time.Second,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return out, nil // таймаут long-poll — пустая пачка, не ошибка
		}
		return nil, fmt.Errorf("redis stream: read failed: %w", err)
	}

	for _, s := range streams {
		for _, m := range s.Messages {
			out = append(out, toMessage(m))
		}
	}
	return out, nil
}

// Delete вычеркивает запись из PEL. Сам стрим не триммится — это забота оператора.
func (q *RedisStream) Delete(ctx context.Context, receipt string) error {
	if err := q.rdb.XAck(ctx, q.cfg.Stream, q.cfg.Group, receipt).Err(); err != nil {
		return fmt.Errorf("redis stream: ack failed for %s: %w", receipt, err)
	}
	return nil
}

// Enqueue кладет callback в стрим (сторона оркестратора).
func (q *RedisStream) Enqueue(ctx context.Context, body []byte) (string, error) {
	id, err := q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.cfg.Stream,
		Values: map[string]interface{}{bodyField: body},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("redis stream: enqueue failed: %w", err)
	}
	q.logger.Debug("callback enqueued", zap.String("id", id))
	return id, nil
}

func toMessage(m redis.XMessage) Message {
	var body []byte
	if raw, ok := m.Values[bodyField]; ok {
		switch v := raw.(type) {
		case string:
			body = []byte(v)
		case []byte:
			body = v
		}
	}
	return Message{ID: m.ID, Body: body, Receipt: m.ID}
}

var _ Consumer = (*RedisStream)(nil)
var _ Publisher = (*RedisStream)(nil)
