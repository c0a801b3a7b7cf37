package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Resilient защищает транспорт очереди предохранителем и лимитером.
// Недоступный Redis выбивает Circuit Breaker, и циклы опроса получают
// быстрый отказ вместо зависания на каждом Receive.
type Resilient struct {
	next    Consumer
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func NewResilient(next Consumer) *Resilient {
	// Настройка предохранителя
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "callback-queue",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
	})

	// Лимитер на случай деградации в hot-loop при нулевом long-poll
	limiter := rate.NewLimiter(rate.Limit(10), 5)

	return &Resilient{next: next, cb: cb, limiter: limiter}
}

func (r *Resilient) Receive(ctx context.Context, max int, wait int) ([]Message, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("queue receive rate limited: %w", err)
	}

	result, err := r.cb.Execute(func() (interface{}, error) {
		return r.next.Receive(ctx, max, wait)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Message), nil
}

// Delete не оборачиваем: подтверждение уже обработанного сообщения должно
// доходить до очереди даже при полуоткрытом предохранителе.
func (r *Resilient) Delete(ctx context.Context, receipt string) error {
	return r.next.Delete(ctx, receipt)
}

var _ Consumer = (*Resilient)(nil)
