package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/xela07ax/approvalflow-prototype/internal/domain"
)

// TaskStore Описываем, что коррелятору нужно от хранилища
type TaskStore interface {
	// AttachToken условно прикрепляет токен; возвращает число затронутых строк
	// (0 или 1) и прежний токен строки для распознавания повторной доставки.
	AttachToken(ctx context.Context, taskID, token string, now time.Time) (int64, *string, error)
	GetTask(ctx context.Context, taskID string) (*domain.ApprovalTask, error)
	GetQuestion(ctx context.Context, questionID string) (*domain.Question, error)
}

// RetryingStore прозрачно ретраит обращения к хранилищу.
// Все три операции идемпотентны (attach — last-write-wins с тем же токеном),
// поэтому повтор при сетевом сбое безопасен.
type RetryingStore struct {
	next     TaskStore
	attempts uint
}

func NewRetryingStore(next TaskStore) *RetryingStore {
	return &RetryingStore{next: next, attempts: 3}
}

func (s *RetryingStore) do(ctx context.Context, op func() error) error {
	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.DelayType(retry.BackOffDelay),
		// Отсутствие задачи — не транзиентный сбой, повторять бессмысленно
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, domain.ErrTaskNotFound)
		}),
	)
	return r.Do(op)
}

func (s *RetryingStore) AttachToken(ctx context.Context, taskID, token string, now time.Time) (int64, *string, error) {
	var affected int64
	var prev *string
	err := s.do(ctx, func() error {
		var opErr error
		affected, prev, opErr = s.next.AttachToken(ctx, taskID, token, now)
		return opErr
	})
	return affected, prev, err
}

func (s *RetryingStore) GetTask(ctx context.Context, taskID string) (*domain.ApprovalTask, error) {
	var task *domain.ApprovalTask
	err := s.do(ctx, func() error {
		var opErr error
		task, opErr = s.next.GetTask(ctx, taskID)
		return opErr
	})
	return task, err
}

func (s *RetryingStore) GetQuestion(ctx context.Context, questionID string) (*domain.Question, error) {
	var q *domain.Question
	err := s.do(ctx, func() error {
		var opErr error
		q, opErr = s.next.GetQuestion(ctx, questionID)
		return opErr
	})
	return q, err
}

var _ TaskStore = (*RetryingStore)(nil)
