package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/approvalflow-prototype/internal/domain"
	"github.com/xela07ax/approvalflow-prototype/internal/queue"
	"go.uber.org/zap"
)

// RequestRepository описывает требования к хранилищу со стороны создания заявки
type RequestRepository interface {
	CreateQuestion(ctx context.Context, q *domain.Question) error
	CreateTask(ctx context.Context, t *domain.ApprovalTask) error
}

// CreateResult — ответ создателю заявки.
type CreateResult struct {
	TaskID        string `json:"taskId"`
	QuestionID    string `json:"questionId"`
	AssessorEmail string `json:"assessorEmail"`
	Title         string `json:"title"`
}

// callbackPayload повторяет формат сообщения, который кладет в очередь
// оркестратор после приостановки workflow.
type callbackPayload struct {
	TaskID        string `json:"taskId"`
	AssessorEmail string `json:"assessorEmail"`
	Title         string `json:"title"`
	TaskToken     string `json:"taskToken"`
}

// RequestService создает заявку на согласование: вопрос + задача в PENDING.
// Затем имитирует внешнего оркестратора, публикуя callback с resumption-токеном
// в ту же очередь, которую вычитывает consumer (реальный оркестратор — внешний
// коллаборатор, здесь он заглушен ради сквозного контура).
type RequestService struct {
	repo      RequestRepository
	publisher queue.Publisher
	logger    *zap.Logger
}

func NewRequestService(repo RequestRepository, publisher queue.Publisher, logger *zap.Logger) *RequestService {
	return &RequestService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.Named("request-service"),
	}
}

func (s *RequestService) CreateRequest(ctx context.Context, title, content, assessorEmail string) (*CreateResult, error) {
	questionID := uuid.New().String()
	taskID := uuid.New().String()
	now := time.Now()

	question := &domain.Question{
		QuestionID: questionID,
		Title:      strings.TrimSpace(title),
		Content:    strings.TrimSpace(content),
		CreatedAt:  now,
	}
	if err := s.repo.CreateQuestion(ctx, question); err != nil {
		s.logger.Error("failed to persist question", zap.Error(err))
		return nil, fmt.Errorf("create request: %w", err)
	}

	task := &domain.ApprovalTask{
		TaskID:        taskID,
		QuestionID:    questionID,
		AssessorEmail: strings.TrimSpace(assessorEmail),
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		s.logger.Error("failed to persist approval task", zap.Error(err))
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Заглушка оркестратора: токен генерируем сами и сразу кладем callback
	body, _ := json.Marshal(callbackPayload{
		TaskID:        taskID,
		AssessorEmail: task.AssessorEmail,
		Title:         question.Title,
		TaskToken:     uuid.New().String(),
	})
	if _, err := s.publisher.Enqueue(ctx, body); err != nil {
		// Задача уже создана и валидна; callback догонит ее позже
		s.logger.Warn("callback enqueue failed, task left PENDING",
			zap.String("task_id", taskID),
			zap.Error(err))
	}

	s.logger.Info("approval request created",
		zap.String("task_id", taskID),
		zap.String("question_id", questionID))

	return &CreateResult{
		TaskID:        taskID,
		QuestionID:    questionID,
		AssessorEmail: task.AssessorEmail,
		Title:         question.Title,
	}, nil
}
