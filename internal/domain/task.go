package domain

import (
	"errors"
	"time"
)

// Статусы State Machine задачи согласования
type TaskStatus string

const (
	StatusPending          TaskStatus = "PENDING"
	StatusAwaitingDecision TaskStatus = "AWAITING_DECISION"
	StatusApproved         TaskStatus = "APPROVED"
	StatusRejected         TaskStatus = "REJECTED"
	StatusTimedOut         TaskStatus = "TIMED_OUT"
	StatusFailed           TaskStatus = "FAILED"
)

var (
	ErrTaskNotFound = errors.New("approval task not found")
)

// ApprovalTask — единица ожидающего человеческого решения.
// Resumption-токен живет в задаче только пока решение не принято:
// PENDING (токена еще нет) -> AWAITING_DECISION (токен прикреплен) -> терминал (токен очищен).
type ApprovalTask struct {
	TaskID        string     `json:"task_id"`
	QuestionID    string     `json:"question_id"`
	AssessorEmail string     `json:"assessor_email"`
	Status        TaskStatus `json:"status"`

	// TaskToken — opaque-значение оркестратора для возобновления зависшего workflow
	TaskToken *string `json:"task_token,omitempty"`
	Comments  *string `json:"comments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal — принято ли по задаче финальное решение.
// Любой passthrough-статус, не входящий в жизненный цикл, тоже терминален.
func (t *ApprovalTask) IsTerminal() bool {
	return t.Status != StatusPending && t.Status != StatusAwaitingDecision
}

// Question — неизменяемый после создания текст запроса на согласование.
type Question struct {
	QuestionID string    `json:"question_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// decisionStatus — неизменяемая таблица нормализации словаря решений.
// Заполняется один раз и после init никогда не мутируется.
var decisionStatus = map[string]TaskStatus{
	"APPROVE":   StatusApproved,
	"REJECT":    StatusRejected,
	"TIMED_OUT": StatusTimedOut,
	"FAILED":    StatusFailed,
}

// NormalizeDecision переводит решение в терминальный статус.
// Неизвестное решение проходит насквозь как есть — это осознанное поведение
// (источник решений внешний, валидация словаря не входит в контракт финализатора).
func NormalizeDecision(decision string) TaskStatus {
	if status, ok := decisionStatus[decision]; ok {
		return status
	}
	return TaskStatus(decision)
}
