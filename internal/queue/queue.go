package queue

import "context"

// Message — единица доставки из очереди callback-ов.
// Receipt обязателен для подтверждения: удаление без него невозможно.
type Message struct {
	ID      string
	Body    []byte
	Receipt string
}

// Consumer — граница очереди со стороны потребителя.
// Семантика at-least-once: невычеркнутое сообщение будет доставлено повторно
// по политике самой очереди (visibility timeout).
type Consumer interface {
	// Receive возвращает до max сообщений, блокируясь не дольше wait.
	Receive(ctx context.Context, max int, wait int) ([]Message, error)
	// Delete подтверждает обработку; вызывается только после успешной корреляции.
	Delete(ctx context.Context, receipt string) error
}

// Publisher — граница очереди со стороны производителя (оркестратора).
type Publisher interface {
	Enqueue(ctx context.Context, body []byte) (string, error)
}
