package notify

import (
	"context"

	"github.com/xela07ax/approvalflow-prototype/internal/domain"
	"go.uber.org/zap"
)

// LogSender — заглушка почтового бэкенда: ядро только порождает письмо,
// реальная доставка — внешний коллаборатор. Пишем письмо целиком в лог.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("log-sender")}
}

func (s *LogSender) Send(_ context.Context, draft domain.NotificationDraft) error {
	s.logger.Info("Sending Email",
		zap.String("to", draft.To),
		zap.String("subject", draft.Subject),
		zap.String("body", draft.Body))
	return nil
}

var _ Sender = (*LogSender)(nil)
