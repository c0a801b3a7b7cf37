package notify

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xela07ax/approvalflow-prototype/internal/domain"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []domain.NotificationDraft
	fail  bool
	count int
}

func (s *recordingSender) Send(_ context.Context, draft domain.NotificationDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	if s.fail {
		return fmt.Errorf("smtp unavailable")
	}
	s.sent = append(s.sent, draft)
	return nil
}

func (s *recordingSender) delivered() []domain.NotificationDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.NotificationDraft(nil), s.sent...)
}

func TestDispatcherDrainsBufferOnStop(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 1000, zap.NewNop())
	d.Start()

	for i := 0; i < 20; i++ {
		d.Notify(domain.NotificationDraft{TaskID: fmt.Sprintf("T%d", i)})
	}

	// Stop обязан дожать буфер до конца
	d.Stop()
	require.Len(t, sender.delivered(), 20)
}

func TestDispatcherDropsAfterStop(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 1000, zap.NewNop())
	d.Start()
	d.Stop()

	// После остановки вход заперт — паники на закрытом канале нет
	require.NotPanics(t, func() {
		d.Notify(domain.NotificationDraft{TaskID: "late"})
	})
	require.Empty(t, sender.delivered())
}

func TestDispatcherSurvivesSenderFailure(t *testing.T) {
	sender := &recordingSender{fail: true}
	d := NewDispatcher(sender, 1000, zap.NewNop())
	d.Start()

	d.Notify(domain.NotificationDraft{TaskID: "T1"})
	d.Notify(domain.NotificationDraft{TaskID: "T2"})
	d.Stop()

	// Ошибки доставки не валят воркер: обе попытки дошли до бэкенда
	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Equal(t, 2, sender.count)
}
