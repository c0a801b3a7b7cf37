package finalize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xela07ax/approvalflow-prototype/internal/domain"
	"go.uber.org/zap"
)

type terminalWrite struct {
	taskID   string
	status   domain.TaskStatus
	comments string
}

type mockStore struct {
	token       *string
	tokenErr    error
	terminalErr error
	writes      []terminalWrite
	tokenReads  int
}

func (m *mockStore) GetTaskToken(_ context.Context, _ string) (*string, error) {
	m.tokenReads++
	return m.token, m.tokenErr
}

func (m *mockStore) SetTerminal(_ context.Context, taskID string, status domain.TaskStatus, comments string, _ time.Time) error {
	if m.terminalErr != nil {
		return m.terminalErr
	}
	m.writes = append(m.writes, terminalWrite{taskID: taskID, status: status, comments: comments})
	return nil
}

type mockSignaler struct {
	published []domain.TaskStatus
	tokens    []*string
	err       error
}

func (m *mockSignaler) PublishDecision(_ context.Context, _ string, status domain.TaskStatus, token *string) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, status)
	m.tokens = append(m.tokens, token)
	return nil
}

func TestFinalizeEmptyTaskIDIsNoop(t *testing.T) {
	store := &mockStore{}
	f := NewFinalizer(store, &mockSignaler{}, zap.NewNop())

	result, err := f.Finalize(context.Background(), "", "APPROVE", "")
	require.NoError(t, err)
	require.Equal(t, Result{Status: "noop"}, result)

	// Хранилище не трогали вообще
	require.Zero(t, store.tokenReads)
	require.Empty(t, store.writes)
}

func TestFinalizeNormalizesKnownDecisions(t *testing.T) {
	cases := []struct {
		decision string
		want     domain.TaskStatus
	}{
		{"APPROVE", domain.StatusApproved},
		{"REJECT", domain.StatusRejected},
		{"TIMED_OUT", domain.StatusTimedOut},
		{"FAILED", domain.StatusFailed},
	}

	for _, tc := range cases {
		t.Run(tc.decision, func(t *testing.T) {
			store := &mockStore{}
			f := NewFinalizer(store, &mockSignaler{}, zap.NewNop())

			result, err := f.Finalize(context.Background(), "T1", tc.decision, "")
			require.NoError(t, err)
			require.Equal(t, "updated", result.Status)
			require.Equal(t, "T1", result.TaskID)
			require.Equal(t, tc.want, result.StatusSet)

			require.Len(t, store.writes, 1)
			require.Equal(t, tc.want, store.writes[0].status)
		})
	}
}

func TestFinalizeUnknownDecisionPassesThrough(t *testing.T) {
	store := &mockStore{}
	f := NewFinalizer(store, &mockSignaler{}, zap.NewNop())

	result, err := f.Finalize(context.Background(), "T1", "MAYBE", "")
	require.NoError(t, err)
	// Документированный passthrough: незнакомое решение становится статусом буквально
	require.Equal(t, domain.TaskStatus("MAYBE"), result.StatusSet)
	require.Equal(t, domain.TaskStatus("MAYBE"), store.writes[0].status)
}

func TestFinalizePersistsComments(t *testing.T) {
	store := &mockStore{}
	f := NewFinalizer(store, &mockSignaler{}, zap.NewNop())

	_, err := f.Finalize(context.Background(), "T1", "REJECT", "too costly")
	require.NoError(t, err)
	require.Equal(t, "too costly", store.writes[0].comments)
}

func TestFinalizeSignalCarriesTokenReadBeforeClear(t *testing.T) {
	token := "TOK1"
	store := &mockStore{token: &token}
	signaler := &mockSignaler{}
	f := NewFinalizer(store, signaler, zap.NewNop())

	_, err := f.Finalize(context.Background(), "T1", "APPROVE", "")
	require.NoError(t, err)

	require.Equal(t, []domain.TaskStatus{domain.StatusApproved}, signaler.published)
	require.NotNil(t, signaler.tokens[0])
	require.Equal(t, "TOK1", *signaler.tokens[0])
}

func TestFinalizeTerminalWriteFailureSurfaces(t *testing.T) {
	store := &mockStore{terminalErr: errors.New("db down")}
	signaler := &mockSignaler{}
	f := NewFinalizer(store, signaler, zap.NewNop())

	_, err := f.Finalize(context.Background(), "T1", "APPROVE", "")
	require.Error(t, err)
	// Сигнал не публикуется, если запись не состоялась
	require.Empty(t, signaler.published)
}

func TestFinalizeSignalFailureDoesNotFailRequest(t *testing.T) {
	store := &mockStore{}
	f := NewFinalizer(store, &mockSignaler{err: errors.New("redis down")}, zap.NewNop())

	// Решение уже в базе — недоставленный сигнал не откатывает ответ
	result, err := f.Finalize(context.Background(), "T1", "APPROVE", "")
	require.NoError(t, err)
	require.Equal(t, "updated", result.Status)
	require.Len(t, store.writes, 1)
}
