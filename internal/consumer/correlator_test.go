package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xela07ax/approvalflow-prototype/internal/domain"
	"go.uber.org/zap"
)

type fakeStore struct {
	tasks     map[string]*domain.ApprovalTask
	questions map[string]*domain.Question

	attachErr   error
	getTaskErr  error
	questionErr error

	calls []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:     make(map[string]*domain.ApprovalTask),
		questions: make(map[string]*domain.Question),
	}
}

func (s *fakeStore) AttachToken(_ context.Context, taskID, token string, now time.Time) (int64, *string, error) {
	s.calls = append(s.calls, "attach")
	if s.attachErr != nil {
		return 0, nil, s.attachErr
	}
	task, ok := s.tasks[taskID]
	if !ok {
		return 0, nil, nil
	}
	var prev *string
	if task.TaskToken != nil {
		val := *task.TaskToken
		prev = &val
	}
	task.TaskToken = &token
	task.Status = domain.StatusAwaitingDecision
	task.UpdatedAt = now
	return 1, prev, nil
}

func (s *fakeStore) GetTask(_ context.Context, taskID string) (*domain.ApprovalTask, error) {
	s.calls = append(s.calls, "getTask")
	if s.getTaskErr != nil {
		return nil, s.getTaskErr
	}
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

func (s *fakeStore) GetQuestion(_ context.Context, questionID string) (*domain.Question, error) {
	s.calls = append(s.calls, "getQuestion")
	if s.questionErr != nil {
		return nil, s.questionErr
	}
	return s.questions[questionID], nil
}

type fakeNotifier struct {
	drafts []domain.NotificationDraft
}

func (n *fakeNotifier) Notify(draft domain.NotificationDraft) {
	n.drafts = append(n.drafts, draft)
}

type fakeSignaler struct {
	orphaned []string
}

func (s *fakeSignaler) OrphanedTask(_ context.Context, taskID string) {
	s.orphaned = append(s.orphaned, taskID)
}

func pendingTask(taskID, questionID, email string) *domain.ApprovalTask {
	now := time.Now()
	return &domain.ApprovalTask{
		TaskID:        taskID,
		QuestionID:    questionID,
		AssessorEmail: email,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func newTestCorrelator(store TaskStore, notifier Notifier, signaler OrphanSignaler) *Correlator {
	return NewCorrelator(store, notifier, signaler, NewMetrics(nil), "https://example.com", zap.NewNop())
}

func TestCorrelateHappyPath(t *testing.T) {
	store := newFakeStore()
	store.tasks["T1"] = pendingTask("T1", "Q1", "a@x.com")
	store.questions["Q1"] = &domain.Question{QuestionID: "Q1", Title: "Budget Request"}

	notifier := &fakeNotifier{}
	signaler := &fakeSignaler{}
	c := newTestCorrelator(store, notifier, signaler)

	err := c.Correlate(context.Background(), CallbackMessage{
		TaskID: "T1", AssessorEmail: "a@x.com", Title: "Budget Request", TaskToken: "TOK1",
	})
	require.NoError(t, err)

	// Задача перешла в ожидание решения с прикрепленным токеном
	task := store.tasks["T1"]
	require.Equal(t, domain.StatusAwaitingDecision, task.Status)
	require.NotNil(t, task.TaskToken)
	require.Equal(t, "TOK1", *task.TaskToken)

	// Черновик собран со ссылками решения
	require.Len(t, notifier.drafts, 1)
	draft := notifier.drafts[0]
	require.Equal(t, "https://example.com/requests/T1/decision?decision=APPROVE", draft.ApproveURL)
	require.Equal(t, "https://example.com/requests/T1/decision?decision=REJECT", draft.RejectURL)
	require.Equal(t, "Approval required: Budget Request", draft.Subject)
	require.Equal(t, "a@x.com", draft.To)
	require.Contains(t, draft.Body, "Task ID: T1")

	require.Empty(t, signaler.orphaned)
	require.Equal(t, []string{"attach", "getTask", "getQuestion"}, store.calls)
}

func TestCorrelateUnknownTask(t *testing.T) {
	store := newFakeStore() // задач нет вообще
	notifier := &fakeNotifier{}
	signaler := &fakeSignaler{}
	c := newTestCorrelator(store, notifier, signaler)

	err := c.Correlate(context.Background(), CallbackMessage{TaskID: "ghost", TaskToken: "TOK"})
	require.ErrorIs(t, err, domain.ErrTaskNotFound)

	// Никаких дальнейших походов в хранилище и никаких писем
	require.Equal(t, []string{"attach"}, store.calls)
	require.Empty(t, notifier.drafts)
	// Но коллаборатору просигналили
	require.Equal(t, []string{"ghost"}, signaler.orphaned)
}

func TestCorrelateMissingQuestionFallsBackToDefaultTitle(t *testing.T) {
	store := newFakeStore()
	store.tasks["T1"] = pendingTask("T1", "Q-missing", "a@x.com")

	notifier := &fakeNotifier{}
	c := newTestCorrelator(store, notifier, &fakeSignaler{})

	err := c.Correlate(context.Background(), CallbackMessage{TaskID: "T1", TaskToken: "TOK1"})
	require.NoError(t, err)

	require.Len(t, notifier.drafts, 1)
	require.Equal(t, "Approval required: Approval Request", notifier.drafts[0].Subject)
}

func TestCorrelateQuestionLookupErrorIsBestEffort(t *testing.T) {
	store := newFakeStore()
	store.tasks["T1"] = pendingTask("T1", "Q1", "a@x.com")
	store.questionErr = errors.New("connection reset")

	notifier := &fakeNotifier{}
	c := newTestCorrelator(store, notifier, &fakeSignaler{})

	err := c.Correlate(context.Background(), CallbackMessage{TaskID: "T1", TaskToken: "TOK1"})
	require.NoError(t, err)
	require.Len(t, notifier.drafts, 1)
	require.Equal(t, "Approval required: Approval Request", notifier.drafts[0].Subject)
}

func TestCorrelateStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.attachErr = errors.New("db down")

	notifier := &fakeNotifier{}
	c := newTestCorrelator(store, notifier, &fakeSignaler{})

	err := c.Correlate(context.Background(), CallbackMessage{TaskID: "T1", TaskToken: "TOK1"})
	require.ErrorIs(t, err, ErrCorrelationFailed)
	require.Empty(t, notifier.drafts)
}

func TestCorrelateTaskVanishedAfterAttach(t *testing.T) {
	store := newFakeStore()
	store.tasks["T1"] = pendingTask("T1", "Q1", "a@x.com")
	store.getTaskErr = errors.New("no rows")

	c := newTestCorrelator(store, &fakeNotifier{}, &fakeSignaler{})

	err := c.Correlate(context.Background(), CallbackMessage{TaskID: "T1", TaskToken: "TOK1"})
	require.ErrorIs(t, err, ErrCorrelationFailed)
}

func TestCorrelateDuplicateDeliverySuppressesDraft(t *testing.T) {
	store := newFakeStore()
	store.tasks["T1"] = pendingTask("T1", "Q1", "a@x.com")
	store.questions["Q1"] = &domain.Question{QuestionID: "Q1", Title: "Budget Request"}

	notifier := &fakeNotifier{}
	c := newTestCorrelator(store, notifier, &fakeSignaler{})

	msg := CallbackMessage{TaskID: "T1", TaskToken: "TOK1"}
	require.NoError(t, c.Correlate(context.Background(), msg))
	// Повторная доставка того же callback: успех (сообщение подтвердят), но без второго письма
	require.NoError(t, c.Correlate(context.Background(), msg))

	require.Len(t, notifier.drafts, 1)
	require.Equal(t, domain.StatusAwaitingDecision, store.tasks["T1"].Status)
	require.Equal(t, "TOK1", *store.tasks["T1"].TaskToken)
}
