package postgres

/*
Файл task_repo.go содержит реализацию хранилища задач согласования (Human-in-the-loop).
Ключевой контракт — условные однострочные UPDATE: атомарность решения по задаче
обеспечивается самой СУБД, без распределенных блокировок.
*/

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xela07ax/approvalflow-prototype/internal/domain"
	"github.com/xela07ax/approvalflow-prototype/internal/infra"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

// NewTaskRepo создает пул соединений по настройкам из конфига.
func NewTaskRepo(ctx context.Context, cfg infra.DatabaseConfig) (*TaskRepo, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}
	return &TaskRepo{pool: pool}, nil
}

// Ping проверяет доступность базы при старте
func (r *TaskRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *TaskRepo) Close() {
	r.pool.Close()
}

// AttachToken прикрепляет resumption-токен к задаче и переводит ее в AWAITING_DECISION.
// Возвращает число затронутых строк (0 — задачи нет) и токен, лежавший в строке
// до обновления: по нему потребитель распознает повторную доставку того же callback.
// Повторный вызов с тем же токеном безопасен (last-write-wins).
func (r *TaskRepo) AttachToken(ctx context.Context, taskID, token string, now time.Time) (int64, *string, error) {
	// CTE позволяет получить прежний токен за один проход,
	// не делая предварительный SELECT (исключение Race Condition)
	query := `
		WITH prev AS (
			SELECT task_token FROM approval_tasks WHERE task_id = $1
		)
		UPDATE approval_tasks
		SET task_token = $2,
		    status = $3,
		    updated_at = $4
		WHERE task_id = $1
		RETURNING (SELECT task_token FROM prev)`

	var prevToken sql.NullString
	err := r.pool.QueryRow(ctx, query, taskID, token, domain.StatusAwaitingDecision, now).Scan(&prevToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Нет строки — нет задачи. Решение, что с этим делать, за потребителем.
			return 0, nil, nil
		}
		return 0, nil, fmt.Errorf("postgres: failed to attach task token: %w", err)
	}

	if prevToken.Valid {
		val := prevToken.String
		return 1, &val, nil
	}
	return 1, nil, nil
}

// GetTask возвращает задачу по идентификатору.
func (r *TaskRepo) GetTask(ctx context.Context, taskID string) (*domain.ApprovalTask, error) {
	query := `SELECT task_id, question_id, assessor_email, status, task_token, comments, created_at, updated_at
	          FROM approval_tasks WHERE task_id = $1`

	row := r.pool.QueryRow(ctx, query, taskID)

	var task domain.ApprovalTask
	var taskToken, comments sql.NullString // Используем для обработки NULL из БД

	err := row.Scan(
		&task.TaskID,
		&task.QuestionID,
		&task.AssessorEmail,
		&task.Status,
		&taskToken,
		&comments,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrTaskNotFound)
		}
		return nil, fmt.Errorf("postgres: failed to fetch task: %w", err)
	}

	// Маппим NULL значения в строки (если есть)
	if taskToken.Valid {
		val := taskToken.String
		task.TaskToken = &val
	}
	if comments.Valid {
		val := comments.String
		task.Comments = &val
	}

	return &task, nil
}

// GetQuestion возвращает текст запроса; из ядра он только читается, никогда не мутируется.
// Отсутствие вопроса — не ошибка: отображаемые метаданные для письма best-effort.
func (r *TaskRepo) GetQuestion(ctx context.Context, questionID string) (*domain.Question, error) {
	query := `SELECT question_id, title, content, created_at FROM questions WHERE question_id = $1`

	var q domain.Question
	err := r.pool.QueryRow(ctx, query, questionID).Scan(&q.QuestionID, &q.Title, &q.Content, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to fetch question: %w", err)
	}
	return &q, nil
}

// GetTaskToken читает текущий resumption-токен задачи (нужен для сигнала оркестратору
// до того, как терминальная запись его очистит).
func (r *TaskRepo) GetTaskToken(ctx context.Context, taskID string) (*string, error) {
	query := `SELECT task_token FROM approval_tasks WHERE task_id = $1`

	var token sql.NullString
	err := r.pool.QueryRow(ctx, query, taskID).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // нет задачи — нет токена, это не ошибка финализации
		}
		return nil, fmt.Errorf("postgres: failed to fetch task token: %w", err)
	}
	if !token.Valid {
		return nil, nil
	}
	val := token.String
	return &val, nil
}

// SetTerminal безусловно пишет терминальный статус и всегда очищает токен.
// Запись по несуществующей задаче затрагивает ноль строк — это принятое
// идемпотентно-безопасное поведение, не ошибка.
func (r *TaskRepo) SetTerminal(ctx context.Context, taskID string, status domain.TaskStatus, comments string, now time.Time) error {
	query := `UPDATE approval_tasks
	          SET status = $1, comments = $2, updated_at = $3, task_token = NULL
	          WHERE task_id = $4`

	_, err := r.pool.Exec(ctx, query, status, comments, now, taskID)
	if err != nil {
		return fmt.Errorf("postgres: failed to finalize task: %w", err)
	}
	return nil
}

// CreateQuestion сохраняет текст запроса на согласование.
func (r *TaskRepo) CreateQuestion(ctx context.Context, q *domain.Question) error {
	query := `INSERT INTO questions (question_id, title, content, created_at)
	          VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, q.QuestionID, q.Title, q.Content, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to create question: %w", err)
	}
	return nil
}

// CreateTask создает задачу в состоянии PENDING; токен появится позже, когда
// callback-поток свяжет задачу с приостановленным workflow.
func (r *TaskRepo) CreateTask(ctx context.Context, t *domain.ApprovalTask) error {
	query := `INSERT INTO approval_tasks (task_id, question_id, assessor_email, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query,
		t.TaskID, t.QuestionID, t.AssessorEmail, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to create approval task: %w", err)
	}
	return nil
}
