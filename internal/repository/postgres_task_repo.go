package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kahananghan/Taskflow/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
// 変更系クエリのWHERE句は必ず id と user_id の両方を含む。
// 所有権の確認と変更を別クエリに分けると、確認と変更の間に
// レース窓が生じるため、単一文で実行する。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// Create は新規タスクを作成する。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, title, description, completed, priority, due_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		task.ID, task.UserID, task.Title, task.Description, task.Completed,
		string(task.Priority), task.DueDate, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// ListByUserID は指定ユーザーの全タスクをcreated_at降順で返す。
// タスクが1件もない場合は空スライスを返す。
func (r *PostgresTaskRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, description, completed, priority, due_date, created_at, updated_at
		 FROM tasks
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*model.Task{}
	for rows.Next() {
		task := &model.Task{}
		var priority string
		if err := rows.Scan(
			&task.ID, &task.UserID, &task.Title, &task.Description, &task.Completed,
			&priority, &task.DueDate, &task.CreatedAt, &task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		task.Priority = model.Priority(priority)
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// Update は(id, user_id)の両方が一致するタスクのフィールドを単一文で置き換える。
// 一致する行がない場合はnilを返す。他ユーザー所有のタスクIDを指定された場合も
// 「存在しない」と同じ結果になり、部分的な成功や存在の漏洩は起きない。
func (r *PostgresTaskRepo) Update(ctx context.Context, task *model.Task) (*model.Task, error) {
	updated := &model.Task{}
	var priority string
	err := r.db.QueryRowContext(ctx,
		`UPDATE tasks
		 SET title = $1, description = $2, completed = $3, priority = $4, due_date = $5, updated_at = now()
		 WHERE id = $6 AND user_id = $7
		 RETURNING id, user_id, title, description, completed, priority, due_date, created_at, updated_at`,
		task.Title, task.Description, task.Completed, string(task.Priority), task.DueDate,
		task.ID, task.UserID,
	).Scan(
		&updated.ID, &updated.UserID, &updated.Title, &updated.Description, &updated.Completed,
		&priority, &updated.DueDate, &updated.CreatedAt, &updated.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	updated.Priority = model.Priority(priority)
	return updated, nil
}

// Delete は(id, user_id)の両方が一致するタスクを単一文で削除する。
// 削除した場合はtrue、一致する行がない場合はfalseを返す。冪等。
func (r *PostgresTaskRepo) Delete(ctx context.Context, userID, taskID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`,
		taskID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
