// Package task はタスクのCRUD操作のビジネスロジックを提供する。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Kahananghan/Taskflow/internal/model"
	"github.com/Kahananghan/Taskflow/internal/repository"
	"github.com/Kahananghan/Taskflow/internal/security"
	"github.com/Kahananghan/Taskflow/internal/validation"
)

// dueDateLayout は期限日の入力形式。時刻情報は持たない。
const dueDateLayout = "2006-01-02"

// CreateInput はタスク作成の入力。
type CreateInput struct {
	Title       string
	Description string
	Priority    string // 省略時はMEDIUM
	DueDate     string // YYYY-MM-DD形式。省略可
}

// UpdateInput はタスク更新の入力。全フィールドを置き換える。
type UpdateInput struct {
	Title       string
	Description string
	Completed   bool
	Priority    string
	DueDate     string // YYYY-MM-DD形式。空文字列で期限を解除
}

// Service はタスクに関するビジネスロジックを提供する。
// すべての操作は認証済みユーザーIDでスコープされ、
// 他ユーザーのタスクには到達できない。
type Service struct {
	taskRepo  repository.TaskRepository
	sanitizer *security.ContentSanitizer
}

// NewService はServiceを生成する。
func NewService(taskRepo repository.TaskRepository, sanitizer *security.ContentSanitizer) *Service {
	return &Service{
		taskRepo:  taskRepo,
		sanitizer: sanitizer,
	}
}

// Create は新規タスクを作成する。
// タイトルは必須。優先度の省略時はMEDIUMが設定される。
// タイトルと説明はHTMLタグを除去してから永続化する。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Task, error) {
	title := s.sanitizer.SanitizeText(input.Title)
	if verr := validation.TaskTitle(title); verr != nil {
		return nil, verr
	}

	priority, verr := parsePriority(input.Priority)
	if verr != nil {
		return nil, verr
	}

	dueDate, verr := parseDueDate(input.DueDate)
	if verr != nil {
		return nil, verr
	}

	now := time.Now()
	task := &model.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: s.sanitizer.SanitizeText(input.Description),
		Completed:   false,
		Priority:    priority,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	slog.Info("task created",
		slog.String("task_id", task.ID),
		slog.String("user_id", userID),
	)

	return task, nil
}

// List は認証済みユーザーの全タスクを作成日時の降順で返す。
// タスクがない場合は空スライスを返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Task, error) {
	tasks, err := s.taskRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Update は(taskID, userID)の両方が一致するタスクのフィールドを置き換える。
// 更新は単一のSQL文で実行され、一致する行がない場合はTASK_NOT_FOUNDを返す。
// タスクが存在しない場合と他ユーザーが所有する場合は区別できない。
func (s *Service) Update(ctx context.Context, userID, taskID string, input UpdateInput) (*model.Task, error) {
	title := s.sanitizer.SanitizeText(input.Title)
	if verr := validation.TaskTitle(title); verr != nil {
		return nil, verr
	}

	priority, verr := parsePriority(input.Priority)
	if verr != nil {
		return nil, verr
	}

	dueDate, verr := parseDueDate(input.DueDate)
	if verr != nil {
		return nil, verr
	}

	updated, err := s.taskRepo.Update(ctx, &model.Task{
		ID:          taskID,
		UserID:      userID,
		Title:       title,
		Description: s.sanitizer.SanitizeText(input.Description),
		Completed:   input.Completed,
		Priority:    priority,
		DueDate:     dueDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if updated == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	slog.Info("task updated",
		slog.String("task_id", taskID),
		slog.String("user_id", userID),
	)

	return updated, nil
}

// Delete は(taskID, userID)の両方が一致するタスクを削除する。
// 削除は単一のSQL文で実行され、一致する行がない場合はTASK_NOT_FOUNDを返す。
func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	deleted, err := s.taskRepo.Delete(ctx, userID, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !deleted {
		return model.NewTaskNotFoundError(taskID)
	}

	slog.Info("task deleted",
		slog.String("task_id", taskID),
		slog.String("user_id", userID),
	)

	return nil
}

// parsePriority は優先度文字列を検証する。空文字列の場合はMEDIUMを返す。
func parsePriority(value string) (model.Priority, *model.APIError) {
	if value == "" {
		return model.PriorityMedium, nil
	}
	p := model.Priority(value)
	if !p.Valid() {
		return "", model.NewValidationError(fmt.Sprintf("優先度が不正です: %s", value))
	}
	return p, nil
}

// parseDueDate は期限日文字列を検証する。空文字列の場合はnilを返す。
func parseDueDate(value string) (*time.Time, *model.APIError) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dueDateLayout, value)
	if err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("期限日はYYYY-MM-DD形式で指定してください: %s", value))
	}
	return &t, nil
}
