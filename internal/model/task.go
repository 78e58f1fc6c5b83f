// Package model はドメインモデルを定義する。
package model

import "time"

// Priority はタスクの優先度を表す。
type Priority string

const (
	// PriorityLow は低優先度。
	PriorityLow Priority = "LOW"
	// PriorityMedium は中優先度。新規タスクのデフォルト。
	PriorityMedium Priority = "MEDIUM"
	// PriorityHigh は高優先度。
	PriorityHigh Priority = "HIGH"
	// PriorityUrgent は緊急。
	PriorityUrgent Priority = "URGENT"
)

// priorityRank は優先度ソート用の順位。大きいほど優先度が高い。
var priorityRank = map[Priority]int{
	PriorityLow:    1,
	PriorityMedium: 2,
	PriorityHigh:   3,
	PriorityUrgent: 4,
}

// Rank は優先度の順位を返す。未知の値は0を返す。
func (p Priority) Rank() int {
	return priorityRank[p]
}

// Valid は既知の優先度値かどうかを返す。
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Task はユーザーが所有するタスクを表す。
// UserIDは作成後に変更されない。タスクは必ず所有ユーザー経由でのみ到達可能で、
// 他ユーザーからの参照・変更は許可されない。
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Completed   bool
	Priority    Priority
	DueDate     *time.Time // 時刻情報を持たない日付。未設定の場合はnil。
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsOverdue はタスクが期限超過かどうかを返す。
// 期限が現在時刻より厳密に前で、かつ未完了の場合にtrue。
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.Completed && t.DueDate != nil && t.DueDate.Before(now)
}

// TaskStatusFilter はタスク一覧の状態フィルタ種別を表す。
type TaskStatusFilter string

const (
	// TaskStatusAll は全タスクを表示するフィルタ。
	TaskStatusAll TaskStatusFilter = "all"
	// TaskStatusPending は未完了タスクのみを表示するフィルタ。
	TaskStatusPending TaskStatusFilter = "pending"
	// TaskStatusCompleted は完了タスクのみを表示するフィルタ。
	TaskStatusCompleted TaskStatusFilter = "completed"
)

// TaskSortKey はタスク一覧のソートキーを表す。
type TaskSortKey string

const (
	// TaskSortCreated は作成日時の降順ソート。デフォルト。
	TaskSortCreated TaskSortKey = "created"
	// TaskSortPriority は優先度の降順ソート（URGENT > HIGH > MEDIUM > LOW）。
	TaskSortPriority TaskSortKey = "priority"
	// TaskSortDueDate は期限日の昇順ソート。期限なしのタスクは末尾に置く。
	TaskSortDueDate TaskSortKey = "dueDate"
)
