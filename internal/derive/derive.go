// Package derive はタスク一覧の表示用データを導出する。
// フィルタ・検索・ソート・統計はすべて永続化済みのタスク集合からの
// 純粋な導出であり、状態を持たず副作用もない。
package derive

import (
	"sort"
	"strings"
	"time"

	"github.com/Kahananghan/Taskflow/internal/model"
)

// Query はタスク一覧の表示条件。
type Query struct {
	Status model.TaskStatusFilter // 省略時はall
	Search string                 // タイトル・説明への部分一致。大文字小文字を区別しない
	Sort   model.TaskSortKey      // 省略時はcreated
}

// Stats はタスク集合の統計値。
// フィルタ・検索の適用前の全タスクから算出する。
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Urgent    int `json:"urgent"`
	Overdue   int `json:"overdue"`
}

// Apply はタスク集合にフィルタ・検索・ソートを適用した新しいスライスを返す。
// 入力スライスは変更しない。不明なフィルタ・ソートキーはINVALID_FILTERを返す。
func Apply(tasks []*model.Task, query Query) ([]*model.Task, *model.APIError) {
	status := query.Status
	if status == "" {
		status = model.TaskStatusAll
	}
	if status != model.TaskStatusAll && status != model.TaskStatusPending && status != model.TaskStatusCompleted {
		return nil, model.NewInvalidFilterError(string(status))
	}

	sortKey := query.Sort
	if sortKey == "" {
		sortKey = model.TaskSortCreated
	}
	if sortKey != model.TaskSortCreated && sortKey != model.TaskSortPriority && sortKey != model.TaskSortDueDate {
		return nil, model.NewInvalidFilterError(string(sortKey))
	}

	search := strings.ToLower(strings.TrimSpace(query.Search))

	result := make([]*model.Task, 0, len(tasks))
	for _, t := range tasks {
		if !matchesStatus(t, status) {
			continue
		}
		if search != "" && !matchesSearch(t, search) {
			continue
		}
		result = append(result, t)
	}

	sortTasks(result, sortKey)
	return result, nil
}

// ComputeStats はフィルタ適用前の全タスクから統計値を算出する。
// UrgentとOverdueは未完了タスクのみを数える。
func ComputeStats(tasks []*model.Task, now time.Time) Stats {
	stats := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			stats.Completed++
			continue
		}
		stats.Pending++
		if t.Priority == model.PriorityUrgent {
			stats.Urgent++
		}
		if t.IsOverdue(now) {
			stats.Overdue++
		}
	}
	return stats
}

func matchesStatus(t *model.Task, status model.TaskStatusFilter) bool {
	switch status {
	case model.TaskStatusPending:
		return !t.Completed
	case model.TaskStatusCompleted:
		return t.Completed
	default:
		return true
	}
}

func matchesSearch(t *model.Task, search string) bool {
	return strings.Contains(strings.ToLower(t.Title), search) ||
		strings.Contains(strings.ToLower(t.Description), search)
}

// sortTasks はソートキーに応じてタスクを安定ソートする。
func sortTasks(tasks []*model.Task, key model.TaskSortKey) {
	switch key {
	case model.TaskSortPriority:
		// 優先度の降順。同順位は作成日時の降順
		sort.SliceStable(tasks, func(i, j int) bool {
			if tasks[i].Priority.Rank() != tasks[j].Priority.Rank() {
				return tasks[i].Priority.Rank() > tasks[j].Priority.Rank()
			}
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		})
	case model.TaskSortDueDate:
		// 期限日の昇順。期限なしは末尾
		sort.SliceStable(tasks, func(i, j int) bool {
			di, dj := tasks[i].DueDate, tasks[j].DueDate
			switch {
			case di == nil && dj == nil:
				return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
			case di == nil:
				return false
			case dj == nil:
				return true
			default:
				return di.Before(*dj)
			}
		})
	default:
		// 作成日時の降順
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		})
	}
}
