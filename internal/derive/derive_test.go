package derive

import (
	"testing"
	"time"

	"github.com/Kahananghan/Taskflow/internal/model"
)

func datePtr(t *testing.T, value string) *time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("invalid date %q: %v", value, err)
	}
	return &d
}

func newTask(id string, priority model.Priority, completed bool, createdAt time.Time) *model.Task {
	return &model.Task{
		ID:        id,
		UserID:    "user-1",
		Title:     "タスク " + id,
		Priority:  priority,
		Completed: completed,
		CreatedAt: createdAt,
	}
}

// --- フィルタ ---

func TestApply_StatusFilter(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	tasks := []*model.Task{
		newTask("a", model.PriorityMedium, false, base),
		newTask("b", model.PriorityMedium, true, base.Add(time.Hour)),
		newTask("c", model.PriorityMedium, false, base.Add(2*time.Hour)),
	}

	tests := []struct {
		name    string
		status  model.TaskStatusFilter
		wantIDs []string
	}{
		{"all", model.TaskStatusAll, []string{"c", "b", "a"}},
		{"省略時はall", "", []string{"c", "b", "a"}},
		{"pending", model.TaskStatusPending, []string{"c", "a"}},
		{"completed", model.TaskStatusCompleted, []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, apiErr := Apply(tasks, Query{Status: tt.status})
			if apiErr != nil {
				t.Fatalf("Apply() error = %v", apiErr)
			}
			assertIDs(t, got, tt.wantIDs)
		})
	}
}

func TestApply_UnknownStatus(t *testing.T) {
	_, apiErr := Apply(nil, Query{Status: "archived"})
	if apiErr == nil {
		t.Fatal("expected error for unknown status filter")
	}
	if apiErr.Code != model.ErrCodeInvalidFilter {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidFilter)
	}
}

func TestApply_UnknownSortKey(t *testing.T) {
	_, apiErr := Apply(nil, Query{Sort: "alphabetical"})
	if apiErr == nil {
		t.Fatal("expected error for unknown sort key")
	}
	if apiErr.Code != model.ErrCodeInvalidFilter {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidFilter)
	}
}

// --- 検索 ---

func TestApply_Search(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	tasks := []*model.Task{
		{ID: "a", Title: "Write REPORT", Description: "", CreatedAt: base},
		{ID: "b", Title: "買い物", Description: "report用の紙を買う", CreatedAt: base.Add(time.Hour)},
		{ID: "c", Title: "掃除", Description: "", CreatedAt: base.Add(2 * time.Hour)},
	}

	// 大文字小文字を区別せず、タイトルと説明の両方を対象にする
	got, apiErr := Apply(tasks, Query{Search: "Report"})
	if apiErr != nil {
		t.Fatalf("Apply() error = %v", apiErr)
	}
	assertIDs(t, got, []string{"b", "a"})

	// 一致なし
	got, apiErr = Apply(tasks, Query{Search: "meeting"})
	if apiErr != nil {
		t.Fatalf("Apply() error = %v", apiErr)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}

	// 空白のみの検索語は検索なしとして扱う
	got, apiErr = Apply(tasks, Query{Search: "   "})
	if apiErr != nil {
		t.Fatalf("Apply() error = %v", apiErr)
	}
	if len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

// --- ソート ---

func TestApply_SortByPriority(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	tasks := []*model.Task{
		newTask("low", model.PriorityLow, false, base),
		newTask("urgent", model.PriorityUrgent, false, base.Add(time.Hour)),
		newTask("medium", model.PriorityMedium, false, base.Add(2*time.Hour)),
	}

	got, apiErr := Apply(tasks, Query{Sort: model.TaskSortPriority})
	if apiErr != nil {
		t.Fatalf("Apply() error = %v", apiErr)
	}
	assertIDs(t, got, []string{"urgent", "medium", "low"})
}

func TestApply_SortByDueDate_NullsLast(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	tasks := []*model.Task{
		{ID: "none", Title: "期限なし", CreatedAt: base},
		{ID: "late", Title: "後", DueDate: datePtr(t, "2026-09-15"), CreatedAt: base.Add(time.Hour)},
		{ID: "soon", Title: "先", DueDate: datePtr(t, "2026-09-01"), CreatedAt: base.Add(2 * time.Hour)},
	}

	got, apiErr := Apply(tasks, Query{Sort: model.TaskSortDueDate})
	if apiErr != nil {
		t.Fatalf("Apply() error = %v", apiErr)
	}
	assertIDs(t, got, []string{"soon", "late", "none"})
}

func TestApply_DefaultSortIsCreatedDesc(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	tasks := []*model.Task{
		newTask("oldest", model.PriorityMedium, false, base),
		newTask("newest", model.PriorityMedium, false, base.Add(2*time.Hour)),
		newTask("middle", model.PriorityMedium, false, base.Add(time.Hour)),
	}

	got, apiErr := Apply(tasks, Query{})
	if apiErr != nil {
		t.Fatalf("Apply() error = %v", apiErr)
	}
	assertIDs(t, got, []string{"newest", "middle", "oldest"})
}

// 入力スライスが変更されないことを検証
func TestApply_DoesNotMutateInput(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	tasks := []*model.Task{
		newTask("a", model.PriorityLow, false, base),
		newTask("b", model.PriorityUrgent, false, base.Add(time.Hour)),
	}

	_, apiErr := Apply(tasks, Query{Sort: model.TaskSortPriority})
	if apiErr != nil {
		t.Fatalf("Apply() error = %v", apiErr)
	}

	if tasks[0].ID != "a" || tasks[1].ID != "b" {
		t.Errorf("input slice was mutated: [%s, %s]", tasks[0].ID, tasks[1].ID)
	}
}

// --- 統計 ---

func TestComputeStats(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	tasks := []*model.Task{
		// 完了済み。期限超過だが完了しているのでoverdueに数えない
		{ID: "a", Completed: true, Priority: model.PriorityUrgent, DueDate: datePtr(t, "2026-08-01")},
		// 未完了の緊急タスク
		{ID: "b", Completed: false, Priority: model.PriorityUrgent},
		// 未完了で期限超過
		{ID: "c", Completed: false, Priority: model.PriorityLow, DueDate: datePtr(t, "2026-08-20")},
		// 未完了で期限内
		{ID: "d", Completed: false, Priority: model.PriorityMedium, DueDate: datePtr(t, "2026-09-10")},
	}

	stats := ComputeStats(tasks, now)

	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.Completed != 1 {
		t.Errorf("Completed = %d, want 1", stats.Completed)
	}
	if stats.Pending != 3 {
		t.Errorf("Pending = %d, want 3", stats.Pending)
	}
	// 完了済みの緊急タスクは数えない
	if stats.Urgent != 1 {
		t.Errorf("Urgent = %d, want 1", stats.Urgent)
	}
	// 完了済みの期限超過タスクは数えない
	if stats.Overdue != 1 {
		t.Errorf("Overdue = %d, want 1", stats.Overdue)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil, time.Now())
	if stats != (Stats{}) {
		t.Errorf("stats = %+v, want zero value", stats)
	}
}

func assertIDs(t *testing.T, tasks []*model.Task, want []string) {
	t.Helper()
	if len(tasks) != len(want) {
		t.Fatalf("len = %d, want %d", len(tasks), len(want))
	}
	for i, w := range want {
		if tasks[i].ID != w {
			t.Errorf("tasks[%d].ID = %q, want %q", i, tasks[i].ID, w)
		}
	}
}
