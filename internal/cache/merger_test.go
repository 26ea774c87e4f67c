package cache

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hksdtp/salespulse/internal/model"
	"github.com/hksdtp/salespulse/internal/store"
	"github.com/hksdtp/salespulse/internal/visibility"
)

// flakyStore wraps a FileStore and fails reads for selected owners.
type flakyStore struct {
	store.Store
	failOwners map[string]bool
}

func (f *flakyStore) GetTasks(ownerID string) ([]model.Task, int, error) {
	if f.failOwners[ownerID] {
		return nil, 0, fmt.Errorf("storage unavailable for %s", ownerID)
	}
	return f.Store.GetTasks(ownerID)
}

func seedTask(t *testing.T, s store.Store, id, owner, updatedAt string) {
	t.Helper()
	task := model.Task{
		ID:        id,
		OwnerID:   owner,
		Title:     "t-" + id,
		Status:    model.TaskStatusTodo,
		UpdatedAt: updatedAt,
	}
	if err := s.PutTask(task); err != nil {
		t.Fatalf("PutTask %s: %v", id, err)
	}
}

func removeTaskFile(t *testing.T, baseDir, owner, taskID string) {
	t.Helper()
	path := filepath.Join(baseDir, "data", "tasks", owner, taskID+".yaml")
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove %s: %v", path, err)
	}
	_ = os.Remove(path + ".bak")
}

func TestMerger_RecomputeMatchesStore(t *testing.T) {
	s := store.NewFileStore(t.TempDir(), nil)
	m := NewMerger(s, nil)

	seedTask(t, s, "task_1", "user_1", "2026-03-01T10:00:00Z")
	seedTask(t, s, "task_2", "user_1", "2026-03-01T11:00:00Z")
	seedTask(t, s, "task_3", "user_2", "2026-03-01T12:00:00Z")

	view := m.Recompute()
	if len(view.Tasks) != 3 {
		t.Fatalf("raw tier: got %d tasks, want 3", len(view.Tasks))
	}

	// The slice for user_1 exactly equals the store's list for user_1.
	want, _, err := s.GetTasks("user_1")
	if err != nil {
		t.Fatalf("GetTasks: %v", err)
	}
	got := m.Slice("user_1")
	if len(got) != len(want) {
		t.Fatalf("slice length: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("slice[%d]: got %s, want %s", i, got[i].ID, want[i].ID)
		}
	}
}

func TestMerger_PartialRecomputeReplacesOnlyChangedOwner(t *testing.T) {
	s := store.NewFileStore(t.TempDir(), nil)
	m := NewMerger(s, nil)

	seedTask(t, s, "task_1", "user_1", "2026-03-01T10:00:00Z")
	seedTask(t, s, "task_2", "user_2", "2026-03-01T10:00:00Z")
	m.Recompute()

	// user_2 gains a task; recompute only user_2.
	seedTask(t, s, "task_3", "user_2", "2026-03-01T11:00:00Z")
	view := m.Recompute("user_2")

	if len(view.Tasks) != 3 {
		t.Errorf("raw tier: got %d tasks, want 3", len(view.Tasks))
	}
	if len(m.Slice("user_2")) != 2 {
		t.Errorf("user_2 slice: got %d, want 2", len(m.Slice("user_2")))
	}
	// No stale entries: re-reading user_2 did not disturb user_1.
	if len(m.Slice("user_1")) != 1 {
		t.Errorf("user_1 slice: got %d, want 1", len(m.Slice("user_1")))
	}
}

func TestMerger_NoStaleEntriesAfterDelete(t *testing.T) {
	base := t.TempDir()
	s := store.NewFileStore(base, nil)
	m := NewMerger(s, nil)

	seedTask(t, s, "task_1", "user_1", "2026-03-01T10:00:00Z")
	seedTask(t, s, "task_2", "user_1", "2026-03-01T10:00:00Z")
	m.Recompute()

	// Simulate an external delete, then recompute the owner.
	tasks, _, _ := s.GetTasks("user_1")
	if len(tasks) != 2 {
		t.Fatalf("precondition: want 2 tasks, got %d", len(tasks))
	}
	removeTaskFile(t, base, "user_1", "task_1")

	view := m.Recompute("user_1")
	if len(view.Tasks) != 1 || view.Tasks[0].ID != "task_2" {
		t.Errorf("stale entry survived recompute: %v", view.Tasks)
	}
}

func TestMerger_DuplicateIDLastWriteWins(t *testing.T) {
	s := store.NewFileStore(t.TempDir(), nil)

	var logBuf strings.Builder
	m := NewMerger(s, log.New(&logBuf, "", 0))

	// Same task id under two owners; user_2's copy is newer.
	seedTask(t, s, "task_dup", "user_1", "2026-03-01T10:00:00Z")
	seedTask(t, s, "task_dup", "user_2", "2026-03-02T10:00:00Z")

	view := m.Recompute()
	if len(view.Tasks) != 1 {
		t.Fatalf("raw tier must not contain duplicate ids, got %d records", len(view.Tasks))
	}
	if view.Tasks[0].OwnerID != "user_2" {
		t.Errorf("last write should win: got owner %s, want user_2", view.Tasks[0].OwnerID)
	}
	if !strings.Contains(logBuf.String(), "task_dup") {
		t.Errorf("conflict was not logged: %q", logBuf.String())
	}
}

func TestMerger_UnreadableOwnerDegradesToEmpty(t *testing.T) {
	base := store.NewFileStore(t.TempDir(), nil)
	seedTask(t, base, "task_1", "user_1", "2026-03-01T10:00:00Z")
	seedTask(t, base, "task_2", "user_2", "2026-03-01T10:00:00Z")

	flaky := &flakyStore{Store: base, failOwners: map[string]bool{"user_2": true}}
	m := NewMerger(flaky, log.New(&strings.Builder{}, "", 0))

	view := m.Recompute("user_1", "user_2")
	if len(view.Tasks) != 1 || view.Tasks[0].ID != "task_1" {
		t.Errorf("partial visibility expected, got %v", view.Tasks)
	}
}

func TestMerger_ResolveFor(t *testing.T) {
	s := store.NewFileStore(t.TempDir(), nil)
	m := NewMerger(s, nil)

	seedTask(t, s, "task_1", "user_1", "2026-03-01T10:00:00Z")
	seedTask(t, s, "task_2", "user_2", "2026-03-01T10:00:00Z")
	m.Recompute()

	org := visibility.NewOrg([]model.User{
		{ID: "user_1", Role: model.RoleMember, TeamID: "team_1"},
		{ID: "user_2", Role: model.RoleMember, TeamID: "team_2"},
	})
	viewer := model.User{ID: "user_1", Role: model.RoleMember, TeamID: "team_1"}

	filtered := m.ResolveFor(viewer, org)
	if len(filtered) != 1 || filtered[0].ID != "task_1" {
		t.Errorf("filtered tier: got %v, want only task_1", filtered)
	}
}
