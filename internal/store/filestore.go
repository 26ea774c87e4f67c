package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/hksdtp/salespulse/internal/lock"
	"github.com/hksdtp/salespulse/internal/model"
	yamlutil "github.com/hksdtp/salespulse/internal/yaml"
)

// FileStore persists one YAML file per record under the salespulse data
// directory:
//
//	data/plans/<owner_id>/<plan_id>.yaml
//	data/tasks/<owner_id>/<task_id>.yaml
//	data/users/<user_id>.yaml
//
// Each write is an atomic rename, so a torn daemon shutdown never leaves a
// half-written record behind. A file that no longer parses is restored from
// its .bak when possible, otherwise quarantined and counted as skipped.
type FileStore struct {
	baseDir        string
	lockMap        *lock.MutexMap
	maxRecordBytes int
}

func NewFileStore(baseDir string, lockMap *lock.MutexMap) *FileStore {
	if lockMap == nil {
		lockMap = lock.NewMutexMap()
	}
	return &FileStore{baseDir: baseDir, lockMap: lockMap}
}

// SetMaxRecordBytes caps the size of a record file the store will read.
// Oversized files are counted as skipped, the same as unparseable ones.
// Zero means no limit.
func (s *FileStore) SetMaxRecordBytes(n int) {
	s.maxRecordBytes = n
}

// TasksDir returns the directory the daemon's filesystem watcher observes.
func (s *FileStore) TasksDir() string {
	return filepath.Join(s.baseDir, "data", "tasks")
}

func (s *FileStore) plansDir(ownerID string) string {
	return filepath.Join(s.baseDir, "data", "plans", ownerID)
}

func (s *FileStore) tasksDir(ownerID string) string {
	return filepath.Join(s.baseDir, "data", "tasks", ownerID)
}

func (s *FileStore) usersDir() string {
	return filepath.Join(s.baseDir, "data", "users")
}

func (s *FileStore) taskPath(ownerID, taskID string) string {
	return filepath.Join(s.tasksDir(ownerID), taskID+".yaml")
}

func (s *FileStore) GetPlans(ownerID string) ([]model.Plan, int, error) {
	if ownerID == "" {
		return nil, 0, fmt.Errorf("owner id required")
	}

	s.lockMap.Lock("plans:" + ownerID)
	defer s.lockMap.Unlock("plans:" + ownerID)

	var plans []model.Plan
	skipped, err := s.readRecords(s.plansDir(ownerID), func(data []byte) error {
		var p model.Plan
		if err := yamlv3.Unmarshal(data, &p); err != nil {
			return err
		}
		plans = append(plans, p)
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("read plans for %s: %w", ownerID, err)
	}

	sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	return plans, skipped, nil
}

func (s *FileStore) GetTasks(ownerID string) ([]model.Task, int, error) {
	if ownerID == "" {
		return nil, 0, fmt.Errorf("owner id required")
	}

	s.lockMap.Lock("tasks:" + ownerID)
	defer s.lockMap.Unlock("tasks:" + ownerID)

	var tasks []model.Task
	skipped, err := s.readRecords(s.tasksDir(ownerID), func(data []byte) error {
		var t model.Task
		if err := yamlv3.Unmarshal(data, &t); err != nil {
			return err
		}
		tasks = append(tasks, t)
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("read tasks for %s: %w", ownerID, err)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, skipped, nil
}

// readRecords loads every .yaml file in dir through decode. A missing dir is
// an empty collection. A file that fails to decode is restored from backup
// when possible; if that also fails it is quarantined and counted.
func (s *FileStore) readRecords(dir string, decode func([]byte) error) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read dir: %w", err)
	}

	skipped := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		path := filepath.Join(dir, name)

		if s.maxRecordBytes > 0 {
			if info, err := entry.Info(); err == nil && info.Size() > int64(s.maxRecordBytes) {
				skipped++
				continue
			}
		}

		data, err := os.ReadFile(path)
		if err != nil {
			skipped++
			continue
		}
		if decode(data) == nil {
			continue
		}

		// Corrupt record: try the .bak, then give up and quarantine.
		if err := yamlutil.RestoreFromBackup(path); err == nil {
			if data, err := os.ReadFile(path); err == nil && decode(data) == nil {
				continue
			}
		}
		_ = yamlutil.Quarantine(s.baseDir, path)
		skipped++
	}
	return skipped, nil
}

func (s *FileStore) PutPlan(plan model.Plan) error {
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("put plan: %w", err)
	}

	s.lockMap.Lock("plans:" + plan.OwnerID)
	defer s.lockMap.Unlock("plans:" + plan.OwnerID)

	dir := s.plansDir(plan.OwnerID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create plans dir: %w", err)
	}
	return yamlutil.AtomicWrite(filepath.Join(dir, plan.ID+".yaml"), plan)
}

func (s *FileStore) PutTask(task model.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("put task: %w", err)
	}

	s.lockMap.Lock("tasks:" + task.OwnerID)
	defer s.lockMap.Unlock("tasks:" + task.OwnerID)

	dir := s.tasksDir(task.OwnerID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create tasks dir: %w", err)
	}
	return yamlutil.AtomicWrite(s.taskPath(task.OwnerID, task.ID), task)
}

func (s *FileStore) HasTask(ownerID, taskID string) (bool, error) {
	_, err := os.Stat(s.taskPath(ownerID, taskID))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat task %s: %w", taskID, err)
}

func (s *FileStore) GetUser(userID string) (model.User, error) {
	path := filepath.Join(s.usersDir(), userID+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.User{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return model.User{}, fmt.Errorf("read user %s: %w", userID, err)
	}

	var u model.User
	if err := yamlv3.Unmarshal(data, &u); err != nil {
		return model.User{}, fmt.Errorf("parse user %s: %w", userID, err)
	}
	return u, nil
}

func (s *FileStore) PutUser(user model.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("put user: %w", err)
	}

	if err := os.MkdirAll(s.usersDir(), 0755); err != nil {
		return fmt.Errorf("create users dir: %w", err)
	}
	return yamlutil.AtomicWrite(filepath.Join(s.usersDir(), user.ID+".yaml"), user)
}

func (s *FileStore) ListUsers() ([]model.User, error) {
	var users []model.User
	_, err := s.readRecords(s.usersDir(), func(data []byte) error {
		var u model.User
		if err := yamlv3.Unmarshal(data, &u); err != nil {
			return err
		}
		users = append(users, u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// ListOwners returns every owner id that has a plan or task collection on
// disk, sorted.
func (s *FileStore) ListOwners() ([]string, error) {
	seen := map[string]bool{}
	for _, dir := range []string{
		filepath.Join(s.baseDir, "data", "plans"),
		filepath.Join(s.baseDir, "data", "tasks"),
	} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("list owners: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				seen[entry.Name()] = true
			}
		}
	}

	owners := make([]string, 0, len(seen))
	for owner := range seen {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners, nil
}
