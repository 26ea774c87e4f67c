// Package store defines the repository boundary for plans, tasks, and user
// records, and provides the YAML-file-backed implementation the daemon runs
// on.
package store

import (
	"errors"

	"github.com/hksdtp/salespulse/internal/model"
)

// ErrNotFound reports a missing record; callers distinguish it from storage
// failure.
var ErrNotFound = errors.New("record not found")

// Store is the engine's only durable collaborator. All task collections the
// cache merger and visibility resolver work with are re-derivable from it.
//
// Read methods that return a batch also return the number of records that
// were present but unreadable or invalid; the batch never fails for an
// individual bad record.
type Store interface {
	GetPlans(ownerID string) (plans []model.Plan, skipped int, err error)
	GetTasks(ownerID string) (tasks []model.Task, skipped int, err error)
	PutPlan(plan model.Plan) error
	PutTask(task model.Task) error
	HasTask(ownerID, taskID string) (bool, error)
	GetUser(userID string) (model.User, error)
	PutUser(user model.User) error
	ListUsers() ([]model.User, error)
	ListOwners() ([]string, error)
}
