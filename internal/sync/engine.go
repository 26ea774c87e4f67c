// Package sync promotes due plans into tasks, idempotently. Both the
// periodic timer and manual triggers funnel into the same entry point, so
// repetition and interleaving can never mint a second task for a plan.
package sync

import (
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hksdtp/salespulse/internal/events"
	"github.com/hksdtp/salespulse/internal/model"
	"github.com/hksdtp/salespulse/internal/store"
)

// Publisher is the slice of the signal bus the engine needs.
type Publisher interface {
	Publish(topic events.Topic, payload map[string]any)
}

// Result reports one sync pass. Duplicates is expected steady-state: every
// already-promoted plan counts there on every subsequent pass.
type Result struct {
	OwnerID    string
	Created    int
	Skipped    int
	Duplicates int
}

// Engine scans a viewer's plans and materializes each due plan into exactly
// one task. It only ever appends tasks; it never mutates or deletes.
type Engine struct {
	store store.Store
	bus   Publisher
	log   *log.Logger
	group singleflight.Group

	// now is swappable for due-date boundary tests.
	now func() time.Time
}

func New(st store.Store, bus Publisher, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		store: st,
		bus:   bus,
		log:   logger,
		now:   time.Now,
	}
}

// SetClock overrides the engine's notion of "today". Test hook.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// SyncDuePlans promotes the owner's due plans into tasks and returns the
// counts. Concurrent calls for the same owner are coalesced onto a single
// pass; the idempotence of the underlying writes makes the coalescing an
// optimization, not a correctness requirement.
//
// A store failure reading the plan collection aborts the pass with zero
// created. A malformed plan is skipped and counted, never fatal. One refresh
// signal is published per pass iff it created tasks.
func (e *Engine) SyncDuePlans(ownerID string) (Result, error) {
	if ownerID == "" {
		return Result{}, errors.New("owner id required")
	}

	v, err, _ := e.group.Do(ownerID, func() (any, error) {
		return e.syncOwner(ownerID)
	})
	res, _ := v.(Result)
	return res, err
}

func (e *Engine) syncOwner(ownerID string) (Result, error) {
	res := Result{OwnerID: ownerID}

	plans, unreadable, err := e.store.GetPlans(ownerID)
	if err != nil {
		return Result{OwnerID: ownerID}, fmt.Errorf("sync %s: %w", ownerID, err)
	}
	res.Skipped += unreadable

	ownerTeam := e.ownerTeam(ownerID)
	today := e.now()

	// Plans arrive sorted by id, so repeated passes over unchanged input
	// report identical counts.
	for _, plan := range plans {
		if err := plan.Validate(); err != nil {
			res.Skipped++
			e.log.Printf("WARN sync: skipping malformed plan owner=%s: %v", ownerID, err)
			continue
		}
		if !plan.DueOn(today) {
			continue
		}

		taskID := model.PromotedTaskID(ownerID, plan.ID)

		// Re-validate the dedup key immediately before the write. The
		// write itself lands on a deterministic path, so even a racing
		// pass that slips past this check converges on the same record.
		exists, err := e.store.HasTask(ownerID, taskID)
		if err != nil {
			return res, fmt.Errorf("sync %s: dedup check plan %s: %w", ownerID, plan.ID, err)
		}
		if exists {
			res.Duplicates++
			continue
		}

		task := e.promote(plan, taskID, ownerTeam)
		if err := e.store.PutTask(task); err != nil {
			return res, fmt.Errorf("sync %s: write task for plan %s: %w", ownerID, plan.ID, err)
		}
		res.Created++
		e.log.Printf("INFO sync: promoted plan=%s task=%s owner=%s", plan.ID, taskID, ownerID)
	}

	if e.bus != nil {
		if res.Created > 0 {
			e.bus.Publish(events.TopicTasksRefreshed, map[string]any{
				"owner_id": ownerID,
				"created":  res.Created,
			})
		}
		e.bus.Publish(events.TopicSyncCompleted, map[string]any{
			"owner_id":   ownerID,
			"created":    res.Created,
			"skipped":    res.Skipped,
			"duplicates": res.Duplicates,
		})
	}

	return res, nil
}

// promote copies the plan's scheduling fields onto a fresh todo task.
func (e *Engine) promote(plan model.Plan, taskID, ownerTeam string) model.Task {
	now := e.now().UTC().Format(time.RFC3339)
	return model.Task{
		ID:           taskID,
		Title:        plan.Title,
		Description:  plan.Description,
		Category:     model.TaskCategory(plan.Category),
		Status:       model.TaskStatusTodo,
		Priority:     plan.Priority,
		Date:         plan.StartDate,
		Time:         plan.StartTime,
		OwnerID:      plan.OwnerID,
		OwnerName:    plan.CreatorName,
		TeamID:       ownerTeam,
		Location:     plan.Location,
		Visibility:   plan.Visibility,
		FromPlan:     true,
		SourcePlanID: plan.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ownerTeam looks up the owner's team for the promoted task; an owner with
// no user record yields an empty team id.
func (e *Engine) ownerTeam(ownerID string) string {
	user, err := e.store.GetUser(ownerID)
	if err != nil {
		return ""
	}
	return user.TeamID
}

// Totals aggregates per-owner results from a full pass.
type Totals struct {
	Owners     int
	Created    int
	Skipped    int
	Duplicates int
}

// SyncAll runs SyncDuePlans for every owner the store knows. Per-owner
// failures degrade to "no new tasks for that owner this cycle"; the periodic
// timer will retry.
func (e *Engine) SyncAll() (Totals, error) {
	owners, err := e.store.ListOwners()
	if err != nil {
		return Totals{}, fmt.Errorf("sync all: %w", err)
	}

	var totals Totals
	for _, owner := range owners {
		res, err := e.SyncDuePlans(owner)
		if err != nil {
			e.log.Printf("WARN sync: owner=%s failed: %v", owner, err)
			continue
		}
		totals.Owners++
		totals.Created += res.Created
		totals.Skipped += res.Skipped
		totals.Duplicates += res.Duplicates
	}
	return totals, nil
}
