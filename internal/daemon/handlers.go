package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hksdtp/salespulse/internal/model"
	"github.com/hksdtp/salespulse/internal/store"
	"github.com/hksdtp/salespulse/internal/uds"
	"github.com/hksdtp/salespulse/internal/visibility"
)

// registerHandlers registers the UDS request handlers.
func (d *Daemon) registerHandlers() {
	d.server.Handle("ping", func(req *uds.Request) *uds.Response {
		return uds.SuccessResponse(map[string]string{"status": "ok"})
	})

	d.server.Handle("sync", d.handleSync)
	d.server.Handle("sync_all", d.handleSyncAll)
	d.server.Handle("tasks", d.handleTasks)
	d.server.Handle("status", d.handleStatus)

	d.server.Handle("shutdown", func(req *uds.Request) *uds.Response {
		d.log(LogLevelInfo, "shutdown requested via UDS")
		go d.Shutdown()
		return uds.SuccessResponse(map[string]string{"status": "shutdown_accepted"})
	})
}

// handleSync is the manual sync entry point. It shares the periodic timer's
// code path end to end, so both triggers have identical idempotent results.
func (d *Daemon) handleSync(req *uds.Request) *uds.Response {
	var params uds.SyncParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return uds.ErrorResponse(uds.ErrCodeValidation, fmt.Sprintf("bad params: %v", err))
		}
	}
	if params.OwnerID == "" {
		return uds.ErrorResponse(uds.ErrCodeValidation, "owner_id required")
	}

	res, err := d.engine.SyncDuePlans(params.OwnerID)
	if err != nil {
		return uds.ErrorResponse(uds.ErrCodeInternal, err.Error())
	}
	d.lastSyncAt.Store(time.Now().UTC())
	d.merger.Recompute(params.OwnerID)

	return uds.SuccessResponse(uds.SyncData{
		OwnerID:    res.OwnerID,
		Created:    res.Created,
		Skipped:    res.Skipped,
		Duplicates: res.Duplicates,
	})
}

func (d *Daemon) handleSyncAll(req *uds.Request) *uds.Response {
	totals, err := d.engine.SyncAll()
	if err != nil {
		return uds.ErrorResponse(uds.ErrCodeInternal, err.Error())
	}
	d.lastSyncAt.Store(time.Now().UTC())
	d.merger.Recompute()

	return uds.SuccessResponse(uds.SyncData{
		Owners:     totals.Owners,
		Created:    totals.Created,
		Skipped:    totals.Skipped,
		Duplicates: totals.Duplicates,
	})
}

// TasksData is the filtered tier for one viewer.
type TasksData struct {
	ViewerID string       `json:"viewer_id"`
	Tasks    []model.Task `json:"tasks"`
}

// handleTasks resolves the viewer's visibility slice over the merged raw
// tier.
func (d *Daemon) handleTasks(req *uds.Request) *uds.Response {
	var params uds.TasksParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return uds.ErrorResponse(uds.ErrCodeValidation, fmt.Sprintf("bad params: %v", err))
		}
	}
	if params.ViewerID == "" {
		return uds.ErrorResponse(uds.ErrCodeValidation, "viewer_id required")
	}

	viewer, err := d.store.GetUser(params.ViewerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return uds.ErrorResponse(uds.ErrCodeNotFound, fmt.Sprintf("viewer %s not found", params.ViewerID))
		}
		return uds.ErrorResponse(uds.ErrCodeInternal, err.Error())
	}

	users, err := d.store.ListUsers()
	if err != nil {
		return uds.ErrorResponse(uds.ErrCodeInternal, err.Error())
	}

	filtered := d.merger.ResolveFor(viewer, visibility.NewOrg(users))
	return uds.SuccessResponse(TasksData{ViewerID: viewer.ID, Tasks: filtered})
}

// StatusData is the daemon's self-report for status tooling.
type StatusData struct {
	Running    bool   `json:"running"`
	Pid        int    `json:"pid"`
	Owners     int    `json:"owners"`
	RawTasks   int    `json:"raw_tasks"`
	LastSyncAt string `json:"last_sync_at,omitempty"`
}

func (d *Daemon) handleStatus(req *uds.Request) *uds.Response {
	owners, err := d.store.ListOwners()
	if err != nil {
		return uds.ErrorResponse(uds.ErrCodeInternal, err.Error())
	}

	data := StatusData{
		Running:  true,
		Pid:      os.Getpid(),
		Owners:   len(owners),
		RawTasks: len(d.merger.Snapshot().Tasks),
	}
	if ts, ok := d.lastSyncAt.Load().(time.Time); ok && !ts.IsZero() {
		data.LastSyncAt = ts.Format(time.RFC3339)
	}
	return uds.SuccessResponse(data)
}
