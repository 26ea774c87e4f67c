// Package status implements the CLI-side status view: daemon liveness via
// UDS plus record counts straight off the data directory.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hksdtp/salespulse/internal/uds"
)

type EngineStatus struct {
	Daemon DaemonStatus  `json:"daemon"`
	Owners []OwnerStatus `json:"owners,omitempty"`
}

type DaemonStatus struct {
	Running    bool   `json:"running"`
	Pid        int    `json:"pid,omitempty"`
	LastSyncAt string `json:"last_sync_at,omitempty"`
}

type OwnerStatus struct {
	OwnerID string `json:"owner_id"`
	Plans   int    `json:"plans"`
	Tasks   int    `json:"tasks"`
}

// Run gathers and prints status for the data dir.
func Run(baseDir string, jsonOutput bool) error {
	st := EngineStatus{}

	sockPath := filepath.Join(baseDir, uds.DefaultSocketName)
	st.Daemon = checkDaemon(sockPath)
	st.Owners = ownerCounts(baseDir)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	printStatus(st)
	return nil
}

func checkDaemon(sockPath string) DaemonStatus {
	client := uds.NewClient(sockPath)
	resp, err := client.SendCommand("status", nil)
	if err != nil || !resp.Success {
		return DaemonStatus{Running: false}
	}

	var data struct {
		Pid        int    `json:"pid"`
		LastSyncAt string `json:"last_sync_at"`
	}
	_ = json.Unmarshal(resp.Data, &data)
	return DaemonStatus{Running: true, Pid: data.Pid, LastSyncAt: data.LastSyncAt}
}

// ownerCounts counts record files per owner directly from disk, so status
// works whether or not the daemon is up.
func ownerCounts(baseDir string) []OwnerStatus {
	owners := map[string]*OwnerStatus{}

	count := func(kind string, assign func(*OwnerStatus, int)) {
		root := filepath.Join(baseDir, "data", kind)
		entries, err := os.ReadDir(root)
		if err != nil {
			return
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			n := countYAML(filepath.Join(root, entry.Name()))
			st, ok := owners[entry.Name()]
			if !ok {
				st = &OwnerStatus{OwnerID: entry.Name()}
				owners[entry.Name()] = st
			}
			assign(st, n)
		}
	}
	count("plans", func(st *OwnerStatus, n int) { st.Plans = n })
	count("tasks", func(st *OwnerStatus, n int) { st.Tasks = n })

	ids := make([]string, 0, len(owners))
	for id := range owners {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]OwnerStatus, 0, len(ids))
	for _, id := range ids {
		out = append(out, *owners[id])
	}
	return out
}

func countYAML(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".yaml") {
			n++
		}
	}
	return n
}

func printStatus(st EngineStatus) {
	if st.Daemon.Running {
		fmt.Printf("daemon: running (pid %d)\n", st.Daemon.Pid)
		if st.Daemon.LastSyncAt != "" {
			fmt.Printf("last sync: %s\n", st.Daemon.LastSyncAt)
		}
	} else {
		fmt.Println("daemon: not running")
	}

	if len(st.Owners) == 0 {
		fmt.Println("no owners")
		return
	}
	fmt.Printf("%-20s %8s %8s\n", "OWNER", "PLANS", "TASKS")
	for _, o := range st.Owners {
		fmt.Printf("%-20s %8d %8d\n", o.OwnerID, o.Plans, o.Tasks)
	}
}
