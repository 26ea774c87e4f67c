// Package cache keeps the per-owner, raw, and filtered task tiers mutually
// consistent. The raw tier is never mutated on its own; it is always a
// projection of the per-owner slices re-read from the store.
package cache

import (
	"log"
	"sort"
	"sync"

	"github.com/hksdtp/salespulse/internal/model"
	"github.com/hksdtp/salespulse/internal/store"
	"github.com/hksdtp/salespulse/internal/visibility"
)

// View is the raw tier: the flattened union of every owner slice the merger
// currently knows. Losing it costs a recompute, never data.
type View struct {
	Tasks []model.Task
	// Skipped counts records that were present but unreadable across the
	// merged owners.
	Skipped int
}

// Merger reconciles the task cache tiers after any write.
type Merger struct {
	mu      sync.RWMutex
	store   store.Store
	slices  map[string][]model.Task
	skipped map[string]int
	logger  *log.Logger
}

func NewMerger(st store.Store, logger *log.Logger) *Merger {
	if logger == nil {
		logger = log.Default()
	}
	return &Merger{
		store:   st,
		slices:  make(map[string][]model.Task),
		skipped: make(map[string]int),
		logger:  logger,
	}
}

// Recompute re-reads the given owners' authoritative task lists and replaces
// their slices in the raw tier. With no arguments it re-reads every owner
// the store knows. An unreadable owner slice degrades to empty rather than
// failing the merge.
func (m *Merger) Recompute(ownerIDs ...string) View {
	if len(ownerIDs) == 0 {
		owners, err := m.store.ListOwners()
		if err != nil {
			m.logger.Printf("WARN merger: list owners: %v", err)
			return m.Snapshot()
		}
		ownerIDs = owners
	}

	m.mu.Lock()
	for _, owner := range ownerIDs {
		tasks, skipped, err := m.store.GetTasks(owner)
		if err != nil {
			m.logger.Printf("WARN merger: read tasks owner=%s: %v (treating as empty)", owner, err)
			m.slices[owner] = nil
			m.skipped[owner] = 0
			continue
		}
		if skipped > 0 {
			m.logger.Printf("WARN merger: owner=%s skipped %d unreadable records", owner, skipped)
		}
		m.slices[owner] = tasks
		m.skipped[owner] = skipped
	}
	m.mu.Unlock()

	return m.Snapshot()
}

// Snapshot flattens the current per-owner slices into the raw tier without
// touching the store. Owners are merged in sorted order; if the same task id
// appears in more than one owner's slice the most recently written record
// wins, and the conflict is logged.
func (m *Merger) Snapshot() View {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owners := make([]string, 0, len(m.slices))
	for owner := range m.slices {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	byID := make(map[string]int)
	var out []model.Task
	skipped := 0
	for _, owner := range owners {
		skipped += m.skipped[owner]
		for _, t := range m.slices[owner] {
			idx, dup := byID[t.ID]
			if !dup {
				byID[t.ID] = len(out)
				out = append(out, t)
				continue
			}
			kept := out[idx]
			m.logger.Printf("WARN merger: task id %s present under owners %s and %s, keeping most recent write",
				t.ID, kept.OwnerID, t.OwnerID)
			// UpdatedAt is RFC3339, so lexical comparison is chronological.
			if t.UpdatedAt >= kept.UpdatedAt {
				out[idx] = t
			}
		}
	}
	return View{Tasks: out, Skipped: skipped}
}

// ResolveFor applies the visibility resolver to the current raw tier,
// producing the filtered tier for one viewer.
func (m *Merger) ResolveFor(viewer model.User, org visibility.Org) []model.Task {
	return visibility.Resolve(viewer, org, m.Snapshot().Tasks)
}

// Slice returns the merger's current copy of a single owner's tier.
func (m *Merger) Slice(ownerID string) []model.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Task, len(m.slices[ownerID]))
	copy(out, m.slices[ownerID])
	return out
}
