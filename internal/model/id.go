package model

import "github.com/google/uuid"

// promotedTaskNamespace scopes the UUIDv5 derivation for promoted task ids.
// Generated once; never change it, or re-running the sync against existing
// data would mint a second task for every already-promoted plan.
var promotedTaskNamespace = uuid.MustParse("8f3c1a6e-2d94-4b7a-9c1f-5e8d0b2a7c41")

// NewID returns a random id for user-created records.
func NewID() string {
	return uuid.NewString()
}

// PromotedTaskID derives the deterministic id of the task materialized from
// a plan. The (owner, plan) pair always maps to the same id, so two racing
// sync calls converge on one record instead of creating a duplicate. The
// derivation nests the owner into its own namespace so (a, b/c) and
// (a/b, c) cannot collide.
func PromotedTaskID(ownerID, planID string) string {
	ownerNS := uuid.NewSHA1(promotedTaskNamespace, []byte(ownerID))
	return uuid.NewSHA1(ownerNS, []byte(planID)).String()
}
