// Package visibility computes, for a given viewer, the slice of the merged
// task collection they are allowed to see.
package visibility

import "github.com/hksdtp/salespulse/internal/model"

// Org is the organizational graph the resolver consults: user records keyed
// by id. Build it once from the user store and reuse it; the resolver never
// reads storage itself.
type Org struct {
	users map[string]model.User
}

func NewOrg(users []model.User) Org {
	m := make(map[string]model.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return Org{users: m}
}

func (o Org) user(id string) (model.User, bool) {
	u, ok := o.users[id]
	return u, ok
}

// Resolve filters tasks down to what the viewer may see. It is pure: the
// same (viewer, org, tasks) input always yields the same output, in input
// order, with each task appearing at most once regardless of how many rules
// admit it.
//
// Rules, in precedence order:
//  1. A director sees every task.
//  2. A team leader sees their own tasks plus all tasks owned by members
//     of their team.
//  3. A member sees their own tasks, tasks explicitly shared with them,
//     team-visible tasks within their team, department-visible tasks
//     within their department, and company-visible tasks.
func Resolve(viewer model.User, org Org, tasks []model.Task) []model.Task {
	if viewer.Role == model.RoleDirector {
		out := make([]model.Task, len(tasks))
		copy(out, tasks)
		return out
	}

	var out []model.Task
	for _, t := range tasks {
		if visibleTo(viewer, org, t) {
			out = append(out, t)
		}
	}
	return out
}

func visibleTo(viewer model.User, org Org, t model.Task) bool {
	if t.OwnerID == viewer.ID {
		return true
	}

	if viewer.Role == model.RoleTeamLeader && viewer.TeamID != "" {
		if taskTeam(org, t) == viewer.TeamID {
			return true
		}
	}

	if t.SharedWithUser(viewer.ID) {
		return true
	}

	switch t.Visibility {
	case model.VisibilityTeam:
		return viewer.TeamID != "" && taskTeam(org, t) == viewer.TeamID
	case model.VisibilityDepartment:
		return viewer.Department != "" && taskDepartment(org, t) == viewer.Department
	case model.VisibilityCompany:
		return true
	}
	return false
}

// taskTeam resolves the team a task belongs to, falling back to the owner's
// user record when the task itself carries no team id.
func taskTeam(org Org, t model.Task) string {
	if t.TeamID != "" {
		return t.TeamID
	}
	if owner, ok := org.user(t.OwnerID); ok {
		return owner.TeamID
	}
	return ""
}

// taskDepartment resolves the owning department via the owner's user record.
// A task whose owner is unknown to the org has no department and falls back
// to owner-only visibility.
func taskDepartment(org Org, t model.Task) string {
	if owner, ok := org.user(t.OwnerID); ok {
		return owner.Department
	}
	return ""
}
