package model

import "fmt"

type PlanStatus string

const (
	PlanStatusPending    PlanStatus = "pending"
	PlanStatusInProgress PlanStatus = "in_progress"
	PlanStatusCompleted  PlanStatus = "completed"
	PlanStatusCancelled  PlanStatus = "cancelled"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Priority is ordered: urgent > high > normal > low.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

var priorityRank = map[Priority]int{
	PriorityUrgent: 3,
	PriorityHigh:   2,
	PriorityNormal: 1,
	PriorityLow:    0,
}

// Rank returns the ordering weight of a priority; unknown priorities rank
// lowest.
func (p Priority) Rank() int {
	return priorityRank[p]
}

// Visibility controls cross-user sharing of plans and tasks.
type Visibility string

const (
	VisibilityPersonal   Visibility = "personal"
	VisibilityTeam       Visibility = "team"
	VisibilityDepartment Visibility = "department"
	VisibilityCompany    Visibility = "company"
)

var terminalPlanStatuses = map[PlanStatus]bool{
	PlanStatusCompleted: true,
	PlanStatusCancelled: true,
}

// Task status transitions: todo ↔ in_progress → completed, plus the direct
// todo → completed shortcut the UI offers.
var validTaskTransitions = map[TaskStatus]map[TaskStatus]bool{
	TaskStatusTodo: {
		TaskStatusInProgress: true,
		TaskStatusCompleted:  true,
	},
	TaskStatusInProgress: {
		TaskStatusTodo:      true,
		TaskStatusCompleted: true,
	},
}

func IsPlanTerminal(s PlanStatus) bool {
	return terminalPlanStatuses[s]
}

func ValidateTaskTransition(from, to TaskStatus) error {
	if from == TaskStatusCompleted {
		return fmt.Errorf("cannot transition from terminal status %q", from)
	}
	allowed, ok := validTaskTransitions[from]
	if !ok {
		return fmt.Errorf("unknown task status %q", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid task transition: %q → %q", from, to)
	}
	return nil
}
