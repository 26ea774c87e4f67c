package model

import "fmt"

type TaskCategory string

const (
	TaskCategoryMeeting   TaskCategory = "meeting"
	TaskCategoryVisit     TaskCategory = "visit"
	TaskCategoryTraining  TaskCategory = "training"
	TaskCategoryReport    TaskCategory = "report"
	TaskCategoryFollowup  TaskCategory = "followup"
	TaskCategoryInventory TaskCategory = "inventory"
	TaskCategoryOther     TaskCategory = "other"
)

var validTaskCategories = map[TaskCategory]bool{
	TaskCategoryMeeting:   true,
	TaskCategoryVisit:     true,
	TaskCategoryTraining:  true,
	TaskCategoryReport:    true,
	TaskCategoryFollowup:  true,
	TaskCategoryInventory: true,
	TaskCategoryOther:     true,
}

// Task is an actionable work item, either created directly by a user or
// materialized from a due plan. The sync engine only ever appends tasks;
// edits and deletes are user actions.
type Task struct {
	ID           string       `yaml:"id" json:"id"`
	Title        string       `yaml:"title" json:"title"`
	Description  string       `yaml:"description" json:"description"`
	Category     TaskCategory `yaml:"category" json:"category"`
	Status       TaskStatus   `yaml:"status" json:"status"`
	Priority     Priority     `yaml:"priority" json:"priority"`
	Date         string       `yaml:"date" json:"date"`
	Time         string       `yaml:"time" json:"time"`
	OwnerID      string       `yaml:"owner_id" json:"owner_id"`
	OwnerName    string       `yaml:"owner_name" json:"owner_name"`
	TeamID       string       `yaml:"team_id" json:"team_id"`
	AssigneeID   string       `yaml:"assignee_id" json:"assignee_id"`
	Location     string       `yaml:"location" json:"location"`
	Visibility   Visibility   `yaml:"visibility" json:"visibility"`
	SharedWith   []string     `yaml:"shared_with,omitempty" json:"shared_with,omitempty"`
	FromPlan     bool         `yaml:"from_plan" json:"from_plan"`
	SourcePlanID string       `yaml:"source_plan_id,omitempty" json:"source_plan_id,omitempty"`
	CreatedAt    string       `yaml:"created_at" json:"created_at"`
	UpdatedAt    string       `yaml:"updated_at" json:"updated_at"`
}

func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task missing id")
	}
	if t.OwnerID == "" {
		return fmt.Errorf("task %s missing owner_id", t.ID)
	}
	if t.Title == "" {
		return fmt.Errorf("task %s missing title", t.ID)
	}
	if t.Category != "" && !validTaskCategories[t.Category] {
		return fmt.Errorf("task %s unknown category %q", t.ID, t.Category)
	}
	if t.FromPlan && t.SourcePlanID == "" {
		return fmt.Errorf("task %s marked from_plan without source_plan_id", t.ID)
	}
	return nil
}

// SharedWithUser reports whether the task was explicitly shared with the
// given user id.
func (t Task) SharedWithUser(userID string) bool {
	for _, id := range t.SharedWith {
		if id == userID {
			return true
		}
	}
	return false
}
