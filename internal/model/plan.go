// Package model defines the data structures for salespulse's configuration,
// plans, tasks, and organizational records.
package model

import (
	"fmt"
	"time"
)

// DateLayout is the storage format for calendar dates on plans and tasks.
const DateLayout = "2006-01-02"

// TimeLayout is the storage format for time-of-day fields.
const TimeLayout = "15:04"

type PlanCategory string

const (
	PlanCategoryMeeting  PlanCategory = "meeting"
	PlanCategoryVisit    PlanCategory = "visit"
	PlanCategoryTraining PlanCategory = "training"
	PlanCategoryReport   PlanCategory = "report"
	PlanCategoryOther    PlanCategory = "other"
)

var validPlanCategories = map[PlanCategory]bool{
	PlanCategoryMeeting:  true,
	PlanCategoryVisit:    true,
	PlanCategoryTraining: true,
	PlanCategoryReport:   true,
	PlanCategoryOther:    true,
}

// Plan is a scheduled future activity owned by a single user. Plans are
// created through external tooling and are read-only to the sync engine.
type Plan struct {
	ID           string       `yaml:"id" json:"id"`
	OwnerID      string       `yaml:"owner_id" json:"owner_id"`
	Title        string       `yaml:"title" json:"title"`
	Description  string       `yaml:"description" json:"description"`
	Category     PlanCategory `yaml:"category" json:"category"`
	Priority     Priority     `yaml:"priority" json:"priority"`
	StartDate    string       `yaml:"start_date" json:"start_date"`
	EndDate      string       `yaml:"end_date" json:"end_date"`
	StartTime    string       `yaml:"start_time" json:"start_time"`
	EndTime      string       `yaml:"end_time" json:"end_time"`
	Location     string       `yaml:"location" json:"location"`
	Notes        string       `yaml:"notes" json:"notes"`
	Participants []string     `yaml:"participants,omitempty" json:"participants,omitempty"`
	CreatorName  string       `yaml:"creator_name" json:"creator_name"`
	Visibility   Visibility   `yaml:"visibility" json:"visibility"`
	Status       PlanStatus   `yaml:"status" json:"status"`
	CreatedAt    string       `yaml:"created_at" json:"created_at"`
	UpdatedAt    string       `yaml:"updated_at" json:"updated_at"`
}

// Validate reports whether the plan carries every field the sync engine
// depends on. A plan failing validation is skipped, never fatal.
func (p Plan) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("plan missing id")
	}
	if p.OwnerID == "" {
		return fmt.Errorf("plan %s missing owner_id", p.ID)
	}
	if p.Title == "" {
		return fmt.Errorf("plan %s missing title", p.ID)
	}
	start, err := time.Parse(DateLayout, p.StartDate)
	if err != nil {
		return fmt.Errorf("plan %s invalid start_date %q: %w", p.ID, p.StartDate, err)
	}
	if p.EndDate != "" {
		end, err := time.Parse(DateLayout, p.EndDate)
		if err != nil {
			return fmt.Errorf("plan %s invalid end_date %q: %w", p.ID, p.EndDate, err)
		}
		if end.Before(start) {
			return fmt.Errorf("plan %s end_date %s before start_date %s", p.ID, p.EndDate, p.StartDate)
		}
	}
	if p.Category != "" && !validPlanCategories[p.Category] {
		return fmt.Errorf("plan %s unknown category %q", p.ID, p.Category)
	}
	return nil
}

// DueOn reports whether the plan is due on the given calendar day: its start
// date has arrived (date-only comparison) and it is not completed or
// cancelled. Callers must pass a validated plan; an unparseable start date
// reports not due.
func (p Plan) DueOn(day time.Time) bool {
	if p.Status == PlanStatusCompleted || p.Status == PlanStatusCancelled {
		return false
	}
	start, err := time.Parse(DateLayout, p.StartDate)
	if err != nil {
		return false
	}
	y, m, d := day.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return !start.After(today)
}
