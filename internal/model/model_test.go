package model

import (
	"testing"
	"time"
)

func validPlan() Plan {
	return Plan{
		ID:        "plan_1",
		OwnerID:   "user_1",
		Title:     "Visit store 42",
		Category:  PlanCategoryVisit,
		Priority:  PriorityNormal,
		StartDate: "2026-03-01",
		EndDate:   "2026-03-02",
		Status:    PlanStatusPending,
	}
}

func TestPlanValidate(t *testing.T) {
	if err := validPlan().Validate(); err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Plan)
	}{
		{"missing id", func(p *Plan) { p.ID = "" }},
		{"missing owner", func(p *Plan) { p.OwnerID = "" }},
		{"missing title", func(p *Plan) { p.Title = "" }},
		{"bad start date", func(p *Plan) { p.StartDate = "03/01/2026" }},
		{"bad end date", func(p *Plan) { p.EndDate = "soon" }},
		{"end before start", func(p *Plan) { p.EndDate = "2026-02-28" }},
		{"unknown category", func(p *Plan) { p.Category = "party" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPlan()
			tc.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestPlanDueOn(t *testing.T) {
	day := time.Date(2026, 3, 1, 15, 30, 0, 0, time.Local)

	p := validPlan()
	p.StartDate = "2026-03-01"
	if !p.DueOn(day) {
		t.Errorf("plan starting today should be due")
	}

	p.StartDate = "2026-02-20"
	if !p.DueOn(day) {
		t.Errorf("plan starting in the past should be due")
	}

	p.StartDate = "2026-03-02"
	if p.DueOn(day) {
		t.Errorf("plan starting tomorrow should not be due")
	}

	p.StartDate = "2026-02-20"
	p.Status = PlanStatusCompleted
	if p.DueOn(day) {
		t.Errorf("completed plan should not be due")
	}

	p.Status = PlanStatusCancelled
	if p.DueOn(day) {
		t.Errorf("cancelled plan should not be due")
	}
}

func TestTaskValidate(t *testing.T) {
	task := Task{
		ID:      "task_1",
		OwnerID: "user_1",
		Title:   "Follow up",
		Status:  TaskStatusTodo,
	}
	if err := task.Validate(); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}

	task.FromPlan = true
	if err := task.Validate(); err == nil {
		t.Errorf("from_plan without source_plan_id should fail validation")
	}
	task.SourcePlanID = "plan_1"
	if err := task.Validate(); err != nil {
		t.Errorf("from_plan with source_plan_id rejected: %v", err)
	}
}

func TestTaskSharedWithUser(t *testing.T) {
	task := Task{SharedWith: []string{"user_2", "user_3"}}
	if !task.SharedWithUser("user_2") {
		t.Errorf("expected shared with user_2")
	}
	if task.SharedWithUser("user_9") {
		t.Errorf("did not expect shared with user_9")
	}
}

func TestValidateTaskTransition(t *testing.T) {
	valid := [][2]TaskStatus{
		{TaskStatusTodo, TaskStatusInProgress},
		{TaskStatusTodo, TaskStatusCompleted},
		{TaskStatusInProgress, TaskStatusCompleted},
		{TaskStatusInProgress, TaskStatusTodo},
	}
	for _, pair := range valid {
		if err := ValidateTaskTransition(pair[0], pair[1]); err != nil {
			t.Errorf("%s → %s should be valid: %v", pair[0], pair[1], err)
		}
	}

	if err := ValidateTaskTransition(TaskStatusCompleted, TaskStatusTodo); err == nil {
		t.Errorf("transition out of completed should fail")
	}
	if err := ValidateTaskTransition("archived", TaskStatusTodo); err == nil {
		t.Errorf("unknown status should fail")
	}
}

func TestPriorityRank(t *testing.T) {
	if !(PriorityUrgent.Rank() > PriorityHigh.Rank() &&
		PriorityHigh.Rank() > PriorityNormal.Rank() &&
		PriorityNormal.Rank() > PriorityLow.Rank()) {
		t.Errorf("priority ordering broken")
	}
}
