package models

import "time"

// Stage is an onboarding pipeline stage. Stages form an ordered pipeline
// but the engine allows arbitrary jumps, including backwards.
type Stage string

const (
	StagePreOnboarding    Stage = "pre_onboarding"
	StagePaperwork        Stage = "paperwork"
	StageOrientation      Stage = "orientation"
	StageTeamIntroduction Stage = "team_introduction"
	StageTraining         Stage = "training"
	StageFirstAssignment  Stage = "first_assignment"
	StageFirstReview      Stage = "first_review"
	StageCompleted        Stage = "completed"
)

// Stages lists the pipeline in order.
var Stages = []Stage{
	StagePreOnboarding,
	StagePaperwork,
	StageOrientation,
	StageTeamIntroduction,
	StageTraining,
	StageFirstAssignment,
	StageFirstReview,
	StageCompleted,
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, known := range Stages {
		if s == known {
			return true
		}
	}
	return false
}

// TaskStatus is the state of a single onboarding task.
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not_started"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskOverdue    TaskStatus = "overdue"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskNotStarted, TaskInProgress, TaskCompleted, TaskOverdue:
		return true
	}
	return false
}

// Task is a checklist item inside an onboarding record. Task IDs are
// caller-assigned strings, unique within one record by convention.
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Category       string     `json:"category,omitempty"`
	Required       bool       `json:"required"`
	Status         TaskStatus `json:"status"`
	Assignee       string     `json:"assignee,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
}

// OnboardingRecord is the interpreted sub-document driving the onboarding
// state machine. It is stored inside the employee row and always updated
// through a read-modify-write of the whole record.
type OnboardingRecord struct {
	Stage                Stage      `json:"stage"`
	Progress             int        `json:"progress"`
	Tasks                []Task     `json:"tasks"`
	BuddyID              string     `json:"buddy_id,omitempty"`
	StartDate            *time.Time `json:"start_date,omitempty"`
	TargetCompletionDate *time.Time `json:"target_completion_date,omitempty"`
	ActualCompletionDate *time.Time `json:"actual_completion_date,omitempty"`
}

// NewOnboardingRecord is the neutral record a freshly created employee gets.
func NewOnboardingRecord() OnboardingRecord {
	return OnboardingRecord{
		Stage:    StagePreOnboarding,
		Progress: 0,
		Tasks:    []Task{},
	}
}

// Clone copies the record including its task list.
func (r OnboardingRecord) Clone() OnboardingRecord {
	cp := r
	cp.Tasks = append([]Task(nil), r.Tasks...)
	return cp
}

// Task returns a pointer into the record's task list, or nil when no task
// carries the given id.
func (r *OnboardingRecord) Task(taskID string) *Task {
	for i := range r.Tasks {
		if r.Tasks[i].ID == taskID {
			return &r.Tasks[i]
		}
	}
	return nil
}

// UpdateTask sets the status of the task with the given id and reports
// whether the task was found. Moving a task to completed stamps its
// completion date, overwriting any previous stamp on re-completion; moving
// it away from completed leaves the old stamp in place.
func (r *OnboardingRecord) UpdateTask(taskID string, status TaskStatus, now time.Time) bool {
	task := r.Task(taskID)
	if task == nil {
		return false
	}
	task.Status = status
	if status == TaskCompleted {
		at := now
		task.CompletionDate = &at
	}
	return true
}
