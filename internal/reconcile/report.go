package reconcile

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

type Job string

const (
	JobAutoLock   Job = "auto_lock"
	JobPlanChange Job = "plan_change"
)

// Trigger says who started a run.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// Failure is one tenant a run could not process.
type Failure struct {
	ClientID uuid.UUID `json:"clientId"`
	Error    string    `json:"error"`
}

type AutoLockReport struct {
	Target         ledger.Period `json:"target"`
	Processed      int           `json:"processed"`
	NewlyLocked    int           `json:"newlyLocked"`
	AlreadyLocked  int           `json:"alreadyLocked"`
	InactiveMonths int           `json:"inactiveMonths"`
	Failed         int           `json:"failed"`
	Failures       []Failure     `json:"failures"`
}

type PlanChangeReport struct {
	// Skipped is set when the run date is not the first day of a month; no
	// tenant is touched then.
	Skipped   bool      `json:"skipped"`
	Processed int       `json:"processed"`
	Applied   int       `json:"applied"`
	Failed    int       `json:"failed"`
	Failures  []Failure `json:"failures"`
}

// Run is the persisted record of one job execution.
type Run struct {
	ID         uuid.UUID       `json:"id"`
	Job        Job             `json:"job"`
	RunDate    time.Time       `json:"runDate"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Trigger    Trigger         `json:"trigger"`
	Report     json.RawMessage `json:"report"`
}

// AutoLock decodes the report of an auto-lock run.
func (r *Run) AutoLock() (AutoLockReport, error) {
	var rep AutoLockReport
	err := json.Unmarshal(r.Report, &rep)

	return rep, err
}

// PlanChange decodes the report of a plan-change run.
func (r *Run) PlanChange() (PlanChangeReport, error) {
	var rep PlanChangeReport
	err := json.Unmarshal(r.Report, &rep)

	return rep, err
}
