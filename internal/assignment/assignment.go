package assignment

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

// Assignment gives an employee access to one month of one client for a task.
// Removed assignments are kept for history.
type Assignment struct {
	ID         uuid.UUID
	EmployeeID uuid.UUID
	ClientID   uuid.UUID
	Year       int
	Month      int
	Task       string
	AssignedAt time.Time
	IsRemoved  bool
}

func (a *Assignment) Period() ledger.Period {
	return ledger.Period{Year: a.Year, Month: a.Month}
}
