package client

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
	"github.com/MrJamesThe3rd/ledgerly/internal/plan"
)

type clientResponse struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Active        bool       `json:"active"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	ReactivatedAt *time.Time `json:"reactivated_at,omitempty"`
	ActivePlan    string     `json:"active_plan"`
	PendingPlan   string     `json:"pending_plan,omitempty"`
	PendingFrom   *time.Time `json:"pending_from,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

type monthSummary struct {
	Year         int                 `json:"year"`
	Month        int                 `json:"month"`
	IsLocked     bool                `json:"is_locked"`
	ActiveStatus ledger.ActiveStatus `json:"active_status"`
	Files        int                 `json:"files"`
}

type clientDetailResponse struct {
	clientResponse
	PlanHistory []plan.ChangeRecord      `json:"plan_history"`
	Months      []monthSummary           `json:"months"`
	Quarantined []ledger.QuarantinedNode `json:"quarantined,omitempty"`
}

type planOutcomeResponse struct {
	ActivePlan    string    `json:"active_plan"`
	PendingPlan   string    `json:"pending_plan,omitempty"`
	EffectiveFrom time.Time `json:"effective_from"`
	Immediate     bool      `json:"immediate"`
	MonthlyFee    string    `json:"monthly_fee"`
}

func toResponse(c *client.Client) clientResponse {
	return clientResponse{
		ID:            c.ID,
		Name:          c.Name,
		Email:         c.Email,
		Active:        c.Active,
		DeactivatedAt: c.DeactivatedAt,
		ReactivatedAt: c.ReactivatedAt,
		ActivePlan:    c.Subscription.ActivePlan,
		PendingPlan:   c.Subscription.PendingPlan,
		PendingFrom:   c.Subscription.PendingFrom,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func toDetailResponse(c *client.Client) clientDetailResponse {
	resp := clientDetailResponse{
		clientResponse: toResponse(c),
		PlanHistory:    c.Subscription.History,
		Months:         []monthSummary{},
	}

	if c.Tree == nil {
		return resp
	}

	for p, m := range c.Tree.All() {
		files := 0
		for _, cat := range m.Categories() {
			files += len(cat.Files)
		}

		resp.Months = append(resp.Months, monthSummary{
			Year:         p.Year,
			Month:        p.Month,
			IsLocked:     m.IsLocked,
			ActiveStatus: m.ActiveStatus,
			Files:        files,
		})
	}

	resp.Quarantined = c.Tree.Quarantined()

	return resp
}
