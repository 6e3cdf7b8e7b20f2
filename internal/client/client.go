package client

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
	"github.com/MrJamesThe3rd/ledgerly/internal/plan"
)

// Client is one tenant: identity, activation window, subscription and the
// document tree it owns.
type Client struct {
	ID            uuid.UUID
	Name          string
	Email         string
	Active        bool
	DeactivatedAt *time.Time
	ReactivatedAt *time.Time
	Subscription  plan.Subscription
	Tree          *ledger.Tree
	Version       int64 // bumped by every successful save
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

func (c *Client) ActivityWindow() ledger.ActivityWindow {
	return ledger.ActivityWindow{
		DeactivatedAt: c.DeactivatedAt,
		ReactivatedAt: c.ReactivatedAt,
	}
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	Role ledger.Role
	ID   uuid.UUID
	Name string
}

