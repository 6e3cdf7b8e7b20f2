package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
	"github.com/MrJamesThe3rd/ledgerly/internal/plan"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "month_locked"}}<p>Hello {{.Name}},</p>
<p>The documents for {{.Period}} are now closed. Further uploads for this month are no longer accepted; notes can still be added.</p>
<p>Locked by {{.Actor}}.</p>{{end}}
{{define "plan_changed"}}<p>Hello {{.Name}},</p>
{{if .Outcome.Immediate}}<p>Your plan is now <strong>{{.Outcome.ActivePlan}}</strong> ({{.Outcome.Fee.StringFixed 2}} per month).</p>
{{else}}<p>Your plan will change to <strong>{{.Outcome.PendingPlan}}</strong> ({{.Outcome.Fee.StringFixed 2}} per month) on {{.Outcome.EffectiveFrom.Format "2006-01-02"}}.</p>{{end}}{{end}}
`))

// Notifier renders event emails and hands them to a Sender. Failures are
// logged and swallowed.
type Notifier struct {
	sender Sender
	logger *slog.Logger
}

func NewNotifier(sender Sender, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{sender: sender, logger: logger}
}

func (n *Notifier) MonthLocked(ctx context.Context, c *client.Client, p ledger.Period, actor string) {
	n.deliver(ctx, c, "month_locked", fmt.Sprintf("Documents for %s are closed", p), map[string]any{
		"Name":   c.Name,
		"Period": p.String(),
		"Actor":  actor,
	})
}

func (n *Notifier) PlanChanged(ctx context.Context, c *client.Client, outcome plan.Outcome) {
	n.deliver(ctx, c, "plan_changed", "Your subscription plan", map[string]any{
		"Name":    c.Name,
		"Outcome": outcome,
	})
}

func (n *Notifier) deliver(ctx context.Context, c *client.Client, tmpl, subject string, data any) {
	if c.Email == "" {
		n.logger.Debug("client has no email, skipping notification", "client_id", c.ID, "template", tmpl)
		return
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl, data); err != nil {
		n.logger.Error("rendering notification", "template", tmpl, "error", err)
		return
	}

	err := n.sender.Send(ctx, Message{To: c.Email, Subject: subject, HTML: body.String()})
	if err != nil {
		n.logger.Warn("sending notification",
			"client_id", c.ID,
			"template", tmpl,
			"error", err,
		)
	}
}
