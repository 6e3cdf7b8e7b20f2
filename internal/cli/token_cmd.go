package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

func newTokenCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue API tokens",
	}

	cmd.AddCommand(newTokenIssueCmd(app))

	return cmd
}

func newTokenIssueCmd(app *App) *cobra.Command {
	var (
		role string
		id   string
		name string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token for an actor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actor := client.Actor{Role: ledger.Role(role), Name: name}
			if !actor.Role.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}

			actorID, err := uuid.Parse(id)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", id, err)
			}

			actor.ID = actorID

			token, err := app.Tokens.Issue(actor, ttl)
			if err != nil {
				return fmt.Errorf("issuing token: %w", err)
			}

			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"token":      token,
					"expires_at": app.now().Add(ttl).UTC(),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)

			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Actor role (admin|employee|client)")
	cmd.Flags().StringVar(&id, "id", "", "Actor ID; for clients, the client ID")
	cmd.Flags().StringVar(&name, "name", "", "Display name recorded on notes")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	_ = cmd.MarkFlagRequired("role")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
