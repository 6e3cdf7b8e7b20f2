package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func newRosterCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage employee assignments",
	}

	cmd.AddCommand(newRosterImportCmd(app))

	return cmd
}

func newRosterImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import assignments from a CSV roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening roster: %w", err)
			}
			defer f.Close()

			res, err := app.Roster.ImportRoster(cmd.Context(), f)
			if err != nil {
				return fmt.Errorf("importing roster: %w", err)
			}

			out := cmd.OutOrStdout()

			if app.JSON {
				type rowError struct {
					Row   int    `json:"row"`
					Error string `json:"error"`
				}

				errs := make([]rowError, 0, len(res.Errors))
				for _, e := range res.Errors {
					errs = append(errs, rowError{Row: e.Row, Error: e.Err.Error()})
				}

				return writeJSON(out, map[string]any{
					"created": res.Created,
					"skipped": res.Skipped,
					"errors":  errs,
				})
			}

			fmt.Fprintf(out, "created %d, skipped %d\n", res.Created, res.Skipped)

			if len(res.Errors) == 0 {
				return nil
			}

			rows := make([][]string, 0, len(res.Errors))
			for _, e := range res.Errors {
				rows = append(rows, []string{strconv.Itoa(e.Row), e.Err.Error()})
			}

			fmt.Fprint(out, renderTable([]string{"ROW", "ERROR"}, rows))

			return nil
		},
	}
}
