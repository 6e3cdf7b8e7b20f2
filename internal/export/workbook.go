package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/MrJamesThe3rd/ledgerly/internal/notes"
	"github.com/MrJamesThe3rd/ledgerly/internal/reconcile"
)

const (
	NotesSheet = "Notes"
	RunsSheet  = "Runs"
)

var (
	notesHeader = []string{"Client", "Period", "Location", "Author", "Role", "Added At", "Text", "Unread"}
	notesWidths = []float64{38, 10, 40, 20, 10, 20, 60, 8}

	runsHeader = []string{"Job", "Trigger", "Run Date", "Started At", "Finished At", "Processed", "Changed", "Failed", "Notes"}
	runsWidths = []float64{14, 10, 20, 20, 20, 10, 10, 8, 40}
)

// WriteNotes renders annotated notes as an XLSX workbook.
func WriteNotes(w io.Writer, ns []notes.AnnotatedNote) error {
	rows := make([][]any, 0, len(ns))

	for _, n := range ns {
		unread := "No"
		if n.Unread {
			unread = "Yes"
		}

		rows = append(rows, []any{
			n.ClientID.String(),
			n.Location.Period.String(),
			n.Location.String(),
			n.Note.AddedBy,
			string(n.Note.AuthorRole),
			n.Note.AddedAt.UTC().Format(time.DateTime),
			n.Note.Text,
			unread,
		})
	}

	return writeSheet(w, NotesSheet, notesHeader, notesWidths, rows)
}

// WriteRuns renders reconciliation runs as an XLSX workbook.
func WriteRuns(w io.Writer, runs []*reconcile.Run) error {
	rows := make([][]any, 0, len(runs))

	for _, r := range runs {
		row := []any{
			string(r.Job),
			string(r.Trigger),
			r.RunDate.UTC().Format(time.DateTime),
			r.StartedAt.UTC().Format(time.DateTime),
			r.FinishedAt.UTC().Format(time.DateTime),
		}

		switch r.Job {
		case reconcile.JobAutoLock:
			rep, err := r.AutoLock()
			if err != nil {
				return fmt.Errorf("decoding run %s: %w", r.ID, err)
			}

			row = append(row, rep.Processed, rep.NewlyLocked, rep.Failed,
				fmt.Sprintf("target %s, %d already locked, %d inactive", rep.Target, rep.AlreadyLocked, rep.InactiveMonths))
		case reconcile.JobPlanChange:
			rep, err := r.PlanChange()
			if err != nil {
				return fmt.Errorf("decoding run %s: %w", r.ID, err)
			}

			note := ""
			if rep.Skipped {
				note = "skipped, not a period start"
			}

			row = append(row, rep.Processed, rep.Applied, rep.Failed, note)
		default:
			row = append(row, "", "", "", "unknown job")
		}

		rows = append(rows, row)
	}

	return writeSheet(w, RunsSheet, runsHeader, runsWidths, rows)
}

func writeSheet(w io.Writer, sheet string, header []string, widths []float64, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("deleting default sheet: %w", err)
	}

	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("converting coordinates: %w", err)
		}

		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("setting header cell %s: %w", cell, err)
		}

		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("setting header style: %w", err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("converting column number: %w", err)
		}

		if col < len(widths) {
			if err := f.SetColWidth(sheet, name, name, widths[col]); err != nil {
				return fmt.Errorf("setting column width: %w", err)
			}
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("converting coordinates: %w", err)
		}

		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}

	return nil
}
