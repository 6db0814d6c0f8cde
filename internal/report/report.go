// Package report exports student progress as an Excel workbook.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kidventure/kidventure/internal/curriculum"
	"github.com/kidventure/kidventure/internal/progress"
	"github.com/kidventure/kidventure/internal/rewards"
)

// Sheet names.
const (
	SheetProgress    = "Progress"
	SheetLeaderboard = "Leaderboard"
)

var progressHeader = []string{"Student", "Points", "Lessons Completed", "Badges"}

// WriteWorkbook writes a workbook with one Progress row per student (a 1/0
// column per unit in curriculum order) and a Leaderboard sheet.
func WriteWorkbook(w io.Writer, cur *curriculum.Curriculum, records []progress.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetProgress); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetLeaderboard); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := writeProgress(f, cur, records, bold); err != nil {
		return err
	}
	if err := writeLeaderboard(f, records, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeProgress(f *excelize.File, cur *curriculum.Curriculum, records []progress.Record, style int) error {
	units := cur.Units()
	header := make([]any, 0, len(progressHeader)+len(units))
	for _, h := range progressHeader {
		header = append(header, h)
	}
	for _, u := range units {
		header = append(header, u.ID)
	}
	if err := setRow(f, SheetProgress, 1, header); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetProgress, 1, 1, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, rec := range records {
		row := make([]any, 0, len(header))
		row = append(row, rec.StudentID, rec.Points, rec.LessonsCompletedCount, strings.Join(rec.Badges, ", "))
		for _, u := range units {
			row = append(row, rec.Progress[u.ID])
		}
		if err := setRow(f, SheetProgress, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SetPanes(SheetProgress, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return fmt.Errorf("freeze panes: %w", err)
	}
	return nil
}

func writeLeaderboard(f *excelize.File, records []progress.Record, style int) error {
	if err := setRow(f, SheetLeaderboard, 1, []any{"Rank", "Student", "Points", "Badges"}); err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetLeaderboard, 1, 1, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	for i, s := range rewards.Leaderboard(records, 0) {
		row := []any{s.Rank, s.StudentID, s.Points, strings.Join(s.Badges, ", ")}
		if err := setRow(f, SheetLeaderboard, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	return nil
}
