package export

import (
	"fmt"
	"io"
	"time"

	"github.com/2beens/dailyfit/internal/workout"

	"github.com/xuri/excelize/v2"
)

const (
	SheetSessions = "Sessions"
	SheetSets     = "Sets"
)

var (
	sessionHeaders = []any{"Date", "Start", "End", "Duration", "Exercises", "Sets", "Volume (kg)", "Mobility", "Soreness", "Notes"}
	setHeaders     = []any{"Date", "Session", "Exercise", "Set", "Reps", "Weight (kg)", "Effort", "Rest", "Notes"}
)

// WriteSessionsXLSX renders the sessions into a workbook with one sheet of session
// summaries and one sheet of individual sets.
func WriteSessionsXLSX(w io.Writer, sessions []workout.Session) (err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetSessions); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetSets); err != nil {
		return fmt.Errorf("create sets sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2E75B6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeRow(f, SheetSessions, 1, sessionHeaders); err != nil {
		return err
	}
	if err := writeRow(f, SheetSets, 1, setHeaders); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSessions, "A1", "J1", headerStyle); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSets, "A1", "I1", headerStyle); err != nil {
		return err
	}

	setRow := 2
	for i, s := range sessions {
		if err := writeRow(f, SheetSessions, i+2, SessionRow(s)); err != nil {
			return err
		}
		for _, row := range SetRows(s) {
			if err := writeRow(f, SheetSets, setRow, row); err != nil {
				return err
			}
			setRow++
		}
	}

	_ = f.SetColWidth(SheetSessions, "A", "C", 18)
	_ = f.SetColWidth(SheetSessions, "E", "E", 40)
	_ = f.SetColWidth(SheetSessions, "J", "J", 40)
	_ = f.SetColWidth(SheetSets, "C", "C", 28)
	f.SetActiveSheet(0)

	return f.Write(w)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// SessionRow is the summary line of one session, shared by the xlsx and sheets exports.
func SessionRow(s workout.Session) []any {
	names := ""
	for i, e := range s.UniqueExercises() {
		if i > 0 {
			names += ", "
		}
		names += e.Name
	}

	end, duration := "", ""
	if s.EndTime != nil {
		end = s.EndTime.Format(time.DateTime)
	}
	if d, ok := s.FormattedDuration(); ok {
		duration = d
	}

	return []any{
		s.Date.Format(time.DateOnly),
		s.StartTime.Format(time.DateTime),
		end,
		duration,
		names,
		len(s.ExerciseSets),
		s.TotalVolume(),
		intOrEmpty(s.PreWorkoutMobility),
		intOrEmpty(s.PostWorkoutSoreness),
		stringOrEmpty(s.Notes),
	}
}

func SetRows(s workout.Session) [][]any {
	rows := make([][]any, 0, len(s.ExerciseSets))
	for _, set := range s.ExerciseSets {
		exercise := set.ExerciseID.String()
		if set.Exercise != nil {
			exercise = set.Exercise.Name
		}
		var weight any = ""
		if set.WeightKg != nil {
			weight = *set.WeightKg
		}
		rest, _ := set.FormattedRest()
		rows = append(rows, []any{
			s.Date.Format(time.DateOnly),
			s.ID.String(),
			exercise,
			set.SetNumber,
			intOrEmpty(set.Reps),
			weight,
			intOrEmpty(set.EffortRating),
			rest,
			stringOrEmpty(set.Notes),
		})
	}
	return rows
}

func intOrEmpty(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
