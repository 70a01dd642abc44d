// Package roster imports and exports student rosters as Excel workbooks.
package roster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"classroom-gateway/gateway"
	"classroom-gateway/models"
)

// StudentCreator is the part of the student gateway the importer needs.
type StudentCreator interface {
	Create(ctx context.Context, in models.StudentInput) (*models.Student, gateway.Outcome)
}

// ImportReport summarizes one import.
type ImportReport struct {
	Imported int      `json:"importedCount"`
	Skipped  int      `json:"skippedCount"`
	Failed   int      `json:"failedCount"`
	Messages []string `json:"messages,omitempty"`
}

var exportHeader = []string{"Id", "First Name", "Last Name", "Grade Level", "Email", "Enrollment Date", "Status", "Class Ids"}

// ImportStudents reads the first sheet of an Excel workbook and creates one
// student per row. Row 1 is a header; columns are first name, last name,
// grade level and email. A non-empty classID becomes each student's only
// class membership.
func ImportStudents(ctx context.Context, file io.Reader, creator StudentCreator, classID string) (ImportReport, error) {
	var report ImportReport

	f, err := excelize.OpenReader(file)
	if err != nil {
		slog.Error("Error opening Excel reader", "error", err)
		return report, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("Error closing excel file", "error", err)
		}
	}()

	// Assuming data is in the first sheet
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return report, errors.New("excel file does not contain any sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		slog.Error("Error getting rows from sheet", "sheet", sheetName, "error", err)
		return report, fmt.Errorf("failed to get rows from sheet %s: %w", sheetName, err)
	}

	var classIDs []string
	if classID != "" {
		classIDs = []string{classID}
	}

	for i, row := range rows {
		if i == 0 {
			continue // Skip header row
		}

		firstName := cell(row, 0)
		lastName := cell(row, 1)
		if firstName == "" || lastName == "" {
			slog.Debug("Skipping row with missing name", "row", i+1)
			report.Skipped++
			continue
		}

		in := models.StudentInput{
			FirstName: &firstName,
			LastName:  &lastName,
			ClassIDs:  classIDs,
		}
		if grade, ok := gateway.ParseInt(cell(row, 2)); ok {
			in.GradeLevel = models.Int(grade)
		}
		if email := cell(row, 3); email != "" {
			in.Email = &email
		}

		student, o := creator.Create(ctx, in)
		report.Messages = append(report.Messages, o.Messages...)
		if student == nil {
			slog.Warn("Error adding student during import", "row", i+1, "kind", o.Kind.String())
			report.Failed++
			continue
		}
		report.Imported++
	}

	slog.Info("Imported students", "imported", report.Imported, "skipped", report.Skipped, "failed", report.Failed, "classId", classID)
	return report, nil
}

// ExportStudents writes students to w as a single-sheet workbook.
func ExportStudents(w io.Writer, students []models.Student) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Students"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, s := range students {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			s.ID, s.FirstName, s.LastName, s.GradeLevel, s.Email,
			s.EnrollmentDate, s.Status, models.JoinIDs(s.ClassIDs),
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
