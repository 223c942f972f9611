package student

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const rosterSheet = "Alunos"

var rosterHeader = []interface{}{"display_name", "full_name", "class_group", "status", "level", "xp"}

// ExportRoster writes every student of the teacher to w as an XLSX workbook.
func (s *service) ExportRoster(ctx context.Context, teacherID uuid.UUID, w io.Writer) error {
	// Limit 0 lifts the page size for the export.
	students, _, err := s.repo.List(ctx, teacherID, ListFilter{})
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}
	return WriteRoster(w, students)
}

func WriteRoster(w io.Writer, students []Student) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", rosterSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := file.SetSheetRow(rosterSheet, "A1", &rosterHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, st := range students {
		fullName := ""
		if st.FullName != nil {
			fullName = *st.FullName
		}
		className := ""
		if st.ClassGroup != nil {
			className = st.ClassGroup.Name
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{st.DisplayName, fullName, className, st.Status, st.Level, st.XP}
		if err := file.SetSheetRow(rosterSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
