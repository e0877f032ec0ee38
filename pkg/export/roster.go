package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/campusudc/asesorias-api/internal/models"
)

var rosterHeaders = []string{"Nombre", "Correo", "Rol"}

// RenderRosterPDF renders a course's enrollment roster as a tabular PDF.
func RenderRosterPDF(course models.Course, roster []models.Profile) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, course.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Profesor: %s", course.ProfessorName), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Inscritos: %d / %d", len(roster), course.MaxCapacity), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(rosterHeaders))
	for _, header := range rosterHeaders {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, profile := range roster {
		pdf.CellFormat(colWidth, 7, profile.FullName, "1", 0, "", false, 0, "")
		pdf.CellFormat(colWidth, 7, profile.Email, "1", 0, "", false, 0, "")
		pdf.CellFormat(colWidth, 7, string(profile.Role), "1", 0, "", false, 0, "")
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render roster pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderRosterCSV renders the roster as CSV.
func RenderRosterCSV(roster []models.Profile) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(rosterHeaders); err != nil {
		return nil, fmt.Errorf("write roster headers: %w", err)
	}
	for _, profile := range roster {
		if err := writer.Write([]string{profile.FullName, profile.Email, string(profile.Role)}); err != nil {
			return nil, fmt.Errorf("write roster row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush roster csv: %w", err)
	}
	return buf.Bytes(), nil
}
