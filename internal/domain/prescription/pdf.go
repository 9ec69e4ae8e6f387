package prescription

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Document is everything printed on a prescription sheet.
type Document struct {
	Prescription *Prescription
	PatientName  string
	DoctorName   string
	Specialty    string
	License      string
}

func detailRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(45, 8, label, "1", 0, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 8, value, "1", 1, "", false, 0, "")
}

// RenderPDF lays out the prescription on one A4 page.
func RenderPDF(doc Document) ([]byte, error) {
	p := doc.Prescription
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetTitle(fmt.Sprintf("Prescription #%d", p.PrescriptionID), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Medical Prescription", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Prescription #%d  |  Issued %s", p.PrescriptionID, p.CreatedAt.UTC().Format("2006-01-02")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	detailRow(pdf, "Patient", doc.PatientName)
	detailRow(pdf, "Doctor", "Dr. "+doc.DoctorName)
	if doc.Specialty != "" {
		detailRow(pdf, "Specialization", doc.Specialty)
	}
	if doc.License != "" {
		detailRow(pdf, "License", doc.License)
	}
	detailRow(pdf, "Appointment", fmt.Sprintf("#%d", p.AppointmentID))
	detailRow(pdf, "Diagnosis", p.Diagnosis)
	pdf.Ln(4)

	widths := []float64{60, 40, 46, 40}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Medication", "Dosage", "Frequency", "Duration"} {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, m := range p.Medications {
		for i, v := range []string{m.Name, m.Dosage, m.Frequency, m.Duration} {
			pdf.CellFormat(widths[i], 8, v, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	if p.Instructions != nil && *p.Instructions != "" {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Instructions", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, *p.Instructions, "", "L", false)
	}
	if p.FollowUpDate != nil {
		pdf.Ln(2)
		pdf.CellFormat(0, 6, "Follow up on "+p.FollowUpDate.Format("2006-01-02"), "", 1, "", false, 0, "")
	}

	pdf.SetY(pdf.GetY() + 12)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 6, "This is a computer generated prescription", "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render prescription pdf: %w", err)
	}
	return buf.Bytes(), nil
}
