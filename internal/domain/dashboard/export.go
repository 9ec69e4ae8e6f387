package dashboard

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet      = "Summary"
	appointmentsSheet = "Appointments"
)

var appointmentHeader = []string{"ID", "Time (UTC)", "Type", "Status", "Patient", "Doctor"}

func summaryRows(s *Stats) [][]interface{} {
	return [][]interface{}{
		{"Metric", "Value"},
		{"Users", s.Users.Total},
		{"New users (30 days)", s.Users.NewThisMonth},
		{"Doctors", s.Doctors.Total},
		{"Doctors pending", s.Doctors.Pending},
		{"Doctors approved", s.Doctors.Approved},
		{"Doctor approval rate (%)", s.Doctors.ApprovalRate},
		{"Hospitals", s.Hospitals.Total},
		{"Hospitals pending", s.Hospitals.Pending},
		{"Hospitals approved", s.Hospitals.Approved},
		{"Hospital approval rate (%)", s.Hospitals.ApprovalRate},
		{"Appointments", s.Appointments.Total},
		{"Appointments today", s.Appointments.Today},
		{"Upcoming confirmed", s.Appointments.Upcoming},
		{"Prescriptions", s.Prescriptions.Total},
		{"Prescriptions (7 days)", s.Prescriptions.Recent},
		{"Generated at", s.System.LastUpdated.UTC().Format(time.RFC3339)},
	}
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, headerStyle)
}

func buildWorkbook(stats *Stats, appts []AppointmentRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(appointmentsSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeRows(f, summarySheet, summaryRows(stats), headerStyle); err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(appts)+1)
	header := make([]interface{}, len(appointmentHeader))
	for i, h := range appointmentHeader {
		header[i] = h
	}
	rows = append(rows, header)
	for _, a := range appts {
		rows = append(rows, []interface{}{
			a.ID, a.Time.UTC().Format("2006-01-02 15:04"), a.Type, a.Status, a.PatientName, a.DoctorName,
		})
	}
	if err := writeRows(f, appointmentsSheet, rows, headerStyle); err != nil {
		return nil, err
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 30)
	_ = f.SetColWidth(appointmentsSheet, "B", "B", 18)
	_ = f.SetColWidth(appointmentsSheet, "E", "F", 24)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
