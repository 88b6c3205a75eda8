package export

import (
	"fmt"

	"valetcore/internal/archive"
	"valetcore/internal/models"

	"github.com/xuri/excelize/v2"
)

var bookingHeaders = []string{
	"ID", "Customer", "Vehicle", "Date", "Start", "End",
	"Package", "Client type", "Job type", "Status", "Progress %", "Total £",
}

// BookingReport renders the active and archived partitions plus dashboard
// aggregates into a workbook for the back office.
func BookingReport(active, archived []*models.Booking, stats *archive.Stats) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := writeBookingSheet(f, "Active", active); err != nil {
		return nil, err
	}
	if err := writeBookingSheet(f, "Archive", archived); err != nil {
		return nil, err
	}
	if stats != nil {
		if err := writeSummarySheet(f, stats); err != nil {
			return nil, err
		}
	}

	// Drop the default sheet excelize creates.
	if idx, err := f.GetSheetIndex("Active"); err == nil {
		f.SetActiveSheet(idx)
	}
	_ = f.DeleteSheet("Sheet1")

	return f, nil
}

func writeBookingSheet(f *excelize.File, name string, bookings []*models.Booking) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("error creating sheet %s: %w", name, err)
	}

	for col, header := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(name, cell, header)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(bookingHeaders), 1)
		_ = f.SetCellStyle(name, "A1", last, headerStyle)
	}

	for i, b := range bookings {
		row := i + 2
		values := []interface{}{
			b.ID,
			b.CustomerName,
			b.Vehicle,
			b.Date.Format("02.01.2006"),
			b.StartTime,
			b.EndTime,
			b.PackageType,
			string(b.ClientType),
			string(b.JobType),
			string(b.Status),
			b.ProgressPercentage,
			b.TotalPrice,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(name, cell, v)
		}
	}

	_ = f.SetColWidth(name, "A", "A", 24)
	_ = f.SetColWidth(name, "B", "C", 20)
	return nil
}

func writeSummarySheet(f *excelize.File, stats *archive.Stats) error {
	const name = "Summary"
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("error creating sheet %s: %w", name, err)
	}

	rows := [][]interface{}{
		{"Total bookings", stats.TotalBookings},
		{"Active bookings", stats.ActiveBookings},
		{"Archived bookings", stats.ArchivedBookings},
		{"Unique customers", stats.UniqueCustomers},
		{"Total revenue", stats.TotalRevenue},
		{"Retention window (days)", stats.RetentionDays},
		{"Archived past retention", stats.PastRetention},
	}
	for i, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+1)
			_ = f.SetCellValue(name, cell, v)
		}
	}

	_ = f.SetColWidth(name, "A", "A", 28)
	return nil
}
