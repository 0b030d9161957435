package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"pmconsole/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	sheetName   = "Reservations"
	cellDate    = "02/Jan/2006"
	headerRow   = 2
	firstRecRow = 3
)

var columns = []struct {
	title string
	width float64
	value func(r models.Reservation) interface{}
}{
	{"Booking ID", 22, func(r models.Reservation) interface{} { return bookingID(r) }},
	{"Guest", 24, func(r models.Reservation) interface{} { return r.GuestName }},
	{"Phone", 18, func(r models.Reservation) interface{} { return r.Phone }},
	{"Property", 28, func(r models.Reservation) interface{} { return r.Title }},
	{"Unit", 10, func(r models.Reservation) interface{} { return r.UnitNo }},
	{"Check-in", 14, func(r models.Reservation) interface{} { return day(r.CheckIn) }},
	{"Check-out", 14, func(r models.Reservation) interface{} { return day(r.CheckOut) }},
	{"Channel", 14, func(r models.Reservation) interface{} { return channel(r) }},
	{"Paid", 8, func(r models.Reservation) interface{} { return yesNo(r.IsPaymentCompleted) }},
	{"Checked in", 12, func(r models.Reservation) interface{} { return yesNo(r.IsCheckinCompleted) }},
	{"Cancelled", 12, func(r models.Reservation) interface{} { return yesNo(r.IsCancelled) }},
	{"Notes", 40, func(r models.Reservation) interface{} { return notes(r) }},
}

// FileName is the download name for one exported page.
func FileName(page int, at time.Time) string {
	return fmt.Sprintf("reservations_page%d_%s.xlsx", page, at.Format("2006-01-02"))
}

// WriteReservations renders one reservations page as an XLSX workbook.
func WriteReservations(w io.Writer, page models.ReservationPage, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	lastCol, _ := excelize.ColumnNumberToName(len(columns))

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Reservations: page %d of %d, %d total (generated %s)",
		page.Pagination.CurrentPage, page.Pagination.TotalPage, page.Pagination.TotalData,
		generatedAt.Format("02/Jan/2006 15:04")))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, col := range columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		_ = f.SetCellValue(sheetName, cell, col.title)
		_ = f.SetColWidth(sheetName, name, name, col.width)
	}
	_ = f.SetCellStyle(sheetName, "A2", lastCol+"2", headerStyle)

	cancelledStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F8CBAD"}, Pattern: 1},
	})
	for i, r := range page.Data {
		row := firstRecRow + i
		for j, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			if err := f.SetCellValue(sheetName, cell, col.value(r)); err != nil {
				return fmt.Errorf("error writing %s: %w", cell, err)
			}
		}
		if r.IsCancelled {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(columns), row)
			_ = f.SetCellStyle(sheetName, first, last, cancelledStyle)
		}
	}

	_ = f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: "A3",
		ActivePane:  "bottomLeft",
	})

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func bookingID(r models.Reservation) string {
	if r.BookingID != nil {
		return *r.BookingID
	}
	return r.ID
}

func day(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(cellDate)
}

func channel(r models.Reservation) string {
	if r.Channel != nil {
		return *r.Channel
	}
	return "StayHub"
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func notes(r models.Reservation) string {
	parts := make([]string, 0, len(r.Notes))
	for _, n := range r.Notes {
		parts = append(parts, n.Text)
	}
	return strings.Join(parts, "; ")
}
