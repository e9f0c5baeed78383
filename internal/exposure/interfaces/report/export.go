package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	exposure "safetyband-cloud/internal/exposure/domain"
)

// Report is the exposure of one wearable over [From, To).
type Report struct {
	WearableID  string
	DisplayID   string
	From        time.Time
	To          time.Time
	GeneratedAt time.Time
	Events      []exposure.Event
	Totals      [exposure.SeverityCount]int
}

// NewReport computes per-severity totals for events.
func NewReport(wearableID, displayID string, from, to, generatedAt time.Time, events []exposure.Event) Report {
	rep := Report{
		WearableID:  wearableID,
		DisplayID:   displayID,
		From:        from.UTC(),
		To:          to.UTC(),
		GeneratedAt: generatedAt.UTC(),
		Events:      events,
	}
	for _, evt := range events {
		if evt.Severity.IsValid() {
			rep.Totals[evt.Severity] += evt.Duration
		}
	}
	return rep
}

// FromRecords builds a report from processor output that has not been persisted.
func FromRecords(displayID string, records []exposure.Record, generatedAt time.Time) Report {
	events := make([]exposure.Event, len(records))
	var from, to time.Time
	for i, rec := range records {
		events[i] = exposure.Event{
			UserID:    rec.SubjectID,
			Severity:  rec.Severity,
			Timestamp: rec.Timestamp,
			Duration:  rec.Duration,
		}
		if from.IsZero() || rec.Timestamp.Before(from) {
			from = rec.Timestamp
		}
		if end := exposure.HourBucket(rec.Timestamp).Add(time.Hour); end.After(to) {
			to = end
		}
	}
	return NewReport("", displayID, from, to, generatedAt, events)
}

// TotalSeconds sums every band.
func (r Report) TotalSeconds() int {
	total := 0
	for _, v := range r.Totals {
		total += v
	}
	return total
}

// BuildPDF renders a minimal PDF for the report.
func BuildPDF(rep Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Hand-Arm Vibration Exposure")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Wearable: %s", rep.DisplayID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("From: %s", formatTime(rep.From)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("To: %s", formatTime(rep.To)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", formatTime(rep.GeneratedAt)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Severity", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Seconds", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, sev := range exposure.Severities {
		pdf.CellFormat(40, 6, sev.Title(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%d", rep.Totals[sev]), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.CellFormat(40, 6, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, fmt.Sprintf("%d", rep.TotalSeconds()), "1", 0, "R", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Timestamp (UTC)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Severity", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Seconds", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, evt := range rep.Events {
		pdf.CellFormat(50, 6, formatTime(evt.Timestamp), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, evt.Severity.Title(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", evt.Duration), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildXLSX renders a summary sheet and an events sheet.
func BuildXLSX(rep Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	eventsSheet := "events"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(eventsSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Hand-Arm Vibration Exposure")
	_ = f.SetCellValue(summarySheet, "A3", "Wearable")
	_ = f.SetCellValue(summarySheet, "B3", rep.DisplayID)
	_ = f.SetCellValue(summarySheet, "A4", "From")
	_ = f.SetCellValue(summarySheet, "B4", formatTime(rep.From))
	_ = f.SetCellValue(summarySheet, "A5", "To")
	_ = f.SetCellValue(summarySheet, "B5", formatTime(rep.To))
	_ = f.SetCellValue(summarySheet, "A7", "Severity")
	_ = f.SetCellValue(summarySheet, "B7", "Seconds")
	for i, sev := range exposure.Severities {
		row := i + 8
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), sev.Title())
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), rep.Totals[sev])
	}
	_ = f.SetCellValue(summarySheet, "A12", "Total")
	_ = f.SetCellValue(summarySheet, "B12", rep.TotalSeconds())

	_ = f.SetCellValue(eventsSheet, "A1", "Timestamp (UTC)")
	_ = f.SetCellValue(eventsSheet, "B1", "Severity")
	_ = f.SetCellValue(eventsSheet, "C1", "Seconds")
	_ = f.SetCellValue(eventsSheet, "D1", "User")
	for i, evt := range rep.Events {
		row := i + 2
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("A%d", row), formatTime(evt.Timestamp))
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("B%d", row), evt.Severity.Title())
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("C%d", row), evt.Duration)
		_ = f.SetCellValue(eventsSheet, fmt.Sprintf("D%d", row), evt.UserID)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
