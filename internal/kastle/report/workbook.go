// Package report lays a BatchReport out as an Excel workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jvanhook93/Kastle-script/internal/kastle/reconcile"
	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
)

// Sheet names for the batch-wide tables.
const (
	SheetSummary       = "Summary"
	SheetDailyTotals   = "Daily Totals"
	SheetSessions      = "Sessions"
	SheetDiscrepancies = "Discrepancies"
	SheetSkipped       = "Skipped Files"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	summaryHeader = []any{"Name", "Days in Office", "Time in Office (HH:MM)", "Average Time per Day (HH:MM)"}
	sessionHeader = []any{"Person", "Card", "Suite", "Entry Reader", "Entry Time", "Exit Reader", "Exit Time", "Duration (min)", "Issue"}
	dailyHeader   = []any{"Person", "Card", "Suite", "Date", "Total Minutes", "Total (HH:MM)"}
	skippedHeader = []any{"Filename", "Reason"}
)

// Write renders rep as xlsx into w.
func Write(w io.Writer, rep *types.BatchReport) error {
	f, err := Build(rep)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Build lays out the workbook: batch-wide Summary, Daily Totals, Sessions and
// Discrepancies sheets, one sheet per person, then Skipped Files if any.
// Values are copied as received.
func Build(rep *types.BatchReport) (*excelize.File, error) {
	f := excelize.NewFile()
	b := &builder{f: f, names: newSheetNamer()}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	b.bold = bold

	first := f.GetSheetName(0)
	summary := b.names.name(SheetSummary)
	if err := f.SetSheetName(first, summary); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename %s: %w", first, err)
	}

	b.table(summary, summaryHeader, summaryRows(rep.People))
	b.table(b.sheet(SheetDailyTotals), dailyHeader, dailyRows(rep.DailySummaries))
	b.table(b.sheet(SheetSessions), sessionHeader, sessionRows(rep.Sessions))
	b.table(b.sheet(SheetDiscrepancies), sessionHeader, sessionRows(rep.Discrepancies))

	names, byPerson := rep.SessionsByPerson()
	for _, person := range names {
		b.personSheet(person, byPerson[person], rep.DailySummaries)
	}

	if len(rep.Skipped) > 0 {
		rows := make([][]any, 0, len(rep.Skipped))
		for _, sk := range rep.Skipped {
			rows = append(rows, []any{sk.Filename, sk.Reason})
		}
		b.table(b.sheet(SheetSkipped), skippedHeader, rows)
	}

	if b.err != nil {
		f.Close()
		return nil, b.err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// builder accumulates the first error so layout code stays linear.
type builder struct {
	f     *excelize.File
	names *sheetNamer
	bold  int
	err   error
}

func (b *builder) sheet(want string) string {
	name := b.names.name(want)
	if b.err == nil {
		if _, err := b.f.NewSheet(name); err != nil {
			b.err = fmt.Errorf("new sheet %q: %w", name, err)
		}
	}
	return name
}

// table writes header+rows starting at row 1 and returns the next free row.
func (b *builder) table(sheet string, header []any, rows [][]any) int {
	return b.tableAt(sheet, 1, header, rows)
}

func (b *builder) tableAt(sheet string, start int, header []any, rows [][]any) int {
	if b.err != nil {
		return start
	}
	b.row(sheet, start, header)
	if b.err == nil {
		from, _ := excelize.CoordinatesToCellName(1, start)
		to, _ := excelize.CoordinatesToCellName(len(header), start)
		if err := b.f.SetCellStyle(sheet, from, to, b.bold); err != nil {
			b.err = fmt.Errorf("style %s header: %w", sheet, err)
		}
	}
	for i, r := range rows {
		b.row(sheet, start+1+i, r)
	}
	if start == 1 && b.err == nil {
		last, _ := excelize.ColumnNumberToName(len(header))
		if err := b.f.SetColWidth(sheet, "A", last, 20); err != nil {
			b.err = fmt.Errorf("width %s: %w", sheet, err)
		}
	}
	return start + 1 + len(rows)
}

func (b *builder) row(sheet string, r int, values []any) {
	if b.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err == nil {
		err = b.f.SetSheetRow(sheet, cell, &values)
	}
	if err != nil {
		b.err = fmt.Errorf("write %s row %d: %w", sheet, r, err)
	}
}

func (b *builder) personSheet(person string, sessions []types.Session, daily []types.DailyDurationSummary) {
	sheet := b.sheet(person)

	var issues []types.Session
	for _, s := range sessions {
		if s.Discrepant() {
			issues = append(issues, s)
		}
	}
	var days []types.DailyDurationSummary
	for _, d := range daily {
		if d.Key.Person == person {
			days = append(days, d)
		}
	}

	next := b.tableAt(sheet, 1, sessionHeader, sessionRows(sessions))
	next = b.section(sheet, next+1, SheetDiscrepancies)
	next = b.tableAt(sheet, next, sessionHeader, sessionRows(issues))
	next = b.section(sheet, next+1, SheetDailyTotals)
	b.tableAt(sheet, next, dailyHeader, dailyRows(days))
}

func (b *builder) section(sheet string, r int, title string) int {
	b.row(sheet, r, []any{title})
	if b.err == nil {
		cell, _ := excelize.CoordinatesToCellName(1, r)
		if err := b.f.SetCellStyle(sheet, cell, cell, b.bold); err != nil {
			b.err = fmt.Errorf("style %s section: %w", sheet, err)
		}
	}
	return r + 1
}

func summaryRows(people []types.PersonSummary) [][]any {
	rows := make([][]any, 0, len(people))
	for _, p := range people {
		rows = append(rows, []any{
			p.Person,
			p.DaysInOffice,
			reconcile.FormatHHMM(p.TotalMinutes),
			reconcile.FormatHHMM(p.AverageMinutesPerDay),
		})
	}
	return rows
}

func dailyRows(daily []types.DailyDurationSummary) [][]any {
	rows := make([][]any, 0, len(daily))
	for _, d := range daily {
		rows = append(rows, []any{
			d.Key.Person, d.Key.Card, d.Key.Suite, d.Date,
			d.TotalMinutes, reconcile.FormatHHMM(d.TotalMinutes),
		})
	}
	return rows
}

func sessionRows(sessions []types.Session) [][]any {
	rows := make([][]any, 0, len(sessions))
	for _, s := range sessions {
		var dur any = ""
		if s.DurationMinutes != nil {
			dur = *s.DurationMinutes
		}
		rows = append(rows, []any{
			s.Key.Person, s.Key.Card, s.Key.Suite,
			s.EntryReader, formatTime(s.EntryTime),
			s.ExitReader, formatTime(s.ExitTime),
			dur, s.Issue,
		})
	}
	return rows
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}
