package report_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jvanhook93/Kastle-script/internal/kastle/reconcile"
	"github.com/jvanhook93/Kastle-script/internal/kastle/report"
	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
)

func sampleReport(t *testing.T) *types.BatchReport {
	t.Helper()
	alice := types.IdentityKey{Person: "Alice", Card: "1001", Suite: "Suite 400"}
	bob := types.IdentityKey{Person: "Bob/Ops: [night]", Card: "2002", Suite: "Suite 400"}
	ts := func(h, m int) time.Time { return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC) }

	sessions, err := reconcile.Reconcile([]types.SwipeEvent{
		{Key: alice, Timestamp: ts(9, 0), Direction: types.DirectionEntry, Reader: "Suite 400 Entry"},
		{Key: alice, Timestamp: ts(17, 30), Direction: types.DirectionExit, Reader: "Suite 400 Exit"},
		{Key: bob, Timestamp: ts(8, 0), Direction: types.DirectionExit, Reader: "Suite 400 Exit"},
	})
	require.NoError(t, err)
	daily := reconcile.DailyTotals(sessions)

	return &types.BatchReport{
		Sessions:       sessions,
		Discrepancies:  reconcile.Discrepancies(sessions),
		DailySummaries: daily,
		People:         reconcile.PersonTotals(daily),
		Skipped:        []types.SkippedFile{{Filename: "junk.csv", Reason: "not enough data"}},
	}
}

func openWorkbook(t *testing.T, rep *types.BatchReport) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, rep))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWrite_SheetLayout(t *testing.T) {
	f := openWorkbook(t, sampleReport(t))

	assert.Equal(t, []string{
		"Summary", "Daily Totals", "Sessions", "Discrepancies",
		"Alice", "Bob-Ops- (night)", "Skipped Files",
	}, f.GetSheetList())
}

func TestWrite_SessionValuesUnaltered(t *testing.T) {
	f := openWorkbook(t, sampleReport(t))

	rows, err := f.GetRows("Sessions")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Duration (min)", rows[0][7])

	alice := rows[1]
	assert.Equal(t, "Alice", alice[0])
	assert.Equal(t, "2025-03-10 09:00:00", alice[4])
	assert.Equal(t, "2025-03-10 17:30:00", alice[6])
	assert.Equal(t, "510", alice[7])

	bob := rows[2]
	assert.Equal(t, "", bob[4])
	assert.Equal(t, types.IssueExitWithoutEntry, bob[8])

	disc, err := f.GetRows("Discrepancies")
	require.NoError(t, err)
	require.Len(t, disc, 2)
	assert.Equal(t, types.IssueExitWithoutEntry, disc[1][8])
}

func TestWrite_SummaryMatchesOriginalColumns(t *testing.T) {
	f := openWorkbook(t, sampleReport(t))

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Name", "Days in Office", "Time in Office (HH:MM)", "Average Time per Day (HH:MM)"}, rows[0])
	assert.Equal(t, []string{"Alice", "1", "08:30", "08:30"}, rows[1])
}

func TestWrite_PersonSheetSections(t *testing.T) {
	f := openWorkbook(t, sampleReport(t))

	rows, err := f.GetRows("Bob-Ops- (night)")
	require.NoError(t, err)

	var titles []string
	for _, r := range rows {
		if len(r) == 1 {
			titles = append(titles, r[0])
		}
	}
	assert.Equal(t, []string{"Discrepancies", "Daily Totals"}, titles)
}

func TestWrite_SkippedSheet(t *testing.T) {
	f := openWorkbook(t, sampleReport(t))

	rows, err := f.GetRows("Skipped Files")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"junk.csv", "not enough data"}, rows[1])
}

func TestWrite_NoSkippedSheetWhenNothingSkipped(t *testing.T) {
	rep := sampleReport(t)
	rep.Skipped = nil
	f := openWorkbook(t, rep)
	assert.NotContains(t, f.GetSheetList(), "Skipped Files")
}

func TestWrite_PersonNamesCollidingWithFixedSheets(t *testing.T) {
	k := types.IdentityKey{Person: "summary", Card: "1", Suite: "S"}
	x := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	rep := &types.BatchReport{Sessions: []types.Session{{Key: k, ExitTime: &x, Issue: types.IssueExitWithoutEntry}}}

	f := openWorkbook(t, rep)
	assert.Contains(t, f.GetSheetList(), "summary (2)")
}

// ── Names ────────────────────────────────────────────────────────────────────

func TestOutputName(t *testing.T) {
	cases := map[string]string{
		"":                  report.DefaultOutputName,
		"   ":               report.DefaultOutputName,
		"March":             "March.xlsx",
		"March.XLSX":        "March.XLSX",
		"legacy.xls":        "legacy.xls",
		"../../etc/passwd":  "etc_passwd.xlsx",
		"Q1 report (final)": "Q1_report_final.xlsx",
		"..":                report.DefaultOutputName,
	}
	for in, want := range cases {
		assert.Equal(t, want, report.OutputName(in), "input %q", in)
	}
}

func TestSheetNamesAreTruncated(t *testing.T) {
	long := strings.Repeat("x", 40)
	k := types.IdentityKey{Person: long, Card: "1", Suite: "S"}
	x := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	rep := &types.BatchReport{Sessions: []types.Session{{Key: k, ExitTime: &x, Issue: types.IssueExitWithoutEntry}}}

	f := openWorkbook(t, rep)
	assert.Contains(t, f.GetSheetList(), strings.Repeat("x", 31))
}
