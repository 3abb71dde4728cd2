package ingest_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jvanhook93/Kastle-script/internal/kastle/ingest"
	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
)

func csvFile(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func normalize(t *testing.T, name string, data []byte) (ingest.Result, error) {
	t.Helper()
	return ingest.NewNormalizer(nil).Normalize(name, data)
}

// ── CSV ──────────────────────────────────────────────────────────────────────

func TestNormalize_CSV_BasicRows(t *testing.T) {
	res, err := normalize(t, "log.csv", csvFile(
		"Event Type,Name,Card Number,Reader,Date/Time",
		"Reader,Alice,1001,Suite 400 Entry,03/10/2025 09:00:00",
		"Reader,Alice,1001,Suite 400 Exit,03/10/2025 17:30:00 CT",
	))
	require.NoError(t, err)
	require.Len(t, res.Events, 2)

	ev := res.Events[0]
	assert.Equal(t, types.IdentityKey{Person: "Alice", Card: "1001", Suite: "Suite 400"}, ev.Key)
	assert.Equal(t, types.DirectionEntry, ev.Direction)
	assert.Equal(t, "Suite 400 Entry", ev.Reader)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), ev.Timestamp)

	assert.Equal(t, types.DirectionExit, res.Events[1].Direction)
	assert.Equal(t, time.Date(2025, 3, 10, 17, 30, 0, 0, time.UTC), res.Events[1].Timestamp)
}

func TestNormalize_CSV_CardHashHeaderKeepsCardsApart(t *testing.T) {
	res, err := normalize(t, "log.csv", csvFile(
		"Name,Card #,Reader,Time",
		"Alice,1001,Suite 4 Entry,2025-03-10 09:00:00",
		"Alice,2002,Suite 4 Exit,2025-03-10 10:00:00",
	))
	require.NoError(t, err)
	require.Len(t, res.Events, 2)

	keys := map[types.IdentityKey]bool{}
	for _, ev := range res.Events {
		keys[ev.Key] = true
	}
	assert.Len(t, keys, 2)
	assert.True(t, keys[types.IdentityKey{Person: "Alice", Card: "1001", Suite: "Suite 4"}])
	assert.True(t, keys[types.IdentityKey{Person: "Alice", Card: "2002", Suite: "Suite 4"}])
}

func TestNormalize_CSV_LowercaseMeridiemAndDayMonthName(t *testing.T) {
	res, err := normalize(t, "log.csv", csvFile(
		"Name,Card,Reader,Time",
		"Alice,1,Suite 4 Entry,1/15/2024 9:00 am",
		"Alice,1,Suite 4 Exit,15-Jan-2024 17:00",
	))
	require.NoError(t, err)
	assert.Zero(t, res.DroppedRows)
	require.Len(t, res.Events, 2)
	assert.Equal(t, time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), res.Events[0].Timestamp)
	assert.Equal(t, time.Date(2024, 1, 15, 17, 0, 0, 0, time.UTC), res.Events[1].Timestamp)
}

func TestNormalize_CSV_SortsByIdentityThenTime(t *testing.T) {
	res, err := normalize(t, "log.csv", csvFile(
		"Name,Card,Reader,Time",
		"Bob,2,Suite 1 Entry,2025-03-10 08:00:00",
		"Alice,1,Suite 1 Exit,2025-03-10 12:00:00",
		"Alice,1,Suite 1 Entry,2025-03-10 09:00:00",
	))
	require.NoError(t, err)
	require.Len(t, res.Events, 3)
	assert.Equal(t, "Alice", res.Events[0].Key.Person)
	assert.Equal(t, types.DirectionEntry, res.Events[0].Direction)
	assert.Equal(t, "Alice", res.Events[1].Key.Person)
	assert.Equal(t, "Bob", res.Events[2].Key.Person)
}

func TestNormalize_CSV_BlankIdentityBecomesUnknown(t *testing.T) {
	res, err := normalize(t, "log.csv", csvFile(
		"Name,Card,Reader,Time",
		",,Lobby Entry,2025-03-10 08:00:00",
	))
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, types.IdentityKey{Person: "Unknown", Card: "Unknown", Suite: "Lobby"}, res.Events[0].Key)
}

func TestNormalize_CSV_DropsUnparseableTimestamps(t *testing.T) {
	res, err := normalize(t, "log.csv", csvFile(
		"Name,Card,Reader,Time",
		"Alice,1,Suite 1 Entry,not a time",
		"Alice,1,Suite 1 Exit,2025-03-10 12:00:00",
	))
	require.NoError(t, err)
	assert.Len(t, res.Events, 1)
	assert.Equal(t, 1, res.DroppedRows)
}

func TestNormalize_CSV_ExcludesAmbiguousAndNonReaderRows(t *testing.T) {
	res, err := normalize(t, "log.csv", csvFile(
		"Type,Name,Card,Reader,Time",
		"Reader,Alice,1,Suite 1 Entry,2025-03-10 09:00:00",
		"Reader,Alice,1,Suite 1 Door,2025-03-10 09:01:00",
		"Reader,Alice,1,Suite 1 In/Out,2025-03-10 09:02:00",
		"Alarm,Alice,1,Suite 1 Exit,2025-03-10 09:03:00",
	))
	require.NoError(t, err)
	assert.Len(t, res.Events, 1)
	assert.Equal(t, 3, res.ExcludedRows)
}

func TestNormalize_CSV_DirectionColumnWins(t *testing.T) {
	res, err := normalize(t, "log.csv", csvFile(
		"Name,Card,Reader,Direction,Time",
		"Alice,1,Front Door,OUT,2025-03-10 09:00:00",
	))
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, types.DirectionExit, res.Events[0].Direction)
	assert.Equal(t, "Front Door", res.Events[0].Key.Suite)
}

func TestNormalize_CSV_SeparateDateColumn(t *testing.T) {
	res, err := normalize(t, "log.csv", csvFile(
		"Name,Card,Reader,Date,Time",
		"Alice,1,Suite 2 Entry,3/10/2025,9:15:00 AM",
	))
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 15, 0, 0, time.UTC), res.Events[0].Timestamp)
}

// ── Validation failures ──────────────────────────────────────────────────────

func TestNormalize_MissingRequiredColumns(t *testing.T) {
	_, err := normalize(t, "log.csv", csvFile(
		"Name,Card",
		"Alice,1",
	))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ingest.ErrValidation))

	var ve *ingest.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "log.csv", ve.Filename)
	assert.Contains(t, ve.Reason, "reader")
	assert.Contains(t, ve.Reason, "timestamp")
}

func TestNormalize_NoEntryExitRows(t *testing.T) {
	_, err := normalize(t, "log.csv", csvFile(
		"Name,Card,Reader,Time",
		"Alice,1,Garage,2025-03-10 09:00:00",
	))
	require.ErrorIs(t, err, ingest.ErrValidation)
	assert.Contains(t, err.Error(), "no ENTRY/EXIT")
}

func TestNormalize_AllTimestampsMalformed(t *testing.T) {
	_, err := normalize(t, "log.csv", csvFile(
		"Name,Card,Reader,Time",
		"Alice,1,Lobby Entry,yesterday",
	))
	require.ErrorIs(t, err, ingest.ErrValidation)
	assert.Contains(t, err.Error(), "timestamp")
}

func TestNormalize_HeaderOnly(t *testing.T) {
	_, err := normalize(t, "log.csv", csvFile("Name,Card,Reader,Time"))
	require.ErrorIs(t, err, ingest.ErrValidation)
}

func TestNormalize_EmptyFile(t *testing.T) {
	_, err := normalize(t, "log.csv", nil)
	require.ErrorIs(t, err, ingest.ErrValidation)
	assert.Contains(t, err.Error(), "cannot read file")
}

func TestNormalize_BinaryGarbage(t *testing.T) {
	_, err := normalize(t, "log.bin", []byte{0xff, 0xfe, 0x00, 0x81})
	require.ErrorIs(t, err, ingest.ErrValidation)
}

// ── XLSX ─────────────────────────────────────────────────────────────────────

func TestNormalize_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Person Name", "Card #", "Reader Description", "Event Time"},
		{"Carol", "77", "SUITE 12B - ENTRY", "2025-03-11 08:00:00"},
		{"Carol", "77", "SUITE 12B - EXIT", "2025-03-11 16:00:00"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := normalize(t, "Carol.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, res.Events, 2)
	assert.Equal(t, types.IdentityKey{Person: "Carol", Card: "77", Suite: "Suite 12B"}, res.Events[0].Key)
}

func TestNormalize_XLSX_DateCellsKeepSeconds(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	in := time.Date(2025, 3, 11, 8, 0, 30, 0, time.UTC)
	out := time.Date(2025, 3, 11, 16, 0, 45, 0, time.UTC)
	rows := [][]any{
		{"Name", "Card", "Reader", "Event Time"},
		{"Carol", "77", "Suite 12B Entry", in},
		{"Carol", "77", "Suite 12B Exit", out},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := normalize(t, "swipes.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Zero(t, res.DroppedRows)
	require.Len(t, res.Events, 2)
	assert.Equal(t, in, res.Events[0].Timestamp)
	assert.Equal(t, out, res.Events[1].Timestamp)
}

func TestNormalize_XLSX_SeparateDateAndTimeCells(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Name", "Reader", "Date", "Time"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Dana", "Suite 1 Entry", 45727, 28830.0 / 86400}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := normalize(t, "split.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, time.Date(2025, 3, 11, 8, 0, 30, 0, time.UTC), res.Events[0].Timestamp)
}

func TestNormalize_CorruptXLSX(t *testing.T) {
	_, err := normalize(t, "broken.xlsx", []byte("PK\x03\x04 definitely not a workbook"))
	require.ErrorIs(t, err, ingest.ErrValidation)
}

// ── Aliases ──────────────────────────────────────────────────────────────────

func TestLoadAliases_Custom(t *testing.T) {
	aliases, err := ingest.LoadAliases([]byte(`
person: [Holder]
reader: [Portal]
timestamp: [When]
`))
	require.NoError(t, err)

	res, err := ingest.NewNormalizer(aliases).Normalize("x.csv", csvFile(
		"Holder,Portal,When",
		"Dana,Suite 9 Exit,2025-03-10 10:00:00",
	))
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "Dana", res.Events[0].Key.Person)
	assert.Equal(t, "Unknown", res.Events[0].Key.Card)
}

func TestLoadAliases_BadYAML(t *testing.T) {
	_, err := ingest.LoadAliases([]byte("person: [unclosed"))
	require.Error(t, err)
}
