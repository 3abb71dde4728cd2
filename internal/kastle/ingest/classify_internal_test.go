package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
)

func TestClassifyDirection(t *testing.T) {
	cases := map[string]types.Direction{
		"Suite 400 Entry":  types.DirectionEntry,
		"Main Entrance":    types.DirectionEntry,
		"LOBBY-IN":         types.DirectionEntry,
		"Suite 400 Exit":   types.DirectionExit,
		"garage out":       types.DirectionExit,
		"Suite 400 (EXIT)": types.DirectionExit,
	}
	for text, want := range cases {
		got, ok := classifyDirection(text)
		assert.True(t, ok, text)
		assert.Equal(t, want, got, text)
	}

	for _, text := range []string{"", "Suite 400", "In/Out", "Entry Exit", "Inside"} {
		_, ok := classifyDirection(text)
		assert.False(t, ok, text)
	}
}

func TestExtractSuite(t *testing.T) {
	assert.Equal(t, "Suite 400", extractSuite("Suite 400 Entry"))
	assert.Equal(t, "Suite 12B", extractSuite("fl 3 suite#12b exit"))
	assert.Equal(t, "Main Lobby", extractSuite("Main Lobby Entry"))
	assert.Equal(t, "Garage", extractSuite("Garage - OUT"))
	assert.Equal(t, types.Unknown, extractSuite("Exit"))
	assert.Equal(t, types.Unknown, extractSuite(""))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 3, 10, 17, 30, 0, 0, time.UTC)
	for _, s := range []string{
		"2025-03-10 17:30:00",
		"2025-03-10 17:30:00 CT",
		"3/10/2025 5:30:00 PM",
		"3/10/2025 5:30:00 PM CT",
		"03/10/2025 17:30:00",
		"Mar 10, 2025 5:30 PM",
		"3/10/2025 5:30 pm",
		"3/10/2025 5:30:00 pm ct",
		"10-Mar-2025 17:30",
		"10-mar-2025 5:30 PM",
	} {
		got, ok := parseTimestamp(s)
		assert.True(t, ok, s)
		assert.True(t, want.Equal(got), "%s -> %v", s, got)
	}

	_, ok := parseTimestamp("")
	assert.False(t, ok)
	_, ok = parseTimestamp("13/45/2025 99:00")
	assert.False(t, ok)
}

func TestParseDateAndTime(t *testing.T) {
	want := time.Date(2025, 3, 11, 8, 0, 30, 0, time.UTC)

	// 2025-03-11 is serial 45727; 08:00:30 is 28830/86400 of a day.
	got, ok := parseDateAndTime("45727", "0.33368055555555554")
	require.True(t, ok)
	assert.True(t, want.Equal(got), "%v", got)

	got, ok = parseDateAndTime("2025-03-11", "0.33368055555555554")
	require.True(t, ok)
	assert.True(t, want.Equal(got), "%v", got)

	got, ok = parseDateAndTime("03/11/2025", "08:00:30")
	require.True(t, ok)
	assert.True(t, want.Equal(got), "%v", got)
}

func TestParseCellTime_SerialKeepsSeconds(t *testing.T) {
	got, ok := parseCellTime("45727.33368055555")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 11, 8, 0, 30, 0, time.UTC), got)
}

func TestResolve_CardHashHeader(t *testing.T) {
	cols := DefaultAliases().resolve([]string{"Name", "Card #", "Reader", "Time"})
	idx, ok := cols[FieldCard]
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Contains(t, DefaultAliases()[FieldCard], "card #")
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "date time", normalizeHeader(" Date/Time "))
	assert.Equal(t, "card #", normalizeHeader("Card #"))
	assert.Equal(t, "in out", normalizeHeader("IN/OUT"))
	assert.Equal(t, "name", normalizeHeader("\ufeffName"))
}
