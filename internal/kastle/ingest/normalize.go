// Package ingest turns raw badge-reader exports into sorted SwipeEvents.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
)

// ErrValidation marks a file that cannot feed reconciliation at all.
var ErrValidation = errors.New("input validation failed")

// ValidationError explains why a whole file was skipped.
type ValidationError struct {
	Filename string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Filename, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(filename, format string, args ...any) error {
	return &ValidationError{Filename: filename, Reason: fmt.Sprintf(format, args...)}
}

// Result is the normalized content of one file.
type Result struct {
	Events []types.SwipeEvent
	// DroppedRows had an ENTRY/EXIT direction but no parseable timestamp.
	DroppedRows int
	// ExcludedRows were not reader events or had no clear direction.
	ExcludedRows int
}

type Normalizer struct {
	aliases Aliases
}

func NewNormalizer(a Aliases) *Normalizer {
	if a == nil {
		a = DefaultAliases()
	}
	return &Normalizer{aliases: a}
}

// Normalize parses one uploaded file.  Every returned error is a
// *ValidationError.
func (n *Normalizer) Normalize(filename string, data []byte) (Result, error) {
	rows, err := readRows(filename, data)
	if err != nil {
		return Result{}, invalid(filename, "cannot read file: %v", err)
	}
	return n.normalizeRows(filename, rows)
}

func (n *Normalizer) normalizeRows(filename string, rows [][]string) (Result, error) {
	if len(rows) < 2 {
		return Result{}, invalid(filename, "not enough data")
	}

	cols := n.aliases.resolve(rows[0])
	var missing []string
	for _, f := range []Field{FieldReader, FieldTimestamp} {
		if _, ok := cols[f]; !ok {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return Result{}, invalid(filename, "missing required column(s): %s", strings.Join(missing, ", "))
	}

	var res Result
	classified := 0
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		cell := func(f Field) string {
			idx, ok := cols[f]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		if et := cell(FieldEventType); et != "" && !strings.Contains(strings.ToLower(et), "reader") {
			res.ExcludedRows++
			continue
		}

		reader := cell(FieldReader)
		dirText := cell(FieldDirection)
		if dirText == "" {
			dirText = reader
		}
		dir, ok := classifyDirection(dirText)
		if !ok {
			res.ExcludedRows++
			continue
		}
		classified++

		ts, ok := parseCellTime(cell(FieldTimestamp))
		if !ok && cell(FieldDate) != "" {
			ts, ok = parseDateAndTime(cell(FieldDate), cell(FieldTimestamp))
		}
		if !ok {
			res.DroppedRows++
			continue
		}

		res.Events = append(res.Events, types.SwipeEvent{
			Key: types.IdentityKey{
				Person: orUnknown(cell(FieldPerson)),
				Card:   orUnknown(cell(FieldCard)),
				Suite:  extractSuite(reader),
			},
			Timestamp: ts,
			Direction: dir,
			Reader:    reader,
		})
	}

	switch {
	case classified == 0:
		return Result{}, invalid(filename, "no ENTRY/EXIT reader rows")
	case len(res.Events) == 0:
		return Result{}, invalid(filename, "no rows with a parseable timestamp")
	}

	SortEvents(res.Events)
	return res, nil
}

// SortEvents orders events by identity key, then timestamp.  Ties keep their
// input order.
func SortEvents(events []types.SwipeEvent) {
	slices.SortStableFunc(events, func(a, b types.SwipeEvent) int {
		switch {
		case a.Key.Less(b.Key):
			return -1
		case b.Key.Less(a.Key):
			return 1
		}
		return a.Timestamp.Compare(b.Timestamp)
	})
}

func orUnknown(s string) string {
	if s == "" || strings.EqualFold(s, "nan") {
		return types.Unknown
	}
	return s
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseCellTime accepts text timestamps and raw Excel serial dates.
func parseCellTime(s string) (time.Time, bool) {
	if t, ok := parseTimestamp(s); ok {
		return t, true
	}
	if f, ok := excelSerial(s); ok && f > 1 {
		return serialToTime(f)
	}
	return time.Time{}, false
}

// parseDateAndTime joins a separate date cell and time-of-day cell.  Raw
// workbook cells arrive as a serial day and a day fraction.
func parseDateAndTime(date, clock string) (time.Time, bool) {
	d, dok := excelSerial(date)
	c, cok := excelSerial(clock)
	if dok && cok && c < 1 {
		return serialToTime(d + c)
	}
	if dok {
		if t, ok := serialToTime(d); ok {
			date = t.Format("2006-01-02")
		}
	}
	if cok && c < 1 {
		clock = time.Time{}.Add(time.Duration(math.Round(c*86400)) * time.Second).Format("15:04:05")
	}
	return parseTimestamp(date + " " + clock)
}

func excelSerial(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 || f >= 2958466 {
		return 0, false
	}
	return f, true
}

// serialToTime converts an Excel serial date, rounded to the second.
func serialToTime(f float64) (time.Time, bool) {
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, false
	}
	return t.Round(time.Second), true
}

func readRows(filename string, data []byte) ([][]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty file")
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return readCSV(data)
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return readWorkbook(data)
	}
	// Unknown extension: zip containers are workbooks, text is CSV.
	switch {
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return readWorkbook(data)
	case utf8.Valid(data):
		return readCSV(data)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(filename))
	}
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	return rows, nil
}

func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx: workbook has no sheets")
	}
	// Raw values keep seconds that a display format such as "m/d/yy h:mm"
	// would hide; date cells come back as serial numbers.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("xlsx: read %s: %w", sheets[0], err)
	}
	return rows, nil
}
