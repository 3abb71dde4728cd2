package report

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultOutputName is used when the caller does not name the workbook.
const DefaultOutputName = "Merged_Kastle_Reports_WithSummary.xlsx"

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// OutputName turns a user-supplied workbook name into a safe file name that
// ends in .xlsx (or .xls when given).
func OutputName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultOutputName
	}
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, ".xlsx") && !strings.HasSuffix(lower, ".xls") {
		name += ".xlsx"
	}
	safe := SecureFilename(name)
	ext := strings.ToLower(filepath.Ext(safe))
	if (ext != ".xlsx" && ext != ".xls") || len(safe) == len(ext) {
		return DefaultOutputName
	}
	return safe
}

// SecureFilename flattens path separators, replaces whitespace with
// underscores and drops anything outside [A-Za-z0-9_.-].
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "/", " ")
	name = strings.ReplaceAll(name, "\\", " ")
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilename.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

const maxSheetName = 31

var badSheetChars = strings.NewReplacer(
	"[", "(", "]", ")", ":", "-", "*", "-", "?", "", "/", "-", "\\", "-",
)

// sheetNamer hands out Excel-legal, workbook-unique sheet names.
type sheetNamer struct {
	used map[string]bool
}

func newSheetNamer() *sheetNamer {
	return &sheetNamer{used: make(map[string]bool)}
}

func (n *sheetNamer) name(want string) string {
	base := strings.Trim(badSheetChars.Replace(strings.TrimSpace(want)), "'")
	if base == "" {
		base = "Sheet"
	}
	base = truncateRunes(base, maxSheetName)

	candidate := base
	for i := 2; n.used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		candidate = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	n.used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
