package ingest

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed columns.yaml
var defaultColumnsYAML []byte

// Field is a logical column the normalizer understands.
type Field string

const (
	FieldPerson    Field = "person"
	FieldCard      Field = "card"
	FieldReader    Field = "reader"
	FieldTimestamp Field = "timestamp"
	FieldDirection Field = "direction"
	FieldEventType Field = "event_type"
	FieldDate      Field = "date"
)

var allFields = []Field{FieldPerson, FieldCard, FieldReader, FieldTimestamp, FieldDirection, FieldEventType, FieldDate}

// Aliases maps each field to the normalized header names that select it.
type Aliases map[Field][]string

// LoadAliases parses a YAML alias table.  Missing fields get no aliases.
func LoadAliases(data []byte) (Aliases, error) {
	raw := make(map[string][]string)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse column aliases: %w", err)
	}
	out := make(Aliases, len(raw))
	for k, names := range raw {
		f := Field(k)
		for _, n := range names {
			if n = normalizeHeader(n); n != "" {
				out[f] = append(out[f], n)
			}
		}
	}
	return out, nil
}

// DefaultAliases returns the embedded alias table.
func DefaultAliases() Aliases {
	a, err := LoadAliases(defaultColumnsYAML)
	if err != nil {
		panic(err)
	}
	return a
}

var headerPunct = regexp.MustCompile(`[^a-z0-9#]+`)

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = headerPunct.ReplaceAllString(h, " ")
	return strings.Join(strings.Fields(h), " ")
}

// columnMap is field -> column index, absent when unresolved.
type columnMap map[Field]int

// resolve matches header cells against aliases.  The first matching column
// wins for each field, and a column is claimed by at most one field, checked
// in allFields order.
func (a Aliases) resolve(header []string) columnMap {
	norm := make([]string, len(header))
	for i, h := range header {
		norm[i] = normalizeHeader(h)
	}

	cols := make(columnMap)
	claimed := make(map[int]bool)
	for _, f := range allFields {
		for _, alias := range a[f] {
			idx := -1
			for i, h := range norm {
				if !claimed[i] && h == alias {
					idx = i
					break
				}
			}
			if idx >= 0 {
				cols[f] = idx
				claimed[idx] = true
				break
			}
		}
	}
	return cols
}
