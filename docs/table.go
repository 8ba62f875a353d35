// Package docs implements the documentation table consulted by inspect
// requests: a static name-to-record lookup with two prefix rewrite rules
// so records written for the base type also resolve for documented
// subtypes.
package docs

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/itsneelabh/evalsession/core"
)

// Record is one documentation entry: a short one-line summary plus the
// longer body shown on inspection.
type Record struct {
	Summary string `yaml:"summary"`
	Body    string `yaml:"body"`
}

// Table is an in-memory, read-only documentation lookup. The zero value
// is an empty table.
type Table struct {
	entries map[string]Record
}

// rewriteRules are tried in order after an exact-name lookup fails. Each
// rule rewrites a name carrying the given prefix to the replacement
// prefix, and the rewritten name is probed in turn.
var rewriteRules = []struct {
	from string
	to   string
}{
	{from: "*Error.", to: "Error."},
	{from: "*Array.", to: "TypedArray."},
}

// NewTable builds a Table from a name->Record map, typically produced by
// LoadFile.
func NewTable(entries map[string]Record) *Table {
	if entries == nil {
		entries = map[string]Record{}
	}
	return &Table{entries: entries}
}

// LoadFile reads a YAML file mapping documented names to Records and
// returns the Table it describes.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.FrameworkError{Op: "docs.LoadFile", Kind: "docs", ID: path, Message: "failed to read documentation table", Err: err}
	}

	var entries map[string]Record
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, &core.FrameworkError{Op: "docs.LoadFile", Kind: "docs", ID: path, Message: "failed to parse documentation table", Err: err}
	}

	return NewTable(entries), nil
}

// Lookup probes, in order: the exact name; the name with a leading
// "*Error." rewritten to "Error."; the name with a leading "*Array."
// rewritten to "TypedArray.". It returns the first record found, or
// ok=false if none of the probes match.
func (t *Table) Lookup(name string) (Record, bool) {
	if t == nil {
		return Record{}, false
	}
	if rec, ok := t.entries[name]; ok {
		return rec, true
	}
	for _, rule := range rewriteRules {
		if strings.HasPrefix(name, rule.from) {
			rewritten := rule.to + strings.TrimPrefix(name, rule.from)
			if rec, ok := t.entries[rewritten]; ok {
				return rec, true
			}
		}
	}
	return Record{}, false
}

// Len reports how many entries the table holds.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
