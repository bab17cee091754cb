// Package fixture loads seed records from YAML documents keyed by table:
//
//	locations:
//	  - name: Cafe
//	    tel: 555-0100
//	    address: 1 Main St
//	  - position: 10
//	    name: Library
//
// Entries without a position take the table's next position on import.
package fixture

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jward/waypoint/internal/store"
)

// Entry is one seed record.
type Entry struct {
	Position *int64 `yaml:"position,omitempty"`
	Name     string `yaml:"name"`
	Tel      string `yaml:"tel,omitempty"`
	Address  string `yaml:"address,omitempty"`
}

// Fixture is a parsed seed document.
type Fixture struct {
	tables map[store.Table][]Entry
}

// LoadFile parses the fixture at path.
func LoadFile(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	fx, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fx, nil
}

// Parse decodes and validates a fixture. Table keys go through
// store.ParseTable, so an unknown table fails with InvalidTable.
func Parse(r io.Reader) (*Fixture, error) {
	var raw map[string][]Entry
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse fixture YAML: %w", err)
	}

	fx := &Fixture{tables: make(map[store.Table][]Entry, len(raw))}
	for name, entries := range raw {
		t, err := store.ParseTable(name)
		if err != nil {
			return nil, err
		}
		seen := make(map[int64]bool)
		for i, e := range entries {
			if e.Name == "" {
				return nil, fmt.Errorf("%s entry %d: name is required", name, i+1)
			}
			if e.Position == nil {
				continue
			}
			if *e.Position < 0 {
				return nil, fmt.Errorf("%s entry %d: position %d is negative", name, i+1, *e.Position)
			}
			if *e.Position > store.MaxPosition {
				return nil, fmt.Errorf("%s entry %d: position %d: %w", name, i+1, *e.Position, store.ErrPositionRange)
			}
			if seen[*e.Position] {
				return nil, fmt.Errorf("%s entry %d: duplicate position %d", name, i+1, *e.Position)
			}
			seen[*e.Position] = true
		}
		fx.tables[t] = entries
	}
	return fx, nil
}

// Len returns the number of entries across all tables.
func (f *Fixture) Len() int {
	n := 0
	for _, entries := range f.tables {
		n += len(entries)
	}
	return n
}

// Entries returns the entries for t in file order.
func (f *Fixture) Entries(t store.Table) []Entry {
	return f.tables[t]
}

// Apply writes every entry to w, table by table in store.Tables order and
// entry by entry in file order. Returns the number of entries written.
func (f *Fixture) Apply(ctx context.Context, w store.RecordWriter) (int, error) {
	n := 0
	for _, t := range store.Tables() {
		for _, e := range f.tables[t] {
			rec := store.Record{Name: e.Name, Tel: e.Tel, Address: e.Address}
			var err error
			if e.Position != nil {
				rec.Position = *e.Position
				err = w.InsertRecordAt(ctx, t, rec)
			} else {
				_, err = w.InsertRecord(ctx, t, rec)
			}
			if err != nil {
				return n, fmt.Errorf("apply %s %q: %w", t, e.Name, err)
			}
			n++
		}
	}
	return n, nil
}
