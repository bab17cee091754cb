package store

import (
	"fmt"
	"strings"

	"github.com/jward/waypoint/internal/errs"
)

// Table identifies one of the fixed record tables. The zero value is not a
// valid table; ParseTable is the only way to build one from untrusted input.
type Table uint8

const (
	Locations Table = iota + 1
	Restaurants
	Cafes
	Landmarks
)

var tableNames = [...]string{
	Locations:   "locations",
	Restaurants: "restaurants",
	Cafes:       "cafes",
	Landmarks:   "landmarks",
}

// Tables returns every allow-listed table in declaration order.
func Tables() []Table {
	return []Table{Locations, Restaurants, Cafes, Landmarks}
}

// TableNames returns the allow-listed table identifiers.
func TableNames() []string {
	names := make([]string, 0, len(tableNames)-1)
	for _, t := range Tables() {
		names = append(names, tableNames[t])
	}
	return names
}

// ParseTable resolves an untrusted table name against the allow-list.
// Matching is exact; anything else fails with an InvalidTable error.
func ParseTable(name string) (Table, error) {
	for _, t := range Tables() {
		if tableNames[t] == name {
			return t, nil
		}
	}
	return 0, errs.New(errs.InvalidTable, "parse table",
		fmt.Sprintf("unknown table %q (allowed: %s)", name, strings.Join(TableNames(), ", ")))
}

// Valid reports whether t is one of the allow-listed tables.
func (t Table) Valid() bool {
	return t >= Locations && t <= Landmarks
}

func (t Table) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Table(%d)", uint8(t))
	}
	return tableNames[t]
}

// MarshalText implements encoding.TextMarshaler.
func (t Table) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, errs.New(errs.InvalidTable, "marshal table", t.String())
	}
	return []byte(tableNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler via ParseTable.
func (t *Table) UnmarshalText(text []byte) error {
	parsed, err := ParseTable(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// tableSQL holds the statements for one table. The table identifier comes
// from tableNames, never from caller input.
type tableSQL struct {
	get            string
	list           string
	count          string
	insert         string
	delete         string
	deleteMany     string // prefix; append the placeholder list and ")"
	favoritesAfter string
	isFavorite     string
}

var tableQueries = buildTableQueries()

func buildTableQueries() map[Table]tableSQL {
	m := make(map[Table]tableSQL, len(tableNames)-1)
	for _, t := range Tables() {
		name := tableNames[t]
		m[t] = tableSQL{
			get:        "SELECT position, name, tel, address FROM " + name + " WHERE position = ?",
			list:       "SELECT position, name, tel, address FROM " + name + " ORDER BY position LIMIT ? OFFSET ?",
			count:      "SELECT COUNT(*) FROM " + name,
			insert:     "INSERT INTO " + name + " (position, name, tel, address) VALUES (?, ?, ?, ?)",
			delete:     "DELETE FROM " + name + " WHERE position = ?",
			deleteMany: "DELETE FROM " + name + " WHERE position IN (",
			favoritesAfter: `SELECT r.position, r.name, r.tel, r.address
				FROM favorites f JOIN ` + name + ` r ON r.position = f.position
				WHERE f.table_name = ? AND f.position > ?
				ORDER BY f.position LIMIT ?`,
			isFavorite: `SELECT COUNT(*)
				FROM favorites f JOIN ` + name + ` r ON r.position = f.position
				WHERE f.table_name = ? AND f.position = ?`,
		}
	}
	return m
}

// statements returns the SQL for t, rejecting anything off the allow-list.
func (t Table) statements() (tableSQL, error) {
	q, ok := tableQueries[t]
	if !ok {
		return tableSQL{}, errs.New(errs.InvalidTable, "select table", t.String())
	}
	return q, nil
}

// tableDDL renders the CREATE TABLE statement for every allow-listed table.
func tableDDL() string {
	var b strings.Builder
	for _, t := range Tables() {
		fmt.Fprintf(&b, `
CREATE TABLE IF NOT EXISTS %s (
  position        INTEGER PRIMARY KEY,
  name            TEXT NOT NULL,
  tel             TEXT NOT NULL DEFAULT '',
  address         TEXT NOT NULL DEFAULT ''
);
`, tableNames[t])
	}
	return b.String()
}
