// Package waypoint is a location-favorites lookup: screens browse records
// held in a local SQLite store, mark favorites, and hand a selected record's
// position from one screen to the next.
package waypoint
