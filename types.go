package waypoint

import (
	"github.com/jward/waypoint/internal/errs"
	"github.com/jward/waypoint/internal/nav"
	"github.com/jward/waypoint/internal/store"
)

// Public aliases for internal types used in the App API. These are Go type
// aliases (=), so no conversion is needed.

type Record = store.Record
type Toggle = store.Toggle
type Pagination = store.Pagination
type RecordPage = store.PagedResult[store.Record]
type View = nav.View
type Screen = nav.Screen

const (
	Added   = store.Added
	Removed = store.Removed
)

// Error sentinels for errors.Is.
var (
	ErrInvalidTable     = errs.ErrInvalidTable
	ErrNotFound         = errs.ErrNotFound
	ErrStoreUnavailable = errs.ErrStoreUnavailable
	ErrConfigMissing    = errs.ErrConfigMissing
)
