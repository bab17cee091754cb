package store

// Record is one row of a record table. Values returned by the Store are
// copies; mutating them never touches the database.
type Record struct {
	Position int64  `json:"position" yaml:"position"`
	Name     string `json:"name" yaml:"name"`
	Tel      string `json:"tel,omitempty" yaml:"tel,omitempty"`
	Address  string `json:"address,omitempty" yaml:"address,omitempty"`
}

// Toggle is the outcome of flipping a record's favorite membership.
type Toggle int

const (
	Added Toggle = iota + 1
	Removed
)

func (t Toggle) String() string {
	switch t {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Pagination controls offset/limit paging for list queries.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// PagedResult holds one page of items and the total before paging.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int
}
