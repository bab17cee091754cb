package nav

import (
	"context"

	"github.com/jward/waypoint/internal/store"
)

// Status describes what a View holds.
type Status string

const (
	// StatusRecord is a single resolved record.
	StatusRecord Status = "record"
	// StatusList is the screen's default list.
	StatusList Status = "list"
	// StatusNotFound means the requested position had no record.
	StatusNotFound Status = "not_found"
)

// View is what a screen shows after a completed transition.
type View struct {
	Screen   Screen         `json:"screen"`
	Position *int64         `json:"position,omitempty"`
	Status   Status         `json:"status"`
	Record   *store.Record  `json:"record,omitempty"`
	Records  []store.Record `json:"records,omitempty"`
}

// Resolver fetches the data a screen displays. Implementations must honour
// ctx cancellation.
type Resolver interface {
	Record(ctx context.Context, position int64) (store.Record, error)
	Records(ctx context.Context) ([]store.Record, error)
	Favorites(ctx context.Context) ([]store.Record, error)
}

// resolve builds the view for entering screen with an optional position.
func resolve(ctx context.Context, r Resolver, screen Screen, position *int64) (View, error) {
	v := View{Screen: screen, Position: copyPos(position)}
	if position != nil {
		rec, err := r.Record(ctx, *position)
		if err != nil {
			return View{}, err
		}
		v.Status = StatusRecord
		v.Record = &rec
		return v, nil
	}

	var (
		recs []store.Record
		err  error
	)
	if screen == Bookmark {
		recs, err = r.Favorites(ctx)
	} else {
		recs, err = r.Records(ctx)
	}
	if err != nil {
		return View{}, err
	}
	v.Status = StatusList
	v.Records = recs
	return v, nil
}

func copyPos(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
