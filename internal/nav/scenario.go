package nav

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jward/waypoint/internal/errs"
	"github.com/jward/waypoint/internal/store"
)

// Scenario is a scripted navigation session, replayed by the session
// command and by golden tests.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario exercises.
	Description string `yaml:"description"`

	// Table is the record table the session browses.
	Table string `yaml:"table"`

	// Steps run in order after an implicit Start.
	Steps []Step `yaml:"steps"`
}

// Step is exactly one of Go, Back or Favorite.
type Step struct {
	// Go names the target screen of a forward transition.
	Go string `yaml:"go,omitempty"`

	// Position is the optional payload carried by Go.
	Position *int64 `yaml:"position,omitempty"`

	// Back pops one screen.
	Back bool `yaml:"back,omitempty"`

	// Favorite toggles the favorite mark of this position.
	Favorite *int64 `yaml:"favorite,omitempty"`

	// ExpectError is the error kind the step must fail with
	// (see ErrorKind). Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Toggler flips favorite membership; *favorites.Registry satisfies it.
type Toggler interface {
	Toggle(ctx context.Context, position int64) (store.Toggle, error)
}

// StepResult is the observable outcome of one step.
type StepResult struct {
	Step   int    `json:"step"`
	Action string `json:"action"`
	Screen Screen `json:"screen"`
	View   *View  `json:"view,omitempty"`
	Toggle string `json:"toggle,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Transcript is the full record of a scenario run.
type Transcript struct {
	Scenario string       `json:"scenario"`
	Table    string       `json:"table"`
	Steps    []StepResult `json:"steps"`
	History  []Screen     `json:"history"`
	Trace    []TraceEntry `json:"trace"`
}

// LoadScenario reads and validates a scenario file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(bytes.NewReader(data))
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// Validate checks required fields and step shape. The table name is
// checked against the allow-list when the session is built, not here.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return errors.New("name is required")
	}
	if sc.Table == "" {
		return errors.New("table is required")
	}
	if len(sc.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}
	for i, st := range sc.Steps {
		n := 0
		if st.Go != "" {
			n++
			if _, err := ParseScreen(st.Go); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		if st.Back {
			n++
		}
		if st.Favorite != nil {
			n++
		}
		if n != 1 {
			return fmt.Errorf("step %d: exactly one of go, back, favorite is required", i+1)
		}
		if st.Position != nil && st.Go == "" {
			return fmt.Errorf("step %d: position is only valid with go", i+1)
		}
	}
	return nil
}

// RunScenario starts n and replays sc against it. A step whose error kind
// differs from its ExpectError aborts the run; the transcript up to that
// point is returned with the error.
func RunScenario(ctx context.Context, n *Navigator, sc *Scenario, fav Toggler) (*Transcript, error) {
	tr := &Transcript{Scenario: sc.Name, Table: sc.Table}

	view, err := n.Start(ctx)
	if err != nil {
		return tr, fmt.Errorf("start: %w", err)
	}
	tr.Steps = append(tr.Steps, StepResult{Step: 0, Action: "start", Screen: view.Screen, View: &view})

	for i, st := range sc.Steps {
		res := StepResult{Step: i + 1}
		var err error
		switch {
		case st.Go != "":
			to, _ := ParseScreen(st.Go)
			res.Action = "go " + to.String()
			if st.Position != nil {
				res.Action += fmt.Sprintf(" %d", *st.Position)
			}
			var v View
			if v, err = n.Go(ctx, to, st.Position); err == nil {
				res.View = &v
			}
		case st.Back:
			res.Action = "back"
			var v View
			if v, err = n.Back(ctx); err == nil {
				res.View = &v
			}
		case st.Favorite != nil:
			res.Action = fmt.Sprintf("favorite %d", *st.Favorite)
			if fav == nil {
				return tr, fmt.Errorf("step %d: no favorite registry", i+1)
			}
			var t store.Toggle
			if t, err = fav.Toggle(ctx, *st.Favorite); err == nil {
				res.Toggle = t.String()
			}
		}
		res.Screen = n.Current().Screen
		kind := ErrorKind(err)
		res.Error = kind
		tr.Steps = append(tr.Steps, res)
		if kind != st.ExpectError {
			if err == nil {
				err = errors.New("step succeeded")
			}
			return tr, fmt.Errorf("step %d (%s): expected error %q: %w", i+1, res.Action, st.ExpectError, err)
		}
	}

	tr.History = n.History()
	tr.Trace = n.Trace()
	return tr, nil
}

// ErrorKind maps a navigation or favorite error to a stable short name.
// It returns "" for nil.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrNoHistory):
		return "no_history"
	case errors.Is(err, ErrSuperseded):
		return "superseded"
	case errors.Is(err, ErrNotStarted):
		return "not_started"
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrInvalidTable):
		return "invalid_table"
	case errors.Is(err, errs.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
