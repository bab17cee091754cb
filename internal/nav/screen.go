package nav

import (
	"fmt"
	"strings"
)

// Screen is one state of the navigation graph.
type Screen uint8

const (
	Main Screen = iota + 1
	Second
	Third
	Fourth
	Bookmark
)

var screenNames = [...]string{
	Main:     "main",
	Second:   "second",
	Third:    "third",
	Fourth:   "fourth",
	Bookmark: "bookmark",
}

// forward lists the screens reachable from each screen with Go.
var forward = map[Screen][]Screen{
	Main:     {Second, Bookmark},
	Second:   {Third},
	Third:    {Fourth},
	Fourth:   nil,
	Bookmark: {Main},
}

// Screens returns every screen in declaration order.
func Screens() []Screen {
	return []Screen{Main, Second, Third, Fourth, Bookmark}
}

// ParseScreen resolves a screen by name, case-insensitively.
func ParseScreen(name string) (Screen, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range Screens() {
		if screenNames[s] == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown screen %q", name)
}

// Valid reports whether s is a known screen.
func (s Screen) Valid() bool {
	return s >= Main && s <= Bookmark
}

func (s Screen) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Screen(%d)", uint8(s))
	}
	return screenNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Screen) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid screen %d", uint8(s))
	}
	return []byte(screenNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Screen) UnmarshalText(text []byte) error {
	parsed, err := ParseScreen(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// CanGo reports whether Go may move from s to to.
func (s Screen) CanGo(to Screen) bool {
	for _, next := range forward[s] {
		if next == to {
			return true
		}
	}
	return false
}

// exits reports whether moving from s to to leaves a side branch and
// returns to where it was entered from.
func exits(from, to Screen) bool {
	return from == Bookmark && to == Main
}
