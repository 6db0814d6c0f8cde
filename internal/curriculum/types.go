package curriculum

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kidventure/kidventure/internal/progress"
)

// Kind distinguishes lessons from exercises.
type Kind string

const (
	KindLesson   Kind = "lesson"
	KindExercise Kind = "exercise"
)

// Valid reports whether k is a known unit kind.
func (k Kind) Valid() bool {
	return k == KindLesson || k == KindExercise
}

// DefaultPoints returns the award for completing a unit of this kind when the
// content does not configure one.
func (k Kind) DefaultPoints() int64 {
	switch k {
	case KindLesson:
		return 10
	case KindExercise:
		return 5
	default:
		return 0
	}
}

// Unit is one lesson or exercise in a track.
type Unit struct {
	ID      string `json:"id" yaml:"id"`
	Kind    Kind   `json:"kind" yaml:"kind"`
	Ordinal int    `json:"ordinal" yaml:"ordinal"`
	Track   string `json:"track" yaml:"track"`
	Title   string `json:"title" yaml:"title"`
	Points  int64  `json:"points" yaml:"points"`
}

// Curriculum is an immutable, indexed set of units grouped into ordered tracks.
type Curriculum struct {
	units      map[string]Unit
	tracks     map[string][]Unit // sorted by ordinal
	trackOrder []string
}

// New validates units and builds a Curriculum. Unit IDs are normalized like
// student IDs and must be unique across the curriculum. Ordinals within a
// track run 0, 1, 2... in any input order.
func New(units []Unit) (*Curriculum, error) {
	c := &Curriculum{
		units:  make(map[string]Unit, len(units)),
		tracks: make(map[string][]Unit),
	}

	for _, u := range units {
		// Unit IDs become progress keys, so they follow the same rules as
		// every ID the store accepts.
		id, err := progress.NormalizeID("unitId", u.ID)
		if err != nil {
			return nil, fmt.Errorf("unit %q in track %q: %w", u.ID, u.Track, err)
		}
		u.ID = id
		if strings.TrimSpace(u.Track) == "" {
			return nil, fmt.Errorf("unit %q has no track", u.ID)
		}
		if !u.Kind.Valid() {
			return nil, fmt.Errorf("unit %q has unknown kind %q", u.ID, u.Kind)
		}
		if u.Ordinal < 0 {
			return nil, fmt.Errorf("unit %q has negative ordinal %d", u.ID, u.Ordinal)
		}
		if u.Points < 0 {
			return nil, fmt.Errorf("unit %q has negative points %d", u.ID, u.Points)
		}
		if _, dup := c.units[u.ID]; dup {
			return nil, fmt.Errorf("duplicate unit id %q", u.ID)
		}
		if _, seen := c.tracks[u.Track]; !seen {
			c.trackOrder = append(c.trackOrder, u.Track)
		}
		for _, other := range c.tracks[u.Track] {
			if other.Ordinal == u.Ordinal {
				return nil, fmt.Errorf("units %q and %q share ordinal %d in track %q", other.ID, u.ID, u.Ordinal, u.Track)
			}
		}
		c.units[u.ID] = u
		c.tracks[u.Track] = append(c.tracks[u.Track], u)
	}

	for name, track := range c.tracks {
		sort.Slice(track, func(i, j int) bool { return track[i].Ordinal < track[j].Ordinal })
		for i, u := range track {
			if u.Ordinal != i {
				return nil, fmt.Errorf("track %q: unit %q has ordinal %d, want %d (ordinals start at 0 without gaps)", name, u.ID, u.Ordinal, i)
			}
		}
	}
	return c, nil
}

// Unit returns a unit by ID.
func (c *Curriculum) Unit(id string) (Unit, bool) {
	u, ok := c.units[id]
	return u, ok
}

// First reports whether the unit is the first of its track (ordinal 0).
func (c *Curriculum) First(id string) bool {
	u, ok := c.units[id]
	return ok && u.Ordinal == 0
}

// Predecessor returns the unit immediately before id in its track.
func (c *Curriculum) Predecessor(id string) (Unit, bool) {
	track, i := c.position(id)
	if i <= 0 {
		return Unit{}, false
	}
	return track[i-1], true
}

// Successor returns the unit immediately after id in its track.
func (c *Curriculum) Successor(id string) (Unit, bool) {
	track, i := c.position(id)
	if i < 0 || i+1 >= len(track) {
		return Unit{}, false
	}
	return track[i+1], true
}

// Track returns the units of a track ordered by ordinal.
func (c *Curriculum) Track(name string) []Unit {
	return append([]Unit(nil), c.tracks[name]...)
}

// Tracks returns track names in declaration order.
func (c *Curriculum) Tracks() []string {
	return append([]string(nil), c.trackOrder...)
}

// Units returns every unit, track by track in declaration order.
func (c *Curriculum) Units() []Unit {
	out := make([]Unit, 0, len(c.units))
	for _, name := range c.trackOrder {
		out = append(out, c.tracks[name]...)
	}
	return out
}

// Len returns the number of units.
func (c *Curriculum) Len() int {
	return len(c.units)
}

func (c *Curriculum) position(id string) ([]Unit, int) {
	u, ok := c.units[id]
	if !ok {
		return nil, -1
	}
	track := c.tracks[u.Track]
	for i, other := range track {
		if other.ID == id {
			return track, i
		}
	}
	return nil, -1
}
