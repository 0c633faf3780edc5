// Package catalog holds the states, districts, seasons and planting windows
// offered by the seasonal prediction forms.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"

	"github.com/goccy/go-json"

	"github.com/dmitrijs2005/cottonadvisor/internal/agronomy"
	"github.com/dmitrijs2005/cottonadvisor/internal/common"
)

type State struct {
	Name      string   `json:"name"`
	Districts []string `json:"districts"`
}

type Catalog struct {
	States          []State                      `json:"states"`
	Seasons         []string                     `json:"seasons"`
	PlantingWindows map[string][]agronomy.Window `json:"planting_windows"`
}

// New builds a catalog from states, sorting states and districts by name.
func New(states []State) *Catalog {
	c := &Catalog{
		States:          make([]State, 0, len(states)),
		Seasons:         []string{common.SeasonKharif, common.SeasonRabi},
		PlantingWindows: agronomy.AllWindows(),
	}
	for _, s := range states {
		d := append([]string(nil), s.Districts...)
		sort.Strings(d)
		c.States = append(c.States, State{Name: s.Name, Districts: d})
	}
	sort.Slice(c.States, func(i, j int) bool { return c.States[i].Name < c.States[j].Name })
	return c
}

// Load reads a catalog file. A missing file yields an empty catalog.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(nil), nil
		}
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (*Catalog, error) {
	// planting_windows is always regenerated from the built-in table.
	var raw struct {
		States  []State  `json:"states"`
		Seasons []string `json:"seasons"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	c := New(raw.States)
	if len(raw.Seasons) > 0 {
		c.Seasons = raw.Seasons
	}
	return c, nil
}

// Encode writes the catalog as indented JSON.
func (c *Catalog) Encode(w io.Writer) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// StateNames lists the states in catalog order.
func (c *Catalog) StateNames() []string {
	out := make([]string, len(c.States))
	for i, s := range c.States {
		out[i] = s.Name
	}
	return out
}

// Districts returns the districts of state, or common.ErrorNotFound.
func (c *Catalog) Districts(state string) ([]string, error) {
	for _, s := range c.States {
		if s.Name == state {
			return s.Districts, nil
		}
	}
	return nil, common.ErrorNotFound
}

// HasDistrict reports whether district belongs to state.
func (c *Catalog) HasDistrict(state, district string) bool {
	d, err := c.Districts(state)
	if err != nil {
		return false
	}
	i := sort.SearchStrings(d, district)
	return i < len(d) && d[i] == district
}
