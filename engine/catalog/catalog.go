// Package catalog holds the ordered, immutable set of levels for a quest.
package catalog

import (
	"fmt"
	"sort"

	"github.com/nathoo/shellquest/types"
)

// Catalog is the read-only level collection shared by every session.
type Catalog struct {
	levels []types.LevelDef
	index  map[string]int
}

// Stats aggregates the catalog for the stats command.
type Stats struct {
	TotalLevels         int
	TotalPoints         int
	AveragePoints       float64
	Categories          []string // sorted, distinct
	DifficultyBreakdown map[types.Difficulty]int
}

// New builds a catalog in the given order. Duplicate ids are rejected.
func New(levels []types.LevelDef) (*Catalog, error) {
	c := &Catalog{
		levels: make([]types.LevelDef, len(levels)),
		index:  make(map[string]int, len(levels)),
	}
	copy(c.levels, levels)
	for i, l := range c.levels {
		if _, dup := c.index[l.ID]; dup {
			return nil, fmt.Errorf("duplicate level id %q", l.ID)
		}
		c.index[l.ID] = i
	}
	return c, nil
}

// Len returns the number of levels.
func (c *Catalog) Len() int {
	return len(c.levels)
}

// At returns the level at position i, or nil when out of range.
func (c *Catalog) At(i int) *types.LevelDef {
	if i < 0 || i >= len(c.levels) {
		return nil
	}
	return &c.levels[i]
}

// Get looks up a level by id.
func (c *Catalog) Get(id string) (*types.LevelDef, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return &c.levels[i], true
}

// IndexOf returns the position of a level id, or -1.
func (c *Catalog) IndexOf(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// Ordered returns the levels in declared order.
func (c *Catalog) Ordered() []*types.LevelDef {
	out := make([]*types.LevelDef, len(c.levels))
	for i := range c.levels {
		out[i] = &c.levels[i]
	}
	return out
}

// ByCategory returns the levels in the given category, in declared order.
func (c *Catalog) ByCategory(category string) []*types.LevelDef {
	var out []*types.LevelDef
	for i := range c.levels {
		if c.levels[i].Category == category {
			out = append(out, &c.levels[i])
		}
	}
	return out
}

// ByDifficulty returns the levels of the given difficulty, in declared order.
func (c *Catalog) ByDifficulty(d types.Difficulty) []*types.LevelDef {
	var out []*types.LevelDef
	for i := range c.levels {
		if c.levels[i].Difficulty == d {
			out = append(out, &c.levels[i])
		}
	}
	return out
}

// Statistics aggregates points, categories and difficulties over all levels.
func (c *Catalog) Statistics() Stats {
	st := Stats{
		TotalLevels:         len(c.levels),
		DifficultyBreakdown: map[types.Difficulty]int{},
	}
	seen := map[string]bool{}
	for _, l := range c.levels {
		st.TotalPoints += l.Points
		st.DifficultyBreakdown[l.Difficulty]++
		if !seen[l.Category] {
			seen[l.Category] = true
			st.Categories = append(st.Categories, l.Category)
		}
	}
	sort.Strings(st.Categories)
	if st.TotalLevels > 0 {
		st.AveragePoints = float64(st.TotalPoints) / float64(st.TotalLevels)
	}
	return st
}
