package gamedata

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/gridtactics/internal/config"
	"github.com/cory-johannsen/gridtactics/internal/game/skill"
)

// Catalog is the complete set of static content.
type Catalog struct {
	Skills  *skill.Registry
	Units   map[string]*UnitType
	Objects map[string]*ObjectType
	Levels  map[string]*Level
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		Skills:  skill.NewRegistry(),
		Units:   make(map[string]*UnitType),
		Objects: make(map[string]*ObjectType),
		Levels:  make(map[string]*Level),
	}
}

// Skill implements skill.Lookup.
func (c *Catalog) Skill(id string) (*skill.Skill, bool) { return c.Skills.Skill(id) }

// UnitType returns the unit type called name.
func (c *Catalog) UnitType(name string) (*UnitType, bool) {
	u, ok := c.Units[name]
	return u, ok
}

// ObjectType returns the object type called name.
func (c *Catalog) ObjectType(name string) (*ObjectType, bool) {
	o, ok := c.Objects[name]
	return o, ok
}

// Level returns the level called name.
func (c *Catalog) Level(name string) (*Level, bool) {
	l, ok := c.Levels[name]
	return l, ok
}

// LevelNames returns all level names sorted.
func (c *Catalog) LevelNames() []string {
	names := make([]string, 0, len(c.Levels))
	for n := range c.Levels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks cross references: unit skills and level placements must
// name known content.
//
// Postcondition: Returns nil if consistent, or an error describing all violations.
func (c *Catalog) Validate() error {
	var errs []error
	for _, u := range c.Units {
		for _, id := range u.Skills {
			if _, ok := c.Skills.Skill(id); !ok {
				errs = append(errs, fmt.Errorf("unit type %q: %w: %q", u.Name, skill.ErrSkillNotFound, id))
			}
		}
	}
	for _, l := range c.Levels {
		for _, p := range l.Units {
			if _, ok := c.Units[p.Type]; !ok {
				errs = append(errs, fmt.Errorf("level %q: unknown unit type %q at %s", l.Name, p.Type, p.Position))
			}
		}
		for _, p := range l.Objects {
			if _, ok := c.Objects[p.Type]; !ok {
				errs = append(errs, fmt.Errorf("level %q: unknown object type %q at %s", l.Name, p.Type, p.Position))
			}
		}
	}
	return errors.Join(errs...)
}

// LoadAll loads the four content directories concurrently and validates the
// resulting catalog.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a validated Catalog or the first load error.
func LoadAll(ctx context.Context, dirs config.DataConfig, logger *zap.Logger) (*Catalog, error) {
	cat := NewCatalog()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reg, err := skill.LoadDirectory(dirs.SkillsDir)
		if err != nil {
			return err
		}
		cat.Skills = reg
		return ctx.Err()
	})
	g.Go(func() error {
		units, err := LoadUnitTypes(dirs.UnitsDir)
		if err != nil {
			return err
		}
		cat.Units = units
		return ctx.Err()
	})
	g.Go(func() error {
		objects, err := LoadObjectTypes(dirs.ObjectsDir)
		if err != nil {
			return err
		}
		cat.Objects = objects
		return ctx.Err()
	})
	g.Go(func() error {
		levels, err := LoadLevels(dirs.LevelsDir)
		if err != nil {
			return err
		}
		cat.Levels = levels
		return ctx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading game data: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("validating game data: %w", err)
	}

	logger.Info("game data loaded",
		zap.Int("skills", cat.Skills.Len()),
		zap.Int("unit_types", len(cat.Units)),
		zap.Int("object_types", len(cat.Objects)),
		zap.Int("levels", len(cat.Levels)),
	)
	return cat, nil
}
