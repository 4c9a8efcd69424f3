package gamedata

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/gridtactics/internal/game/board"
)

// yamlLevel is the on-disk level format. A level gives either explicit
// dimensions and placement lists, or a Layout grid whose symbols are resolved
// through Legend. Both may be combined; layout placements come first.
type yamlLevel struct {
	Name                string                `yaml:"name"`
	Width               int                   `yaml:"width"`
	Height              int                   `yaml:"height"`
	MaxPlayerUnits      int                   `yaml:"max_player_units"`
	DeploymentPositions []board.Position      `yaml:"deployment_positions"`
	Units               []yamlUnitPlacement   `yaml:"units"`
	Objects             []yamlObjectPlacement `yaml:"objects"`
	Layout              string                `yaml:"layout"`
	Legend              map[string]yamlLegend `yaml:"legend"`
}

type yamlUnitPlacement struct {
	Position board.Position `yaml:"position"`
	Type     string         `yaml:"type"`
	Faction  int            `yaml:"faction"`
}

type yamlObjectPlacement struct {
	Position board.Position `yaml:"position"`
	Type     string         `yaml:"type"`
}

// yamlLegend describes what a layout symbol places.
type yamlLegend struct {
	Unit    string `yaml:"unit"`
	Faction int    `yaml:"faction"`
	Object  string `yaml:"object"`
	Deploy  bool   `yaml:"deploy"`
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// LoadUnitTypeFromBytes parses and validates a unit type.
func LoadUnitTypeFromBytes(data []byte) (*UnitType, error) {
	var u UnitType
	if err := decodeStrict(data, &u); err != nil {
		return nil, fmt.Errorf("parsing unit type: %w", err)
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return &u, nil
}

// LoadObjectTypeFromBytes parses and validates an object type.
func LoadObjectTypeFromBytes(data []byte) (*ObjectType, error) {
	var o ObjectType
	if err := decodeStrict(data, &o); err != nil {
		return nil, fmt.Errorf("parsing object type: %w", err)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

// LoadLevelFromBytes parses, converts and validates a level.
//
// Postcondition: Returns a validated Level or a non-nil error.
func LoadLevelFromBytes(data []byte) (*Level, error) {
	var yl yamlLevel
	if err := decodeStrict(data, &yl); err != nil {
		return nil, fmt.Errorf("parsing level: %w", err)
	}
	lvl, err := convertYAMLLevel(yl)
	if err != nil {
		return nil, err
	}
	if err := lvl.Validate(); err != nil {
		return nil, fmt.Errorf("validating level: %w", err)
	}
	return lvl, nil
}

func convertYAMLLevel(yl yamlLevel) (*Level, error) {
	lvl := &Level{
		Name:           yl.Name,
		Board:          board.Board{Width: yl.Width, Height: yl.Height},
		MaxPlayerUnits: yl.MaxPlayerUnits,
	}

	if strings.TrimSpace(yl.Layout) != "" {
		b, positions, markers, err := board.ParseASCII(yl.Layout)
		if err != nil {
			return nil, fmt.Errorf("level %q layout: %w", yl.Name, err)
		}
		if (yl.Width != 0 && yl.Width != b.Width) || (yl.Height != 0 && yl.Height != b.Height) {
			return nil, fmt.Errorf("level %q: layout is %dx%d but width/height say %dx%d",
				yl.Name, b.Width, b.Height, yl.Width, yl.Height)
		}
		lvl.Board = b
		// Walk positions rather than the marker map so placement order is row-major.
		symbolAt := make(map[board.Position]string, len(positions))
		for sym, ps := range markers {
			for _, p := range ps {
				symbolAt[p] = sym
			}
		}
		for _, p := range positions {
			sym, ok := symbolAt[p]
			if !ok {
				continue
			}
			entry, ok := yl.Legend[sym]
			if !ok {
				return nil, fmt.Errorf("level %q: layout symbol %q at %s has no legend entry", yl.Name, sym, p)
			}
			if entry.Deploy {
				lvl.DeploymentPositions = append(lvl.DeploymentPositions, p)
			}
			if entry.Object != "" {
				lvl.Objects = append(lvl.Objects, ObjectPlacement{Position: p, Type: entry.Object})
			}
			if entry.Unit != "" {
				lvl.Units = append(lvl.Units, UnitPlacement{Position: p, Type: entry.Unit, Faction: board.Faction(entry.Faction)})
			}
		}
	}

	lvl.DeploymentPositions = append(lvl.DeploymentPositions, yl.DeploymentPositions...)
	for _, u := range yl.Units {
		lvl.Units = append(lvl.Units, UnitPlacement{Position: u.Position, Type: u.Type, Faction: board.Faction(u.Faction)})
	}
	for _, o := range yl.Objects {
		lvl.Objects = append(lvl.Objects, ObjectPlacement(o))
	}
	return lvl, nil
}

// loadDir applies load to every *.yaml file in dir and indexes the results by key.
func loadDir[T any](dir, kind string, load func([]byte) (*T, error), key func(*T) string) (map[string]*T, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s dir %q: %w", kind, dir, err)
	}
	out := make(map[string]*T)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		v, err := load(data)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", path, err)
		}
		k := key(v)
		if _, dup := out[k]; dup {
			return nil, fmt.Errorf("%q: duplicate %s %q", path, kind, k)
		}
		out[k] = v
	}
	return out, nil
}

// LoadUnitTypes loads every unit type in dir keyed by name.
func LoadUnitTypes(dir string) (map[string]*UnitType, error) {
	return loadDir(dir, "unit type", LoadUnitTypeFromBytes, func(u *UnitType) string { return u.Name })
}

// LoadObjectTypes loads every object type in dir keyed by name.
func LoadObjectTypes(dir string) (map[string]*ObjectType, error) {
	return loadDir(dir, "object type", LoadObjectTypeFromBytes, func(o *ObjectType) string { return o.Name })
}

// LoadLevels loads every level in dir keyed by name.
func LoadLevels(dir string) (map[string]*Level, error) {
	return loadDir(dir, "level", LoadLevelFromBytes, func(l *Level) string { return l.Name })
}
