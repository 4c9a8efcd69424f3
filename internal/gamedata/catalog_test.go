package gamedata_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/gridtactics/internal/config"
	"github.com/cory-johannsen/gridtactics/internal/game/skill"
	"github.com/cory-johannsen/gridtactics/internal/gamedata"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

// contentDirs creates a minimal, consistent content tree under a temp dir.
func contentDirs(t *testing.T) config.DataConfig {
	t.Helper()
	root := t.TempDir()
	dirs := config.DataConfig{
		SkillsDir:  filepath.Join(root, "skills"),
		UnitsDir:   filepath.Join(root, "units"),
		ObjectsDir: filepath.Join(root, "objects"),
		LevelsDir:  filepath.Join(root, "levels"),
	}
	writeFile(t, dirs.SkillsDir, "tough.yaml", `
id: tough
trigger: passive
effects:
  - kind: attribute_modify
    attribute: hp
    mechanic: {type: guaranteed}
    target: {mode: single, filter: caster}
    formula: {type: fixed, value: 12}
`)
	writeFile(t, dirs.UnitsDir, "grunt.yaml", "name: grunt\nskills: [tough]\n")
	writeFile(t, dirs.ObjectsDir, "rock.yaml", "name: rock\nmovement_cost: 10000\n")
	writeFile(t, dirs.LevelsDir, "pit.yaml", `
name: pit
layout: |
  P r g
legend:
  P: {deploy: true}
  r: {object: rock}
  g: {unit: grunt, faction: 1}
`)
	return dirs
}

func TestLoadAll(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cat, err := gamedata.LoadAll(context.Background(), contentDirs(t), zap.New(core))
	require.NoError(t, err)

	_, ok := cat.Skill("tough")
	assert.True(t, ok)
	_, ok = cat.UnitType("grunt")
	assert.True(t, ok)
	rock, ok := cat.ObjectType("rock")
	require.True(t, ok)
	assert.Equal(t, 10000, rock.EntryCost())
	assert.Equal(t, []string{"pit"}, cat.LevelNames())

	entries := logs.FilterMessage("game data loaded").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["levels"])
}

func TestLoadAll_MissingDirectory(t *testing.T) {
	dirs := contentDirs(t)
	dirs.ObjectsDir = filepath.Join(t.TempDir(), "nope")
	_, err := gamedata.LoadAll(context.Background(), dirs, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object type")
}

func TestLoadAll_DanglingReference(t *testing.T) {
	dirs := contentDirs(t)
	writeFile(t, dirs.UnitsDir, "grunt.yaml", "name: grunt\nskills: [tough, missing]\n")
	_, err := gamedata.LoadAll(context.Background(), dirs, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, skill.ErrSkillNotFound)
}

func TestLoadAll_DuplicateName(t *testing.T) {
	dirs := contentDirs(t)
	writeFile(t, dirs.UnitsDir, "grunt2.yaml", "name: grunt\n")
	_, err := gamedata.LoadAll(context.Background(), dirs, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate unit type")
}

func TestCatalogValidate_UnknownPlacements(t *testing.T) {
	cat := gamedata.NewCatalog()
	cat.Levels["x"] = &gamedata.Level{
		Name:    "x",
		Units:   []gamedata.UnitPlacement{{Type: "dragon"}},
		Objects: []gamedata.ObjectPlacement{{Type: "lava"}},
	}
	err := cat.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown unit type "dragon"`)
	assert.Contains(t, err.Error(), `unknown object type "lava"`)
}

func TestShippedContentLoads(t *testing.T) {
	dirs := config.DataConfig{
		SkillsDir:  "../../content/skills",
		UnitsDir:   "../../content/units",
		ObjectsDir: "../../content/objects",
		LevelsDir:  "../../content/levels",
	}
	cat, err := gamedata.LoadAll(context.Background(), dirs, zap.NewNop())
	require.NoError(t, err)
	assert.Contains(t, cat.LevelNames(), "ambush")
	assert.Contains(t, cat.LevelNames(), "duel")
}
