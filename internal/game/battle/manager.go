package battle

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gridtactics/internal/config"
	"github.com/cory-johannsen/gridtactics/internal/game/dice"
	"github.com/cory-johannsen/gridtactics/internal/game/movement"
	"github.com/cory-johannsen/gridtactics/internal/gamedata"
)

// ErrBattleNotFound is returned when a battle id is not managed.
var ErrBattleNotFound = errors.New("battle not found")

// OptionsFactory produces Options for a new battle.
type OptionsFactory func() Options

// NewOptionsFactory builds battle options from configuration. Each battle
// gets its own sources; with a non-zero seed every battle replays the same
// sequence.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a factory, or an error for an unknown policy or a
// malformed initiative expression.
func NewOptionsFactory(rules config.RulesConfig, rng config.RNGConfig, logger *zap.Logger) (OptionsFactory, error) {
	policy, err := movement.ParsePolicy(rules.MovementPolicy)
	if err != nil {
		return nil, err
	}
	expr, err := dice.Parse(rules.InitiativeDice)
	if err != nil {
		return nil, fmt.Errorf("rules.initiative_dice: %w", err)
	}
	return func() Options {
		return Options{
			Policy:     policy,
			Initiative: &expr,
			Roller:     dice.NewLoggedRoller(dice.NewSource(rng.Seed), logger.Named("dice")),
			IDSource:   dice.NewSource(rng.Seed),
			Logger:     logger,
		}
	}, nil
}

type managed struct {
	mu     sync.Mutex
	battle *Battle
}

// Manager owns all live battles, keyed by battle id.
// All methods are safe for concurrent use; access to a single battle is
// serialised through With.
type Manager struct {
	mu      sync.RWMutex
	battles map[string]*managed
	catalog *gamedata.Catalog
	options OptionsFactory
	logger  *zap.Logger
}

// NewManager creates an empty Manager.
//
// Precondition: cat, options and logger must be non-nil.
// Postcondition: Returns a non-nil Manager ready for use.
func NewManager(cat *gamedata.Catalog, options OptionsFactory, logger *zap.Logger) *Manager {
	return &Manager{
		battles: make(map[string]*managed),
		catalog: cat,
		options: options,
		logger:  logger,
	}
}

// Catalog returns the content shared by every battle.
func (m *Manager) Catalog() *gamedata.Catalog { return m.catalog }

// Create starts a new battle on the named level.
//
// Postcondition: Returns the battle id, or an error if the level is unknown
// or cannot be populated.
func (m *Manager) Create(levelName string) (string, error) {
	lvl, ok := m.catalog.Level(levelName)
	if !ok {
		return "", fmt.Errorf("creating battle: unknown level %q", levelName)
	}
	b, err := FromLevel(m.catalog, lvl, m.options())
	if err != nil {
		return "", err
	}
	m.Add(b)
	return b.ID, nil
}

// Add registers an existing battle.
func (m *Manager) Add(b *Battle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.battles[b.ID] = &managed{battle: b}
	m.logger.Info("battle registered", zap.String("battle_id", b.ID), zap.Int("battles", len(m.battles)))
}

// With runs fn with exclusive access to battle id and returns fn's error.
//
// Postcondition: Returns ErrBattleNotFound without calling fn if id is unknown.
func (m *Manager) With(id string, fn func(*Battle) error) error {
	m.mu.RLock()
	entry, ok := m.battles[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrBattleNotFound, id)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.battle)
}

// Remove forgets battle id. Removing an unknown id is a no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.battles, id)
}

// IDs returns the ids of all managed battles, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.battles))
	for id := range m.battles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
