package board

import "fmt"

// ID identifies a unit or object. IDs are unique across both kinds.
type ID uint32

// Kind distinguishes the two kinds of occupant.
type Kind uint8

const (
	KindUnit Kind = iota
	KindObject
)

func (k Kind) String() string {
	if k == KindObject {
		return "object"
	}
	return "unit"
}

// Occupant is anything that can stand on a tile.
type Occupant struct {
	Kind Kind `json:"kind"`
	ID   ID   `json:"id"`
}

// Unit returns the occupant handle for a unit id.
func Unit(id ID) Occupant { return Occupant{Kind: KindUnit, ID: id} }

// Object returns the occupant handle for an object id.
func Object(id ID) Occupant { return Occupant{Kind: KindObject, ID: id} }

func (o Occupant) String() string {
	return fmt.Sprintf("%s#%d", o.Kind, o.ID)
}

// OccupancyIndex maps tiles to their occupants and occupants to their tile.
// The two directions are kept mutually inverse by every mutation.
//
// OccupancyIndex is not safe for concurrent use; callers serialise access.
type OccupancyIndex struct {
	tiles     map[Position][]Occupant
	positions map[Occupant]Position
}

// NewOccupancyIndex creates an empty index.
func NewOccupancyIndex() *OccupancyIndex {
	return &OccupancyIndex{
		tiles:     make(map[Position][]Occupant),
		positions: make(map[Occupant]Position),
	}
}

// Insert places occ at pos, after any occupants already there.
//
// Postcondition: Returns ErrOccupantExists and leaves the index unchanged if
// occ is already present anywhere, including at pos itself.
func (idx *OccupancyIndex) Insert(pos Position, occ Occupant) error {
	if at, ok := idx.positions[occ]; ok {
		return fmt.Errorf("insert %s at %s: %w (at %s)", occ, pos, ErrOccupantExists, at)
	}
	idx.tiles[pos] = append(idx.tiles[pos], occ)
	idx.positions[occ] = pos
	return nil
}

// Remove takes occ off the board. Removing an absent occupant is a no-op.
func (idx *OccupancyIndex) Remove(occ Occupant) {
	pos, ok := idx.positions[occ]
	if !ok {
		return
	}
	delete(idx.positions, occ)

	list := idx.tiles[pos]
	for i, o := range list {
		if o == occ {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(idx.tiles, pos)
		return
	}
	idx.tiles[pos] = list
}

// Move relocates occ to pos, appending it after the occupants already there.
//
// Postcondition: Returns an error and leaves the index unchanged when occ is
// not on the board.
func (idx *OccupancyIndex) Move(occ Occupant, pos Position) error {
	if _, ok := idx.positions[occ]; !ok {
		return fmt.Errorf("move %s: occupant not on board", occ)
	}
	idx.Remove(occ)
	return idx.Insert(pos, occ)
}

// OccupantsAt returns a copy of the occupants at pos in insertion order.
//
// Postcondition: Returns a non-nil slice (may be empty).
func (idx *OccupancyIndex) OccupantsAt(pos Position) []Occupant {
	list := idx.tiles[pos]
	out := make([]Occupant, len(list))
	copy(out, list)
	return out
}

// PositionOf returns where occ stands.
//
// Postcondition: Returns (pos, true) if present, or (Position{}, false) otherwise.
func (idx *OccupancyIndex) PositionOf(occ Occupant) (Position, bool) {
	pos, ok := idx.positions[occ]
	return pos, ok
}

// UnitAt returns the first unit standing at pos.
func (idx *OccupancyIndex) UnitAt(pos Position) (ID, bool) {
	for _, o := range idx.tiles[pos] {
		if o.Kind == KindUnit {
			return o.ID, true
		}
	}
	return 0, false
}

// ObjectsAt returns the ids of objects at pos in insertion order.
func (idx *OccupancyIndex) ObjectsAt(pos Position) []ID {
	var out []ID
	for _, o := range idx.tiles[pos] {
		if o.Kind == KindObject {
			out = append(out, o.ID)
		}
	}
	return out
}

// Len returns the number of occupants on the board.
func (idx *OccupancyIndex) Len() int { return len(idx.positions) }
