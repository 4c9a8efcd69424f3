package skill

import (
	"encoding/json"
	"fmt"
)

// Attribute selects one of a unit's combat statistics.
type Attribute int

const (
	HP Attribute = iota
	MP
	Initiative
	Hit
	Evasion
	Block
	BlockProtection
	PhysicalAttack
	MagicalAttack
	MagicalDC
	Fortitude
	Reflex
	Will
	Movement
	Reaction

	// NumAttributes is the number of distinct attributes.
	NumAttributes int = iota
)

var attributeNames = [NumAttributes]string{
	HP:              "hp",
	MP:              "mp",
	Initiative:      "initiative",
	Hit:             "hit",
	Evasion:         "evasion",
	Block:           "block",
	BlockProtection: "block_protection",
	PhysicalAttack:  "physical_attack",
	MagicalAttack:   "magical_attack",
	MagicalDC:       "magical_dc",
	Fortitude:       "fortitude",
	Reflex:          "reflex",
	Will:            "will",
	Movement:        "movement",
	Reaction:        "reaction",
}

// Valid reports whether a names a known attribute.
func (a Attribute) Valid() bool {
	return a >= 0 && int(a) < NumAttributes
}

func (a Attribute) String() string {
	if !a.Valid() {
		return fmt.Sprintf("attribute(%d)", int(a))
	}
	return attributeNames[a]
}

// ParseAttribute maps a snake_case name to its Attribute.
func ParseAttribute(name string) (Attribute, error) {
	for i, n := range attributeNames {
		if n == name {
			return Attribute(i), nil
		}
	}
	return 0, fmt.Errorf("unknown attribute %q", name)
}

// MarshalText renders the attribute name for YAML and JSON.
func (a Attribute) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid attribute %d", int(a))
	}
	return []byte(attributeNames[a]), nil
}

// UnmarshalText parses an attribute name.
func (a *Attribute) UnmarshalText(text []byte) error {
	v, err := ParseAttribute(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Attributes holds one value per Attribute. The zero value is all zeros.
type Attributes [NumAttributes]int

// Get returns the value of a.
func (s Attributes) Get(a Attribute) int { return s[a] }

// Set overwrites the value of a.
func (s *Attributes) Set(a Attribute, v int) { s[a] = v }

// Add adds delta to a.
func (s *Attributes) Add(a Attribute, delta int) { s[a] += delta }

// Map returns the attributes keyed by name.
func (s Attributes) Map() map[string]int {
	out := make(map[string]int, NumAttributes)
	for i, v := range s {
		out[attributeNames[i]] = v
	}
	return out
}

// MarshalJSON encodes the attributes as a name-keyed object.
func (s Attributes) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

// UnmarshalJSON decodes a name-keyed object. Attributes missing from the
// object are zero.
func (s *Attributes) UnmarshalJSON(data []byte) error {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out Attributes
	for name, v := range m {
		a, err := ParseAttribute(name)
		if err != nil {
			return err
		}
		out[a] = v
	}
	*s = out
	return nil
}
