package board

import (
	"fmt"
	"strings"
)

// ParseASCII reads a whitespace-separated grid of symbols, one row per line.
// "." marks a plain tile; any other symbol marks its tile and is collected in
// markers under that symbol, in row-major order. Blank lines are ignored.
//
//	S . .
//	. . E
//
// Postcondition: Returns the board, every position in row-major order and the
// marker map, or an error if the grid is empty or ragged.
func ParseASCII(grid string) (Board, []Position, map[string][]Position, error) {
	var rows [][]string
	for _, line := range strings.Split(grid, "\n") {
		cells := strings.Fields(line)
		if len(cells) == 0 {
			continue
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return Board{}, nil, nil, fmt.Errorf("ascii board: empty grid")
	}

	b := Board{Width: len(rows[0]), Height: len(rows)}
	positions := make([]Position, 0, b.Width*b.Height)
	markers := make(map[string][]Position)
	for y, cells := range rows {
		if len(cells) != b.Width {
			return Board{}, nil, nil, fmt.Errorf("ascii board: row %d has %d cells, want %d", y, len(cells), b.Width)
		}
		for x, cell := range cells {
			pos := Position{X: x, Y: y}
			positions = append(positions, pos)
			if cell != "." {
				markers[cell] = append(markers[cell], pos)
			}
		}
	}
	return b, positions, markers, nil
}

// MustParseASCII is ParseASCII for fixtures; it panics on malformed input.
func MustParseASCII(grid string) (Board, map[string][]Position) {
	b, _, markers, err := ParseASCII(grid)
	if err != nil {
		panic(err)
	}
	return b, markers
}
