package world

import "fmt"

// Direction is one of the six movement keys of the hex grid.
type Direction byte

const (
	DirUpLeft    Direction = 'u'
	DirUp        Direction = 'i'
	DirUpRight   Direction = 'o'
	DirDownLeft  Direction = 'j'
	DirDown      Direction = 'k'
	DirDownRight Direction = 'l'
)

// Directions lists every direction in keyboard order.
var Directions = [6]Direction{DirUpLeft, DirUp, DirUpRight, DirDownLeft, DirDown, DirDownRight}

// ParseDirection maps a single-letter key to a Direction.
func ParseDirection(key string) (Direction, error) {
	if len(key) != 1 {
		return 0, fmt.Errorf("unknown direction %q", key)
	}
	d := Direction(key[0])
	for _, known := range Directions {
		if d == known {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", key)
}

func (d Direction) String() string {
	return string(rune(d))
}

// Step returns the offset coordinate adjacent to (row, col) in direction d.
// Even and odd columns have mirrored row deltas on the diagonals.
func Step(row, col int, d Direction) (int, int, error) {
	odd := col&1 == 1
	switch d {
	case DirUpLeft:
		if !odd {
			row--
		}
		col--
	case DirUp:
		row--
	case DirUpRight:
		if !odd {
			row--
		}
		col++
	case DirDownLeft:
		if odd {
			row++
		}
		col--
	case DirDown:
		row++
	case DirDownRight:
		if odd {
			row++
		}
		col++
	default:
		return row, col, fmt.Errorf("unknown direction %q", d)
	}
	return row, col, nil
}
