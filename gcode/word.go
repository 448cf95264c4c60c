package gcode

import (
	"strconv"
	"strings"
)

// Word is a single letter/value pair within a block, e.g. X10.5 or G1.
type Word struct {
	W   byte
	Arg float64
}

// IsAxis reports whether the word addresses a movement axis,
// including the extruder.
func (w Word) IsAxis() bool {
	switch w.W {
	case 'X', 'Y', 'Z', 'E':
		return true
	}
	return false
}

func (w Word) IsValid() bool {
	return w.W >= 'A' && w.W <= 'Z'
}

func formatFloat(f float64, prec int) string {
	s := strconv.FormatFloat(f, 'f', prec, 64)
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}

func (w Word) String() string {
	return string(w.W) + formatFloat(w.Arg, 4)
}
