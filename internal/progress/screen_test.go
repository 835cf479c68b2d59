package progress

import (
	"strconv"
	"strings"
)

// screen is a minimal terminal emulator understanding the sequences the
// reporter emits: CR, LF, CUU, CUD and EL.
type screen struct {
	rows     [][]rune
	row, col int
}

func render(out string) *screen {
	s := &screen{rows: [][]rune{{}}}
	rs := []rune(out)
	for i := 0; i < len(rs); i++ {
		switch r := rs[i]; r {
		case '\r':
			s.col = 0
		case '\n':
			s.row++
			s.col = 0
			s.grow()
		case '\x1b':
			// CSI: ESC [ params final
			j := i + 2
			for j < len(rs) && (rs[j] >= '0' && rs[j] <= '9' || rs[j] == ';') {
				j++
			}
			params := string(rs[i+2 : j])
			final := rs[j]
			n := 1
			if params != "" {
				if v, err := strconv.Atoi(params); err == nil {
					n = v
				}
			}
			switch final {
			case 'A':
				s.row -= n
				if s.row < 0 {
					s.row = 0
				}
			case 'B':
				s.row += n
				s.grow()
			case 'K':
				if params == "2" {
					s.rows[s.row] = []rune{}
				}
			}
			i = j
		default:
			s.put(r)
		}
	}
	return s
}

func (s *screen) grow() {
	for len(s.rows) <= s.row {
		s.rows = append(s.rows, []rune{})
	}
}

func (s *screen) put(r rune) {
	line := s.rows[s.row]
	for len(line) < s.col {
		line = append(line, ' ')
	}
	if s.col < len(line) {
		line[s.col] = r
	} else {
		line = append(line, r)
	}
	s.rows[s.row] = line
	s.col++
}

func (s *screen) lines() []string {
	out := make([]string, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, strings.TrimRight(string(r), " "))
	}
	// Drop trailing empty rows below the block.
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}
