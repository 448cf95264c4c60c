package gcode

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

// Parser reads blocks from a textual instruction stream. It strips
// comments, checksums and line numbers, so the blocks it produces
// carry only executable words.
type Parser struct{ br *bufio.Reader }

func NewParser(r io.Reader) *Parser {
	if br, ok := r.(*bufio.Reader); ok {
		return &Parser{br: br}
	}

	return &Parser{br: bufio.NewReader(r)}
}

func (p *Parser) Read() (Block, error) {
	for {
		s, err := p.br.ReadString('\n')
		if err == io.EOF && s != "" {
			err = nil
		}
		if err != nil {
			return nil, err
		}

		s = strings.SplitN(s, ";", 2)[0]
		s = strings.SplitN(s, "*", 2)[0] // checksum, if any
		s = strings.Replace(s, " ", "", -1)
		s = strings.TrimSpace(s)
		s = strings.ToUpper(s)

		if s == "" {
			continue
		}

		b, err := parseWords(s)
		if err != nil {
			return nil, err
		}
		if len(b) > 0 && b[0].W == 'N' {
			b = b[1:] // line number
		}
		if len(b) == 0 {
			continue
		}

		return b, nil
	}
}

func parseWords(s string) (Block, error) {
	b := make(Block, 0, 4)
	for len(s) > 0 {
		w := s[0]
		if w < 'A' || w > 'Z' {
			return nil, errors.New("invalid or unhandled line: " + s)
		}
		i := 1
		for i < len(s) && strings.IndexByte("+-.0123456789", s[i]) >= 0 {
			i++
		}
		var arg float64
		if i > 1 {
			var err error
			arg, err = strconv.ParseFloat(s[1:i], 64)
			if err != nil {
				return nil, errors.New("invalid or unhandled line: " + s)
			}
		}
		b = append(b, Word{W: w, Arg: arg})
		s = s[i:]
	}

	return b, nil
}
