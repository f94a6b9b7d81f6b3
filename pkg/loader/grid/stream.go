package grid

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/ArionMiles/stmtx/pkg/loader"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokName
	tokArray
	tokOperator
)

type token struct {
	kind tokenKind
	num  float64
	str  string
	arr  []token
}

// scanner splits a content stream into operands and operators.
type scanner struct {
	data []byte
	pos  int
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t' || b == '\f' || b == 0
}

func isDelim(b byte) bool {
	return strings.IndexByte("()<>[]{}/%", b) >= 0
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.data) {
		b := s.data[s.pos]
		switch {
		case isSpace(b):
			s.pos++
		case b == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		default:
			return
		}
	}
}

// next returns the next token, or false at end of stream.
func (s *scanner) next() (token, bool) {
	s.skipSpace()
	if s.pos >= len(s.data) {
		return token{}, false
	}

	b := s.data[s.pos]
	switch {
	case b == '(':
		s.pos++
		return token{kind: tokString, str: s.literal()}, true
	case b == '<' && s.pos+1 < len(s.data) && s.data[s.pos+1] == '<':
		s.skipDict()
		return s.next()
	case b == '<':
		s.pos++
		return token{kind: tokString, str: s.hex()}, true
	case b == '[':
		s.pos++
		var arr []token
		for {
			s.skipSpace()
			if s.pos >= len(s.data) {
				break
			}
			if s.data[s.pos] == ']' {
				s.pos++
				break
			}
			t, ok := s.next()
			if !ok {
				break
			}
			arr = append(arr, t)
		}
		return token{kind: tokArray, arr: arr}, true
	case b == '/':
		s.pos++
		return token{kind: tokName, str: s.regular()}, true
	case b == ']' || b == '>' || b == ')' || b == '{' || b == '}':
		s.pos++
		return s.next()
	}

	word := s.regular()
	if word == "" {
		s.pos++
		return s.next()
	}
	if n, err := strconv.ParseFloat(word, 64); err == nil {
		return token{kind: tokNumber, num: n}, true
	}
	if word == "BI" {
		s.skipInlineImage()
		return s.next()
	}
	return token{kind: tokOperator, str: word}, true
}

func (s *scanner) regular() string {
	start := s.pos
	for s.pos < len(s.data) && !isSpace(s.data[s.pos]) && !isDelim(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

// literal reads a parenthesized string, handling nesting and escapes. Bytes are
// mapped one to one onto runes.
func (s *scanner) literal() string {
	var b strings.Builder
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return b.String()
			}
		case '\\':
			if s.pos >= len(s.data) {
				return b.String()
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b', 'f':
			case '\r', '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && s.pos < len(s.data) && s.data[s.pos] >= '0' && s.data[s.pos] <= '7'; i++ {
						v = v*8 + int(s.data[s.pos]-'0')
						s.pos++
					}
					b.WriteRune(rune(v & 0xff))
				} else {
					b.WriteByte(e)
				}
			}
			continue
		}
		b.WriteRune(rune(c))
	}
	return b.String()
}

func (s *scanner) hex() string {
	end := bytes.IndexByte(s.data[s.pos:], '>')
	if end < 0 {
		end = len(s.data) - s.pos
	}
	raw := s.data[s.pos : s.pos+end]
	s.pos += end + 1

	var digits []byte
	for _, c := range raw {
		if !isSpace(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	var b strings.Builder
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		if v != 0 {
			b.WriteRune(rune(v))
		}
	}
	return b.String()
}

func (s *scanner) skipDict() {
	depth := 0
	for s.pos+1 < len(s.data) {
		switch {
		case s.data[s.pos] == '<' && s.data[s.pos+1] == '<':
			depth++
			s.pos += 2
		case s.data[s.pos] == '>' && s.data[s.pos+1] == '>':
			depth--
			s.pos += 2
			if depth == 0 {
				return
			}
		default:
			s.pos++
		}
	}
	s.pos = len(s.data)
}

func (s *scanner) skipInlineImage() {
	i := bytes.Index(s.data[s.pos:], []byte("EI"))
	for i >= 0 {
		at := s.pos + i
		if (at+2 >= len(s.data) || isSpace(s.data[at+2])) && at > 0 && isSpace(s.data[at-1]) {
			s.pos = at + 2
			return
		}
		j := bytes.Index(s.data[at+2:], []byte("EI"))
		if j < 0 {
			break
		}
		i += 2 + j
	}
	s.pos = len(s.data)
}

// matrix is a PDF affine transform [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m × n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2], m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2], m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4], m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func translate(tx, ty float64) matrix { return matrix{1, 0, 0, 1, tx, ty} }

// interpreter walks content stream operators, tracking the text and graphics
// state needed to place strings and rules on the page.
type interpreter struct {
	ctm      matrix
	stack    []matrix
	tm, tlm  matrix
	fontSize float64
	leading  float64

	pathX, pathY float64

	glyphs []loader.Glyph
	rules  []loader.Segment
}

// interpret parses one page's content stream into positioned text and rules.
func interpret(data []byte) ([]loader.Glyph, []loader.Segment) {
	in := &interpreter{ctm: identity, tm: identity, tlm: identity, fontSize: 10}
	sc := &scanner{data: data}

	var operands []token
	for {
		t, ok := sc.next()
		if !ok {
			break
		}
		if t.kind != tokOperator {
			operands = append(operands, t)
			continue
		}
		in.exec(t.str, operands)
		operands = operands[:0]
	}
	return in.glyphs, in.rules
}

func nums(ops []token, n int) ([]float64, bool) {
	if len(ops) < n {
		return nil, false
	}
	out := make([]float64, n)
	for i, t := range ops[len(ops)-n:] {
		if t.kind != tokNumber {
			return nil, false
		}
		out[i] = t.num
	}
	return out, true
}

func (in *interpreter) exec(op string, ops []token) {
	switch op {
	case "q":
		in.stack = append(in.stack, in.ctm)
	case "Q":
		if n := len(in.stack); n > 0 {
			in.ctm = in.stack[n-1]
			in.stack = in.stack[:n-1]
		}
	case "cm":
		if v, ok := nums(ops, 6); ok {
			in.ctm = matrix{v[0], v[1], v[2], v[3], v[4], v[5]}.mul(in.ctm)
		}
	case "BT":
		in.tm, in.tlm = identity, identity
	case "Tf":
		if v, ok := nums(ops, 1); ok && v[0] != 0 {
			in.fontSize = math.Abs(v[0])
		}
	case "TL":
		if v, ok := nums(ops, 1); ok {
			in.leading = v[0]
		}
	case "Td":
		if v, ok := nums(ops, 2); ok {
			in.moveText(v[0], v[1])
		}
	case "TD":
		if v, ok := nums(ops, 2); ok {
			in.leading = -v[1]
			in.moveText(v[0], v[1])
		}
	case "Tm":
		if v, ok := nums(ops, 6); ok {
			in.tlm = matrix{v[0], v[1], v[2], v[3], v[4], v[5]}
			in.tm = in.tlm
		}
	case "T*":
		in.moveText(0, -in.leading)
	case "Tj":
		if len(ops) > 0 && ops[len(ops)-1].kind == tokString {
			in.show(ops[len(ops)-1].str)
		}
	case "'", "\"":
		in.moveText(0, -in.leading)
		if len(ops) > 0 && ops[len(ops)-1].kind == tokString {
			in.show(ops[len(ops)-1].str)
		}
	case "TJ":
		if len(ops) > 0 && ops[len(ops)-1].kind == tokArray {
			in.show(joinTJ(ops[len(ops)-1].arr))
		}
	case "re":
		if v, ok := nums(ops, 4); ok {
			x0, y0 := in.ctm.apply(v[0], v[1])
			x1, y1 := in.ctm.apply(v[0]+v[2], v[1]+v[3])
			in.rules = append(in.rules, segment(x0, y0, x1, y1))
		}
	case "m":
		if v, ok := nums(ops, 2); ok {
			in.pathX, in.pathY = in.ctm.apply(v[0], v[1])
		}
	case "l":
		if v, ok := nums(ops, 2); ok {
			x, y := in.ctm.apply(v[0], v[1])
			in.rules = append(in.rules, segment(in.pathX, in.pathY, x, y))
			in.pathX, in.pathY = x, y
		}
	}
}

func segment(x0, y0, x1, y1 float64) loader.Segment {
	return loader.Segment{X0: math.Min(x0, x1), Y0: math.Min(y0, y1), X1: math.Max(x0, x1), Y1: math.Max(y0, y1)}
}

func (in *interpreter) moveText(tx, ty float64) {
	in.tlm = translate(tx, ty).mul(in.tlm)
	in.tm = in.tlm
}

// show places s at the current text position, one glyph per space-separated
// word, and advances by an estimated width of half an em per character.
func (in *interpreter) show(s string) {
	runes := []rune(s)
	charW := in.fontSize * 0.5

	trm := in.tm.mul(in.ctm)
	scaleY := math.Hypot(trm[2], trm[3])
	if scaleY == 0 {
		scaleY = 1
	}
	scaleX := math.Hypot(trm[0], trm[1])
	if scaleX == 0 {
		scaleX = 1
	}

	start := -1
	emit := func(end int) {
		x, y := trm.applyOffset(float64(start) * charW)
		in.glyphs = append(in.glyphs, loader.Glyph{
			X: x, Y: y,
			W:    float64(end-start) * charW * scaleX,
			Size: in.fontSize * scaleY,
			S:    string(runes[start:end]),
		})
		start = -1
	}
	for i, r := range runes {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if start >= 0 {
				emit(i)
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		emit(len(runes))
	}

	in.tm = translate(float64(len(runes))*charW, 0).mul(in.tm)
}

// applyOffset returns the device position of a point dx along the text baseline.
func (m matrix) applyOffset(dx float64) (float64, float64) {
	return m.apply(dx, 0)
}

// joinTJ concatenates a TJ array. Kerning adjustments wider than a fifth of an
// em become spaces.
func joinTJ(arr []token) string {
	var b strings.Builder
	for _, t := range arr {
		switch t.kind {
		case tokString:
			b.WriteString(t.str)
		case tokNumber:
			if t.num < -200 {
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}
