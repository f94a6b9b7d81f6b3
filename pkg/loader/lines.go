package loader

import (
	"math"
	"sort"
	"strings"
)

const defaultSize = 10.0

// Chunk is a run of words on one line with no wide gap between them. Chunks are
// the unit placed into table cells.
type Chunk struct {
	X0, X1 float64
	Text   string
}

// Center returns the horizontal midpoint of c.
func (c Chunk) Center() float64 { return (c.X0 + c.X1) / 2 }

// Line is a horizontal run of text on a page.
type Line struct {
	Y      float64
	Size   float64
	Chunks []Chunk
}

// Text joins the chunks of l with two spaces so column breaks survive in plain text.
func (l Line) Text() string {
	parts := make([]string, len(l.Chunks))
	for i, c := range l.Chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, "  ")
}

// X0 returns the left edge of l.
func (l Line) X0() float64 {
	if len(l.Chunks) == 0 {
		return 0
	}
	return l.Chunks[0].X0
}

// BuildLines clusters glyphs into lines top to bottom, then splits each line into
// words on small gaps and chunks on gaps wider than about one character.
func BuildLines(glyphs []Glyph) []Line {
	if len(glyphs) == 0 {
		return nil
	}

	gs := make([]Glyph, 0, len(glyphs))
	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		if g.Size <= 0 {
			g.Size = defaultSize
		}
		if g.W <= 0 {
			g.W = float64(len([]rune(g.S))) * g.Size * 0.5
		}
		gs = append(gs, g)
	}
	sort.SliceStable(gs, func(i, j int) bool {
		if gs[i].Y != gs[j].Y {
			return gs[i].Y > gs[j].Y
		}
		return gs[i].X < gs[j].X
	})

	var groups [][]Glyph
	for _, g := range gs {
		n := len(groups)
		if n > 0 {
			ref := groups[n-1][0]
			tol := math.Max(2, math.Min(ref.Size, g.Size)*0.4)
			if math.Abs(ref.Y-g.Y) <= tol {
				groups[n-1] = append(groups[n-1], g)
				continue
			}
		}
		groups = append(groups, []Glyph{g})
	}

	lines := make([]Line, 0, len(groups))
	for _, grp := range groups {
		if l, ok := buildLine(grp); ok {
			lines = append(lines, l)
		}
	}
	return lines
}

func buildLine(grp []Glyph) (Line, bool) {
	sort.SliceStable(grp, func(i, j int) bool { return grp[i].X < grp[j].X })

	size := 0.0
	for _, g := range grp {
		size = math.Max(size, g.Size)
	}

	type word struct {
		x0, x1 float64
		b      strings.Builder
	}
	var words []*word
	var cur *word
	for _, g := range grp {
		if strings.TrimSpace(g.S) == "" {
			cur = nil
			continue
		}
		if cur != nil && g.X-cur.x1 <= g.Size*0.2 {
			cur.b.WriteString(g.S)
			cur.x1 = math.Max(cur.x1, g.X+g.W)
			continue
		}
		cur = &word{x0: g.X, x1: g.X + g.W}
		cur.b.WriteString(g.S)
		words = append(words, cur)
	}
	if len(words) == 0 {
		return Line{}, false
	}

	var chunks []Chunk
	for _, w := range words {
		text := strings.Join(strings.Fields(w.b.String()), " ")
		if text == "" {
			continue
		}
		n := len(chunks)
		if n > 0 && w.x0-chunks[n-1].X1 <= size*0.9 {
			chunks[n-1].Text += " " + text
			chunks[n-1].X1 = w.x1
			continue
		}
		chunks = append(chunks, Chunk{X0: w.x0, X1: w.x1, Text: text})
	}
	if len(chunks) == 0 {
		return Line{}, false
	}

	return Line{Y: grp[0].Y, Size: size, Chunks: chunks}, true
}
