package loader

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ArionMiles/stmtx/pkg/api"
)

const ruleTolerance = 2.0

// RuledTables builds a table from the ruling lines and cell rectangles on a page.
// Vertical rules give the column edges, horizontal rules the row edges; text is
// placed into the cell under its center. The first non-empty row band is the
// header unless it already reads as a transaction. Pages without at least two
// columns and two rows of ruling yield nothing.
func RuledTables(p Page, lines []Line) []api.Table {
	var xs, ys []float64
	for _, s := range p.Rules {
		switch {
		case s.Vertical():
			xs = append(xs, (s.X0+s.X1)/2)
		case s.Horizontal():
			ys = append(ys, (s.Y0+s.Y1)/2)
		case s.X1-s.X0 > 2 && s.Y1-s.Y0 > 2:
			xs = append(xs, s.X0, s.X1)
			ys = append(ys, s.Y0, s.Y1)
		}
	}
	xs = clusterEdges(xs)
	ys = clusterEdges(ys)
	if len(xs) < 3 || len(ys) < 3 {
		return nil
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ys)))

	bands := make([][]string, len(ys)-1)
	for i := range bands {
		bands[i] = make([]string, len(xs)-1)
	}

	for _, l := range lines {
		band := bandIndex(ys, l.Y)
		if band < 0 {
			continue
		}
		for _, c := range l.Chunks {
			col := columnIndex(xs, c.Center())
			if col < 0 {
				continue
			}
			bands[band][col] = strings.TrimSpace(bands[band][col] + " " + c.Text)
		}
	}

	var rows [][]string
	for _, b := range bands {
		if !emptyRow(b) {
			rows = append(rows, b)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	if LooksLikeTransactionLine(strings.Join(rows[0], "  ")) {
		return []api.Table{api.NewTable(ordinalHeaders(len(xs)-1), rows)}
	}
	if len(rows) < 2 {
		return nil
	}
	return []api.Table{api.NewTable(rows[0], rows[1:])}
}

// clusterEdges sorts values and merges those within ruleTolerance of each other.
func clusterEdges(vs []float64) []float64 {
	if len(vs) == 0 {
		return nil
	}
	sort.Float64s(vs)
	out := []float64{vs[0]}
	for _, v := range vs[1:] {
		if v-out[len(out)-1] <= ruleTolerance {
			continue
		}
		out = append(out, v)
	}
	return out
}

// bandIndex returns the row band containing y, with ys sorted top to bottom.
func bandIndex(ys []float64, y float64) int {
	for i := 0; i < len(ys)-1; i++ {
		if y <= ys[i] && y > ys[i+1] {
			return i
		}
	}
	return -1
}

// columnIndex returns the column containing x, with xs sorted left to right.
func columnIndex(xs []float64, x float64) int {
	for i := 0; i < len(xs)-1; i++ {
		if x >= xs[i] && x < xs[i+1] {
			return i
		}
	}
	return -1
}

func emptyRow(r []string) bool {
	for _, c := range r {
		if c != "" {
			return false
		}
	}
	return true
}

func ordinalHeaders(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}
