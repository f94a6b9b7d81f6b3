package loader

import (
	"math"
	"sort"
	"strings"

	"github.com/ArionMiles/stmtx/pkg/api"
)

// ColumnTables finds borderless tables by projecting the chunks of consecutive
// transaction-like lines onto the x axis: covered spans are columns, the gaps
// between them are column breaks. A non-transaction line right above a run
// with at least two chunks is taken as its header. Lines inside a run that are
// not transaction-like are kept as rows so wrapped descriptions survive.
func ColumnTables(_ Page, lines []Line) []api.Table {
	var tables []api.Table
	for _, run := range transactionRuns(lines) {
		if t, ok := columnTable(lines, run); ok {
			tables = append(tables, t)
		}
	}
	return tables
}

type lineRun struct {
	header     int
	start, end int
}

const maxGapLines = 2

func transactionRuns(lines []Line) []lineRun {
	var runs []lineRun
	cur := lineRun{header: -1, start: -1}
	gap := 0

	flush := func() {
		if cur.start >= 0 {
			runs = append(runs, cur)
		}
		cur = lineRun{header: -1, start: -1}
		gap = 0
	}

	for i, l := range lines {
		if LooksLikeTransactionLine(l.Text()) {
			if cur.start < 0 {
				cur.start = i
				if i > 0 && isHeaderLine(lines[i-1]) {
					cur.header = i - 1
				}
			}
			cur.end = i
			gap = 0
			continue
		}
		if cur.start < 0 {
			continue
		}
		gap++
		if gap > maxGapLines {
			flush()
		}
	}
	flush()
	return runs
}

func isHeaderLine(l Line) bool {
	if len(l.Chunks) < 2 {
		return false
	}
	for _, c := range l.Chunks {
		if IsAmountToken(c.Text) || IsDateToken(c.Text) {
			return false
		}
	}
	return true
}

type span struct{ x0, x1 float64 }

func columnTable(lines []Line, run lineRun) (api.Table, bool) {
	var spans []span
	for i := run.start; i <= run.end; i++ {
		if !LooksLikeTransactionLine(lines[i].Text()) {
			continue
		}
		for _, c := range lines[i].Chunks {
			spans = append(spans, span{c.X0, c.X1})
		}
	}
	cols := mergeSpans(spans)
	if len(cols) < 2 {
		return api.Table{}, false
	}

	place := func(l Line) []string {
		row := make([]string, len(cols))
		for _, c := range l.Chunks {
			i := nearestSpan(cols, c.Center())
			row[i] = strings.TrimSpace(row[i] + " " + c.Text)
		}
		return row
	}

	headers := ordinalHeaders(len(cols))
	if run.header >= 0 {
		headers = place(lines[run.header])
	}

	rows := make([][]string, 0, run.end-run.start+1)
	for i := run.start; i <= run.end; i++ {
		rows = append(rows, place(lines[i]))
	}
	return api.NewTable(headers, rows), true
}

func mergeSpans(spans []span) []span {
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].x0 < spans[j].x0 })
	out := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if s.x0 <= last.x1+1 {
			last.x1 = math.Max(last.x1, s.x1)
			continue
		}
		out = append(out, s)
	}
	return out
}

func nearestSpan(cols []span, x float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range cols {
		d := 0.0
		switch {
		case x < c.x0:
			d = c.x0 - x
		case x > c.x1:
			d = x - c.x1
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
