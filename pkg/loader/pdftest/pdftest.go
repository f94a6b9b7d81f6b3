// Package pdftest builds small single-page PDFs for backend tests. Text is set
// in Courier with explicit widths so every backend sees the same positions.
package pdftest

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/stmtx/pkg/api"
)

// Cell is one string drawn at an absolute position.
type Cell struct {
	X, Y float64
	Text string
}

// FontSize is the size every cell is drawn at.
const FontSize = 10

// Transactions are the rows drawn by Statement, as date, description, amount.
var Transactions = [][]string{
	{"12/02", "AMAZON.COM", "45.67"},
	{"12/05", "STARBUCKS STORE 123", "5.25"},
	{"12/09", "WHOLE FOODS MARKET", "88.10"},
}

// Statement returns a borderless card statement: a period line followed by one
// line per transaction with the date, description and amount in columns.
func Statement() []byte {
	cells := []Cell{{X: 72, Y: 740, Text: "Statement Period 12/01/2024 - 12/31/2024"}}
	for i, tx := range Transactions {
		y := 700 - float64(i)*14
		cells = append(cells,
			Cell{X: 72, Y: y, Text: tx[0]},
			Cell{X: 150, Y: y, Text: tx[1]},
			Cell{X: 400, Y: y, Text: tx[2]},
		)
	}
	return Build(cells)
}

// Build lays out a one-page PDF drawing cells. The cross-reference table carries
// exact offsets so strict readers accept it.
func Build(cells []Cell) []byte {
	var content bytes.Buffer
	for _, c := range cells {
		fmt.Fprintf(&content, "BT /F1 %d Tf 1 0 0 1 %g %g Tm (%s) Tj ET\n", FontSize, c.X, c.Y, escape(c.Text))
	}

	widths := strings.TrimSpace(strings.Repeat("600 ", 126-32+1))
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Courier /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [" + widths + "] >>",
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return out.Bytes()
}

// AssertStatement checks that doc holds the text of Statement and a table whose
// date, description and amount columns carry Transactions in order.
func AssertStatement(t *testing.T, doc *api.Document, backend string) {
	t.Helper()
	require.NotNil(t, doc)
	assert.Equal(t, backend, doc.Backend())
	assert.Equal(t, 1, doc.Pages())
	assert.NotEmpty(t, doc.ID())
	for _, tx := range Transactions {
		assert.Contains(t, doc.Text(), tx[1])
	}
	assert.Contains(t, doc.Text(), "Statement Period")

	require.Equal(t, 1, doc.NumTables())
	tbl := doc.Tables()[0]
	headers := tbl.Headers()
	date := slices.Index(headers, "Transaction Date")
	desc := slices.Index(headers, "Description")
	amount := slices.Index(headers, "Amount")
	require.True(t, date >= 0 && desc >= 0 && amount >= 0, "headers %q", headers)

	require.Equal(t, len(Transactions), tbl.Len())
	for i, tx := range Transactions {
		row := tbl.Row(i)
		assert.Equal(t, tx, []string{row[date], row[desc], row[amount]}, "row %d", i)
	}
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace(s)
}
