package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/stmtx/pkg/loader"
)

func TestInterpret_TextPositions(t *testing.T) {
	stream := []byte(`
BT
/F1 10 Tf
12 TL
50 720 Td
(12/30) Tj
70 0 Td
[(AMAZON) -80 (.COM)] TJ
T*
<30312F3034> Tj
ET
`)

	glyphs, _ := interpret(stream)
	require.Len(t, glyphs, 3)

	assert.Equal(t, "12/30", glyphs[0].S)
	assert.InDelta(t, 50, glyphs[0].X, 0.001)
	assert.InDelta(t, 720, glyphs[0].Y, 0.001)

	assert.Equal(t, "AMAZON.COM", glyphs[1].S, "small kerning does not split words")
	assert.InDelta(t, 120, glyphs[1].X, 0.001)

	assert.Equal(t, "01/04", glyphs[2].S)
	assert.InDelta(t, 120, glyphs[2].X, 0.001)
	assert.InDelta(t, 708, glyphs[2].Y, 0.001)
}

func TestInterpret_SplitsWordsAndHonoursMatrices(t *testing.T) {
	stream := []byte(`q 2 0 0 2 10 10 cm BT /F1 10 Tf 1 0 0 1 5 5 Tm (A  B) Tj ET Q
BT /F1 10 Tf 1 0 0 1 100 100 Tm [(PAY)-400(PAL)] TJ ET`)

	glyphs, _ := interpret(stream)
	require.Len(t, glyphs, 4)

	assert.Equal(t, "A", glyphs[0].S)
	assert.InDelta(t, 20, glyphs[0].X, 0.001)
	assert.InDelta(t, 20, glyphs[0].Y, 0.001)
	assert.InDelta(t, 20, glyphs[0].Size, 0.001)

	assert.Equal(t, "B", glyphs[1].S)
	assert.InDelta(t, 50, glyphs[1].X, 0.001, "third character at 15 text units, doubled by the CTM")

	assert.Equal(t, "PAY", glyphs[2].S)
	assert.Equal(t, "PAL", glyphs[3].S)
	assert.InDelta(t, 100, glyphs[2].X, 0.001, "q/Q restores the CTM")
}

func TestInterpret_Rules(t *testing.T) {
	stream := []byte(`0.5 w 40 640 420 80 re S 40 700 m 460 700 l S
BI /W 4 /H 4 /BPC 8 ID xxEIxx EI
<< /MCID 0 >> BDC EMC`)

	_, rules := interpret(stream)
	require.Len(t, rules, 2)
	assert.Equal(t, loader.Segment{X0: 40, Y0: 640, X1: 460, Y1: 720}, rules[0])
	assert.True(t, rules[1].Horizontal())
}

func TestScanner_LiteralEscapes(t *testing.T) {
	sc := &scanner{data: []byte(`(a\(b\)c\\ \101 (nested))`)}
	tok, ok := sc.next()
	require.True(t, ok)
	assert.Equal(t, tokString, tok.kind)
	assert.Equal(t, `a(b)c\ A (nested)`, tok.str)
}
