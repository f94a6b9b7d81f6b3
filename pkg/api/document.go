package api

import (
	"encoding/json"
	"strings"
)

// Table is a detected table: one header row and zero or more data rows.
// Every row has exactly len(Headers) cells.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable builds a table, normalizing rows to the header width.
// Short rows are padded with empty cells; overflow cells are joined into the last cell.
func NewTable(headers []string, rows [][]string) Table {
	h := make([]string, len(headers))
	for i, s := range headers {
		h[i] = strings.TrimSpace(s)
	}

	width := len(h)
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, width)
		for i, c := range row {
			c = strings.TrimSpace(c)
			switch {
			case i < width:
				cells[i] = c
			case width > 0 && c != "":
				cells[width-1] = strings.TrimSpace(cells[width-1] + " " + c)
			}
		}
		out = append(out, cells)
	}

	return Table{headers: h, rows: out}
}

// Headers returns a copy of the header row.
func (t Table) Headers() []string {
	h := make([]string, len(t.headers))
	copy(h, t.headers)
	return h
}

// Width returns the number of columns.
func (t Table) Width() int { return len(t.headers) }

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.rows) }

// Row returns a copy of data row i.
func (t Table) Row(i int) []string {
	r := make([]string, len(t.rows[i]))
	copy(r, t.rows[i])
	return r
}

// Rows returns a deep copy of all data rows.
func (t Table) Rows() [][]string {
	out := make([][]string, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

type tableJSON struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// MarshalJSON implements json.Marshaler.
func (t Table) MarshalJSON() ([]byte, error) {
	rows := t.rows
	if rows == nil {
		rows = [][]string{}
	}
	return json.Marshal(tableJSON{Headers: t.Headers(), Rows: rows})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw tableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = NewTable(raw.Headers, raw.Rows)
	return nil
}

// Document is the backend-agnostic representation of a parsed PDF.
// It is immutable after construction.
type Document struct {
	id      string
	backend string
	pages   int
	text    string
	tables  []Table
}

// DocumentInfo carries the optional descriptive fields of a Document.
type DocumentInfo struct {
	// ID identifies the source bytes; equal bytes give equal IDs.
	ID string
	// Backend is the loader that produced the document.
	Backend string
	// Pages is the page count reported by the backend.
	Pages int
}

// NewDocument builds a Document. Tables are copied.
func NewDocument(info DocumentInfo, text string, tables []Table) *Document {
	ts := make([]Table, len(tables))
	copy(ts, tables)
	return &Document{
		id:      info.ID,
		backend: info.Backend,
		pages:   info.Pages,
		text:    text,
		tables:  ts,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Backend returns the name of the loader that built the document.
func (d *Document) Backend() string { return d.backend }

// Pages returns the page count.
func (d *Document) Pages() int { return d.pages }

// Text returns the full document text.
func (d *Document) Text() string { return d.text }

// Tables returns the detected tables. Table values share no mutable state with the document.
func (d *Document) Tables() []Table {
	ts := make([]Table, len(d.tables))
	copy(ts, d.tables)
	return ts
}

// NumTables returns the number of detected tables.
func (d *Document) NumTables() int { return len(d.tables) }

// Lines returns the non-empty, trimmed lines of the document text.
func (d *Document) Lines() []string {
	var lines []string
	for _, l := range strings.Split(d.text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// Empty reports whether the document has neither tables nor text.
func (d *Document) Empty() bool {
	return len(d.tables) == 0 && strings.TrimSpace(d.text) == ""
}

type documentJSON struct {
	ID      string  `json:"id,omitempty"`
	Backend string  `json:"backend,omitempty"`
	Pages   int     `json:"pages,omitempty"`
	Text    string  `json:"text"`
	Tables  []Table `json:"tables"`
}

// MarshalJSON implements json.Marshaler.
func (d *Document) MarshalJSON() ([]byte, error) {
	tables := d.tables
	if tables == nil {
		tables = []Table{}
	}
	return json.Marshal(documentJSON{
		ID:      d.id,
		Backend: d.backend,
		Pages:   d.pages,
		Text:    d.text,
		Tables:  tables,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw documentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = *NewDocument(DocumentInfo{ID: raw.ID, Backend: raw.Backend, Pages: raw.Pages}, raw.Text, raw.Tables)
	return nil
}
