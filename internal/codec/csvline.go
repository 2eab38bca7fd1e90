package codec

import (
	"strconv"
	"strings"
)

// LineBreak terminates every record written by WriteTable.
const LineBreak = "\r\n"

// EncodeField quotes s if it contains a comma, a double quote or a line
// break, doubling any quotes inside. Other values are returned verbatim.
func EncodeField(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// EncodeLine joins fields into one CSV record without a line terminator.
func EncodeLine(fields []string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(EncodeField(f))
	}
	return b.String()
}

// DecodeLine splits one CSV record into fields. It never fails: every
// unpaired quote toggles quoting wherever it appears, and an unterminated
// quoted field runs to the end of the input.
func DecodeLine(line string) []string {
	var (
		fields []string
		cur    strings.Builder
		quoted bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quoted {
			if c != '"' {
				cur.WriteByte(c)
				continue
			}
			if i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
				continue
			}
			quoted = false
			continue
		}
		switch c {
		case '"':
			quoted = true
		case ',':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}

// SplitRecords splits text into records on line breaks that are not inside
// a quoted field. CRLF, LF and lone CR all end a record. Empty records are
// dropped. Only a quote at the start of a field opens a quoted section; a
// quote in the middle of an unquoted cell is literal and never carries the
// record across a line break.
func SplitRecords(text string) []string {
	var (
		records    []string
		start      int
		quoted     bool
		fieldStart = true
	)
	emit := func(end int) {
		if end > start {
			records = append(records, text[start:end])
		}
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quoted {
			if c != '"' {
				continue
			}
			if i+1 < len(text) && text[i+1] == '"' {
				i++
				continue
			}
			quoted = false
			continue
		}
		switch c {
		case '"':
			quoted = fieldStart
			fieldStart = false
		case ',':
			fieldStart = true
		case '\r', '\n':
			emit(i)
			if c == '\r' && i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
			fieldStart = true
		default:
			fieldStart = false
		}
	}
	emit(len(text))
	return records
}

// RawRow is one data record of a parsed table, keyed by header column.
type RawRow struct {
	// Line is the 1-based record number in the input, counting the header.
	Line  int
	Cells map[string]string
}

// ParseTable splits text into a header and its data rows. The first
// non-empty record is the header; cells of later records are associated
// with header columns by position, up to the shorter of the two.
func ParseTable(text string) ([]string, []RawRow) {
	records := SplitRecords(text)
	if len(records) == 0 {
		return nil, nil
	}
	header := DecodeLine(records[0])
	rows := make([]RawRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		cells := DecodeLine(rec)
		n := min(len(header), len(cells))
		row := RawRow{Line: i + 2, Cells: make(map[string]string, n)}
		for j := 0; j < n; j++ {
			row.Cells[header[j]] = cells[j]
		}
		rows = append(rows, row)
	}
	return header, rows
}

// RowID extracts the reserved ID column. ok is false when the column is
// missing or not an integer.
func RowID(cells map[string]string) (id int, ok bool) {
	s, found := cells["ID"]
	if !found {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return id, true
}

// WriteTable renders header and rows as CSV text. Cells missing from a row
// are written empty. Every record, the header included, ends with LineBreak.
// An empty header yields an empty string.
func WriteTable(header []string, rows []Row) string {
	if len(header) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(EncodeLine(header))
	b.WriteString(LineBreak)
	for _, r := range rows {
		b.WriteString(EncodeLine(r.Values(header)))
		b.WriteString(LineBreak)
	}
	return b.String()
}
