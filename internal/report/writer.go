package report

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
)

// WriteTSV writes the header and one tab separated line per row. With
// color set, the header is bold when w is a color capable terminal.
func WriteTSV(w io.Writer, rows []Row, color bool) error {
	bw := bufio.NewWriter(w)

	header := strings.Join(Header, "\t")
	if color {
		header = lipgloss.NewRenderer(w).NewStyle().
			Bold(true).
			TabWidth(lipgloss.NoTabConversion).
			Render(header)
	}
	bw.WriteString(header)
	bw.WriteByte('\n')

	for _, row := range rows {
		fields := row.Fields()
		for i, f := range fields {
			fields[i] = CleanField(f)
		}
		bw.WriteString(strings.Join(fields, "\t"))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteJSON writes rows as an indented JSON array.
func WriteJSON(w io.Writer, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// CleanField keeps a value on one line and inside its column: control
// characters, tabs and newlines included, become spaces.
func CleanField(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}
