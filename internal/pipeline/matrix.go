package pipeline

import "fmt"

const (
	HeaderSource = "Source Text"
	HeaderNotes  = "Notes"

	PlaceholderMissing        = "[ERROR: Missing]"
	PlaceholderProviderFailed = "[ERROR: Provider failed]"
)

// Matrix is the sheet content handed to write-back: headers, instructions,
// then one row per source row.
type Matrix [][]string

// Width is the column count of the header row.
func (m Matrix) Width() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Label names a translator's column. The 1-based position keeps repeated
// providers apart.
func Label(t Translator, position int) string {
	return fmt.Sprintf("%s-%d", t.Provider, position)
}

// BuildMatrix assembles the result sheet. Every row is built with the same
// append order as the header, so all rows have the header's length.
func BuildMatrix(rows []SourceRow, withNotes bool, slots []SlotResult) Matrix {
	header := []string{HeaderSource}
	if withNotes {
		header = append(header, HeaderNotes)
	}
	instructions := make([]string, len(header), len(header)+len(slots))
	for i, s := range slots {
		header = append(header, Label(s.Translator, i+1))
		instructions = append(instructions, s.Translator.Instructions)
	}

	m := make(Matrix, 0, len(rows)+2)
	m = append(m, header, instructions)

	for _, r := range rows {
		out := make([]string, 0, len(header))
		out = append(out, r.Source)
		if withNotes {
			notes := ""
			if r.Notes != nil {
				notes = *r.Notes
			}
			out = append(out, notes)
		}
		for _, s := range slots {
			switch {
			case s.Failed:
				out = append(out, PlaceholderProviderFailed)
			case r.Index < len(s.Translations):
				out = append(out, s.Translations[r.Index])
			default:
				out = append(out, PlaceholderMissing)
			}
		}
		m = append(m, out)
	}
	return m
}
