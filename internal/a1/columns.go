package a1

import "fmt"

// NoNotes marks a ColumnRange without a notes column.
const NoNotes = -1

// ColumnRange is the contiguous block of columns fetched for a comparison
// run, with the source and notes columns expressed as offsets into it.
type ColumnRange struct {
	StartLetter string
	EndLetter   string
	StartIndex  int
	SourceRel   int
	// NotesRel is NoNotes when no notes column was requested and 0 when the
	// notes column is the source column.
	NotesRel int
}

// HasNotes reports whether a notes column was requested.
func (r ColumnRange) HasNotes() bool {
	return r.NotesRel != NoNotes
}

// Width returns the number of columns in the range.
func (r ColumnRange) Width() int {
	end, _ := ColumnIndex(r.EndLetter)
	return end - r.StartIndex + 1
}

// ResolveColumns maps the requested source column and optional notes column
// (empty for none) to the range that must be fetched. When the notes column
// is the source column only one column is fetched and both offsets are 0.
func ResolveColumns(sourceCol, notesCol string) (ColumnRange, error) {
	sourceIdx, err := ColumnIndex(sourceCol)
	if err != nil {
		return ColumnRange{}, fmt.Errorf("source column: %w", err)
	}

	notesIdx := NoNotes
	if notesCol != "" {
		notesIdx, err = ColumnIndex(notesCol)
		if err != nil {
			return ColumnRange{}, fmt.Errorf("notes column: %w", err)
		}
	}

	start, end := sourceIdx, sourceIdx
	sourceRel, notesRel := 0, NoNotes

	switch {
	case notesIdx == NoNotes:
	case notesIdx == sourceIdx:
		notesRel = 0
	default:
		start, end = min(sourceIdx, notesIdx), max(sourceIdx, notesIdx)
		sourceRel = sourceIdx - start
		notesRel = notesIdx - start
	}

	return ColumnRange{
		StartLetter: ColumnLetter(start),
		EndLetter:   ColumnLetter(end),
		StartIndex:  start,
		SourceRel:   sourceRel,
		NotesRel:    notesRel,
	}, nil
}
