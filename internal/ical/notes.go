package ical

import (
	"strings"
)

// noteSeparator divides the free-form description of a note from the
// labelled fields appended on import.
const noteSeparator = "-- \n"

const noteIndent = "    "

// noteParts is the structured content of an imported note.
type noteParts struct {
	Description string
	Location    string
	Comment     string
	Import      string
}

func (p noteParts) empty() bool {
	return p.Description == "" && p.Location == "" && p.Comment == "" && p.Import == ""
}

// compose renders p as note text. Multi-line field values continue on lines
// indented by four spaces.
func (p noteParts) compose() string {
	var b strings.Builder
	if p.Description != "" {
		b.WriteString(p.Description)
		if !strings.HasSuffix(p.Description, "\n") {
			b.WriteByte('\n')
		}
	}
	if p.Location == "" && p.Comment == "" && p.Import == "" {
		return b.String()
	}
	b.WriteString(noteSeparator)
	for _, f := range []struct{ label, value string }{
		{"Location", p.Location},
		{"Comment", p.Comment},
		{"Import", p.Import},
	} {
		if f.value == "" {
			continue
		}
		b.WriteString(f.label)
		b.WriteString(": ")
		b.WriteString(strings.ReplaceAll(strings.TrimRight(f.value, "\n"), "\n", "\n"+noteIndent))
		b.WriteByte('\n')
	}
	return b.String()
}

// splitNote recovers the parts of a note written by compose. Text without a
// separator is all description.
func splitNote(note string) noteParts {
	var p noteParts
	desc, tail, found := strings.Cut(note, "\n"+noteSeparator)
	if !found {
		if rest, ok := strings.CutPrefix(note, noteSeparator); ok {
			desc, tail, found = "", rest, true
		}
	}
	p.Description = strings.TrimRight(desc, "\n")
	if !found {
		return p
	}

	var field *string
	for _, line := range strings.Split(tail, "\n") {
		if rest, ok := strings.CutPrefix(line, noteIndent); ok && field != nil {
			*field += "\n" + rest
			continue
		}
		label, value, ok := strings.Cut(line, ": ")
		switch {
		case ok && label == "Location":
			field = &p.Location
		case ok && label == "Comment":
			field = &p.Comment
		case ok && label == "Import":
			field = &p.Import
		default:
			field = nil
			continue
		}
		*field = value
	}
	return p
}
