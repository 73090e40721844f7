package diff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// SplitLines splits text into lines. A single trailing newline does not
// produce an empty final line, and empty text has no lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// DiffLines computes a line diff from oldText to newText.
//
// Equal lines are Context, inserted lines are Added and deleted lines are
// Removed. A running counter over the new file starts at 1 and advances on
// Context and Added only, so a Removed line carries the number of the new
// line it precedes. Within a replaced block all removals come first.
func DiffLines(oldText, newText string) []LineChange {
	a := SplitLines(oldText)
	b := SplitLines(newText)

	matcher := difflib.NewMatcherWithJunk(a, b, false, nil)
	changes := make([]LineChange, 0, len(b))
	line := 1

	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for _, s := range b[op.J1:op.J2] {
				changes = append(changes, LineChange{LineNumber: line, Type: Context, Content: s})
				line++
			}
		case 'd':
			for _, s := range a[op.I1:op.I2] {
				changes = append(changes, LineChange{LineNumber: line, Type: Removed, Content: s})
			}
		case 'i':
			for _, s := range b[op.J1:op.J2] {
				changes = append(changes, LineChange{LineNumber: line, Type: Added, Content: s})
				line++
			}
		case 'r':
			for _, s := range a[op.I1:op.I2] {
				changes = append(changes, LineChange{LineNumber: line, Type: Removed, Content: s})
			}
			for _, s := range b[op.J1:op.J2] {
				changes = append(changes, LineChange{LineNumber: line, Type: Added, Content: s})
				line++
			}
		}
	}
	return changes
}

// Summary counts line changes by type.
type Summary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Context  int `json:"context"`
}

// Summarize counts changes by type.
func Summarize(changes []LineChange) Summary {
	var s Summary
	for _, c := range changes {
		switch c.Type {
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		case Modified:
			s.Modified++
		case Context:
			s.Context++
		}
	}
	return s
}

// HasEdits reports whether changes contain anything other than Context.
func HasEdits(changes []LineChange) bool {
	for _, c := range changes {
		if c.Type != Context {
			return true
		}
	}
	return false
}
