package diff

import (
	"strings"
	"testing"
)

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"\n", 1},
		{"a", 1},
		{"a\n", 1},
		{"a\nb", 2},
		{"a\nb\n", 2},
		{"a\n\n", 2},
	}
	for _, tt := range tests {
		if got := SplitLines(tt.in); len(got) != tt.want {
			t.Errorf("SplitLines(%q) has %d lines, want %d", tt.in, len(got), tt.want)
		}
	}
}

func TestDiffLines_Identical(t *testing.T) {
	changes := DiffLines("a\nb\nc\n", "a\nb\nc\n")
	if len(changes) != 3 {
		t.Fatalf("got %d changes, want 3", len(changes))
	}
	for i, c := range changes {
		if c.Type != Context || c.LineNumber != i+1 {
			t.Errorf("changes[%d] = %+v", i, c)
		}
	}
	if HasEdits(changes) {
		t.Error("HasEdits should be false for identical text")
	}
}

func TestDiffLines_Addition(t *testing.T) {
	changes := DiffLines("line 1\nline 2\n", "line 1\nline 2\nline 3\n")
	want := []LineChange{
		{LineNumber: 1, Type: Context, Content: "line 1"},
		{LineNumber: 2, Type: Context, Content: "line 2"},
		{LineNumber: 3, Type: Added, Content: "line 3"},
	}
	assertChanges(t, changes, want)
}

func TestDiffLines_Modification(t *testing.T) {
	changes := DiffLines("line 1\nold line\nline 3\n", "line 1\nnew line\nline 3\n")
	want := []LineChange{
		{LineNumber: 1, Type: Context, Content: "line 1"},
		{LineNumber: 2, Type: Removed, Content: "old line"},
		{LineNumber: 2, Type: Added, Content: "new line"},
		{LineNumber: 3, Type: Context, Content: "line 3"},
	}
	assertChanges(t, changes, want)
}

func TestDiffLines_RemovedUsesNewCoordinates(t *testing.T) {
	changes := DiffLines("a\nb\nc\nd\n", "a\nd\n")
	want := []LineChange{
		{LineNumber: 1, Type: Context, Content: "a"},
		{LineNumber: 2, Type: Removed, Content: "b"},
		{LineNumber: 2, Type: Removed, Content: "c"},
		{LineNumber: 2, Type: Context, Content: "d"},
	}
	assertChanges(t, changes, want)
}

func TestDiffLines_EmptySides(t *testing.T) {
	added := DiffLines("", "x\ny\n")
	if s := Summarize(added); s.Added != 2 || s.Removed != 0 || s.Context != 0 {
		t.Errorf("empty old: summary = %+v", s)
	}

	removed := DiffLines("x\ny\n", "")
	if s := Summarize(removed); s.Removed != 2 || s.Added != 0 {
		t.Errorf("empty new: summary = %+v", s)
	}
	for _, c := range removed {
		if c.LineNumber != 1 {
			t.Errorf("removed line numbered %d, want 1", c.LineNumber)
		}
	}

	if got := DiffLines("", ""); len(got) != 0 {
		t.Errorf("empty/empty = %+v, want none", got)
	}
}

func TestDiffLines_TrailingNewlineIgnored(t *testing.T) {
	changes := DiffLines("a\n", "a")
	if len(changes) != 1 || changes[0].Type != Context {
		t.Errorf("changes = %+v, want one context line", changes)
	}
}

func TestDiffLines_ReplayReconstructsNew(t *testing.T) {
	pairs := []struct{ old, new string }{
		{"", ""},
		{"", "a\nb\n"},
		{"a\nb\n", ""},
		{"a\nb\nc\n", "a\nc\nb\n"},
		{"app.get('/a', h);\napp.get('/b', h);\n", "// header\napp.get('/b', h);\napp.post('/a', h);\n"},
		{"x\nx\nx\ny\n", "y\nx\nx\n"},
		{"one\ntwo\nthree\nfour\nfive\n", "zero\none\nthree\nfour!\nfive\nsix\n"},
		{"same", "same\n"},
	}

	for _, p := range pairs {
		changes := DiffLines(p.old, p.new)
		var replay []string
		for _, c := range changes {
			if c.Type == Modified {
				t.Fatalf("DiffLines emitted Modified for %q -> %q", p.old, p.new)
			}
			if c.Type == Added || c.Type == Context {
				replay = append(replay, c.Content)
			}
		}
		want := strings.Join(SplitLines(p.new), "\n")
		if got := strings.Join(replay, "\n"); got != want {
			t.Errorf("replay of %q -> %q = %q, want %q", p.old, p.new, got, want)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]LineChange{
		{Type: Context},
		{Type: Added},
		{Type: Added},
		{Type: Removed},
		{Type: Modified, OldContent: "before"},
	})
	if s.Context != 1 || s.Added != 2 || s.Removed != 1 || s.Modified != 1 {
		t.Errorf("Summarize = %+v", s)
	}
}

func assertChanges(t *testing.T, got, want []LineChange) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d changes %+v, want %d %+v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("changes[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
