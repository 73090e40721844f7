package diff

import (
	"fmt"
	"strings"
	"testing"
)

// numbered returns "l1\nl2\n...\nln\n" with the given lines replaced.
func numbered(n int, replace map[int]string) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if r, ok := replace[i]; ok {
			b.WriteString(r)
		} else {
			fmt.Fprintf(&b, "l%d", i)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func fileDiff(oldText, newText string) FileDiff {
	return FileDiff{
		Path:       "f.php",
		OldContent: StringPtr(oldText),
		NewContent: newText,
		Changes:    DiffLines(oldText, newText),
	}
}

func TestExtractRegions_SingleChangeWithContext(t *testing.T) {
	fd := fileDiff(numbered(10, nil), numbered(10, map[int]string{5: "changed"}))

	regions := ExtractRegions(fd, 1)
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1: %+v", len(regions), regions)
	}
	r := regions[0]
	if r.StartLine != 4 || r.EndLine != 6 {
		t.Errorf("region = [%d,%d], want [4,6]", r.StartLine, r.EndLine)
	}
	if r.Content != "l4\nchanged\nl6" {
		t.Errorf("Content = %q", r.Content)
	}
	if !r.HasChanges || len(r.ChangeTypes) != 2 {
		t.Errorf("ChangeTypes = %v", r.ChangeTypes)
	}
}

func TestExtractRegions_StartClampedToLineOne(t *testing.T) {
	fd := fileDiff(numbered(6, nil), numbered(6, map[int]string{1: "first"}))

	regions := ExtractRegions(fd, 3)
	if len(regions) != 1 || regions[0].StartLine != 1 || regions[0].EndLine != 4 {
		t.Fatalf("regions = %+v, want one [1,4]", regions)
	}
}

func TestExtractRegions_NearbyRunsMerge(t *testing.T) {
	fd := fileDiff(numbered(12, nil), numbered(12, map[int]string{3: "x", 6: "y"}))

	regions := ExtractRegions(fd, 2)
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1: %+v", len(regions), regions)
	}
	if regions[0].StartLine != 1 || regions[0].EndLine != 8 {
		t.Errorf("region = [%d,%d], want [1,8]", regions[0].StartLine, regions[0].EndLine)
	}
}

func TestExtractRegions_DistantRunsSplit(t *testing.T) {
	fd := fileDiff(numbered(20, nil), numbered(20, map[int]string{3: "x", 15: "y"}))

	regions := ExtractRegions(fd, 2)
	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2: %+v", len(regions), regions)
	}
	if regions[0].StartLine != 1 || regions[0].EndLine != 5 {
		t.Errorf("first = [%d,%d], want [1,5]", regions[0].StartLine, regions[0].EndLine)
	}
	if regions[1].StartLine != 13 || regions[1].EndLine != 17 {
		t.Errorf("second = [%d,%d], want [13,17]", regions[1].StartLine, regions[1].EndLine)
	}
}

func TestExtractRegions_FinalRegionRunsToEOF(t *testing.T) {
	fd := fileDiff(numbered(8, nil), numbered(8, map[int]string{7: "tail"}))

	regions := ExtractRegions(fd, 3)
	if len(regions) != 1 || regions[0].StartLine != 4 || regions[0].EndLine != 8 {
		t.Fatalf("regions = %+v, want one [4,8]", regions)
	}
}

func TestExtractRegions_ZeroContext(t *testing.T) {
	fd := fileDiff(numbered(5, nil), numbered(5, map[int]string{2: "two", 3: "three"}))

	regions := ExtractRegions(fd, 0)
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	if regions[0].StartLine != 2 || regions[0].EndLine != 3 || regions[0].Content != "two\nthree" {
		t.Errorf("region = %+v", regions[0])
	}
}

func TestExtractRegions_NoChanges(t *testing.T) {
	if r := ExtractRegions(fileDiff("a\nb\n", "a\nb\n"), 3); len(r) != 0 {
		t.Errorf("identical content gave regions %+v", r)
	}
	if r := ExtractRegions(FileDiff{NewContent: "a\n"}, 3); len(r) != 0 {
		t.Errorf("no changes gave regions %+v", r)
	}
}

func TestExtractRegions_WholeFileForNewFile(t *testing.T) {
	newText := numbered(4, nil)
	regions := ExtractRegions(fileDiff("", newText), 2)
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	if !CoversAll(regions, 4) {
		t.Errorf("regions %+v should cover all 4 lines", regions)
	}
	if regions[0].Content != strings.TrimSuffix(newText, "\n") {
		t.Errorf("Content = %q", regions[0].Content)
	}
}

func TestCoversAll(t *testing.T) {
	regions := []CodeRegion{{StartLine: 1, EndLine: 3}, {StartLine: 5, EndLine: 6}}
	if CoversAll(regions, 6) {
		t.Error("line 4 is not covered")
	}
	regions = append(regions, CodeRegion{StartLine: 4, EndLine: 4})
	if !CoversAll(regions, 6) {
		t.Error("all lines should be covered")
	}
}
