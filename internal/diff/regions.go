package diff

import (
	"strings"
)

// ExtractRegions groups the non-context changes of fd into windows over the
// new content. A window opens k lines before its first change (never before
// line 1) and closes once k context lines follow the last change, so change
// runs at most k context lines apart share a window. A window still open
// when the changes run out extends to the end of the file.
func ExtractRegions(fd FileDiff, k int) []CodeRegion {
	if k < 0 {
		k = 0
	}
	lines := SplitLines(fd.NewContent)

	var regions []CodeRegion
	open := false
	start, trailing := 0, 0
	var types []LineChangeType

	for _, c := range fd.Changes {
		if c.Type == Context {
			if !open {
				continue
			}
			if trailing == k {
				regions = append(regions, makeRegion(lines, start, c.LineNumber-1, types))
				open = false
				continue
			}
			trailing++
			continue
		}
		if !open {
			start = c.LineNumber - k
			if start < 1 {
				start = 1
			}
			open = true
			types = nil
		}
		trailing = 0
		types = append(types, c.Type)
	}
	if open {
		regions = append(regions, makeRegion(lines, start, len(lines), types))
	}
	return regions
}

func makeRegion(lines []string, start, end int, types []LineChangeType) CodeRegion {
	if end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) && len(lines) > 0 {
		start = len(lines)
	}
	content := ""
	if end >= start && start >= 1 {
		content = strings.Join(lines[start-1:end], "\n")
	} else {
		end = start - 1
	}
	return CodeRegion{
		StartLine:   start,
		EndLine:     end,
		Content:     content,
		HasChanges:  len(types) > 0,
		ChangeTypes: types,
	}
}

// CoversAll reports whether regions span every line of a file with n lines.
func CoversAll(regions []CodeRegion, n int) bool {
	covered := make([]bool, n+1)
	for _, r := range regions {
		for l := r.StartLine; l <= r.EndLine && l <= n; l++ {
			if l >= 1 {
				covered[l] = true
			}
		}
	}
	for l := 1; l <= n; l++ {
		if !covered[l] {
			return false
		}
	}
	return true
}
