package diff

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// ChangedFile is one entry of a tree-to-tree delta.
type ChangedFile struct {
	OldPath string        `json:"oldPath,omitempty"`
	NewPath string        `json:"newPath,omitempty"`
	IsNew   bool          `json:"isNew,omitempty"`
	Deleted bool          `json:"deleted,omitempty"`
	Renamed bool          `json:"renamed,omitempty"`
	Hunks   []ChangedHunk `json:"hunks,omitempty"`
}

// ChangedHunk records which lines a hunk touched. Added holds new-file line
// numbers and Removed holds old-file line numbers.
type ChangedHunk struct {
	OldStart int   `json:"oldStart"`
	OldLines int   `json:"oldLines"`
	NewStart int   `json:"newStart"`
	NewLines int   `json:"newLines"`
	Added    []int `json:"added"`
	Removed  []int `json:"removed"`
}

// EffectivePath returns the path that exists after the change, or the old
// path for a deletion.
func (cf ChangedFile) EffectivePath() string {
	if cf.Deleted {
		return cf.OldPath
	}
	return cf.NewPath
}

// ParseGitDiff parses `git diff` output into changed files.
func ParseGitDiff(content string) ([]ChangedFile, error) {
	if strings.TrimSpace(content) == "" {
		return []ChangedFile{}, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	files := make([]ChangedFile, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		files = append(files, parseFileDiff(fd))
	}
	return files, nil
}

func parseFileDiff(fd *godiff.FileDiff) ChangedFile {
	cf := ChangedFile{
		OldPath: cleanPath(fd.OrigName),
		NewPath: cleanPath(fd.NewName),
		Hunks:   make([]ChangedHunk, 0, len(fd.Hunks)),
	}

	if fd.OrigName == "/dev/null" || fd.OrigName == "" {
		cf.IsNew = true
		cf.OldPath = ""
	}
	if fd.NewName == "/dev/null" || fd.NewName == "" {
		cf.Deleted = true
		cf.NewPath = ""
	}
	if cf.OldPath != "" && cf.NewPath != "" && cf.OldPath != cf.NewPath {
		cf.Renamed = true
	}

	for _, hunk := range fd.Hunks {
		cf.Hunks = append(cf.Hunks, parseHunk(hunk))
	}
	return cf
}

func parseHunk(hunk *godiff.Hunk) ChangedHunk {
	ch := ChangedHunk{
		OldStart: int(hunk.OrigStartLine),
		OldLines: int(hunk.OrigLines),
		NewStart: int(hunk.NewStartLine),
		NewLines: int(hunk.NewLines),
		Added:    []int{},
		Removed:  []int{},
	}

	oldLine := int(hunk.OrigStartLine)
	newLine := int(hunk.NewStartLine)

	body := strings.TrimSuffix(string(hunk.Body), "\n")
	for _, line := range strings.Split(body, "\n") {
		if len(line) == 0 {
			oldLine++
			newLine++
			continue
		}
		switch line[0] {
		case '+':
			ch.Added = append(ch.Added, newLine)
			newLine++
		case '-':
			ch.Removed = append(ch.Removed, oldLine)
			oldLine++
		case ' ':
			oldLine++
			newLine++
		case '\\':
			// "\ No newline at end of file"
		}
	}
	return ch
}

// cleanPath removes the a/ or b/ prefix git puts on diff paths.
func cleanPath(path string) string {
	if path == "" || path == "/dev/null" {
		return path
	}
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}
