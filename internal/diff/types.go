// Package diff normalizes heterogeneous change sources (filesystem edits,
// git commits, git ranges, manual markers) into per-file line diffs.
package diff

import (
	"fmt"
	"time"
)

// SourceKind names the variant of a ChangeSource.
type SourceKind string

const (
	KindFileSystem SourceKind = "filesystem"
	KindGitCommit  SourceKind = "git_commit"
	KindGitDiff    SourceKind = "git_diff"
	KindManual     SourceKind = "manual"
)

// ChangeSource says where a change came from. The set of implementations
// is closed: FileSystemSource, GitCommitSource, GitDiffSource and ManualSource.
type ChangeSource interface {
	Kind() SourceKind
	String() string
	isChangeSource()
}

// FileSystemSource is a single edited file on disk.
type FileSystemSource struct {
	Path         string    `json:"path"`
	ModifiedTime time.Time `json:"modifiedTime"`
}

// GitCommitSource is the change introduced by one commit. A non-empty
// Files restricts the delta to those repo-relative paths.
type GitCommitSource struct {
	Hash  string   `json:"hash"`
	Files []string `json:"files,omitempty"`
}

// GitDiffSource is the change between two refs.
type GitDiffSource struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ManualSource is a marker event carrying no diffs.
type ManualSource struct {
	Description string `json:"description"`
}

func (FileSystemSource) Kind() SourceKind { return KindFileSystem }
func (GitCommitSource) Kind() SourceKind  { return KindGitCommit }
func (GitDiffSource) Kind() SourceKind    { return KindGitDiff }
func (ManualSource) Kind() SourceKind     { return KindManual }

func (FileSystemSource) isChangeSource() {}
func (GitCommitSource) isChangeSource()  {}
func (GitDiffSource) isChangeSource()    {}
func (ManualSource) isChangeSource()     {}

func (s FileSystemSource) String() string { return "fs:" + s.Path }
func (s GitCommitSource) String() string  { return "commit:" + s.Hash }
func (s GitDiffSource) String() string    { return fmt.Sprintf("diff:%s..%s", s.From, s.To) }
func (s ManualSource) String() string     { return "manual:" + s.Description }

// LineChangeType classifies one line of a diff.
type LineChangeType int

const (
	Context LineChangeType = iota
	Added
	Removed
	// Modified is part of the model but the text differ never emits it;
	// a modification shows up as a Removed line followed by an Added one.
	Modified
)

func (t LineChangeType) String() string {
	switch t {
	case Context:
		return "context"
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t LineChangeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// LineChange is one entry of a line diff. LineNumber is always expressed
// in the new file's coordinates, including for Removed lines.
type LineChange struct {
	LineNumber int            `json:"lineNumber"`
	Type       LineChangeType `json:"type"`
	Content    string         `json:"content"`
	OldContent string         `json:"oldContent,omitempty"` // only for Modified
}

// FileDiff is the change to one file.
type FileDiff struct {
	Path string `json:"path"` // repo-relative, forward slashes
	// OldContent is nil when the previous text is unknown.
	OldContent *string      `json:"oldContent,omitempty"`
	NewContent string       `json:"newContent"`
	Changes    []LineChange `json:"changes,omitempty"`
	// Deleted marks a file that no longer exists; NewContent is empty.
	Deleted bool `json:"deleted,omitempty"`
	// Partial marks a diff whose new text could not be resolved. Only the
	// path is known and consumers must leave prior state untouched.
	Partial bool `json:"partial,omitempty"`
}

// ChangeEvent groups the file diffs produced from one change source.
type ChangeEvent struct {
	Source    ChangeSource `json:"source"`
	Diffs     []FileDiff   `json:"diffs"`
	Timestamp time.Time    `json:"timestamp"`
}

// CodeRegion is a window of the new file around one or more changes.
type CodeRegion struct {
	StartLine   int              `json:"startLine"`
	EndLine     int              `json:"endLine"`
	Content     string           `json:"content"`
	HasChanges  bool             `json:"hasChanges"`
	ChangeTypes []LineChangeType `json:"changeTypes,omitempty"`
}

// StringPtr returns a pointer to s, for filling FileDiff.OldContent.
func StringPtr(s string) *string {
	return &s
}
