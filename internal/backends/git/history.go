package git

import (
	"context"
	"fmt"
	"strings"
)

// CommitInfo represents information about a single commit
type CommitInfo struct {
	Hash      string `json:"hash"`
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"` // First line only
}

// CommitsBetween returns the commits reachable from to but not from from,
// oldest first, following first parents only. An empty from lists the whole
// history of to. limit caps the result when positive.
func (g *GitAdapter) CommitsBetween(ctx context.Context, from, to string, limit int) ([]CommitInfo, error) {
	if to == "" {
		to = "HEAD"
	}
	g.logger.Debug("Listing commits",
		"from", from,
		"to", to,
		"limit", limit,
	)

	// %H = commit hash, %an = author name, %aI = author date ISO 8601, %s = subject
	args := []string{"log", "--format=%H|%an|%aI|%s", "--first-parent", "--reverse"}
	if limit > 0 {
		// --reverse applies after -n, so take the newest limit commits.
		args = append(args, fmt.Sprintf("-n%d", limit))
	}
	if from != "" {
		args = append(args, from+".."+to)
	} else {
		args = append(args, to)
	}

	lines, err := g.executeGitCommandLines(ctx, args...)
	if err != nil {
		return nil, err
	}

	commits := make([]CommitInfo, 0, len(lines))
	for _, line := range lines {
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			g.logger.Warn("Skipping malformed git log line",
				"line", line,
			)
			continue
		}

		commits = append(commits, CommitInfo{
			Hash:      parts[0],
			Author:    parts[1],
			Timestamp: parts[2],
			Message:   parts[3],
		})
	}
	return commits, nil
}
