// Package git resolves commits, tree deltas and blob text by shelling out to
// the git binary.
package git

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"routewatch/internal/diff"
	"routewatch/internal/errors"
	"routewatch/internal/slogutil"
)

// DefaultTimeout is the default timeout for one git command
const DefaultTimeout = 10 * time.Second

// GitAdapter runs git commands against one repository.
type GitAdapter struct {
	repoRoot string
	prefix   string // repoRoot relative to the work tree top, "" or "dir/"
	timeout  time.Duration
	logger   *slog.Logger
}

var _ diff.GitSource = (*GitAdapter)(nil)

// NewGitAdapter creates an adapter for repoRoot. It fails with
// GIT_UNAVAILABLE when git is missing or repoRoot is not a work tree.
// repoRoot may be a subdirectory of the work tree; paths the adapter takes
// and returns are then relative to repoRoot and files outside it are not
// reported.
func NewGitAdapter(repoRoot string, timeout time.Duration, logger *slog.Logger) (*GitAdapter, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	adapter := &GitAdapter{
		repoRoot: repoRoot,
		timeout:  timeout,
		logger:   slogutil.OrDiscard(logger),
	}

	if _, err := exec.LookPath("git"); err != nil {
		return nil, errors.NewRouteError(errors.GitUnavailable, "git executable not found", err)
	}
	if _, err := adapter.executeGitCommand(context.Background(), "rev-parse", "--git-dir"); err != nil {
		return nil, errors.NewRouteError(
			errors.GitUnavailable,
			"Git is not available in this repository",
			err,
		).WithDetails(map[string]interface{}{
			"repoRoot": repoRoot,
		})
	}

	prefix, err := adapter.executeGitCommand(context.Background(), "rev-parse", "--show-prefix")
	if err != nil {
		return nil, errors.NewRouteError(errors.GitUnavailable, "Failed to locate work tree prefix", err).WithDetails(map[string]interface{}{
			"repoRoot": repoRoot,
		})
	}
	adapter.prefix = prefix

	adapter.logger.Debug("Git adapter initialized",
		"repoRoot", repoRoot,
		"prefix", prefix,
		"timeout", timeout.String(),
	)
	return adapter, nil
}

// RepoRoot returns the repository root the adapter runs in.
func (g *GitAdapter) RepoRoot() string {
	return g.repoRoot
}

// Prefix returns the adapter root relative to the work tree top, with a
// trailing slash, or "" at the top.
func (g *GitAdapter) Prefix() string {
	return g.prefix
}

// HeadCommit returns the full hash of HEAD.
func (g *GitAdapter) HeadCommit(ctx context.Context) (string, error) {
	return g.ResolveRef(ctx, "HEAD")
}

// ResolveRef returns the commit hash ref points to.
func (g *GitAdapter) ResolveRef(ctx context.Context, ref string) (string, error) {
	out, err := g.executeGitCommand(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil || out == "" {
		return "", errors.NewRouteError(errors.GitObjectMissing, "Unknown revision "+ref, err)
	}
	return out, nil
}

// ParentOf returns the first parent of commit, or the empty tree when
// commit has no parent.
func (g *GitAdapter) ParentOf(ctx context.Context, commit string) (string, error) {
	hash, err := g.ResolveRef(ctx, commit)
	if err != nil {
		return "", err
	}
	out, err := g.executeGitCommand(ctx, "rev-list", "--parents", "-n", "1", hash)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return diff.EmptyTree, nil
	}
	return fields[1], nil
}

// ChangedFiles returns the per-file delta between two refs.
func (g *GitAdapter) ChangedFiles(ctx context.Context, from, to string) ([]diff.ChangedFile, error) {
	args := []string{"diff", "--no-color", "--no-ext-diff", "-M"}
	if g.prefix != "" {
		args = append(args, "--relative="+g.prefix)
	}
	out, err := g.executeGitCommandRaw(ctx, append(args, from, to)...)
	if err != nil {
		return nil, err
	}
	files, err := diff.ParseGitDiff(out)
	if err != nil {
		return nil, errors.NewRouteError(errors.InternalError, "Failed to parse git diff", err).WithDetails(map[string]interface{}{
			"from": from,
			"to":   to,
		})
	}
	return files, nil
}

// FileAt returns the text of path at ref.
func (g *GitAdapter) FileAt(ctx context.Context, ref, path string) (string, error) {
	out, err := g.executeGitCommandRaw(ctx, "show", ref+":"+g.prefix+path)
	if err != nil {
		if errors.Is(err, errors.Timeout) {
			return "", err
		}
		return "", errors.NewRouteError(errors.GitObjectMissing, "Blob not found", err).WithDetails(map[string]interface{}{
			"ref":  ref,
			"path": path,
		})
	}
	return out, nil
}

// executeGitCommand runs a git command with timeout and returns the
// trimmed output
func (g *GitAdapter) executeGitCommand(ctx context.Context, args ...string) (string, error) {
	out, err := g.executeGitCommandRaw(ctx, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// executeGitCommandRaw runs a git command with timeout and returns stdout
// unchanged
func (g *GitAdapter) executeGitCommandRaw(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.repoRoot

	g.logger.Debug("Executing git command",
		"args", strings.Join(args, " "),
		"timeout", g.timeout.String(),
	)

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.NewRouteError(errors.Timeout, "Git command timed out", err)
		}

		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", errors.NewRouteError(
				errors.InternalError,
				"Git command failed",
				err,
			).WithDetails(map[string]interface{}{
				"args":   args,
				"stderr": strings.TrimSpace(string(exitErr.Stderr)),
			})
		}

		return "", errors.NewRouteError(errors.GitUnavailable, "Failed to execute git command", err)
	}

	return string(output), nil
}

// executeGitCommandLines runs a git command and returns non-empty output
// lines
func (g *GitAdapter) executeGitCommandLines(ctx context.Context, args ...string) ([]string, error) {
	output, err := g.executeGitCommand(ctx, args...)
	if err != nil {
		return nil, err
	}

	if output == "" {
		return []string{}, nil
	}

	lines := strings.Split(output, "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result, nil
}
