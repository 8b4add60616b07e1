// Package gitsource keeps a local checkout of a remote notes repository.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// IsRemote reports whether source looks like a git URL rather than a local path.
func IsRemote(source string) bool {
	return strings.HasSuffix(source, ".git") ||
		strings.HasPrefix(source, "git@") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "http://")
}

// IsNetwork reports whether a git source is fetched from another host
// (http(s) or scp-like ssh) rather than read from the local filesystem.
func IsNetwork(source string) bool {
	if strings.HasPrefix(source, "https://") || strings.HasPrefix(source, "http://") {
		return true
	}
	if strings.Contains(source, "://") {
		return false
	}
	user, rest, ok := strings.Cut(source, "@")
	if !ok || user == "" || strings.ContainsAny(user, "/\\") {
		return false
	}
	host, repoPath, ok := strings.Cut(rest, ":")
	return ok && host != "" && repoPath != ""
}

// ErrInvalidURL means a git source could not be mapped to a checkout
// directory inside the repos dir.
var ErrInvalidURL = errors.New("invalid git URL")

// LocalPath maps a git URL onto <baseDir>/<host>/<repo path>. The result
// always lies strictly inside baseDir.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		// scp-like syntax: git@host:owner/repo.git
		if user, rest, ok := strings.Cut(repoURL, "@"); ok && user != "" {
			if host, repoPath, ok := strings.Cut(rest, ":"); ok && host != "" && repoPath != "" {
				return contained(baseDir, repoURL, host, strings.TrimSuffix(repoPath, ".git"))
			}
		}
		// A repository on the local filesystem.
		if err == nil && parsedURL.Scheme == "" && strings.HasSuffix(repoURL, ".git") {
			name := strings.TrimSuffix(filepath.Base(repoURL), ".git")
			return contained(baseDir, repoURL, "local", name)
		}
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	if parsedURL.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, repoURL)
	}
	return contained(baseDir, repoURL, parsedURL.Host, sanitizedPath)
}

// contained joins parts under baseDir, refusing ".." segments, empty repo
// paths and anything that would land outside baseDir.
func contained(baseDir, repoURL string, parts ...string) (string, error) {
	for _, part := range parts {
		for _, seg := range strings.FieldsFunc(part, func(r rune) bool { return r == '/' || r == '\\' }) {
			if seg == ".." {
				return "", fmt.Errorf("%w: %s", ErrInvalidURL, repoURL)
			}
		}
	}

	joined := filepath.Join(append([]string{baseDir}, parts...)...)
	rel, err := filepath.Rel(baseDir, joined)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, repoURL)
	}
	// Host alone is not a repository.
	if !strings.Contains(rel, string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, repoURL)
	}
	return joined, nil
}

// Sync clones a git repository if it doesn't exist at the given path,
// or pulls the latest changes if it does.
func Sync(ctx context.Context, logger *slog.Logger, url, localPath string) error {
	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		logger.Info("Cloning repository", "url", url, "path", localPath)
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return fmt.Errorf("failed to create parent of %s: %w", localPath, err)
		}
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{URL: url})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", url, err)
		}
		logger.Info("Clone successful", "path", localPath)
	case err == nil:
		logger.Info("Pulling latest changes", "path", localPath)
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}

		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}

		err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
		logger.Info("Pull successful (or already up-to-date)", "path", localPath)
	default:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	return nil
}
