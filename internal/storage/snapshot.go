package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/rs/zerolog/log"
)

const runIDTrailer = "Run-Id: "

// SnapshotConfig configures dataset snapshots
type SnapshotConfig struct {
	Enabled     bool   `json:"enabled"`
	RepoPath    string `json:"repo_path"`
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
}

// DefaultSnapshotConfig returns snapshot settings for the data directory
func DefaultSnapshotConfig() *SnapshotConfig {
	return &SnapshotConfig{
		Enabled:     false,
		RepoPath:    "data",
		AuthorName:  "FF6 Dataset Builder",
		AuthorEmail: "dataset@caiatech.com",
	}
}

// GitSnapshotStore commits dataset files to a git repository
type GitSnapshotStore struct {
	repo             *git.Repository
	repoPath         string
	config           *SnapshotConfig
	metricsCollector MetricsCollector
}

// OpenSnapshotStore opens the repository at config.RepoPath, initialising
// it when absent
func OpenSnapshotStore(config *SnapshotConfig, metrics MetricsCollector) (*GitSnapshotStore, error) {
	if config == nil {
		config = DefaultSnapshotConfig()
	}

	repo, err := git.PlainOpen(config.RepoPath)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err := os.MkdirAll(config.RepoPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		repo, err = git.PlainInit(config.RepoPath, false)
		if err == nil {
			log.Info().Str("path", config.RepoPath).Msg("Initialised snapshot repository")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot repository: %w", err)
	}

	return &GitSnapshotStore{
		repo:             repo,
		repoPath:         config.RepoPath,
		config:           config,
		metricsCollector: metrics,
	}, nil
}

// Commit stages paths and records a snapshot. It returns "" with no error
// when none of the paths changed since the last snapshot.
func (g *GitSnapshotStore) Commit(ctx context.Context, stage, summary, runID string, paths ...string) (string, error) {
	start := time.Now()
	hash, err := g.commit(ctx, stage, summary, runID, paths)
	g.recordMetric("commit", start, err == nil, err)
	return hash, err
}

func (g *GitSnapshotStore) commit(ctx context.Context, stage, summary, runID string, paths []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	w, err := g.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	for _, p := range paths {
		rel, err := g.relative(p)
		if err != nil {
			return "", err
		}
		if _, err := w.Add(rel); err != nil {
			return "", fmt.Errorf("failed to add %s: %w", rel, err)
		}
	}

	status, err := w.Status()
	if err != nil {
		return "", fmt.Errorf("failed to read status: %w", err)
	}
	if !hasStagedChanges(status) {
		log.Debug().Str("stage", stage).Msg("Snapshot skipped, nothing changed")
		return "", nil
	}

	message := fmt.Sprintf("%s: %s", stage, summary)
	if runID != "" {
		message += "\n\n" + runIDTrailer + runID
	}

	commit, err := w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.config.AuthorName,
			Email: g.config.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	log.Info().
		Str("stage", stage).
		Str("hash", commit.String()).
		Str("run_id", runID).
		Msg("Dataset snapshot recorded")
	return commit.String(), nil
}

// History returns up to limit snapshots, newest first
func (g *GitSnapshotStore) History(ctx context.Context, limit int) ([]Snapshot, error) {
	start := time.Now()
	snapshots, err := g.history(ctx, limit)
	g.recordMetric("history", start, err == nil, err)
	return snapshots, err
}

func (g *GitSnapshotStore) history(ctx context.Context, limit int) ([]Snapshot, error) {
	if _, err := g.repo.Head(); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return []Snapshot{}, nil
		}
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	iter, err := g.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	snapshots := []Snapshot{}
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limit > 0 && len(snapshots) >= limit {
			return storer.ErrStop
		}
		snapshots = append(snapshots, parseSnapshot(c))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Health checks that the repository is readable
func (g *GitSnapshotStore) Health(ctx context.Context) error {
	start := time.Now()
	_, err := g.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		err = nil
	}
	g.recordMetric("health", start, err == nil, err)
	return err
}

func (g *GitSnapshotStore) relative(path string) (string, error) {
	if !filepath.IsAbs(path) {
		if rel, err := filepath.Rel(g.repoPath, path); err == nil && filepath.IsLocal(rel) {
			return filepath.ToSlash(rel), nil
		}
		// otherwise path must already be relative to the repository root
		if !filepath.IsLocal(path) {
			return "", fmt.Errorf("%s is outside the snapshot repository", path)
		}
		return filepath.ToSlash(filepath.Clean(path)), nil
	}
	root, err := filepath.Abs(g.repoPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%s is outside the snapshot repository", path)
	}
	return filepath.ToSlash(rel), nil
}

func hasStagedChanges(status git.Status) bool {
	for _, s := range status {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			return true
		}
	}
	return false
}

func parseSnapshot(c *object.Commit) Snapshot {
	snap := Snapshot{
		Hash: c.Hash.String(),
		When: c.Author.When,
	}
	lines := strings.Split(strings.TrimSpace(c.Message), "\n")
	snap.Message = lines[0]
	if stage, _, ok := strings.Cut(lines[0], ": "); ok {
		snap.Stage = stage
	}
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, runIDTrailer) {
			snap.RunID = strings.TrimPrefix(line, runIDTrailer)
		}
	}
	return snap
}

func (g *GitSnapshotStore) recordMetric(operation string, start time.Time, success bool, err error) {
	if g.metricsCollector != nil {
		g.metricsCollector.RecordMetric(StorageMetrics{
			OperationType: operation,
			Duration:      time.Since(start).Nanoseconds(),
			Success:       success,
			Backend:       "git",
			Error:         err,
		})
	}
}
