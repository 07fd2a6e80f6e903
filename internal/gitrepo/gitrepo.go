package gitrepo

import (
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// Repo provides read access to the local repository under deployment
type Repo struct {
	gr *git.Repository
	// gitDir is the repository metadata directory, used to place
	// the workflow run cache next to the rest of the repo state.
	gitDir string
}

// Open opens the repository containing path, searching parent directories
func Open(path string) (*Repo, error) {
	gr, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	var gitDir string
	if s, ok := gr.Storer.(*filesystem.Storage); ok {
		gitDir = s.Filesystem().Root()
	}
	if gitDir == "" {
		return nil, fmt.Errorf("repository has no filesystem metadata directory")
	}

	return &Repo{gr: gr, gitDir: gitDir}, nil
}

// GitDir returns the repository metadata directory (.git)
func (r *Repo) GitDir() string {
	return r.gitDir
}

// IsDirty reports whether the worktree has uncommitted changes
func (r *Repo) IsDirty() (bool, error) {
	w, err := r.gr.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to open worktree: %w", err)
	}

	status, err := w.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree status: %w", err)
	}

	return !status.IsClean(), nil
}

// Head returns the commit the repository currently points at
func (r *Repo) Head() (*object.Commit, error) {
	ref, err := r.gr.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return r.gr.CommitObject(ref.Hash())
}

// ResolveCommit resolves a revision expression (hash, branch, tag, HEAD~n)
// to a commit
func (r *Repo) ResolveCommit(rev string) (*object.Commit, error) {
	h, err := r.gr.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w", rev, err)
	}
	return r.gr.CommitObject(*h)
}
