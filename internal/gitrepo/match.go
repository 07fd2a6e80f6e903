package gitrepo

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrMissingFile indicates a tracked path is absent from a commit's tree.
var ErrMissingFile = errors.New("missing tracked file")

// TreeHash returns the per-path object hashes for files at commit c,
// in the order the paths are given. Two commits carry the same build
// input for a set of tracked paths iff their TreeHash tuples are equal.
func TreeHash(c *object.Commit, files []string) ([]plumbing.Hash, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load tree for %s: %w", c.Hash, err)
	}

	hashes := make([]plumbing.Hash, 0, len(files))
	for _, path := range files {
		entry, err := tree.FindEntry(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		hashes = append(hashes, entry.Hash)
	}

	return hashes, nil
}

// MatchingCommits walks ancestors of start and collects every commit whose
// TreeHash tuple for files equals want. The walk is pruned at the first
// mismatch: a commit that differs, or is missing a tracked path, is not
// collected and none of its parents are visited through it. Shared ancestors
// reached through multiple merge parents are visited once.
func MatchingCommits(start *object.Commit, files []string, want []plumbing.Hash) (map[string]struct{}, error) {
	matched := make(map[string]struct{})
	visited := make(map[plumbing.Hash]struct{})
	work := []*object.Commit{start}

	for len(work) > 0 {
		c := work[len(work)-1]
		work = work[:len(work)-1]

		if _, seen := visited[c.Hash]; seen {
			continue
		}
		visited[c.Hash] = struct{}{}

		got, err := TreeHash(c, files)
		if err != nil {
			if errors.Is(err, ErrMissingFile) {
				// Prune: the tracked set does not fully exist here,
				// so no ancestor reachable through this commit counts.
				continue
			}
			return nil, err
		}
		if !hashesEqual(got, want) {
			continue
		}

		matched[c.Hash.String()] = struct{}{}

		for i := 0; i < c.NumParents(); i++ {
			parent, err := c.Parent(i)
			if err != nil {
				return nil, fmt.Errorf("failed to load parent of %s: %w", c.Hash, err)
			}
			work = append(work, parent)
		}
	}

	return matched, nil
}

func hashesEqual(a, b []plumbing.Hash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
