package runcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cideploy/internal/workflow"
)

// Cache is the persistent store of workflow runs, keyed by run id.
// Iteration order is insertion order: the feed is paginated newest-first,
// so within one sync newer runs come before older ones, and run selection
// depends on that ordering.
type Cache struct {
	ids  []int64
	runs map[int64]workflow.Run
}

// New returns an empty cache
func New() *Cache {
	return &Cache{runs: make(map[int64]workflow.Run)}
}

// Len returns the number of cached runs
func (c *Cache) Len() int {
	return len(c.ids)
}

// Get returns the cached run with the given id
func (c *Cache) Get(id int64) (workflow.Run, bool) {
	run, ok := c.runs[id]
	return run, ok
}

// Put inserts or updates a run. A new id is appended; an existing id
// keeps its position.
func (c *Cache) Put(run workflow.Run) {
	if _, ok := c.runs[run.ID]; !ok {
		c.ids = append(c.ids, run.ID)
	}
	c.runs[run.ID] = run
}

// Runs returns all cached runs in insertion order
func (c *Cache) Runs() []workflow.Run {
	runs := make([]workflow.Run, 0, len(c.ids))
	for _, id := range c.ids {
		runs = append(runs, c.runs[id])
	}
	return runs
}

// Path returns the cache file location inside the repository metadata
// directory
func Path(gitDir string) string {
	return filepath.Join(gitDir, "workflow_runs.json")
}

// Load reads the cache from path. A missing or empty file is treated
// as no prior state.
func Load(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read run cache: %w", err)
	}

	if len(data) == 0 {
		return New(), nil
	}

	var runs []workflow.Run
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("failed to parse run cache: %w", err)
	}

	c := New()
	for _, run := range runs {
		c.Put(run)
	}
	return c, nil
}

// Save rewrites the cache file at path with the full run list
func (c *Cache) Save(path string) error {
	data, err := json.MarshalIndent(c.Runs(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run cache: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run cache: %w", err)
	}

	return nil
}
