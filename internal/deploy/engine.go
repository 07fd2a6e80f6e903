package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5/plumbing/object"

	"cideploy/internal/config"
	"cideploy/internal/gitrepo"
	"cideploy/internal/runcache"
	"cideploy/internal/workflow"
)

// API is the slice of the CI API the engine needs
type API interface {
	Runs(ctx context.Context, url string) ([]workflow.Run, string, error)
	Artifacts(ctx context.Context, url string) ([]workflow.Artifact, error)
	AuthHeader() string
}

// Engine orchestrates one deployment
type Engine struct {
	cfg     *config.Config
	name    string
	profile config.Profile
	repo    *gitrepo.Repo
	api     API
	runner  Runner
	logger  *slog.Logger
}

// NewEngine creates a deployment engine for the named profile
func NewEngine(cfg *config.Config, name string, repo *gitrepo.Repo, api API, runner Runner, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		name:    name,
		profile: cfg.Profiles[name],
		repo:    repo,
		api:     api,
		runner:  runner,
		logger:  logger,
	}
}

// Run deploys the build matching target to the profile's host.
//
// The matching-commit set is computed from the repository head, while
// the wanted hash tuple comes from target; the two differ only when an
// explicit commit override is given.
func (e *Engine) Run(ctx context.Context, target *object.Commit) error {
	e.logger.Info("preparing deploy", "profile", e.name, "commit", target.Hash.String())

	want, err := gitrepo.TreeHash(target, e.profile.Files)
	if err != nil {
		if errors.Is(err, gitrepo.ErrMissingFile) {
			return Deployf("commit %s is missing a required file: %v", target.Hash, err)
		}
		return err
	}

	head, err := e.repo.Head()
	if err != nil {
		return err
	}

	wanted, err := gitrepo.MatchingCommits(head, e.profile.Files, want)
	if err != nil {
		return fmt.Errorf("failed to walk history: %w", err)
	}
	e.logger.Info("found matching commits", "count", len(wanted))

	cachePath := runcache.Path(e.repo.GitDir())
	cache, err := runcache.Load(cachePath)
	if err != nil {
		e.logger.Warn("failed to load run cache, starting fresh", "error", err)
		cache = runcache.New()
	}
	if cache.Len() == 0 {
		e.logger.Info("created workflow run cache", "path", cachePath)
	}

	// The cache is persisted no matter how the rest of the deploy goes,
	// so runs fetched before a failure are not fetched again.
	defer func() {
		if err := cache.Save(cachePath); err != nil {
			e.logger.Warn("failed to save run cache", "error", err)
		}
	}()

	feedURL := e.cfg.WorkflowURL(e.profile)
	if err := runcache.NewSyncer(e.api, e.logger).Sync(ctx, cache, feedURL); err != nil {
		return err
	}

	run, err := locateRun(e.logger, feedURL, cache, wanted)
	if err != nil {
		return err
	}

	url, err := e.artifactURL(ctx, run)
	if err != nil {
		return err
	}

	e.logger.Info("deploying", "artifact", url, "host", e.profile.Host)
	script := installScript(e.cfg, e.profile, run.ID, url, e.api.AuthHeader())
	return e.runner.Run(ctx, e.profile.Host, script)
}

// locateRun scans the cache in insertion order for runs that belong to
// the profile's feed and match a wanted commit. The first successful
// run wins, but the scan continues so every candidate is logged.
func locateRun(logger *slog.Logger, feedURL string, cache *runcache.Cache, wanted map[string]struct{}) (workflow.Run, error) {
	var found *workflow.Run

	logger.Info("matching workflow runs")
	for _, run := range cache.Runs() {
		if run.Workflow != feedURL {
			continue
		}
		if _, ok := wanted[run.HeadCommit.ID]; !ok {
			continue
		}

		switch {
		case !run.Completed():
			logger.Info("workflow run pending", "url", run.HTMLURL)
		case !run.Succeeded():
			logger.Info("workflow run failed", "url", run.HTMLURL)
		default:
			logger.Info("workflow run succeeded", "url", run.HTMLURL)
			if found == nil {
				r := run
				found = &r
			}
		}
	}

	if found == nil {
		return workflow.Run{}, Deployf("no successful matching workflow run found")
	}

	logger.Info("selected workflow run", "url", found.HTMLURL)
	return *found, nil
}

// artifactURL resolves the download URL of the profile's artifact on run.
// An expired artifact is a warning, not an error: the conditional
// download on the host may still find a previously fetched copy.
func (e *Engine) artifactURL(ctx context.Context, run workflow.Run) (string, error) {
	artifacts, err := e.api.Artifacts(ctx, run.ArtifactsURL)
	if err != nil {
		return "", fmt.Errorf("failed to list artifacts: %w", err)
	}

	for _, a := range artifacts {
		if a.Name != e.profile.Artifact {
			continue
		}
		if a.Expired {
			e.logger.Warn("artifact expired", "name", a.Name, "run", run.HTMLURL)
		}
		return a.ArchiveDownloadURL, nil
	}

	return "", Deployf("artifact %s not found on run %s", e.profile.Artifact, run.HTMLURL)
}
