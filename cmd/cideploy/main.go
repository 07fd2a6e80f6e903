package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/spf13/cobra"

	"cideploy/internal/config"
	"cideploy/internal/deploy"
	"cideploy/internal/gitrepo"
	"cideploy/internal/workflow"
)

const tokenEnv = "GITHUB_API_TOKEN"

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string

	// Deploy flags
	dryRun    bool
	commitRev string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps configuration errors to 128 and everything else,
// deployment failures included, to 1.
func exitCode(err error) int {
	var cfgErr *deploy.ConfigError
	if errors.As(err, &cfgErr) {
		return 128
	}
	return 1
}

var rootCmd = &cobra.Command{
	Use:   "cideploy",
	Short: "Deploy prebuilt CI artifacts to a target host",
	Long: `cideploy matches the local checkout against successful CI workflow runs
and installs the matching build artifact on a deployment target.

It walks the commit history for ancestors whose tracked files are identical
to the target commit, picks the newest successful workflow run built from
one of them, and hands the artifact off to an install script running in a
tmux session on the remote host.`,
	SilenceUsage: true,
}

var deployCmd = &cobra.Command{
	Use:   "deploy PROFILE",
	Short: "Deploy the current checkout to the named profile",
	Long: `Deploy determines which CI build corresponds to the working tree (or to an
explicit --commit), resolves its artifact and installs it on the profile's
host over mosh.

The worktree must be clean unless --commit is given. The GITHUB_API_TOKEN
environment variable must hold an API token with read access to the
repository's workflow runs.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeProfiles,
	RunE:              runDeploy,
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List configured deployment profiles",
	RunE:  runProfiles,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cideploy %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/cideploy/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	// Deploy command flags
	deployCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the remote command instead of executing it")
	deployCmd.Flags().StringVar(&commitRev, "commit", "", "deploy a specific commit instead of the current checkout head")

	// Add commands
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(versionCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return deploy.Configf("failed to load config: %v", err)
	}

	name := args[0]
	if _, ok := cfg.Profiles[name]; !ok {
		return deploy.Configf("unknown profile %s (configured: %s)", name, strings.Join(cfg.Names(), ", "))
	}

	token := os.Getenv(tokenEnv)
	if token == "" {
		return deploy.Configf("environment variable %s is required\n"+
			"* create a token on https://github.com/settings/tokens/new\n"+
			"* required scope: public_repo", tokenEnv)
	}

	repo, err := gitrepo.Open(".")
	if err != nil {
		return deploy.Configf("%v", err)
	}

	var target *object.Commit
	if commitRev == "" {
		dirty, err := repo.IsDirty()
		if err != nil {
			return fmt.Errorf("failed to check worktree state: %w", err)
		}
		if dirty {
			return deploy.Configf("worktree is dirty; run with --commit HEAD to ignore")
		}
		target, err = repo.Head()
		if err != nil {
			return deploy.Configf("%v", err)
		}
	} else {
		target, err = repo.ResolveCommit(commitRev)
		if err != nil {
			return deploy.Configf("%v", err)
		}
	}

	client := workflow.NewClient(token)
	runner := deploy.NewMoshRunner(logger, dryRun)
	engine := deploy.NewEngine(cfg, name, repo, client, runner, logger)

	if err := engine.Run(ctx, target); err != nil {
		logger.Error("deploy failed", "error", err)
		return err
	}

	return nil
}

func runProfiles(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return deploy.Configf("failed to load config: %v", err)
	}

	for _, name := range cfg.Names() {
		p := cfg.Profiles[name]
		fmt.Printf("%s\n", name)
		fmt.Printf("  host:     %s\n", p.Host)
		fmt.Printf("  workflow: %s\n", p.Workflow)
		fmt.Printf("  artifact: %s\n", p.Artifact)
	}

	return nil
}

// completeProfiles offers configured profile names for shell completion
func completeProfiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	return cfg.Names(), cobra.ShellCompDirectiveNoFileComp
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s/.config/cideploy/config.yaml", home)
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	path := configPath()
	if path == "" {
		return nil, fmt.Errorf("failed to determine config file path")
	}

	logger.Debug("loading configuration", "path", path)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"repo", cfg.Repo,
		"api_base", cfg.APIBase,
		"profiles", len(cfg.Profiles))

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
