package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete cideploy configuration
type Config struct {
	// APIBase is the base URL of the GitHub REST API.
	APIBase string `yaml:"api_base"`
	// Repo is the owner/name slug of the repository whose workflows
	// produce the deployable artifacts.
	Repo string `yaml:"repo"`
	// ArtifactDir is where downloaded artifacts are stored on the
	// target host.
	ArtifactDir string `yaml:"artifact_dir"`
	// Owner, when set, is the user:group the unpacked artifact and
	// deploy directory are chowned to on the target host.
	Owner string `yaml:"owner"`
	// Profiles is the registry of named deployment targets.
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile describes one deployment target
type Profile struct {
	// Host is the remote host identifier passed to mosh (user@host).
	Host string `yaml:"host"`
	// DeployDir is the directory on the host where symlinks are installed.
	DeployDir string `yaml:"deploy_dir"`
	// Files are the tracked repository paths whose content decides
	// whether two commits are equivalent for this profile.
	Files []string `yaml:"files"`
	// Workflow is the workflow file name whose runs feed this profile.
	Workflow string `yaml:"workflow"`
	// Artifact is the name of the build artifact to deploy.
	Artifact string `yaml:"artifact"`
	// Symlinks are the entries inside the unpacked artifact that get
	// linked into DeployDir.
	Symlinks []string `yaml:"symlinks"`
	// Post is the command run on the host after installation,
	// gated behind an operator confirmation.
	Post string `yaml:"post"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.APIBase = os.ExpandEnv(c.APIBase)
	c.Repo = os.ExpandEnv(c.Repo)
	c.ArtifactDir = os.ExpandEnv(c.ArtifactDir)
	for name, p := range c.Profiles {
		p.Host = os.ExpandEnv(p.Host)
		p.DeployDir = os.ExpandEnv(p.DeployDir)
		p.Post = os.ExpandEnv(p.Post)
		c.Profiles[name] = p
	}
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.APIBase == "" {
		c.APIBase = "https://api.github.com"
	}
	if c.ArtifactDir == "" {
		c.ArtifactDir = "/home/ci-artifacts"
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Repo == "" {
		return fmt.Errorf("repo is required")
	}
	if parts := strings.Split(c.Repo, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("repo must be an owner/name slug: %s", c.Repo)
	}
	if !strings.HasPrefix(c.APIBase, "https://") && !strings.HasPrefix(c.APIBase, "http://") {
		return fmt.Errorf("api_base must be an HTTP(S) URL: %s", c.APIBase)
	}
	if len(c.Profiles) == 0 {
		return fmt.Errorf("at least one profile is required")
	}

	for name, p := range c.Profiles {
		if p.Host == "" {
			return fmt.Errorf("profile %s: host is required", name)
		}
		if p.DeployDir == "" {
			return fmt.Errorf("profile %s: deploy_dir is required", name)
		}
		if len(p.Files) == 0 {
			return fmt.Errorf("profile %s: at least one tracked file is required", name)
		}
		if p.Workflow == "" {
			return fmt.Errorf("profile %s: workflow is required", name)
		}
		if p.Artifact == "" {
			return fmt.Errorf("profile %s: artifact is required", name)
		}
		if len(p.Symlinks) == 0 {
			return fmt.Errorf("profile %s: at least one symlink is required", name)
		}
	}

	return nil
}

// WorkflowURL returns the runs feed URL for a profile's workflow
func (c *Config) WorkflowURL(p Profile) string {
	return fmt.Sprintf("%s/repos/%s/actions/workflows/%s/runs",
		strings.TrimSuffix(c.APIBase, "/"), c.Repo, p.Workflow)
}

// Names returns the profile names in sorted order
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
