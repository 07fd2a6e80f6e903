package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
repo: acme/app
owner: "app:app"

profiles:
  prod-server:
    host: root@prod.example.com
    deploy_dir: /home/app
    files:
      - app
      - conf
      - build.sbt
    workflow: server.yml
    artifact: app-server
    symlinks:
      - lib
      - bin
    post: systemctl restart app
  prod-assets:
    host: root@prod.example.com
    deploy_dir: /home/app
    files:
      - public
      - package.json
    workflow: assets.yml
    artifact: app-assets
    symlinks:
      - public
    post: echo Reload assets
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Repo != "acme/app" {
		t.Errorf("expected repo acme/app, got %s", cfg.Repo)
	}
	// Defaults applied.
	if cfg.APIBase != "https://api.github.com" {
		t.Errorf("expected default api_base, got %s", cfg.APIBase)
	}
	if cfg.ArtifactDir != "/home/ci-artifacts" {
		t.Errorf("expected default artifact_dir, got %s", cfg.ArtifactDir)
	}

	p, ok := cfg.Profiles["prod-server"]
	if !ok {
		t.Fatal("prod-server profile missing")
	}
	if diff := cmp.Diff([]string{"app", "conf", "build.sbt"}, p.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"prod-assets", "prod-server"}, cfg.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("DEPLOY_HOST", "root@staging.example.com")

	path := writeConfig(t, `
repo: acme/app
profiles:
  staging:
    host: ${DEPLOY_HOST}
    deploy_dir: /home/app
    files: [app]
    workflow: server.yml
    artifact: app-server
    symlinks: [bin]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.Profiles["staging"].Host; got != "root@staging.example.com" {
		t.Errorf("expected expanded host, got %s", got)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			APIBase:     "https://api.github.com",
			Repo:        "acme/app",
			ArtifactDir: "/home/ci-artifacts",
			Profiles: map[string]Profile{
				"prod": {
					Host:      "root@prod.example.com",
					DeployDir: "/home/app",
					Files:     []string{"app"},
					Workflow:  "server.yml",
					Artifact:  "app-server",
					Symlinks:  []string{"bin"},
				},
			},
		}
	}

	for _, tc := range []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing repo", mutate: func(c *Config) { c.Repo = "" }, wantErr: true},
		{name: "bad slug", mutate: func(c *Config) { c.Repo = "acme" }, wantErr: true},
		{name: "bad api base", mutate: func(c *Config) { c.APIBase = "ftp://x" }, wantErr: true},
		{name: "no profiles", mutate: func(c *Config) { c.Profiles = nil }, wantErr: true},
		{name: "missing host", mutate: func(c *Config) { p := c.Profiles["prod"]; p.Host = ""; c.Profiles["prod"] = p }, wantErr: true},
		{name: "missing deploy dir", mutate: func(c *Config) { p := c.Profiles["prod"]; p.DeployDir = ""; c.Profiles["prod"] = p }, wantErr: true},
		{name: "no files", mutate: func(c *Config) { p := c.Profiles["prod"]; p.Files = nil; c.Profiles["prod"] = p }, wantErr: true},
		{name: "missing workflow", mutate: func(c *Config) { p := c.Profiles["prod"]; p.Workflow = ""; c.Profiles["prod"] = p }, wantErr: true},
		{name: "missing artifact", mutate: func(c *Config) { p := c.Profiles["prod"]; p.Artifact = ""; c.Profiles["prod"] = p }, wantErr: true},
		{name: "no symlinks", mutate: func(c *Config) { p := c.Profiles["prod"]; p.Symlinks = nil; c.Profiles["prod"] = p }, wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestWorkflowURL(t *testing.T) {
	cfg := &Config{APIBase: "https://api.github.com/", Repo: "acme/app"}
	p := Profile{Workflow: "server.yml"}

	want := "https://api.github.com/repos/acme/app/actions/workflows/server.yml/runs"
	if got := cfg.WorkflowURL(p); got != want {
		t.Errorf("WorkflowURL = %s, want %s", got, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "profiles: [not: a: map")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid yaml")
	}
}
