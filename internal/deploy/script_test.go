package deploy

import (
	"context"
	"strings"
	"testing"
)

func TestInstallScript(t *testing.T) {
	cfg := testConfig()
	p := cfg.Profiles["prod"]

	script := installScript(cfg, p, 42, "https://dl.example.com/a?token=x y", "token secret")
	joined := strings.Join(script, "\n")

	if !strings.Contains(joined, "mkdir -p /home/ci-artifacts") {
		t.Error("missing artifact dir creation")
	}
	if !strings.Contains(joined, "[ -f /home/ci-artifacts/app-server-42.zip ] ||") {
		t.Error("download must be skipped when the archive is already present")
	}
	if !strings.Contains(joined, "--header='Authorization: token secret'") {
		t.Error("missing quoted auth header")
	}
	if !strings.Contains(joined, "'https://dl.example.com/a?token=x y'") {
		t.Error("download url must be quoted")
	}
	if !strings.Contains(joined, "unzip -q -o /home/ci-artifacts/app-server-42.zip -d /home/ci-artifacts/app-server-42") {
		t.Error("missing unpack step")
	}
	if !strings.Contains(joined, "ln -f --no-target-directory -s /home/ci-artifacts/app-server-42/d/lib /home/app/lib") {
		t.Error("missing lib symlink swap")
	}
	if !strings.Contains(joined, "ln -f --no-target-directory -s /home/ci-artifacts/app-server-42/d/bin /home/app/bin") {
		t.Error("missing bin symlink swap")
	}
	if !strings.Contains(joined, "chown -R app:app /home/app") {
		t.Error("missing deploy dir ownership fix-up")
	}
	if !strings.Contains(joined, "PRESS ENTER TO RUN: systemctl restart app.") {
		t.Error("missing operator confirmation before the post command")
	}

	// The post command runs after the confirmation prompt.
	var confirmAt, postAt int
	for i, line := range script {
		if strings.Contains(line, "PRESS ENTER TO RUN") {
			confirmAt = i
		}
		if line == p.Post {
			postAt = i
		}
	}
	if postAt <= confirmAt {
		t.Error("post command must follow the confirmation prompt")
	}
}

func TestInstallScriptWithoutOwner(t *testing.T) {
	cfg := testConfig()
	cfg.Owner = ""
	p := cfg.Profiles["prod"]

	script := installScript(cfg, p, 42, "https://dl.example.com/a", "token secret")
	for _, line := range script {
		if strings.HasPrefix(line, "chown") {
			t.Errorf("no chown expected without owner, got %q", line)
		}
	}
}

func TestShellQuote(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
	}{
		{"simple", "'simple'"},
		{"with space", "'with space'"},
		{"it's", `'it'\''s'`},
		{"", "''"},
	} {
		if got := shellQuote(tc.in); got != tc.want {
			t.Errorf("shellQuote(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestMoshRunnerDryRun(t *testing.T) {
	r := NewMoshRunner(testLogger(), true)

	// A dry run must not attempt any remote session.
	if err := r.Run(context.Background(), "root@nonexistent.invalid", []string{"echo hi"}); err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
}
