package deploy

import (
	"fmt"
	"strings"

	"cideploy/internal/config"
)

// installScript builds the shell command sequence executed on the target
// host: download the artifact archive (skipped when already present),
// unpack it, fix ownership, swap the symlinks to activate the new
// version, and run the post command after operator confirmation.
func installScript(cfg *config.Config, p config.Profile, runID int64, url, authHeader string) []string {
	unpacked := fmt.Sprintf("%s/%s-%d", cfg.ArtifactDir, p.Artifact, runID)
	archive := unpacked + ".zip"

	script := []string{
		`echo \# Downloading ...`,
		fmt.Sprintf("mkdir -p %s", cfg.ArtifactDir),
		fmt.Sprintf("mkdir -p %s/logs", p.DeployDir),
		fmt.Sprintf("[ -f %s ] || wget --header=%s --no-clobber -O %s %s",
			archive, shellQuote("Authorization: "+authHeader), archive, shellQuote(url)),
		"echo",
		`echo \# Unpacking ...`,
		fmt.Sprintf("unzip -q -o %s -d %s", archive, unpacked),
		fmt.Sprintf("mkdir -p %s/d", unpacked),
		fmt.Sprintf("tar -xf %s/*.tar.xz -C %s/d", unpacked, unpacked),
		fmt.Sprintf("cat %s/d/commit.txt", unpacked),
	}

	if cfg.Owner != "" {
		script = append(script, fmt.Sprintf("chown -R %s %s", cfg.Owner, cfg.ArtifactDir))
	}

	script = append(script,
		"echo",
		`echo \# Installing ...`,
	)

	for _, symlink := range p.Symlinks {
		source := fmt.Sprintf("%s/d/%s", unpacked, symlink)
		dest := fmt.Sprintf("%s/%s", p.DeployDir, symlink)
		script = append(script,
			fmt.Sprintf("echo %q;ln -f --no-target-directory -s %s %s", source+" -> "+dest, source, dest))
	}

	if cfg.Owner != "" {
		script = append(script, fmt.Sprintf("chown -R %s %s", cfg.Owner, p.DeployDir))
	}

	script = append(script,
		fmt.Sprintf("chmod -f -R +x %s/bin || true", p.DeployDir),
		fmt.Sprintf("echo %q", "Host: "+p.Host),
		fmt.Sprintf(`/bin/bash -c "read -n 1 -p 'PRESS ENTER TO RUN: %s.'"`, p.Post),
		p.Post,
		"echo",
		`echo \# Done.`,
	)

	return script
}

// shellQuote wraps s in single quotes, escaping any embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
