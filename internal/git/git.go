package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Status contains git hygiene information for a set of plaintext files
type Status struct {
	IsRepo    bool
	Tracked   []string // Plaintext tracked by git (bad)
	Unignored []string // Plaintext not covered by .gitignore (warning)
	Ignored   []string // Plaintext covered by .gitignore (good)
}

func run(ctx context.Context, workDir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = workDir
	return cmd.Output()
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(ctx context.Context, workDir string) bool {
	_, err := run(ctx, workDir, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(ctx context.Context, workDir, path string) bool {
	output, err := run(ctx, workDir, "ls-files", "--", path)
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(ctx context.Context, workDir, path string) bool {
	// git check-ignore returns exit code 0 if file is ignored
	_, err := run(ctx, workDir, "check-ignore", "-q", "--", path)
	return err == nil
}

// Check classifies plaintext paths relative to workDir. Outside a git
// repository it returns a Status with IsRepo false and no error.
func Check(ctx context.Context, workDir string, plaintext []string) (*Status, error) {
	status := &Status{}
	if !IsGitRepo(ctx, workDir) {
		return status, nil
	}
	status.IsRepo = true

	for _, file := range plaintext {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if IsTracked(ctx, workDir, file) {
			status.Tracked = append(status.Tracked, file)
		}
		if IsIgnored(ctx, workDir, file) {
			status.Ignored = append(status.Ignored, file)
		} else {
			status.Unignored = append(status.Unignored, file)
		}
	}

	return status, nil
}

// Format renders status for display. It returns "" outside a repository.
func Format(status *Status) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit:\n")

	tracked := make(map[string]bool, len(status.Tracked))
	for _, file := range status.Tracked {
		tracked[file] = true
		result.WriteString(fmt.Sprintf("   error: %s is tracked by git (run: git rm --cached %s)\n", file, file))
	}

	for _, file := range status.Unignored {
		if !tracked[file] {
			result.WriteString(fmt.Sprintf("   warning: %s not in .gitignore\n", file))
		}
	}

	if len(status.Tracked) == 0 && len(status.Unignored) == 0 {
		result.WriteString(fmt.Sprintf("   ok: %d plaintext file(s) ignored by git\n", len(status.Ignored)))
	}

	return result.String()
}
