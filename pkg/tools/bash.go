package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultBashTimeout = 2 * 60 * 60 // seconds
	maxOutputLength    = 90000
	maxOutputLines     = 1000
)

// truncateOutput bounds command output, lines first, then characters.
func truncateOutput(output string) string {
	lines := strings.Split(output, "\n")
	if len(lines) > maxOutputLines {
		lines = lines[:maxOutputLines]
		output = strings.Join(lines, "\n") + fmt.Sprintf("\n\n... (output truncated at %d lines)", maxOutputLines)
	}
	if len(output) > maxOutputLength {
		output = output[:maxOutputLength] + fmt.Sprintf("\n\n... (output truncated at %d characters)", maxOutputLength)
	}
	return output
}

func clipRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}

// NewBashTool builds the bash tool: run a shell command inside the scanned
// repository with a timeout and bounded output.
func NewBashTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:        "bash",
			Description: "Execute a shell command in the repository. Output is truncated past 1000 lines or 90000 characters.",
			Parameters: []Parameter{
				{Name: "command", Type: "string", Description: "The shell command to execute", Required: true},
				{Name: "timeout", Type: "number", Description: "Timeout in seconds (default 7200)", Required: false},
				{Name: "workdir", Type: "string", Description: "Working directory relative to the repository root", Required: false},
				{Name: "description", Type: "string", Description: "Short command description (5-10 words)", Required: false},
			},
			NeedsContext: true,
			Sandbox:      true,
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			command := stringArg(args, "command")
			description := stringArg(args, "description")
			title := description
			if title == "" {
				title = clipRunes(command, 50)
			}

			timeout, ok := floatArg(args, "timeout", defaultBashTimeout)
			if !ok {
				timeout = defaultBashTimeout
			} else if timeout < 0 {
				return Failure(fmt.Sprintf("Invalid timeout value: %v. Timeout must be a positive number.", timeout)), nil
			}

			cwd := tc.Folder
			if cwd == "" {
				cwd, _ = os.Getwd()
			}
			if workdir := stringArg(args, "workdir"); workdir != "" {
				resolved := resolvePath(workdir, cwd)
				if tc.Folder != "" && !pathWithin(resolved, tc.Folder) {
					return Failure(fmt.Sprintf("Working directory '%s' is outside the allowed directory '%s'", workdir, tc.Folder)), nil
				}
				info, err := os.Stat(resolved)
				if err != nil || !info.IsDir() {
					return Failure(fmt.Sprintf("Working directory does not exist or is not a directory: %s", resolved)), nil
				}
				cwd = resolved
			}

			runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout*float64(time.Second)))
			defer cancel()

			cmd := exec.CommandContext(runCtx, "sh", "-c", command)
			cmd.Dir = cwd
			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			runErr := cmd.Run()

			if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				return NewFields().
					Set("success", false).
					Set("output", fmt.Sprintf("Command terminated after exceeding timeout %vs", timeout)).
					Set("exit_code", -1).
					Set("title", title).
					Set("error", fmt.Sprintf("Timeout after %v seconds", timeout)), nil
			}

			exitCode := 0
			if runErr != nil {
				var exitErr *exec.ExitError
				if errors.As(runErr, &exitErr) {
					exitCode = exitErr.ExitCode()
				} else {
					return NewFields().
						Set("success", false).
						Set("output", "").
						Set("exit_code", -1).
						Set("error", fmt.Sprintf("Error executing command: %v", runErr)), nil
				}
			}

			output := stdout.String()
			if errText := stderr.String(); errText != "" {
				if output != "" {
					output += "\n"
				}
				output += errText
			}
			output = truncateOutput(output)

			if exitCode != 0 {
				output += fmt.Sprintf("\n\n<bash_metadata>\nCommand exited with code %d\n</bash_metadata>", exitCode)
			}

			return NewFields().
				Set("success", exitCode == 0).
				Set("output", output).
				Set("exit_code", exitCode).
				Set("title", title), nil
		},
	}
}
