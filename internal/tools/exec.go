package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// Session is the shared terminal session state for shell and code
// execution: an explicit working-directory value guarded by a mutex
// rather than ambient process state.
type Session struct {
	mu  sync.Mutex
	cwd string
}

func NewSession(workdir string) *Session {
	abs, err := filepath.Abs(workdir)
	if err != nil {
		abs = workdir
	}
	return &Session{cwd: abs}
}

// Chdir validates and records a new working directory for later calls.
func (s *Session) Chdir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("workdir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workdir %s is not a directory", dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("workdir: %w", err)
	}
	s.mu.Lock()
	s.cwd = abs
	s.mu.Unlock()
	return nil
}

func (s *Session) Cwd() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwd
}

// runCommand executes argv in the session directory under a wall-clock
// bound and reports stdout, stderr, and the exit code.
func runCommand(ctx context.Context, session *Session, timeout time.Duration, argv ...string) (map[string]any, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = session.Cwd()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("command timed out after %s", timeout)
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("run command: %w", err)
		}
	}

	return map[string]any{
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
		"exit_code": exitCode,
	}, nil
}

// RunShell executes a shell command in the shared session.
type RunShell struct {
	session *Session
	timeout time.Duration
}

func NewRunShell(session *Session, timeout time.Duration) *RunShell {
	return &RunShell{session: session, timeout: timeout}
}

func (r *RunShell) Name() string { return "run_shell" }

func (r *RunShell) Description() string {
	return "Run a shell command in the session working directory and return stdout, stderr, and the exit code."
}

func (r *RunShell) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{"type": "string", "description": "Command to run with sh -c"},
			"workdir": map[string]any{"type": "string", "description": "Optional directory to switch the session to first"},
		},
		"required": []string{"command"},
	}
}

func (r *RunShell) Call(ctx context.Context, args map[string]any) (any, error) {
	command, err := stringArg(args, "command")
	if err != nil {
		return nil, err
	}
	if workdir, ok := args["workdir"].(string); ok && workdir != "" {
		if err := r.session.Chdir(workdir); err != nil {
			return nil, err
		}
	}
	return runCommand(ctx, r.session, r.timeout, "sh", "-c", command)
}

// RunCode writes a source snippet to a temp file and executes its
// interpreter under the same timeout regime as RunShell.
type RunCode struct {
	session *Session
	timeout time.Duration
}

func NewRunCode(session *Session, timeout time.Duration) *RunCode {
	return &RunCode{session: session, timeout: timeout}
}

func (r *RunCode) Name() string { return "run_code" }

func (r *RunCode) Description() string {
	return "Execute a code snippet (Python by default) and return its output."
}

func (r *RunCode) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code":     map[string]any{"type": "string", "description": "Source code to execute"},
			"language": map[string]any{"type": "string", "description": "python (default)"},
		},
		"required": []string{"code"},
	}
}

func (r *RunCode) Call(ctx context.Context, args map[string]any) (any, error) {
	code, err := stringArg(args, "code")
	if err != nil {
		return nil, err
	}
	language := "python"
	if lang, ok := args["language"].(string); ok && lang != "" {
		language = lang
	}

	interpreter, ext, err := interpreterFor(language)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "bridge-code-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp source file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(code); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write source: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("write source: %w", err)
	}

	return runCommand(ctx, r.session, r.timeout, interpreter, tmp.Name())
}

func interpreterFor(language string) (interpreter, ext string, err error) {
	switch language {
	case "python", "python3":
		return "python3", ".py", nil
	case "sh", "bash", "shell":
		return "sh", ".sh", nil
	default:
		return "", "", fmt.Errorf("unsupported language %q", language)
	}
}
