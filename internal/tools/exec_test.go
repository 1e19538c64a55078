package tools

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunShellCapturesOutput(t *testing.T) {
	session := NewSession(t.TempDir())
	tool := NewRunShell(session, 5*time.Second)

	out, err := tool.Call(context.Background(), map[string]any{"command": "echo hello; echo oops >&2; exit 3"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	payload := out.(map[string]any)
	if got := payload["stdout"].(string); strings.TrimSpace(got) != "hello" {
		t.Errorf("stdout = %q", got)
	}
	if got := payload["stderr"].(string); strings.TrimSpace(got) != "oops" {
		t.Errorf("stderr = %q", got)
	}
	if payload["exit_code"] != 3 {
		t.Errorf("exit_code = %v", payload["exit_code"])
	}
}

func TestRunShellTimesOut(t *testing.T) {
	session := NewSession(t.TempDir())
	tool := NewRunShell(session, 100*time.Millisecond)

	start := time.Now()
	_, err := tool.Call(context.Background(), map[string]any{"command": "sleep 5"})
	if err == nil {
		t.Fatal("want timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("err = %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout did not bound the call")
	}
}

func TestRunShellSessionWorkdir(t *testing.T) {
	dir := t.TempDir()
	session := NewSession(t.TempDir())
	tool := NewRunShell(session, 5*time.Second)

	out, err := tool.Call(context.Background(), map[string]any{"command": "pwd", "workdir": dir})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	got := strings.TrimSpace(out.(map[string]any)["stdout"].(string))
	if got != session.Cwd() {
		t.Errorf("pwd = %q, session cwd = %q", got, session.Cwd())
	}

	// The session keeps the directory for the next call.
	out, err = tool.Call(context.Background(), map[string]any{"command": "pwd"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if strings.TrimSpace(out.(map[string]any)["stdout"].(string)) != got {
		t.Error("session working directory did not persist")
	}
}

func TestRunShellRejectsBadWorkdir(t *testing.T) {
	session := NewSession(t.TempDir())
	tool := NewRunShell(session, time.Second)
	if _, err := tool.Call(context.Background(), map[string]any{"command": "true", "workdir": "/definitely/not/here"}); err == nil {
		t.Error("want error for missing workdir")
	}
}

func TestRunCodeShellSnippet(t *testing.T) {
	// Use the sh interpreter so the test does not depend on python3.
	session := NewSession(t.TempDir())
	tool := NewRunCode(session, 5*time.Second)

	out, err := tool.Call(context.Background(), map[string]any{"code": "echo 6*7 | awk -F'*' '{print $1*$2}'", "language": "sh"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got := strings.TrimSpace(out.(map[string]any)["stdout"].(string)); got != "42" {
		t.Errorf("stdout = %q", got)
	}
}

func TestRunCodeUnsupportedLanguage(t *testing.T) {
	tool := NewRunCode(NewSession(t.TempDir()), time.Second)
	if _, err := tool.Call(context.Background(), map[string]any{"code": "x", "language": "cobol"}); err == nil {
		t.Error("want error for unsupported language")
	}
}
