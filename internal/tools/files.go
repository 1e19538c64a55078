package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxReadBytes = 1 << 20

// Workspace confines the file tools to one directory tree. Paths are
// resolved relative to the root; anything escaping it is a tool-level
// error.
type Workspace struct {
	root string
}

func NewWorkspace(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Workspace{root: abs}, nil
}

func (w *Workspace) Root() string { return w.root }

func (w *Workspace) resolve(rel string) (string, error) {
	path := filepath.Clean(filepath.Join(w.root, rel))
	if path != w.root && !strings.HasPrefix(path, w.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace", rel)
	}
	return path, nil
}

// ReadFile reads a workspace file.
type ReadFile struct {
	ws *Workspace
}

func NewReadFile(ws *Workspace) *ReadFile { return &ReadFile{ws: ws} }

func (r *ReadFile) Name() string { return "read_file" }

func (r *ReadFile) Description() string {
	return "Read a text file from the workspace directory."
}

func (r *ReadFile) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Path relative to the workspace root"},
		},
		"required": []string{"path"},
	}
}

func (r *ReadFile) Call(_ context.Context, args map[string]any) (any, error) {
	rel, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}
	path, err := r.ws.resolve(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	if info.Size() > maxReadBytes {
		return nil, fmt.Errorf("read %s: file exceeds %d bytes", rel, maxReadBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return map[string]any{"path": rel, "content": string(data)}, nil
}

// WriteFile writes a workspace file, creating parent directories.
type WriteFile struct {
	ws *Workspace
}

func NewWriteFile(ws *Workspace) *WriteFile { return &WriteFile{ws: ws} }

func (w *WriteFile) Name() string { return "write_file" }

func (w *WriteFile) Description() string {
	return "Write a text file inside the workspace directory."
}

func (w *WriteFile) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":    map[string]any{"type": "string", "description": "Path relative to the workspace root"},
			"content": map[string]any{"type": "string", "description": "File content"},
		},
		"required": []string{"path", "content"},
	}
}

func (w *WriteFile) Call(_ context.Context, args map[string]any) (any, error) {
	rel, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}
	content, ok := args["content"].(string)
	if !ok {
		return nil, fmt.Errorf("argument %q must be a string", "content")
	}
	path, err := w.ws.resolve(rel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("write %s: %w", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", rel, err)
	}
	return map[string]any{"path": rel, "bytes_written": len(content)}, nil
}
