package tools

import (
	"net/http"
	"time"

	"ollamabridge/internal/store"
)

// Options carries the operator knobs the collaborators need.
type Options struct {
	HTTPTimeout time.Duration
	ExecTimeout time.Duration
	Workspace   string
	CacheSize   int
}

// DefaultRegistry assembles the full tool catalogue. Adding a tool here is
// the single place a new capability is declared: the dispatch table and the
// schema catalogue both derive from this registration.
func DefaultRegistry(opts Options, st store.Store) (*Registry, error) {
	httpClient := &http.Client{Timeout: opts.HTTPTimeout}

	search, err := NewWebSearch(httpClient, opts.CacheSize)
	if err != nil {
		return nil, err
	}
	openURL, err := NewOpenURL(httpClient, opts.CacheSize)
	if err != nil {
		return nil, err
	}
	workspace, err := NewWorkspace(opts.Workspace)
	if err != nil {
		return nil, err
	}
	session := NewSession(workspace.Root())

	return NewRegistry(
		search,
		openURL,
		NewRunShell(session, opts.ExecTimeout),
		NewRunCode(session, opts.ExecTimeout),
		NewReadFile(workspace),
		NewWriteFile(workspace),
		NewSaveNote(st),
		NewListNotes(st),
		NewSavePreference(st),
		NewListPreferences(st),
	)
}
