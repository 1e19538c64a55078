package tools

import (
	"context"
	"fmt"

	"ollamabridge/internal/store"
)

// SaveNote persists a note through the injected store.
type SaveNote struct {
	store store.Store
}

func NewSaveNote(st store.Store) *SaveNote { return &SaveNote{store: st} }

func (s *SaveNote) Name() string { return "save_note" }

func (s *SaveNote) Description() string {
	return "Save a note for the user that persists across conversations."
}

func (s *SaveNote) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":   map[string]any{"type": "string", "description": "Short note title"},
			"content": map[string]any{"type": "string", "description": "Note body"},
		},
		"required": []string{"title", "content"},
	}
}

func (s *SaveNote) Call(ctx context.Context, args map[string]any) (any, error) {
	title, err := stringArg(args, "title")
	if err != nil {
		return nil, err
	}
	content, err := stringArg(args, "content")
	if err != nil {
		return nil, err
	}
	note, err := s.store.PutNote(ctx, title, content)
	if err != nil {
		return nil, fmt.Errorf("save note: %w", err)
	}
	return map[string]any{"note": note}, nil
}

// ListNotes returns every saved note.
type ListNotes struct {
	store store.Store
}

func NewListNotes(st store.Store) *ListNotes { return &ListNotes{store: st} }

func (l *ListNotes) Name() string { return "list_notes" }

func (l *ListNotes) Description() string {
	return "List all of the user's saved notes."
}

func (l *ListNotes) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (l *ListNotes) Call(ctx context.Context, _ map[string]any) (any, error) {
	notes, err := l.store.ListNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return map[string]any{"notes": notes}, nil
}

// SavePreference upserts one user preference key.
type SavePreference struct {
	store store.Store
}

func NewSavePreference(st store.Store) *SavePreference { return &SavePreference{store: st} }

func (s *SavePreference) Name() string { return "save_preference" }

func (s *SavePreference) Description() string {
	return "Remember a user preference, e.g. tone or formatting. Last writer wins per key."
}

func (s *SavePreference) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"key":   map[string]any{"type": "string", "description": "Preference name"},
			"value": map[string]any{"type": "string", "description": "Preference value"},
		},
		"required": []string{"key", "value"},
	}
}

func (s *SavePreference) Call(ctx context.Context, args map[string]any) (any, error) {
	key, err := stringArg(args, "key")
	if err != nil {
		return nil, err
	}
	value, err := stringArg(args, "value")
	if err != nil {
		return nil, err
	}
	if err := s.store.SetPreference(ctx, key, value); err != nil {
		return nil, fmt.Errorf("save preference: %w", err)
	}
	return map[string]any{"saved": map[string]string{key: value}}, nil
}

// ListPreferences returns every stored preference.
type ListPreferences struct {
	store store.Store
}

func NewListPreferences(st store.Store) *ListPreferences { return &ListPreferences{store: st} }

func (l *ListPreferences) Name() string { return "list_preferences" }

func (l *ListPreferences) Description() string {
	return "List all remembered user preferences."
}

func (l *ListPreferences) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (l *ListPreferences) Call(ctx context.Context, _ map[string]any) (any, error) {
	prefs, err := l.store.ListPreferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	return map[string]any{"preferences": prefs}, nil
}
