package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestToolCallUnmarshalFlat(t *testing.T) {
	var tc ToolCall
	if err := json.Unmarshal([]byte(`{"id":"a1","name":"web_search","arguments":{"query":"go"}}`), &tc); err != nil {
		t.Fatal(err)
	}
	if tc.ID != "a1" || tc.Name != "web_search" {
		t.Errorf("tc = %+v", tc)
	}
	args, err := tc.Arguments.Parse()
	if err != nil {
		t.Fatal(err)
	}
	if args["query"] != "go" {
		t.Errorf("args = %v", args)
	}
}

func TestToolCallUnmarshalNested(t *testing.T) {
	var tc ToolCall
	raw := `{"id":"a2","type":"function","function":{"name":"open_url","arguments":"{\"url\":\"http://x\"}"}}`
	if err := json.Unmarshal([]byte(raw), &tc); err != nil {
		t.Fatal(err)
	}
	if tc.Name != "open_url" {
		t.Errorf("Name = %q", tc.Name)
	}
	args, err := tc.Arguments.Parse()
	if err != nil {
		t.Fatal(err)
	}
	if args["url"] != "http://x" {
		t.Errorf("args = %v", args)
	}
}

func TestToolCallMarshalNestedForm(t *testing.T) {
	tc := ToolCall{ID: "a3", Name: "run_shell", Arguments: ArgumentsFrom(map[string]any{"command": "ls"})}
	b, err := json.Marshal(tc)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if !strings.Contains(s, `"function"`) || !strings.Contains(s, `"run_shell"`) {
		t.Errorf("marshalled form = %s", s)
	}

	var back ToolCall
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.ID != "a3" || back.Name != "run_shell" {
		t.Errorf("round trip = %+v", back)
	}
}

func TestArgumentsParseFailures(t *testing.T) {
	var tc ToolCall
	if err := json.Unmarshal([]byte(`{"name":"x","arguments":"{not json"}`), &tc); err != nil {
		t.Fatalf("decode itself must not fail: %v", err)
	}
	if _, err := tc.Arguments.Parse(); err == nil {
		t.Error("want parse error for malformed string payload")
	}
}

func TestArgumentsParseEmpty(t *testing.T) {
	var a Arguments
	args, err := a.Parse()
	if err != nil || len(args) != 0 {
		t.Errorf("Parse() = %v, %v", args, err)
	}
}
