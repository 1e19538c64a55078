package ollama

import (
	"errors"
	"io"
	"strings"
	"testing"
)

// chunkReader returns at most n bytes per Read to exercise record
// reassembly across read boundaries.
type chunkReader struct {
	data []byte
	n    int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.n
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func collect(t *testing.T, d *Decoder) []Frame {
	t.Helper()
	var frames []Frame
	for {
		f, err := d.Next()
		if errors.Is(err, io.EOF) {
			return frames
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		frames = append(frames, *f)
	}
}

const sampleStream = `{"message":{"role":"assistant","content":"hel"},"done":false}
{"message":{"role":"assistant","content":"lo"},"done":false}
{"message":{"role":"assistant","content":""},"done":true,"metrics":{"prompt_eval_count":3,"eval_count":2,"total_duration":5000000}}
`

func TestDecoderBasicStream(t *testing.T) {
	frames := collect(t, NewDecoder(strings.NewReader(sampleStream)))

	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3: %+v", len(frames), frames)
	}
	if frames[0].Kind != FrameDelta || frames[0].Delta != "hel" {
		t.Errorf("frame 0 = %+v", frames[0])
	}
	if frames[1].Kind != FrameDelta || frames[1].Delta != "lo" {
		t.Errorf("frame 1 = %+v", frames[1])
	}
	done := frames[2]
	if done.Kind != FrameDone {
		t.Fatalf("frame 2 = %+v", done)
	}
	if done.Usage.PromptEvalCount == nil || *done.Usage.PromptEvalCount != 3 {
		t.Errorf("PromptEvalCount = %v", done.Usage.PromptEvalCount)
	}
	if done.Usage.EvalCount == nil || *done.Usage.EvalCount != 2 {
		t.Errorf("EvalCount = %v", done.Usage.EvalCount)
	}
	if done.Usage.TotalDurationMS == nil || *done.Usage.TotalDurationMS != 5 {
		t.Errorf("TotalDurationMS = %v", done.Usage.TotalDurationMS)
	}
	if done.Usage.EvalDurationMS != nil {
		t.Errorf("EvalDurationMS = %v, want nil", done.Usage.EvalDurationMS)
	}
}

func TestDecoderReassemblesSplitRecords(t *testing.T) {
	// Byte-exact round trip regardless of where the network splits the
	// line: try every chunk size down to a single byte.
	for _, size := range []int{1, 2, 3, 7, 16, 1024} {
		d := NewDecoder(&chunkReader{data: []byte(sampleStream), n: size})
		frames := collect(t, d)
		if len(frames) != 3 {
			t.Fatalf("chunk size %d: got %d frames, want 3", size, len(frames))
		}
		if frames[0].Delta+frames[1].Delta != "hello" {
			t.Errorf("chunk size %d: reassembled %q", size, frames[0].Delta+frames[1].Delta)
		}
	}
}

func TestDecoderSkipsUnparsableLines(t *testing.T) {
	stream := "\n" +
		`not json at all` + "\n" +
		`{"message":{"content":"ok"},"done":false}` + "\n" +
		"   \n" +
		`{"done":true}` + "\n"
	frames := collect(t, NewDecoder(strings.NewReader(stream)))

	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2: %+v", len(frames), frames)
	}
	if frames[0].Delta != "ok" || frames[1].Kind != FrameDone {
		t.Errorf("frames = %+v", frames)
	}
}

func TestDecoderToolCallBatch(t *testing.T) {
	stream := `{"message":{"content":"thinking"},"done":false}` + "\n" +
		`{"message":{"content":"","tool_calls":[{"function":{"name":"web_search","arguments":{"query":"x"}}},{"id":"b1","name":"open_url","arguments":"{\"url\":\"http://e.com\"}"}]},"done":false}` + "\n" +
		`{"message":{"content":"stray delta after ceding"},"done":false}` + "\n" +
		`{"done":true}` + "\n"
	frames := collect(t, NewDecoder(strings.NewReader(stream)))

	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3 (delta, batch, done): %+v", len(frames), frames)
	}
	batch := frames[1]
	if batch.Kind != FrameToolCalls || len(batch.ToolCalls) != 2 {
		t.Fatalf("frame 1 = %+v", batch)
	}
	if batch.ToolCalls[0].Name != "web_search" {
		t.Errorf("call 0 name = %q", batch.ToolCalls[0].Name)
	}
	if batch.ToolCalls[0].ID == "" {
		t.Error("call without id should get one generated")
	}
	if batch.ToolCalls[1].ID != "b1" || batch.ToolCalls[1].Name != "open_url" {
		t.Errorf("call 1 = %+v", batch.ToolCalls[1])
	}
	args, err := batch.ToolCalls[1].Arguments.Parse()
	if err != nil {
		t.Fatalf("parse string-encoded arguments: %v", err)
	}
	if args["url"] != "http://e.com" {
		t.Errorf("args = %v", args)
	}
	if frames[2].Kind != FrameDone {
		t.Errorf("deltas after a tool batch should be dropped, got %+v", frames[2])
	}
}

func TestDecoderTopLevelCounters(t *testing.T) {
	stream := `{"message":{"content":"hi"},"done":true,"prompt_eval_count":10,"eval_count":4,"total_duration":2000000,"eval_duration":1000000}` + "\n"
	frames := collect(t, NewDecoder(strings.NewReader(stream)))

	if len(frames) != 2 {
		t.Fatalf("got %d frames, want delta+done: %+v", len(frames), frames)
	}
	u := frames[1].Usage
	if u.PromptEvalCount == nil || *u.PromptEvalCount != 10 {
		t.Errorf("PromptEvalCount = %v", u.PromptEvalCount)
	}
	if u.TotalDurationMS == nil || *u.TotalDurationMS != 2 {
		t.Errorf("TotalDurationMS = %v", u.TotalDurationMS)
	}
	if u.EvalDurationMS == nil || *u.EvalDurationMS != 1 {
		t.Errorf("EvalDurationMS = %v", u.EvalDurationMS)
	}
}

func TestDecoderStopsAfterCompletion(t *testing.T) {
	stream := `{"done":true}` + "\n" + `{"message":{"content":"late"},"done":false}` + "\n"
	d := NewDecoder(strings.NewReader(stream))

	f, err := d.Next()
	if err != nil || f.Kind != FrameDone {
		t.Fatalf("first frame = %+v, %v", f, err)
	}
	if _, err := d.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("want io.EOF after completion, got %v", err)
	}
}
