package ollama

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/google/uuid"

	"ollamabridge/internal/domain"
)

// FrameKind tags a decoded protocol frame.
type FrameKind int

const (
	FrameDelta FrameKind = iota
	FrameToolCalls
	FrameDone
)

// Frame is one decoded event of the upstream chat stream.
type Frame struct {
	Kind      FrameKind
	Delta     string
	ToolCalls []domain.ToolCall
	Usage     domain.Usage
}

// Decoder turns the raw response body into a lazy sequence of frames. It
// reassembles newline-delimited JSON records across read boundaries, skips
// lines that do not parse (the backend may interleave blank keep-alives),
// and stops after the completion record.
type Decoder struct {
	scanner    *bufio.Scanner
	pending    []Frame
	toolsCeded bool
	done       bool
}

func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 1024*1024)
	return &Decoder{scanner: sc}
}

// Next returns the next frame. io.EOF signals a clean end of the sequence:
// either a completion record was seen or the upstream closed. Any other
// error is a transport failure.
func (d *Decoder) Next() (*Frame, error) {
	for {
		if len(d.pending) > 0 {
			f := d.pending[0]
			d.pending = d.pending[1:]
			return &f, nil
		}
		if d.done {
			return nil, io.EOF
		}
		if !d.scanner.Scan() {
			if err := d.scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec chatRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		d.pending = d.framesFor(&rec)
	}
}

// framesFor maps one record to zero or more frames. A single record may
// carry several facets at once, e.g. a final delta plus completion
// counters.
func (d *Decoder) framesFor(rec *chatRecord) []Frame {
	var frames []Frame
	if rec.Message != nil {
		if rec.Message.Content != "" && !d.toolsCeded {
			frames = append(frames, Frame{Kind: FrameDelta, Delta: rec.Message.Content})
		}
		if len(rec.Message.ToolCalls) > 0 {
			frames = append(frames, Frame{Kind: FrameToolCalls, ToolCalls: backfillIDs(rec.Message.ToolCalls)})
			// The model has ceded control to tools; later deltas in
			// this turn are noise.
			d.toolsCeded = true
		}
	}
	if rec.Done {
		frames = append(frames, Frame{Kind: FrameDone, Usage: rec.usage()})
		d.done = true
	}
	return frames
}

// backfillIDs assigns correlation ids to calls the backend delivered
// without one, so tool results can always reference their call.
func backfillIDs(calls []domain.ToolCall) []domain.ToolCall {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = uuid.NewString()
		}
	}
	return calls
}
