package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/banshee-data/roi-relay/internal/objmeta"
)

// maxLineSize bounds one JSON frame record.
const maxLineSize = 16 * 1024 * 1024

// JSONLinesSource reads one frame record per line. Blank lines are
// skipped; frames without an ID are given a random one.
type JSONLinesSource struct {
	scanner *bufio.Scanner
	line    int
}

// NewJSONLinesSource reads frames from r.
func NewJSONLinesSource(r io.Reader) *JSONLinesSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &JSONLinesSource{scanner: sc}
}

// Next implements FrameSource.
func (s *JSONLinesSource) Next(ctx context.Context) (*objmeta.Frame, error) {
	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.line++
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		frame, err := objmeta.DecodeFrame([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", s.line, err)
		}
		if frame.FrameID == "" {
			frame.FrameID = uuid.NewString()
		}
		return frame, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", s.line+1, err)
	}
	return nil, io.EOF
}

// JSONLinesSink writes one frame record per line. Call Flush when done.
type JSONLinesSink struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONLinesSink writes frames to w.
func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	bw := bufio.NewWriter(w)
	return &JSONLinesSink{w: bw, enc: json.NewEncoder(bw)}
}

// Write implements FrameSink.
func (s *JSONLinesSink) Write(frame *objmeta.Frame) error {
	return s.enc.Encode(frame.Record())
}

// Flush writes any buffered frames to the underlying writer.
func (s *JSONLinesSink) Flush() error {
	return s.w.Flush()
}

// SliceSource yields frames from a slice. Useful for tests and replays
// already held in memory.
type SliceSource struct {
	frames []*objmeta.Frame
	next   int
}

// NewSliceSource returns a source over frames.
func NewSliceSource(frames ...*objmeta.Frame) *SliceSource {
	return &SliceSource{frames: frames}
}

// Next implements FrameSource.
func (s *SliceSource) Next(ctx context.Context) (*objmeta.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

// FrameCollector is a FrameSink that keeps every frame in memory.
type FrameCollector struct {
	Frames []*objmeta.Frame
}

// Write implements FrameSink.
func (c *FrameCollector) Write(frame *objmeta.Frame) error {
	c.Frames = append(c.Frames, frame)
	return nil
}
