package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/banshee-data/roi-relay/internal/objmeta"
	"github.com/banshee-data/roi-relay/internal/roi"
	"github.com/banshee-data/roi-relay/internal/timeutil"
)

// FrameSource yields frames in order. Next returns io.EOF when the
// source is exhausted.
type FrameSource interface {
	Next(ctx context.Context) (*objmeta.Frame, error)
}

// FrameSink receives processed frames.
type FrameSink interface {
	Write(frame *objmeta.Frame) error
}

// statser is implemented by stages that expose counters.
type statser interface {
	Stats() roi.Stats
}

// StageStats pairs a stage name with its counters.
type StageStats struct {
	Name  string
	Stats roi.Stats
}

// Stats is a snapshot of the pipeline's counters.
type Stats struct {
	Frames            uint64
	FailedFrames      uint64
	LastFrameDuration time.Duration
	Stages            []StageStats
}

// Relayed sums the relayed counters of every stage.
func (s Stats) Relayed() uint64 {
	var n uint64
	for _, st := range s.Stages {
		n += st.Stats.Relayed
	}
	return n
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock used to time frames.
func WithClock(c timeutil.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithContinueOnError makes Run log and count failed frames instead of
// stopping. Failed frames are not written to the sink.
func WithContinueOnError(v bool) Option {
	return func(p *Pipeline) { p.continueOnError = v }
}

// Pipeline runs a fixed sequence of stages over each frame.
type Pipeline struct {
	stages          []roi.FrameStage
	clock           timeutil.Clock
	continueOnError bool

	frames        atomic.Uint64
	failed        atomic.Uint64
	lastFrameNano atomic.Int64
}

// New returns a pipeline running stages in the given order.
func New(stages []roi.FrameStage, opts ...Option) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, errors.New("pipeline: no stages")
	}
	for i, s := range stages {
		if isNilInterface(s) {
			return nil, fmt.Errorf("pipeline: stage %d is nil", i)
		}
	}
	p := &Pipeline{stages: append([]roi.FrameStage(nil), stages...), clock: timeutil.RealClock{}}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Stages returns the stages in execution order.
func (p *Pipeline) Stages() []roi.FrameStage {
	return append([]roi.FrameStage(nil), p.stages...)
}

// ProcessFrame runs every stage on frame in order and stops at the
// first failure. ProcessFrame is safe to call concurrently for
// different frames.
func (p *Pipeline) ProcessFrame(frame *objmeta.Frame) error {
	if frame == nil || frame.Graph == nil {
		return errors.New("pipeline: frame has no graph")
	}
	start := p.clock.Now()
	defer func() {
		d := p.clock.Since(start)
		p.lastFrameNano.Store(int64(d))
		tracef("frame %s: %d nodes after %d stages in %s", frame.FrameID, frame.Graph.Len(), len(p.stages), d)
	}()

	p.frames.Add(1)
	for _, s := range p.stages {
		if err := s.ProcessFrame(frame); err != nil {
			p.failed.Add(1)
			return fmt.Errorf("stage %s: %w", s.Name(), err)
		}
	}
	return nil
}

// Run reads frames from src until it is exhausted or ctx is cancelled,
// processes each and writes it to sink.
func (p *Pipeline) Run(ctx context.Context, src FrameSource, sink FrameSink) (Stats, error) {
	for {
		if err := ctx.Err(); err != nil {
			return p.Stats(), err
		}
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return p.Stats(), fmt.Errorf("read frame: %w", err)
		}
		if frame == nil {
			return p.Stats(), errors.New("read frame: source returned no frame")
		}

		if err := p.ProcessFrame(frame); err != nil {
			if !p.continueOnError {
				return p.Stats(), fmt.Errorf("frame %s: %w", frame.FrameID, err)
			}
			opsf("frame %s skipped: %v", frame.FrameID, err)
			continue
		}
		if err := sink.Write(frame); err != nil {
			return p.Stats(), fmt.Errorf("write frame %s: %w", frame.FrameID, err)
		}
	}
	st := p.Stats()
	diagf("run complete: frames=%d failed=%d relayed=%d", st.Frames, st.FailedFrames, st.Relayed())
	return st, nil
}

// Stats returns the pipeline and per-stage counters.
func (p *Pipeline) Stats() Stats {
	st := Stats{
		Frames:            p.frames.Load(),
		FailedFrames:      p.failed.Load(),
		LastFrameDuration: time.Duration(p.lastFrameNano.Load()),
	}
	for _, s := range p.stages {
		ss := StageStats{Name: s.Name()}
		if c, ok := s.(statser); ok {
			ss.Stats = c.Stats()
		}
		st.Stages = append(st.Stages, ss)
	}
	return st
}
