package roi

import "sync/atomic"

// Stats is a snapshot of a stage's counters since construction. Fields a
// stage does not use stay zero.
type Stats struct {
	Frames   uint64 // frames processed
	Matched  uint64 // nodes selected by the stage's name filter
	Created  uint64 // temporary nodes synthesized
	Written  uint64 // attributes written by an analysis stand-in
	Relayed  uint64 // attributes copied onto a parent
	Dropped  uint64 // temporary nodes removed without the target attribute
	Orphaned uint64 // temporary nodes removed without a resolvable parent
}

type counters struct {
	frames   atomic.Uint64
	matched  atomic.Uint64
	created  atomic.Uint64
	written  atomic.Uint64
	relayed  atomic.Uint64
	dropped  atomic.Uint64
	orphaned atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Frames:   c.frames.Load(),
		Matched:  c.matched.Load(),
		Created:  c.created.Load(),
		Written:  c.written.Load(),
		Relayed:  c.relayed.Load(),
		Dropped:  c.dropped.Load(),
		Orphaned: c.orphaned.Load(),
	}
}
