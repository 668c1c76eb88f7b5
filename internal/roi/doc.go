// Package roi implements the temporary region-of-interest stages that run
// around an analysis step in a frame pipeline.
//
// RegionSynthesizer spawns a temporary child node for each matching
// detection, an analysis stage (AttributeStub stands in for a real model)
// attaches attributes to those children, and AttributeRelay copies the
// result back onto the parent and deletes the temporary node.
//
// Each stage holds only immutable configuration and atomic counters, so a
// single instance may process different frames concurrently. The pipeline
// host is responsible for running the stages in order and for giving each
// call exclusive access to its frame.
package roi
