// Package pipeline drives frame stages in order.
//
// This package is the composition root: it imports the stage package
// (roi), configuration and the relay store, but none of those packages
// import pipeline/. The ordering contract between stages of one frame
// (synthesis, analysis, relay) is owned here, not by the stages.
package pipeline
