package roi

import (
	"errors"

	"github.com/banshee-data/roi-relay/internal/objmeta"
)

// FrameStage is the contract shared by every stage the pipeline drives.
type FrameStage interface {
	// Name identifies the stage in logs and errors.
	Name() string
	// ProcessFrame mutates frame's graph in place.
	ProcessFrame(frame *objmeta.Frame) error
}

// ErrOrphanNode is reported by AttributeRelay, under OrphanError, for a
// temporary node without a resolvable parent.
var ErrOrphanNode = errors.New("roi: temporary node has no parent")

// Compile-time interface checks.
var (
	_ FrameStage = (*RegionSynthesizer)(nil)
	_ FrameStage = (*AttributeStub)(nil)
	_ FrameStage = (*AttributeRelay)(nil)
)
