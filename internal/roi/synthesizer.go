package roi

import (
	"fmt"

	"github.com/banshee-data/roi-relay/internal/objmeta"
	"github.com/banshee-data/roi-relay/internal/qname"
)

// SynthesizerConfig configures a RegionSynthesizer.
type SynthesizerConfig struct {
	// Name overrides the stage name used in logs. Defaults to
	// "region_synthesizer".
	Name string
	// Inputs lists the "category.label" names of nodes that spawn a region.
	Inputs []string
	// ROI is the "category.label" name given to each synthesized node.
	ROI string
}

// RegionSynthesizer creates one temporary child node per matching
// detection, with the detection's bounding box.
type RegionSynthesizer struct {
	name   string
	inputs qname.Set
	roi    qname.Name
	stats  counters
}

// NewRegionSynthesizer validates cfg and returns the stage.
func NewRegionSynthesizer(cfg SynthesizerConfig) (*RegionSynthesizer, error) {
	inputs, err := qname.ParseList("inputs", cfg.Inputs)
	if err != nil {
		return nil, err
	}
	roi, err := qname.Parse("roi", cfg.ROI)
	if err != nil {
		return nil, err
	}
	name := cfg.Name
	if name == "" {
		name = "region_synthesizer"
	}
	diagf("%s: inputs=%v roi=%s", name, inputs, roi)
	return &RegionSynthesizer{name: name, inputs: qname.NewSet(inputs...), roi: roi}, nil
}

// Name implements FrameStage.
func (s *RegionSynthesizer) Name() string { return s.name }

// ROI returns the name given to synthesized nodes.
func (s *RegionSynthesizer) ROI() qname.Name { return s.roi }

// Stats returns the stage's counters.
func (s *RegionSynthesizer) Stats() Stats { return s.stats.snapshot() }

// ProcessFrame adds a region node under every node named in Inputs.
// Matching is done on a snapshot taken before any insertion, so the new
// nodes are never matched themselves.
func (s *RegionSynthesizer) ProcessFrame(frame *objmeta.Frame) error {
	g := frame.Graph
	matched := g.Select(func(n *objmeta.ObjectNode) bool {
		return s.inputs.Contains(n.Name())
	})
	for _, src := range matched {
		region := objmeta.NewObjectNode(s.roi, src.BBox)
		// Register first; the graph only links registered nodes.
		id, err := g.Add(region)
		if err != nil {
			return fmt.Errorf("%s: frame %s: %w", s.name, frame.FrameID, err)
		}
		if err := g.SetParent(id, src.ID()); err != nil {
			return fmt.Errorf("%s: frame %s: %w", s.name, frame.FrameID, err)
		}
	}
	s.stats.frames.Add(1)
	s.stats.matched.Add(uint64(len(matched)))
	s.stats.created.Add(uint64(len(matched)))
	tracef("%s: frame %s: created %d %s nodes", s.name, frame.FrameID, len(matched), s.roi)
	return nil
}
