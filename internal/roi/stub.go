package roi

import (
	"github.com/banshee-data/roi-relay/internal/objmeta"
	"github.com/banshee-data/roi-relay/internal/qname"
)

// StubConfig configures an AttributeStub.
type StubConfig struct {
	Name      string
	ROI       string
	Attribute string
	// Value is written on every region. Defaults to 1.
	Value any
	// Confidence defaults to 1 when nil.
	Confidence *float64
}

// AttributeStub writes a constant attribute onto every region node. It
// stands in for a real analysis model when exercising a pipeline.
type AttributeStub struct {
	name  string
	roi   qname.Name
	attr  objmeta.Attribute
	stats counters
}

// NewAttributeStub validates cfg and returns the stage.
func NewAttributeStub(cfg StubConfig) (*AttributeStub, error) {
	roi, err := qname.Parse("roi", cfg.ROI)
	if err != nil {
		return nil, err
	}
	key, err := qname.Parse("attribute", cfg.Attribute)
	if err != nil {
		return nil, err
	}
	name := cfg.Name
	if name == "" {
		name = "attribute_stub"
	}
	value := cfg.Value
	if value == nil {
		value = 1
	}
	confidence := 1.0
	if cfg.Confidence != nil {
		confidence = *cfg.Confidence
	}
	diagf("%s: roi=%s attribute=%s value=%v confidence=%g", name, roi, key, value, confidence)
	return &AttributeStub{
		name: name,
		roi:  roi,
		attr: objmeta.Attribute{
			Category:   key.Category,
			Label:      key.Label,
			Value:      value,
			Confidence: confidence,
		},
	}, nil
}

// Name implements FrameStage.
func (s *AttributeStub) Name() string { return s.name }

// Stats returns the stage's counters.
func (s *AttributeStub) Stats() Stats { return s.stats.snapshot() }

// ProcessFrame writes the configured attribute on every region node,
// replacing any previous value under the same key.
func (s *AttributeStub) ProcessFrame(frame *objmeta.Frame) error {
	regions := frame.Graph.Select(func(n *objmeta.ObjectNode) bool { return n.Is(s.roi) })
	for _, n := range regions {
		n.SetAttr(s.attr)
	}
	s.stats.frames.Add(1)
	s.stats.matched.Add(uint64(len(regions)))
	s.stats.written.Add(uint64(len(regions)))
	tracef("%s: frame %s: wrote %s on %d nodes", s.name, frame.FrameID, s.attr.Key(), len(regions))
	return nil
}
