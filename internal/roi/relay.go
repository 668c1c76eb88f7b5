package roi

import (
	"errors"
	"fmt"

	"github.com/banshee-data/roi-relay/internal/objmeta"
	"github.com/banshee-data/roi-relay/internal/qname"
)

// OrphanPolicy decides what AttributeRelay does with a region node whose
// parent cannot be resolved. The node is removed under every policy.
type OrphanPolicy string

const (
	// OrphanDrop skips the copy and logs on the ops stream.
	OrphanDrop OrphanPolicy = "drop"
	// OrphanError skips the copy and fails the frame with ErrOrphanNode
	// after every region has been removed.
	OrphanError OrphanPolicy = "error"
)

// ParseOrphanPolicy maps a configuration value to a policy. The empty
// string selects OrphanDrop.
func ParseOrphanPolicy(s string) (OrphanPolicy, error) {
	switch OrphanPolicy(s) {
	case "", OrphanDrop:
		return OrphanDrop, nil
	case OrphanError:
		return OrphanError, nil
	}
	return "", fmt.Errorf("on_orphan: unknown policy %q (want %q or %q)", s, OrphanDrop, OrphanError)
}

// RelayFunc observes each attribute copied onto a parent node. It runs
// synchronously inside ProcessFrame and must not mutate the graph.
type RelayFunc func(frame *objmeta.Frame, parent *objmeta.ObjectNode, attr objmeta.Attribute)

// RelayConfig configures an AttributeRelay.
type RelayConfig struct {
	Name      string
	ROI       string
	Attribute string
	OnOrphan  string
	// OnRelay, when non-nil, is called for every copy once the frame has
	// been drained without error. A frame failed under OrphanError fires
	// no calls.
	OnRelay RelayFunc
}

// AttributeRelay copies an attribute from each region node onto the
// region's parent and then removes the region.
type AttributeRelay struct {
	name     string
	roi      qname.Name
	key      qname.Name
	onOrphan OrphanPolicy
	onRelay  RelayFunc
	stats    counters
}

// NewAttributeRelay validates cfg and returns the stage.
func NewAttributeRelay(cfg RelayConfig) (*AttributeRelay, error) {
	roi, err := qname.Parse("roi", cfg.ROI)
	if err != nil {
		return nil, err
	}
	key, err := qname.Parse("attribute", cfg.Attribute)
	if err != nil {
		return nil, err
	}
	policy, err := ParseOrphanPolicy(cfg.OnOrphan)
	if err != nil {
		return nil, err
	}
	name := cfg.Name
	if name == "" {
		name = "attribute_relay"
	}
	diagf("%s: roi=%s attribute=%s on_orphan=%s", name, roi, key, policy)
	return &AttributeRelay{name: name, roi: roi, key: key, onOrphan: policy, onRelay: cfg.OnRelay}, nil
}

// Name implements FrameStage.
func (r *AttributeRelay) Name() string { return r.name }

// ROI returns the name of the region nodes this stage drains.
func (r *AttributeRelay) ROI() qname.Name { return r.roi }

// Stats returns the stage's counters.
func (r *AttributeRelay) Stats() Stats { return r.stats.snapshot() }

// ProcessFrame drains every region node in selection order. A region
// without the attribute is removed silently: the analysis found nothing.
func (r *AttributeRelay) ProcessFrame(frame *objmeta.Frame) error {
	g := frame.Graph
	regions := g.Select(func(n *objmeta.ObjectNode) bool { return n.Is(r.roi) })

	type copied struct {
		parent *objmeta.ObjectNode
		attr   objmeta.Attribute
	}
	var done []copied
	var dropped, orphaned uint64
	var orphanErrs []error
	for _, region := range regions {
		id := region.ID()
		if attr, ok := region.Attr(r.key); ok {
			if parent, ok := g.Parent(id); ok {
				// The stored attribute travels with its own identity.
				parent.SetAttr(attr)
				done = append(done, copied{parent: parent, attr: attr})
			} else {
				orphaned++
				opsf("%s: frame %s: node %d has %s but no parent; attribute discarded", r.name, frame.FrameID, id, r.key)
				if r.onOrphan == OrphanError {
					orphanErrs = append(orphanErrs, fmt.Errorf("node %d: %w", id, ErrOrphanNode))
				}
			}
		} else {
			dropped++
		}
		if err := g.Remove(id); err != nil {
			return fmt.Errorf("%s: frame %s: %w", r.name, frame.FrameID, err)
		}
	}

	relayed := uint64(len(done))
	r.stats.frames.Add(1)
	r.stats.matched.Add(uint64(len(regions)))
	r.stats.relayed.Add(relayed)
	r.stats.dropped.Add(dropped)
	r.stats.orphaned.Add(orphaned)
	tracef("%s: frame %s: drained %d nodes (relayed=%d dropped=%d orphaned=%d)",
		r.name, frame.FrameID, len(regions), relayed, dropped, orphaned)

	if len(orphanErrs) > 0 {
		return fmt.Errorf("%s: frame %s: %w", r.name, frame.FrameID, errors.Join(orphanErrs...))
	}
	// The hook only sees frames that passed.
	if r.onRelay != nil {
		for _, c := range done {
			r.onRelay(frame, c.parent, c.attr)
		}
	}
	return nil
}
