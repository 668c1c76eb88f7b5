package objmeta

import "github.com/banshee-data/roi-relay/internal/qname"

// NodeID identifies a node within one Graph. The zero value means
// "no node".
type NodeID uint64

// BoundingBox is the spatial extent of an object in frame pixels.
// Stages copy it verbatim and never compute with it.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Attribute is one derived value attached to an object node.
// Value is opaque to the pipeline.
type Attribute struct {
	Category   string  `json:"category"`
	Label      string  `json:"label"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Key returns the attribute's (category, label) identity.
func (a Attribute) Key() qname.Name {
	return qname.Name{Category: a.Category, Label: a.Label}
}

// ObjectNode is one detected or synthesized entity in a frame.
type ObjectNode struct {
	Category string
	Label    string
	BBox     BoundingBox
	// ExternalID is the identifier the node carried in its source record,
	// or zero for nodes created inside the pipeline. The graph never
	// assigns or changes it.
	ExternalID uint64

	id     NodeID
	parent NodeID
	graph  *Graph

	attrs     map[qname.Name]Attribute
	attrOrder []qname.Name
}

// NewObjectNode returns an unregistered node with no attributes.
func NewObjectNode(name qname.Name, bbox BoundingBox) *ObjectNode {
	return &ObjectNode{Category: name.Category, Label: name.Label, BBox: bbox}
}

// ID returns the node's identifier, or zero if it is not registered.
func (n *ObjectNode) ID() NodeID { return n.id }

// ParentID returns the stored parent key. Use Graph.Parent to resolve it;
// the key may refer to a node that has since been removed.
func (n *ObjectNode) ParentID() NodeID { return n.parent }

// Name returns the node's (category, label).
func (n *ObjectNode) Name() qname.Name {
	return qname.Name{Category: n.Category, Label: n.Label}
}

// Is reports whether the node carries the given name.
func (n *ObjectNode) Is(name qname.Name) bool {
	return n.Category == name.Category && n.Label == name.Label
}

// Attr looks up an attribute by key.
func (n *ObjectNode) Attr(key qname.Name) (Attribute, bool) {
	a, ok := n.attrs[key]
	return a, ok
}

// SetAttr stores a under its own key. A second write to the same key
// replaces the value and keeps the original position.
func (n *ObjectNode) SetAttr(a Attribute) {
	if n.attrs == nil {
		n.attrs = make(map[qname.Name]Attribute)
	}
	key := a.Key()
	if _, exists := n.attrs[key]; !exists {
		n.attrOrder = append(n.attrOrder, key)
	}
	n.attrs[key] = a
}

// Attributes returns the node's attributes in first-write order.
func (n *ObjectNode) Attributes() []Attribute {
	out := make([]Attribute, 0, len(n.attrOrder))
	for _, key := range n.attrOrder {
		out = append(out, n.attrs[key])
	}
	return out
}

// NumAttrs returns the number of distinct attribute keys.
func (n *ObjectNode) NumAttrs() int { return len(n.attrOrder) }
