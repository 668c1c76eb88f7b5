package objmeta

import (
	"encoding/json"
	"fmt"
)

// FrameRecord is the JSON form of a frame. Object IDs belong to the
// producer of the record and are preserved through the pipeline.
type FrameRecord struct {
	FrameID  string         `json:"frame_id"`
	SourceID string         `json:"source_id,omitempty"`
	PTS      int64          `json:"pts,omitempty"`
	Objects  []ObjectRecord `json:"objects"`
}

// ObjectRecord is the JSON form of an object node.
type ObjectRecord struct {
	ID         uint64      `json:"id"`
	ParentID   uint64      `json:"parent_id,omitempty"`
	Category   string      `json:"category"`
	Label      string      `json:"label"`
	BBox       BoundingBox `json:"bbox"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// FromRecord builds a frame from its record. All nodes are registered
// before any parent link is set. Objects with a zero ID cannot be
// referenced as parents.
func FromRecord(rec FrameRecord) (*Frame, error) {
	f := NewFrame(rec.FrameID, rec.SourceID, rec.PTS)
	ids := make(map[uint64]NodeID, len(rec.Objects))
	byIndex := make([]NodeID, len(rec.Objects))
	for i, o := range rec.Objects {
		if _, dup := ids[o.ID]; dup && o.ID != 0 {
			return nil, fmt.Errorf("frame %s: object %d: duplicate id %d", rec.FrameID, i, o.ID)
		}
		n := &ObjectNode{Category: o.Category, Label: o.Label, BBox: o.BBox, ExternalID: o.ID}
		for _, a := range o.Attributes {
			n.SetAttr(a)
		}
		id, err := f.Graph.Add(n)
		if err != nil {
			return nil, fmt.Errorf("frame %s: object %d: %w", rec.FrameID, i, err)
		}
		byIndex[i] = id
		if o.ID != 0 {
			ids[o.ID] = id
		}
	}
	for i, o := range rec.Objects {
		if o.ParentID == 0 {
			continue
		}
		parent, ok := ids[o.ParentID]
		if !ok {
			return nil, fmt.Errorf("frame %s: object %d: parent %d: %w", rec.FrameID, o.ID, o.ParentID, ErrNodeNotFound)
		}
		if err := f.Graph.SetParent(byIndex[i], parent); err != nil {
			return nil, fmt.Errorf("frame %s: %w", rec.FrameID, err)
		}
	}
	return f, nil
}

// Record returns the JSON form of f. Nodes keep their ExternalID; nodes
// without one are numbered above the largest external ID in the frame so
// the two never collide. Parent links to removed nodes are omitted.
func (f *Frame) Record() FrameRecord {
	rec := FrameRecord{FrameID: f.FrameID, SourceID: f.SourceID, PTS: f.PTS}
	objs := f.Graph.Objects()

	var maxExternal uint64
	for _, n := range objs {
		maxExternal = max(maxExternal, n.ExternalID)
	}
	recordID := func(n *ObjectNode) uint64 {
		if n.ExternalID != 0 {
			return n.ExternalID
		}
		return maxExternal + uint64(n.ID())
	}

	rec.Objects = make([]ObjectRecord, 0, len(objs))
	for _, n := range objs {
		o := ObjectRecord{
			ID:         recordID(n),
			Category:   n.Category,
			Label:      n.Label,
			BBox:       n.BBox,
			Attributes: n.Attributes(),
		}
		if p, ok := f.Graph.Parent(n.ID()); ok {
			o.ParentID = recordID(p)
		}
		rec.Objects = append(rec.Objects, o)
	}
	return rec
}

// DecodeFrame parses a JSON frame record.
func DecodeFrame(data []byte) (*Frame, error) {
	var rec FrameRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse frame JSON: %w", err)
	}
	return FromRecord(rec)
}

// EncodeFrame serialises f as a JSON frame record.
func EncodeFrame(f *Frame) ([]byte, error) {
	return json.Marshal(f.Record())
}
