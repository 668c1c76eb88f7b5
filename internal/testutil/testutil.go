// Package testutil provides shared test fixtures for frame graphs.
//
// This package centralises the frame builders used by the stage and
// pipeline tests so the worked license-plate scenario is described once.
package testutil

import (
	"testing"

	"github.com/banshee-data/roi-relay/internal/objmeta"
	"github.com/banshee-data/roi-relay/internal/qname"
)

// Names used by the license-plate OCR scenario.
var (
	Plate = qname.Name{Category: "vehicle", Label: "license_plate"}
	Car   = qname.Name{Category: "vehicle", Label: "car"}
	ROI   = qname.Name{Category: "custom_roi", Label: "roi"}
	OCR   = qname.Name{Category: "my_ocr", Label: "text"}
)

// NewFrame returns an empty frame with a fixed source.
func NewFrame(frameID string) *objmeta.Frame {
	return objmeta.NewFrame(frameID, "cam-test", 0)
}

// MustAdd registers a node named name with bbox and fails the test on error.
func MustAdd(t testing.TB, f *objmeta.Frame, name qname.Name, bbox objmeta.BoundingBox) *objmeta.ObjectNode {
	t.Helper()
	n := objmeta.NewObjectNode(name, bbox)
	if _, err := f.Graph.Add(n); err != nil {
		t.Fatalf("add %s: %v", name, err)
	}
	return n
}

// MustAddChild registers a node and links it under parent.
func MustAddChild(t testing.TB, f *objmeta.Frame, parent *objmeta.ObjectNode, name qname.Name) *objmeta.ObjectNode {
	t.Helper()
	n := MustAdd(t, f, name, parent.BBox)
	if err := f.Graph.SetParent(n.ID(), parent.ID()); err != nil {
		t.Fatalf("set parent of %s: %v", name, err)
	}
	return n
}

// PlateFrame returns a frame holding one license-plate node per bbox.
func PlateFrame(t testing.TB, frameID string, bboxes ...objmeta.BoundingBox) (*objmeta.Frame, []*objmeta.ObjectNode) {
	t.Helper()
	f := NewFrame(frameID)
	plates := make([]*objmeta.ObjectNode, 0, len(bboxes))
	for _, b := range bboxes {
		plates = append(plates, MustAdd(t, f, Plate, b))
	}
	return f, plates
}

// NodesNamed returns the frame's nodes carrying name, in graph order.
func NodesNamed(f *objmeta.Frame, name qname.Name) []*objmeta.ObjectNode {
	return f.Graph.Select(func(n *objmeta.ObjectNode) bool { return n.Is(name) })
}
