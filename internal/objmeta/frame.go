package objmeta

// Frame is the unit of work handed to each stage. It owns its graph for
// the duration of one processing cycle.
type Frame struct {
	FrameID  string
	SourceID string
	PTS      int64
	Graph    *Graph
}

// NewFrame returns a frame with an empty graph.
func NewFrame(frameID, sourceID string, pts int64) *Frame {
	return &Frame{FrameID: frameID, SourceID: sourceID, PTS: pts, Graph: NewGraph()}
}
